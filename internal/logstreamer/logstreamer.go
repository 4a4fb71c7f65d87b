// Copyright (c) 2013 Kevin van Zonneveld <kevin@vanzonneveld.net>. All rights reserved.
// Source: https://github.com/kvz/logstreamer
// SPDX-License-Identifier: MIT

// Package logstreamer line-buffers arbitrary writes so a task's raw
// stdout/stderr bytes (which can arrive split mid-line) come out of the
// io.Writer side as whole, prefixed lines.
package logstreamer

import (
	"bytes"
	"io"
	"log"
	"os"
	"strings"
)

// Logstreamer buffers writes until a full line accumulates, then emits
// it through Logger with a colorized stdout/stderr prefix.
type Logstreamer struct {
	Logger *log.Logger
	buf    *bytes.Buffer
	prefix string

	record  bool
	persist string

	colorOkay  string
	colorFail  string
	colorReset string
}

// NewLogstreamer creates a Logstreamer. prefix is normally "stdout" or
// "stderr" (colorized), or used verbatim otherwise. If record is true,
// every emitted line is retained and can be read back via FlushRecord.
func NewLogstreamer(logger *log.Logger, prefix string, record bool) *Logstreamer {
	streamer := &Logstreamer{
		Logger: logger,
		buf:    bytes.NewBuffer(nil),
		prefix: prefix,
		record: record,
	}

	if strings.HasPrefix(os.Getenv("TERM"), "xterm") {
		streamer.colorOkay = "\x1b[32m"
		streamer.colorFail = "\x1b[31m"
		streamer.colorReset = "\x1b[0m"
	}

	return streamer
}

func (l *Logstreamer) Write(p []byte) (n int, err error) {
	if n, err = l.buf.Write(p); err != nil {
		return
	}
	err = l.outputLines()
	return
}

// Close flushes any partial trailing line and resets the buffer.
func (l *Logstreamer) Close() error {
	if err := l.Flush(); err != nil {
		return err
	}
	l.buf = bytes.NewBuffer(nil)
	return nil
}

// Flush emits whatever remains in the buffer, even if it's not
// newline-terminated.
func (l *Logstreamer) Flush() error {
	p := make([]byte, l.buf.Len())
	if _, err := l.buf.Read(p); err != nil {
		return err
	}
	l.out(string(p))
	return nil
}

func (l *Logstreamer) outputLines() error {
	for {
		line, err := l.buf.ReadString('\n')
		if len(line) > 0 {
			if strings.HasSuffix(line, "\n") {
				l.out(line)
			} else {
				// Not a complete line yet; put it back for the next
				// write (or for Flush/Close to force out at EOF).
				if _, werr := l.buf.WriteString(line); werr != nil {
					return werr
				}
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// FlushRecord returns and clears everything recorded so far. Only
// meaningful when the streamer was created with record=true.
func (l *Logstreamer) FlushRecord() string {
	buffer := l.persist
	l.persist = ""
	return buffer
}

func (l *Logstreamer) out(str string) {
	if len(str) < 1 {
		return
	}
	if l.record {
		l.persist += str
	}
	switch l.prefix {
	case "stdout":
		str = l.colorOkay + l.prefix + l.colorReset + " " + str
	case "stderr":
		str = l.colorFail + l.prefix + l.colorReset + " " + str
	}
	l.Logger.Print(str)
}

// PrettyStdoutWriter prefixes every write with a fixed string before
// forwarding it to stdout, used to tag a task's interleaved output with
// its package:task label.
type PrettyStdoutWriter struct {
	w      io.Writer
	Prefix string
}

var _ io.Writer = (*PrettyStdoutWriter)(nil)

// NewPrettyStdoutWriter creates a PrettyStdoutWriter writing to os.Stdout.
func NewPrettyStdoutWriter(prefix string) *PrettyStdoutWriter {
	return &PrettyStdoutWriter{w: os.Stdout, Prefix: prefix}
}

func (psw *PrettyStdoutWriter) Write(p []byte) (int, error) {
	str := psw.Prefix + string(p)
	n, err := psw.w.Write([]byte(str))
	if err != nil {
		return n, err
	}
	return len(p), nil
}
