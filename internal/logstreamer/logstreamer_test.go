// Copyright (c) 2013 Kevin van Zonneveld <kevin@vanzonneveld.net>. All rights reserved.
// Source: https://github.com/kvz/logstreamer
// SPDX-License-Identifier: MIT
package logstreamer

import (
	"bufio"
	"bytes"
	"log"
	"strings"
	"testing"
)

func TestLogstreamerFlushesPartialLine(t *testing.T) {
	const text = "Text without newline"

	var buffer bytes.Buffer
	byteWriter := bufio.NewWriter(&buffer)

	logger := log.New(byteWriter, "", 0)
	out := NewLogstreamer(logger, "", false)
	defer out.Close()

	if _, err := out.Write([]byte(text)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := out.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if err := byteWriter.Flush(); err != nil {
		t.Fatalf("byteWriter.Flush: %v", err)
	}

	if got := strings.TrimSpace(buffer.String()); got != text {
		t.Fatalf("got %q, want %q", got, text)
	}
}

func TestLogstreamerEmitsCompleteLinesWithoutWaitingForFlush(t *testing.T) {
	var buffer bytes.Buffer
	byteWriter := bufio.NewWriter(&buffer)
	logger := log.New(byteWriter, "", 0)

	out := NewLogstreamer(logger, "", false)
	defer out.Close()

	if _, err := out.Write([]byte("line one\nline two\npartial")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := byteWriter.Flush(); err != nil {
		t.Fatalf("byteWriter.Flush: %v", err)
	}

	got := buffer.String()
	if !strings.Contains(got, "line one\n") || !strings.Contains(got, "line two\n") {
		t.Fatalf("got %q, want both complete lines emitted", got)
	}
	if strings.Contains(got, "partial") {
		t.Fatalf("got %q, the trailing partial line should not be emitted before Flush", got)
	}
}

func TestLogstreamerRecordsWhenEnabled(t *testing.T) {
	var buffer bytes.Buffer
	logger := log.New(&buffer, "", 0)

	out := NewLogstreamer(logger, "stderr", true)
	defer out.Close()

	if _, err := out.Write([]byte("boom\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	recorded := out.FlushRecord()
	if !strings.Contains(recorded, "boom") {
		t.Errorf("FlushRecord got %q, want it to contain %q", recorded, "boom")
	}

	if second := out.FlushRecord(); second != "" {
		t.Errorf("FlushRecord should clear after reading, got %q", second)
	}
}

func TestPrettyStdoutWriterPrependsPrefix(t *testing.T) {
	var buffer bytes.Buffer
	w := &PrettyStdoutWriter{w: &buffer, Prefix: "web: "}

	n, err := w.Write([]byte("building\n"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if n != len("building\n") {
		t.Errorf("n got %d, want %d (caller-visible count excludes the prefix bytes)", n, len("building\n"))
	}
	if got := buffer.String(); got != "web: building\n" {
		t.Errorf("got %q, want %q", got, "web: building\n")
	}
}
