// Package nodes defines the unit of work the scheduler walks: one task
// running in one package.
package nodes

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/monotask/mono/internal/fs"
	"github.com/monotask/mono/internal/util"
)

// PackageTask is one task bound to one package: everything the executor
// needs to run it and everything the hasher needed to fingerprint it.
type PackageTask struct {
	TaskID          string
	Task            string
	PackageName     string
	Pkg             *fs.PackageJSON
	EnvMode         util.EnvMode
	TaskDefinition  *fs.TaskDefinition
	Dir             string
	Command         string
	Outputs         []string
	ExcludedOutputs []string
	Hash            string
	LogFile         string
}

const logDir = ".mono"

// RepoRelativeSystemLogFile returns the repo-root-relative path to this
// task's captured log file.
func (pt *PackageTask) RepoRelativeSystemLogFile() string {
	return filepath.Join(pt.Dir, logDir, logFilename(pt.Task))
}

func (pt *PackageTask) packageRelativeSharableLogFile() string {
	return strings.Join([]string{logDir, logFilename(pt.Task)}, "/")
}

func logFilename(taskName string) string {
	escaped := strings.ReplaceAll(taskName, ":", "$colon$")
	return fmt.Sprintf("mono-%v.log", escaped)
}

// OutputPrefix returns the prefix used when logging this task's output.
func (pt *PackageTask) OutputPrefix(isSinglePackage bool) string {
	if isSinglePackage {
		return pt.Task
	}
	return fmt.Sprintf("%v:%v", pt.PackageName, pt.Task)
}

// HashableOutputs returns the package-relative output globs fed to the
// hasher, including the task's own log file so a fresh log is written on
// every cache restore even when task output globs are narrow.
func (pt *PackageTask) HashableOutputs() fs.TaskOutputs {
	inclusions := append([]string{pt.packageRelativeSharableLogFile()}, pt.TaskDefinition.Outputs.Inclusions...)
	outputs := fs.TaskOutputs{
		Inclusions: inclusions,
		Exclusions: pt.TaskDefinition.Outputs.Exclusions,
	}
	return outputs.Sort()
}
