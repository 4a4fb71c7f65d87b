package util

import "strings"

// TaskDelimiter separates a package name from a task name in a canonical
// task id, e.g. "web#build". Kept as a constant rather than inlined since
// it shows up in id construction, id parsing, and CLI argument parsing.
const TaskDelimiter = "#"

// RootPkgName is the reserved package name for tasks that are not scoped
// to any workspace package (root package.json scripts).
const RootPkgName = "//"

// GetTaskId builds the canonical "package#task" form. pkgName may be a
// string or anything with a String() method producing the package name.
func GetTaskId(pkgName interface{}, target string) string {
	if IsPackageTask(target) {
		return target
	}
	name, ok := pkgName.(string)
	if !ok {
		if s, ok := pkgName.(interface{ String() string }); ok {
			name = s.String()
		}
	}
	return name + TaskDelimiter + target
}

// RootTaskId returns the canonical id for a root-scoped task.
func RootTaskId(target string) string {
	return GetTaskId(RootPkgName, target)
}

// GetPackageTaskFromId splits a canonical "package#task" id back into its
// two parts. If taskId does not contain the delimiter, packageName is
// empty and task is taskId unchanged.
func GetPackageTaskFromId(taskId string) (packageName string, task string) {
	idx := strings.Index(taskId, TaskDelimiter)
	if idx < 0 {
		return "", taskId
	}
	return taskId[:idx], taskId[idx+len(TaskDelimiter):]
}

// IsPackageTask reports whether task is already in "package#task" form,
// i.e. contains the delimiter somewhere past the first rune (a leading
// delimiter would collide with the root package name "//").
func IsPackageTask(task string) bool {
	return strings.Index(task, TaskDelimiter) > 0
}

// StripPackageName removes any "package#" prefix from a task id, returning
// just the task name.
func StripPackageName(taskId string) string {
	_, task := GetPackageTaskFromId(taskId)
	return task
}
