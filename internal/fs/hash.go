package fs

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/monotask/mono/internal/env"
)

// hashLength is the number of hex characters a content hash is truncated
// to everywhere it appears: file hashes, task hashes, and the global
// hash. 16 hex chars (8 bytes) is short enough to read in a log line and
// long enough that collisions are not a practical concern for a build
// cache keyed within one repository.
const hashLength = 16

func truncatedHex(sum [32]byte) string {
	return hex.EncodeToString(sum[:])[:hashLength]
}

// HashObject hashes an arbitrary ordered list of strings, the common
// shape every hashable struct in this package reduces to before hashing.
// Order matters: callers are responsible for sorting first.
func HashObject(parts ...string) string {
	h := sha256.New()
	for _, part := range parts {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	var sum [32]byte
	copy(sum[:], h.Sum(nil))
	return truncatedHex(sum)
}

// FileHashes maps a repo-relative unix path to the content hash of that
// file at the time it was read.
type FileHashes map[string]string

// CombinedHash reduces a FileHashes map to one hash, sorted by path so
// the result doesn't depend on directory walk order.
func (fh FileHashes) CombinedHash() string {
	paths := make([]string, 0, len(fh))
	for p := range fh {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	parts := make([]string, 0, len(paths)*2)
	for _, p := range paths {
		parts = append(parts, p, fh[p])
	}
	return HashObject(parts...)
}

// GlobalHashable is every input that feeds the repo-wide global hash: it
// changes whenever anything that could affect *every* task's output
// changes, so every task's own hash incorporates it.
type GlobalHashable struct {
	GlobalFileHashMap    FileHashes
	RootExternalDepsHash string
	Env                  []string
	ResolvedEnvVars      env.EnvironmentVariablePairs
	PassThroughEnv       []string
	EnvMode              string
	EngineVersion        string
}

// Hash reduces a GlobalHashable to its hash, in a fixed, order-independent
// field sequence.
func (g GlobalHashable) Hash() string {
	return HashObject(
		"globalFiles", g.GlobalFileHashMap.CombinedHash(),
		"externalDeps", g.RootExternalDepsHash,
		"globalEnv", strings.Join(sortedCopy(g.Env), ","),
		"resolvedEnv", strings.Join(g.ResolvedEnvVars, ","),
		"passThroughEnv", strings.Join(sortedCopy(g.PassThroughEnv), ","),
		"envMode", g.EnvMode,
		"engineVersion", g.EngineVersion,
	)
}

// TaskHashable is every input that feeds one task's own content hash, on
// top of whatever its dependencies already contributed.
type TaskHashable struct {
	GlobalHash           string
	TaskDependencyHashes []string
	HashOfFiles          string
	ExternalDepsHash     string
	Task                 string
	Outputs              TaskOutputs
	PassThruArgs         []string
	Env                  []string
	ResolvedEnvVars      env.EnvironmentVariablePairs
	PassThroughEnv       []string
	EnvMode              string
}

// Hash reduces a TaskHashable to its hash. TaskDependencyHashes must
// already be sorted by the caller (internal/taskhash sorts its
// dependency hash list before constructing this struct) - that sortedness
// is what gives the overall scheme its Merkle-tree property: a task's
// hash is a function of its own inputs plus its dependencies' hashes,
// never their inputs directly.
func (t TaskHashable) Hash() string {
	return HashObject(
		"globalHash", t.GlobalHash,
		"taskDependencyHashes", strings.Join(t.TaskDependencyHashes, ","),
		"hashOfFiles", t.HashOfFiles,
		"externalDepsHash", t.ExternalDepsHash,
		"task", t.Task,
		"outputsInclusions", strings.Join(t.Outputs.Inclusions, ","),
		"outputsExclusions", strings.Join(t.Outputs.Exclusions, ","),
		"passThruArgs", strings.Join(t.PassThruArgs, " "),
		"env", strings.Join(sortedCopy(t.Env), ","),
		"resolvedEnv", strings.Join(t.ResolvedEnvVars, ","),
		"passThroughEnv", strings.Join(sortedCopy(t.PassThroughEnv), ","),
		"envMode", t.EnvMode,
	)
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
