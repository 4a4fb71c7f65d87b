package run

import (
	"os"
	"sort"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/monotask/mono/internal/env"
	"github.com/monotask/mono/internal/fs"
	"github.com/monotask/mono/internal/fs/globby"
	"github.com/monotask/mono/internal/packagemanager"
	"github.com/monotask/mono/internal/monopath"
	"github.com/monotask/mono/internal/util"
)

// defaultGlobalEnvVars are always part of the global hash, whether or
// not the root mono.json's globalEnv lists them.
var defaultGlobalEnvVars = []string{"MONO_ANALYTICS_ID"}

// calculateGlobalHash hashes everything that can affect every task in a
// run: global file dependencies, global env vars (plus any os env var
// matching "THASH", an escape hatch for busting the cache without
// editing mono.json), the root package's external dependency hash, and
// the configured env mode. When globalDeps is empty, the package
// manager's lockfile stands in as the one signal available for "did an
// installed dependency change" (this repo never parses lockfile
// formats, see internal/packagemanager).
func calculateGlobalHash(
	repoRoot monopath.AbsoluteSystemPath,
	rootPackageJSON *fs.PackageJSON,
	rootMonoJSON *fs.MonoJSON,
	pm *packagemanager.PackageManager,
	engineEnv env.EnvironmentVariableMap,
	envMode util.EnvMode,
	monoVersion string,
	logger hclog.Logger,
) (string, error) {
	envVarDependencies := append([]string(nil), rootMonoJSON.GlobalEnv...)
	envVarDependencies = append(envVarDependencies, defaultGlobalEnvVars...)

	resolved, err := engineEnv.FromWildcards(envVarDependencies)
	if err != nil {
		return "", err
	}
	if resolved == nil {
		resolved = env.EnvironmentVariableMap{}
	}

	thashNames, thashMap := getHashableMonoEnvVarsFromOs(os.Environ())
	envVarDependencies = append(envVarDependencies, thashNames...)
	for name, value := range thashMap {
		resolved[name] = value
	}
	sort.Strings(envVarDependencies)

	globalDeps := util.SetFromStrings(rootMonoJSON.GlobalDeps)
	if globalDeps.Len() > 0 {
		ignores, err := pm.GetWorkspaceIgnores(repoRoot)
		if err != nil {
			return "", err
		}
		matched, err := globby.GlobFiles(repoRoot.ToString(), globalDeps.UnsafeListOfStrings(), ignores)
		if err != nil {
			return "", err
		}
		globalDeps = util.SetFromStrings(matched)
	} else {
		lockfilePath := pm.LockfilePath(repoRoot)
		if lockfilePath.FileExists() {
			if lockfileRel, err := lockfilePath.RelativeTo(repoRoot); err == nil {
				globalDeps.Add(lockfileRel.ToString())
			}
		}
	}

	fileHashes := make(fs.FileHashes, globalDeps.Len())
	for _, rel := range globalDeps.UnsafeListOfStrings() {
		contents, err := repoRoot.Join(rel).ReadFile()
		if err != nil {
			return "", err
		}
		fileHashes[rel] = fs.HashObject(string(contents))
	}

	logger.Debug("global hash inputs", "envVars", envVarDependencies, "fileDeps", globalDeps.Len())

	hashable := fs.GlobalHashable{
		GlobalFileHashMap:    fileHashes,
		RootExternalDepsHash: rootPackageJSON.ExternalDepsHash,
		Env:                  envVarDependencies,
		ResolvedEnvVars:      resolved.ToHashable(),
		// mono.json has no root-level passThroughEnv key, only a
		// per-task one, so there's nothing global to fold in here.
		PassThroughEnv: nil,
		EnvMode:        envMode.String(),
		EngineVersion:  monoVersion,
	}
	return hashable.Hash(), nil
}

// getHashableMonoEnvVarsFromOs returns the names, and a name->value map,
// of every process env var whose name contains "THASH".
func getHashableMonoEnvVarsFromOs(osEnv []string) ([]string, env.EnvironmentVariableMap) {
	var names []string
	pairs := env.EnvironmentVariableMap{}
	for _, e := range osEnv {
		kv := strings.SplitN(e, "=", 2)
		if len(kv) == 2 && strings.Contains(kv[0], "THASH") {
			names = append(names, kv[0])
			pairs[kv[0]] = kv[1]
		}
	}
	return names, pairs
}
