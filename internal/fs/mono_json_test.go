package fs

import (
	"os"
	"testing"

	"github.com/monotask/mono/internal/monopath"
)

func TestTaskDefinitionUnmarshalSplitsDependsOn(t *testing.T) {
	def := &TaskDefinition{}
	raw := `{"dependsOn": ["^build", "lint", "web#typecheck", "$MY_VAR"], "outputs": ["dist/**", "!dist/**/*.map"]}`
	if err := def.UnmarshalJSON([]byte(raw)); err != nil {
		t.Fatalf("UnmarshalJSON: %v", err)
	}

	if len(def.TopologicalDependencies) != 1 || def.TopologicalDependencies[0] != "build" {
		t.Errorf("TopologicalDependencies got %v, want [build]", def.TopologicalDependencies)
	}
	if len(def.TaskDependencies) != 2 {
		t.Errorf("TaskDependencies got %v, want 2 entries", def.TaskDependencies)
	}
	if len(def.EnvVarDependencies) != 1 || def.EnvVarDependencies[0] != "MY_VAR" {
		t.Errorf("EnvVarDependencies got %v, want [MY_VAR]", def.EnvVarDependencies)
	}
	if len(def.Outputs.Inclusions) != 1 || def.Outputs.Inclusions[0] != "dist/**" {
		t.Errorf("Outputs.Inclusions got %v", def.Outputs.Inclusions)
	}
	if len(def.Outputs.Exclusions) != 1 || def.Outputs.Exclusions[0] != "dist/**/*.map" {
		t.Errorf("Outputs.Exclusions got %v", def.Outputs.Exclusions)
	}
	if !def.ShouldCache {
		t.Error("ShouldCache should default to true when \"cache\" is absent")
	}
}

func TestTaskDefinitionUnmarshalCacheFalse(t *testing.T) {
	def := &TaskDefinition{}
	if err := def.UnmarshalJSON([]byte(`{"cache": false}`)); err != nil {
		t.Fatalf("UnmarshalJSON: %v", err)
	}
	if def.ShouldCache {
		t.Error("ShouldCache should be false when explicitly set")
	}
}

func TestTaskDefinitionUnmarshalRejectsDollarPrefixInEnv(t *testing.T) {
	def := &TaskDefinition{}
	err := def.UnmarshalJSON([]byte(`{"env": ["$MY_VAR"]}`))
	if err == nil {
		t.Error("expected an error for a \"$\"-prefixed entry in \"env\"")
	}
}

func TestMonoJSONUnmarshalSplitsGlobalDeps(t *testing.T) {
	monoJSON := &MonoJSON{}
	raw := `{"globalEnv": ["CI"], "globalDependencies": ["$NODE_ENV", "tsconfig.json"]}`
	if err := monoJSON.UnmarshalJSON([]byte(raw)); err != nil {
		t.Fatalf("UnmarshalJSON: %v", err)
	}
	if len(monoJSON.GlobalEnv) != 2 {
		t.Errorf("GlobalEnv got %v, want 2 entries (CI plus the migrated NODE_ENV)", monoJSON.GlobalEnv)
	}
	if len(monoJSON.GlobalDeps) != 1 || monoJSON.GlobalDeps[0] != "tsconfig.json" {
		t.Errorf("GlobalDeps got %v, want [tsconfig.json]", monoJSON.GlobalDeps)
	}
}

func TestMonoJSONUnmarshalRejectsDollarPrefixInGlobalEnv(t *testing.T) {
	monoJSON := &MonoJSON{}
	err := monoJSON.UnmarshalJSON([]byte(`{"globalEnv": ["$CI"]}`))
	if err == nil {
		t.Error("expected an error for a \"$\"-prefixed entry in \"globalEnv\"")
	}
}

func TestPipelineHasTaskMatchesBareAndPackageScoped(t *testing.T) {
	p := Pipeline{
		"build":      TaskDefinition{},
		"web#deploy": TaskDefinition{},
	}
	if !p.HasTask("build") {
		t.Error("expected HasTask(build) to be true")
	}
	if !p.HasTask("deploy") {
		t.Error("expected HasTask(deploy) to match the package-scoped entry's task name")
	}
	if p.HasTask("missing") {
		t.Error("expected HasTask(missing) to be false")
	}
}

func TestPipelineGetTaskDefinitionFallsBackToBareName(t *testing.T) {
	want := TaskDefinition{Persistent: true}
	p := Pipeline{"dev": want}

	got, ok := p.GetTaskDefinition("web#dev")
	if !ok {
		t.Fatal("expected a match falling back to the bare task name")
	}
	if got.Persistent != want.Persistent {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestValidateExtendsAllowsOnlyRoot(t *testing.T) {
	if err := validateExtends(&MonoJSON{}); err != nil {
		t.Errorf("empty Extends should be valid: %v", err)
	}
	if err := validateExtends(&MonoJSON{Extends: []string{"//"}}); err != nil {
		t.Errorf("Extends: [\"//\"] should be valid: %v", err)
	}
	if err := validateExtends(&MonoJSON{Extends: []string{"web"}}); err == nil {
		t.Error("expected an error extending a non-root package")
	}
}

func TestLoadMonoConfigSinglePackageModeSynthesizesPipeline(t *testing.T) {
	root := monopath.AbsoluteSystemPath(t.TempDir())
	rootPkg := &PackageJSON{Scripts: map[string]string{"build": "tsc", "test": "jest"}}

	monoJSON, err := LoadMonoConfig(root, rootPkg, true)
	if err != nil {
		t.Fatalf("LoadMonoConfig: %v", err)
	}
	if _, ok := monoJSON.Pipeline["//#build"]; !ok {
		t.Errorf("expected a synthesized //#build entry, got %v", monoJSON.Pipeline)
	}
	if _, ok := monoJSON.Pipeline["//#test"]; !ok {
		t.Errorf("expected a synthesized //#test entry, got %v", monoJSON.Pipeline)
	}
}

func TestLoadMonoConfigSinglePackageModeRejectsPackageScopedTasks(t *testing.T) {
	root := monopath.AbsoluteSystemPath(t.TempDir())
	if err := os.WriteFile(root.Join(configFile).ToString(), []byte(`{"pipeline": {"web#build": {}}}`), 0o644); err != nil {
		t.Fatalf("write mono.json: %v", err)
	}
	rootPkg := &PackageJSON{}

	if _, err := LoadMonoConfig(root, rootPkg, true); err == nil {
		t.Error("expected an error for a package-scoped pipeline entry in single-package mode")
	}
}

func TestLoadMonoConfigMultiPackageModePropagatesMissingFileError(t *testing.T) {
	root := monopath.AbsoluteSystemPath(t.TempDir())
	rootPkg := &PackageJSON{}

	if _, err := LoadMonoConfig(root, rootPkg, false); err == nil {
		t.Error("expected an error when no mono.json exists and single-package mode is off")
	}
}

func TestReadMonoConfigFallsBackToLegacyPackageJSONKey(t *testing.T) {
	root := monopath.AbsoluteSystemPath(t.TempDir())
	rootPkg := &PackageJSON{LegacyConfig: &MonoJSON{GlobalEnv: []string{"CI"}}}

	monoJSON, err := ReadMonoConfig(root, rootPkg)
	if err != nil {
		t.Fatalf("ReadMonoConfig: %v", err)
	}
	if len(monoJSON.GlobalEnv) != 1 || monoJSON.GlobalEnv[0] != "CI" {
		t.Errorf("got %v, want the legacy config's GlobalEnv", monoJSON.GlobalEnv)
	}
}

func TestReadMonoConfigPrefersFileOverLegacyKey(t *testing.T) {
	root := monopath.AbsoluteSystemPath(t.TempDir())
	if err := os.WriteFile(root.Join(configFile).ToString(), []byte(`{"globalEnv": ["FROM_FILE"]}`), 0o644); err != nil {
		t.Fatalf("write mono.json: %v", err)
	}
	rootPkg := &PackageJSON{LegacyConfig: &MonoJSON{GlobalEnv: []string{"FROM_LEGACY"}}}

	monoJSON, err := ReadMonoConfig(root, rootPkg)
	if err != nil {
		t.Fatalf("ReadMonoConfig: %v", err)
	}
	if len(monoJSON.GlobalEnv) != 1 || monoJSON.GlobalEnv[0] != "FROM_FILE" {
		t.Errorf("got %v, want [FROM_FILE]", monoJSON.GlobalEnv)
	}
	if rootPkg.LegacyConfig != nil {
		t.Error("expected the legacy config to be cleared once mono.json wins")
	}
}

func TestTaskOutputsSortIsStableAndNonMutating(t *testing.T) {
	orig := TaskOutputs{Inclusions: []string{"b", "a"}, Exclusions: []string{"y", "x"}}
	sorted := orig.Sort()
	if sorted.Inclusions[0] != "a" || sorted.Inclusions[1] != "b" {
		t.Errorf("Inclusions got %v, want sorted", sorted.Inclusions)
	}
	if orig.Inclusions[0] != "b" {
		t.Error("Sort should not mutate the receiver")
	}
}
