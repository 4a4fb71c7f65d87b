package packagemanager

import (
	"os"
	"testing"

	"github.com/monotask/mono/internal/fs"
	"github.com/monotask/mono/internal/monopath"
)

func TestParsePackageManagerString(t *testing.T) {
	manager, version, err := ParsePackageManagerString("pnpm@7.5.0")
	if err != nil {
		t.Fatalf("ParsePackageManagerString: %v", err)
	}
	if manager != "pnpm" || version != "7.5.0" {
		t.Errorf("got (%q, %q), want (pnpm, 7.5.0)", manager, version)
	}
}

func TestParsePackageManagerStringInvalid(t *testing.T) {
	if _, _, err := ParsePackageManagerString("not-a-valid-string"); err == nil {
		t.Error("expected an error for a malformed packageManager field")
	}
}

func TestGetPackageManagerFromPackageJSONField(t *testing.T) {
	root := monopath.AbsoluteSystemPath(t.TempDir())
	pm, err := GetPackageManager(root, &fs.PackageJSON{PackageManager: "pnpm@8.0.0"})
	if err != nil {
		t.Fatalf("GetPackageManager: %v", err)
	}
	if pm.Slug != "pnpm" {
		t.Errorf("got %q, want pnpm", pm.Slug)
	}
}

func TestGetPackageManagerDetectsFromLockfile(t *testing.T) {
	root := monopath.AbsoluteSystemPath(t.TempDir())
	if err := os.WriteFile(root.Join("package.json").ToString(), []byte("{}"), 0o644); err != nil {
		t.Fatalf("write package.json: %v", err)
	}
	if err := os.WriteFile(root.Join("package-lock.json").ToString(), []byte("{}"), 0o644); err != nil {
		t.Fatalf("write package-lock.json: %v", err)
	}

	pm, err := GetPackageManager(root, &fs.PackageJSON{})
	if err != nil {
		t.Fatalf("GetPackageManager: %v", err)
	}
	if pm.Slug != "npm" {
		t.Errorf("got %q, want npm", pm.Slug)
	}
}

func TestGetPackageManagerNoneDetected(t *testing.T) {
	root := monopath.AbsoluteSystemPath(t.TempDir())
	if _, err := GetPackageManager(root, &fs.PackageJSON{}); err == nil {
		t.Error("expected an error when no package manager can be detected")
	}
}

func TestLockfileHashMissingFileReturnsEmpty(t *testing.T) {
	root := monopath.AbsoluteSystemPath(t.TempDir())
	got, err := LockfileHash(root.Join("package-lock.json"), func(b []byte) string { return "hashed" })
	if err != nil {
		t.Fatalf("LockfileHash: %v", err)
	}
	if got != "" {
		t.Errorf("got %q, want empty string for a missing lockfile", got)
	}
}

func TestLockfileHashHashesContents(t *testing.T) {
	root := monopath.AbsoluteSystemPath(t.TempDir())
	path := root.Join("package-lock.json")
	if err := os.WriteFile(path.ToString(), []byte("lockfile contents"), 0o644); err != nil {
		t.Fatalf("write lockfile: %v", err)
	}

	got, err := LockfileHash(path, func(b []byte) string { return "hash:" + string(b) })
	if err != nil {
		t.Fatalf("LockfileHash: %v", err)
	}
	if got != "hash:lockfile contents" {
		t.Errorf("got %q", got)
	}
}

func TestGetWorkspacesExpandsGlobs(t *testing.T) {
	root := monopath.AbsoluteSystemPath(t.TempDir())
	if err := os.WriteFile(root.Join("package.json").ToString(), []byte(`{"workspaces": ["packages/*"]}`), 0o644); err != nil {
		t.Fatalf("write root package.json: %v", err)
	}
	webDir := root.Join("packages", "web")
	if err := os.MkdirAll(webDir.ToString(), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(webDir.Join("package.json").ToString(), []byte(`{"name":"web"}`), 0o644); err != nil {
		t.Fatalf("write web package.json: %v", err)
	}

	paths, err := npm.GetWorkspaces(root)
	if err != nil {
		t.Fatalf("GetWorkspaces: %v", err)
	}
	if len(paths) != 1 {
		t.Fatalf("got %d workspace package.json paths, want 1: %v", len(paths), paths)
	}
}
