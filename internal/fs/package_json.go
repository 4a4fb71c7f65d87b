package fs

import (
	"bytes"
	"encoding/json"
	"sync"

	"github.com/monotask/mono/internal/monopath"
)

// PackageJSON represents a workspace package's package.json, plus the
// bookkeeping fields the graph builder and hasher attach to it once the
// workspace has been discovered and its dependency edges resolved.
type PackageJSON struct {
	Name                 string            `json:"name"`
	Version              string            `json:"version"`
	Scripts              map[string]string `json:"scripts"`
	Dependencies         map[string]string `json:"dependencies"`
	DevDependencies      map[string]string `json:"devDependencies"`
	OptionalDependencies map[string]string `json:"optionalDependencies"`
	PeerDependencies     map[string]string `json:"peerDependencies"`
	PackageManager       string            `json:"packageManager"`
	Os                   []string          `json:"os"`
	Workspaces           Workspaces        `json:"workspaces"`
	Private              bool              `json:"private"`
	Engines              map[string]string `json:"engines"`

	// RawJSON is the exact decoded JSON object, including fields this
	// struct doesn't know about; struct fields take priority over it
	// when re-marshalling.
	RawJSON map[string]interface{} `json:"-"`

	// PackageJSONPath is the repo-relative path to this package.json.
	PackageJSONPath monopath.AnchoredSystemPath `json:"-"`
	// Dir is the repo-relative path to the package directory.
	Dir monopath.AnchoredSystemPath `json:"-"`

	InternalDeps           []string          `json:"-"`
	UnresolvedExternalDeps map[string]string `json:"-"`
	ExternalDepsHash       string            `json:"-"`

	// LegacyConfig is the fallback location for task configuration: a
	// "mono" key directly inside package.json, consulted when no
	// mono.json exists alongside it.
	LegacyConfig *MonoJSON `json:"mono"`

	mu sync.Mutex
}

// Lock guards concurrent mutation of this PackageJSON's bookkeeping
// fields during parallel graph construction.
func (p *PackageJSON) Lock() {
	p.mu.Lock()
}

// Unlock releases the lock taken by Lock.
func (p *PackageJSON) Unlock() {
	p.mu.Unlock()
}

// Workspaces is the package.json "workspaces" field, which may be either
// a bare string array or an object with a "packages" key (yarn's and
// pnpm's two accepted shapes).
type Workspaces []string

type workspacesAlt struct {
	Packages []string `json:"packages,omitempty"`
}

// UnmarshalJSON accepts either shape package managers use for the
// workspaces field.
func (w *Workspaces) UnmarshalJSON(data []byte) error {
	alt := &workspacesAlt{}
	if err := json.Unmarshal(data, alt); err == nil && alt.Packages != nil {
		*w = Workspaces(alt.Packages)
		return nil
	}
	var plain []string
	if err := json.Unmarshal(data, &plain); err != nil {
		return err
	}
	*w = plain
	return nil
}

// ReadPackageJSON reads and parses the package.json at path.
func ReadPackageJSON(path monopath.AbsoluteSystemPath) (*PackageJSON, error) {
	b, err := path.ReadFile()
	if err != nil {
		return nil, err
	}
	return UnmarshalPackageJSON(b)
}

// UnmarshalPackageJSON parses data as a package.json document.
func UnmarshalPackageJSON(data []byte) (*PackageJSON, error) {
	var rawJSON map[string]interface{}
	if err := json.Unmarshal(data, &rawJSON); err != nil {
		return nil, err
	}

	pkgJSON := &PackageJSON{}
	if err := json.Unmarshal(data, pkgJSON); err != nil {
		return nil, err
	}
	pkgJSON.RawJSON = rawJSON
	return pkgJSON, nil
}

// MarshalPackageJSON serializes pkgJSON back to bytes, preserving any
// fields present in RawJSON that the struct doesn't model.
func MarshalPackageJSON(pkgJSON *PackageJSON) ([]byte, error) {
	structured, err := json.Marshal(pkgJSON)
	if err != nil {
		return nil, err
	}
	var structuredFields map[string]interface{}
	if err := json.Unmarshal(structured, &structuredFields); err != nil {
		return nil, err
	}

	fields := make(map[string]interface{}, len(pkgJSON.RawJSON))
	for k, v := range pkgJSON.RawJSON {
		fields[k] = v
	}
	for k, v := range structuredFields {
		if isEmptyJSONValue(v) {
			delete(fields, k)
		} else {
			fields[k] = v
		}
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(fields); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isEmptyJSONValue(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case bool:
		return !v
	case []interface{}:
		return len(v) == 0
	case map[string]interface{}:
		return len(v) == 0
	default:
		return false
	}
}
