// Package workspace holds the per-repository catalog of discovered
// packages and their configuration, assembled once during graph
// construction and consulted by everything downstream.
package workspace

import "github.com/monotask/mono/internal/fs"

// Catalog maps each workspace package's name to its package.json and
// resolved mono.json.
type Catalog struct {
	PackageJSONs map[string]*fs.PackageJSON
	MonoConfigs  map[string]*fs.MonoJSON
}

// NewCatalog returns an empty, ready-to-populate Catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		PackageJSONs: make(map[string]*fs.PackageJSON),
		MonoConfigs:  make(map[string]*fs.MonoJSON),
	}
}
