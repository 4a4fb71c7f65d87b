package config

import (
	"testing"

	"github.com/monotask/mono/internal/fs"
)

func TestCheckEngineVersion(t *testing.T) {
	testCases := []struct {
		name    string
		version string
		pkgJSON *fs.PackageJSON
		wantErr bool
	}{
		{
			name:    "no root package.json at all",
			version: "1.2.3",
			pkgJSON: nil,
			wantErr: false,
		},
		{
			name:    "no engines constraint declared",
			version: "1.2.3",
			pkgJSON: &fs.PackageJSON{},
			wantErr: false,
		},
		{
			name:    "satisfied constraint",
			version: "1.2.3",
			pkgJSON: &fs.PackageJSON{Engines: map[string]string{"mono": "^1.0.0"}},
			wantErr: false,
		},
		{
			name:    "unsatisfied constraint",
			version: "2.0.0",
			pkgJSON: &fs.PackageJSON{Engines: map[string]string{"mono": "^1.0.0"}},
			wantErr: true,
		},
		{
			name:    "malformed constraint",
			version: "1.2.3",
			pkgJSON: &fs.PackageJSON{Engines: map[string]string{"mono": "not a constraint"}},
			wantErr: true,
		},
		{
			name:    "unparseable running version skips the check entirely",
			version: "not-a-semver",
			pkgJSON: &fs.PackageJSON{Engines: map[string]string{"mono": "^1.0.0"}},
			wantErr: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckEngineVersion(tc.version, tc.pkgJSON)
			if (err != nil) != tc.wantErr {
				t.Errorf("CheckEngineVersion(%q) error = %v, wantErr %v", tc.version, err, tc.wantErr)
			}
		})
	}
}
