package fs

import (
	"encoding/json"
	"testing"
)

func TestWorkspacesUnmarshalPlainArray(t *testing.T) {
	var w Workspaces
	if err := json.Unmarshal([]byte(`["packages/*", "apps/*"]`), &w); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(w) != 2 || w[0] != "packages/*" || w[1] != "apps/*" {
		t.Errorf("got %v", w)
	}
}

func TestWorkspacesUnmarshalPackagesObject(t *testing.T) {
	var w Workspaces
	if err := json.Unmarshal([]byte(`{"packages": ["packages/*"], "nohoist": ["**"]}`), &w); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(w) != 1 || w[0] != "packages/*" {
		t.Errorf("got %v", w)
	}
}

func TestUnmarshalPackageJSONKeepsUnknownFieldsInRawJSON(t *testing.T) {
	pkg, err := UnmarshalPackageJSON([]byte(`{"name": "web", "version": "1.0.0", "customField": "keep-me"}`))
	if err != nil {
		t.Fatalf("UnmarshalPackageJSON: %v", err)
	}
	if pkg.Name != "web" {
		t.Errorf("Name got %q, want web", pkg.Name)
	}
	if pkg.RawJSON["customField"] != "keep-me" {
		t.Errorf("RawJSON got %v, missing customField", pkg.RawJSON)
	}
}

func TestMarshalPackageJSONRoundTripsUnknownFields(t *testing.T) {
	pkg, err := UnmarshalPackageJSON([]byte(`{"name": "web", "customField": "keep-me"}`))
	if err != nil {
		t.Fatalf("UnmarshalPackageJSON: %v", err)
	}

	out, err := MarshalPackageJSON(pkg)
	if err != nil {
		t.Fatalf("MarshalPackageJSON: %v", err)
	}

	var roundTripped map[string]interface{}
	if err := json.Unmarshal(out, &roundTripped); err != nil {
		t.Fatalf("Unmarshal roundtrip: %v", err)
	}
	if roundTripped["customField"] != "keep-me" {
		t.Errorf("roundtrip got %v, missing customField", roundTripped)
	}
	if roundTripped["name"] != "web" {
		t.Errorf("roundtrip got %v, want name=web", roundTripped)
	}
}

func TestMarshalPackageJSONDropsEmptyStructFields(t *testing.T) {
	pkg, err := UnmarshalPackageJSON([]byte(`{"name": "web"}`))
	if err != nil {
		t.Fatalf("UnmarshalPackageJSON: %v", err)
	}

	out, err := MarshalPackageJSON(pkg)
	if err != nil {
		t.Fatalf("MarshalPackageJSON: %v", err)
	}

	var roundTripped map[string]interface{}
	if err := json.Unmarshal(out, &roundTripped); err != nil {
		t.Fatalf("Unmarshal roundtrip: %v", err)
	}
	if _, ok := roundTripped["private"]; ok {
		t.Errorf("expected the zero-value \"private\" field to be dropped, got %v", roundTripped)
	}
}
