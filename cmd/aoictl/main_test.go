package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const importFixture = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "id": "harbour",
      "properties": {"name": "Harbour", "visible": true},
      "geometry": {"type": "Polygon", "coordinates": [[[7.0,51.0],[7.1,51.0],[7.1,51.1],[7.0,51.1],[7.0,51.0]]]}
    },
    {
      "type": "Feature",
      "id": "pin",
      "properties": {"name": "Pin"},
      "geometry": {"type": "Point", "coordinates": [7.05, 51.05]}
    }
  ]
}`

func setupCLI(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("STORAGE_BACKEND", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(dir, "aoi.db"))
	t.Setenv("GEOIP_DB", "")
	return dir
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestImportThenExport(t *testing.T) {
	dir := setupCLI(t)
	file := filepath.Join(dir, "areas.geojson")
	if err := os.WriteFile(file, []byte(importFixture), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, "import", file)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.Contains(out, "skipped pin") {
		t.Fatalf("point feature not reported as skipped: %q", out)
	}
	if !strings.Contains(out, "Imported 1 of 2 areas") {
		t.Fatalf("import output = %q", out)
	}

	out, err = runCLI(t, "export")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(out, `"harbour"`) || !strings.Contains(out, `"Harbour"`) {
		t.Fatalf("export missing imported area: %q", out)
	}
	if strings.Contains(out, `"pin"`) {
		t.Fatalf("export contains skipped feature: %q", out)
	}

	out, err = runCLI(t, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "harbour") {
		t.Fatalf("list output = %q", out)
	}
}

func TestImportRejectsNonCollection(t *testing.T) {
	dir := setupCLI(t)
	file := filepath.Join(dir, "single.json")
	if err := os.WriteFile(file, []byte(`{"type":"Feature","geometry":null}`), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := runCLI(t, "import", file); err == nil {
		t.Fatal("expected error for a non-FeatureCollection file")
	}

	out, err := runCLI(t, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "No areas.") {
		t.Fatalf("list output = %q", out)
	}
}

func TestDeleteUnknownArea(t *testing.T) {
	setupCLI(t)
	if _, err := runCLI(t, "delete", "missing"); err == nil {
		t.Fatal("expected error deleting an unknown id")
	}
}
