package aoi

import (
	"encoding/json"
	"testing"

	"github.com/paulmach/orb"
)

func TestFeatureJSONMatchesPersistedLayout(t *testing.T) {
	f := Feature{ID: "test-1", Geometry: square(), Properties: map[string]any{"name": "Test Area", "visible": true}}
	b, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if raw["type"] != "Feature" || raw["id"] != "test-1" {
		t.Fatalf("raw = %v", raw)
	}
	geom, _ := raw["geometry"].(map[string]any)
	if geom["type"] != "Polygon" {
		t.Fatalf("geometry = %v", raw["geometry"])
	}

	var back Feature
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("Unmarshal Feature: %v", err)
	}
	if back.ID != "test-1" || back.Name() != "Test Area" || !back.Visible() {
		t.Fatalf("back = %+v", back)
	}
}

func TestNumericIDsBecomeStrings(t *testing.T) {
	var f Feature
	if err := json.Unmarshal([]byte(`{"type":"Feature","id":42,"geometry":null,"properties":{}}`), &f); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if f.ID != "42" {
		t.Fatalf("id = %q, want 42", f.ID)
	}
}

func TestAreaIsZeroForNonPolygons(t *testing.T) {
	if a := (Feature{Geometry: orb.Point{0, 0}}).Area(); a != 0 {
		t.Fatalf("point area = %v", a)
	}
	if a := (Feature{Geometry: square()}).Area(); a <= 0 {
		t.Fatalf("square area = %v", a)
	}
}

func TestCollectionLabel(t *testing.T) {
	c := Collection{
		{ID: "a", Properties: map[string]any{"name": "Cologne"}},
		{ID: "b"},
	}
	if got := c.Label(0); got != "Cologne" {
		t.Fatalf("Label(0) = %q", got)
	}
	if got := c.Label(1); got != "Area 2" {
		t.Fatalf("Label(1) = %q", got)
	}
}

func TestParseModes(t *testing.T) {
	for _, s := range []string{"none", "edit", "curve", "rectangle", "polygon", "erase", " Polygon "} {
		if _, err := ParseDrawMode(s); err != nil {
			t.Errorf("ParseDrawMode(%q): %v", s, err)
		}
	}
	if _, err := ParseMapViewMode("satellite"); err == nil {
		t.Error("ParseMapViewMode(satellite) succeeded")
	}
	if !DrawRectangle.SingleShot() || DrawErase.SingleShot() {
		t.Error("SingleShot mismatch")
	}
}
