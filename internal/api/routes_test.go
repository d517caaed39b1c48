package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"aoi-map/internal/app"
	"aoi-map/internal/geocode"
	"aoi-map/internal/storage"
)

const nominatimBody = `[{"place_id":7,"display_name":"Köln","boundingbox":["50.83","51.08","6.77","7.16"],"type":"city","class":"place"}]`

func newServer(t *testing.T) (*app.App, *httptest.Server) {
	t.Helper()
	nom := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(nominatimBody))
	}))
	t.Cleanup(nom.Close)

	backend := &storage.Backend{Name: "memory", Slot: storage.NewMemorySlot()}
	a := app.New(context.Background(), app.Config{PersistDelay: 10 * time.Millisecond, SearchDelay: 5 * time.Millisecond}, backend, geocode.New(nom.URL, "", nil))
	t.Cleanup(a.Close)
	srv := httptest.NewServer(BuildRoutes(a))
	t.Cleanup(srv.Close)
	return a, srv
}

func do(t *testing.T, srv *httptest.Server, method, path, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

const squareFeature = `{"type":"Feature","geometry":{"type":"Polygon","coordinates":[[[7,51],[7.1,51],[7.1,51.1],[7,51.1],[7,51]]]},"properties":{"name":"Test"}}`

func TestAoiLifecycle(t *testing.T) {
	a, srv := newServer(t)

	resp := do(t, srv, http.MethodPost, "/aois", squareFeature)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /aois = %d", resp.StatusCode)
	}
	var created map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&created)
	id, _ := created["id"].(string)
	if id == "" {
		t.Fatalf("created = %v", created)
	}
	if got := len(a.Surface.Layers()); got != 1 {
		t.Fatalf("surface layers = %d", got)
	}

	resp = do(t, srv, http.MethodGet, "/aois", "")
	var items []listItem
	_ = json.NewDecoder(resp.Body).Decode(&items)
	if len(items) != 1 || items[0].Label != "Test" || !items[0].Visible || items[0].AreaSqm <= 0 {
		t.Fatalf("items = %+v", items)
	}

	if resp := do(t, srv, http.MethodPost, "/aois/"+id+"/visibility", ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("toggle = %d", resp.StatusCode)
	}
	if got := len(a.Surface.Layers()); got != 0 {
		t.Fatalf("hidden aoi still on surface: %d", got)
	}
	if resp := do(t, srv, http.MethodPost, "/aois/"+id+"/focus", ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("focus = %d", resp.StatusCode)
	}
	if a.Viewport.State().Fit == nil {
		t.Fatal("focus did not fit the viewport")
	}
	if resp := do(t, srv, http.MethodDelete, "/aois/"+id, ""); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete = %d", resp.StatusCode)
	}
	if resp := do(t, srv, http.MethodDelete, "/aois/"+id, ""); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("second delete = %d", resp.StatusCode)
	}
}

func TestRejectsNonPolygonFeatures(t *testing.T) {
	a, srv := newServer(t)
	point := `{"type":"Feature","geometry":{"type":"Point","coordinates":[7,51]},"properties":{}}`
	if resp := do(t, srv, http.MethodPost, "/aois", point); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("POST /aois point = %d", resp.StatusCode)
	}
	if resp := do(t, srv, http.MethodPost, "/surface/created", `{"feature":`+point+`}`); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("surface/created point = %d", resp.StatusCode)
	}
	if a.Store.Len() != 0 {
		t.Fatalf("len = %d", a.Store.Len())
	}
}

func TestReorderOutOfRange(t *testing.T) {
	_, srv := newServer(t)
	do(t, srv, http.MethodPost, "/aois", squareFeature)
	if resp := do(t, srv, http.MethodPost, "/aois/reorder", `{"from":0,"to":3}`); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("reorder = %d", resp.StatusCode)
	}
}

func TestDrawModeToggle(t *testing.T) {
	a, srv := newServer(t)
	do(t, srv, http.MethodPut, "/draw-mode", `{"mode":"polygon"}`)
	if a.Store.DrawMode() != "polygon" || a.Surface.Armed() != "polygon" {
		t.Fatalf("mode = %s armed = %s", a.Store.DrawMode(), a.Surface.Armed())
	}
	do(t, srv, http.MethodPut, "/draw-mode", `{"mode":"polygon"}`)
	if a.Store.DrawMode() != "none" || a.Surface.Armed() != "" {
		t.Fatalf("toggle off: mode = %s armed = %s", a.Store.DrawMode(), a.Surface.Armed())
	}
	if resp := do(t, srv, http.MethodPut, "/draw-mode", `{"mode":"lasso"}`); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid mode = %d", resp.StatusCode)
	}
}

func TestViewModeReturnsTileLayer(t *testing.T) {
	_, srv := newServer(t)
	resp := do(t, srv, http.MethodPut, "/view-mode", `{"mode":"vector"}`)
	var tl map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&tl)
	if tl["kind"] != "xyz" {
		t.Fatalf("tile layer = %v", tl)
	}
}

func TestSearchAndSelect(t *testing.T) {
	a, srv := newServer(t)
	resp := do(t, srv, http.MethodGet, "/search?q=Cologne", "")
	var sr searchResponse
	_ = json.NewDecoder(resp.Body).Decode(&sr)
	if len(sr.Results) != 1 || sr.Results[0].DisplayName != "Köln" {
		t.Fatalf("search = %+v", sr)
	}
	if resp := do(t, srv, http.MethodPost, "/search/select", `{"index":0}`); resp.StatusCode != http.StatusCreated {
		t.Fatalf("select = %d", resp.StatusCode)
	}
	if a.Store.Len() != 1 {
		t.Fatalf("len = %d", a.Store.Len())
	}
	if fit := a.Viewport.State().Fit; fit == nil || fit.Padding != 50 {
		t.Fatalf("fit = %+v", fit)
	}
	if resp := do(t, srv, http.MethodPost, "/search/select", `{"index":0}`); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("reselect = %d", resp.StatusCode)
	}
}

func TestSurfaceCreatedAndErase(t *testing.T) {
	a, srv := newServer(t)
	do(t, srv, http.MethodPut, "/draw-mode", `{"mode":"rectangle"}`)
	resp := do(t, srv, http.MethodPost, "/surface/created", `{"handle":"leaflet-42","feature":`+squareFeature+`}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("created = %d", resp.StatusCode)
	}
	if a.Store.Len() != 1 || a.Store.DrawMode() != "none" {
		t.Fatalf("len = %d mode = %s", a.Store.Len(), a.Store.DrawMode())
	}

	do(t, srv, http.MethodPut, "/draw-mode", `{"mode":"erase"}`)
	resp = do(t, srv, http.MethodPost, "/surface/click", `{"lat":51.05,"lng":7.05}`)
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	if out["deleted"] != true || a.Store.Len() != 0 {
		t.Fatalf("click = %v, len = %d", out, a.Store.Len())
	}
}

func TestPersistsThroughBackend(t *testing.T) {
	a, srv := newServer(t)
	do(t, srv, http.MethodPost, "/aois", squareFeature)
	a.Store.SaveNow(context.Background())
	c, ok := storage.NewGateway(a.Backend.Slot).Load(context.Background())
	if !ok || len(c) != 1 || c[0].Name() != "Test" {
		t.Fatalf("persisted = %v, %v", c, ok)
	}
}

func TestGetClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("x-forwarded-for", "203.0.113.9, 10.0.0.1")
	if got := getClientIP(r); got != "203.0.113.9" {
		t.Fatalf("xff = %q", got)
	}
	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "198.51.100.2:5555"
	if got := getClientIP(r); got != "198.51.100.2" {
		t.Fatalf("remote = %q", got)
	}
}
