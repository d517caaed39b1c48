package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"aoi-map/internal/metrics"

	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

const cologne = `[
 {"place_id":1,"display_name":"Köln, Nordrhein-Westfalen, Deutschland","boundingbox":["50.83","51.08","6.77","7.16"],"type":"administrative","class":"boundary",
  "geojson":{"type":"Polygon","coordinates":[[[6.77,50.83],[7.16,50.83],[7.16,51.08],[6.77,51.08],[6.77,50.83]]]}},
 {"place_id":2,"display_name":"Cologne, Minnesota","boundingbox":["44.76","44.78","-93.79","-93.77"],"type":"city","class":"place"},
 {"place_id":3,"display_name":"broken","boundingbox":["x"],"type":"city","class":"place"}
]`

func cologneServer(t *testing.T, hits *int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hits++
		q := r.URL.Query()
		if r.URL.Path != "/search" || q.Get("q") != "Cologne" || q.Get("format") != "json" || q.Get("polygon_geojson") != "1" || q.Get("limit") != "10" {
			t.Errorf("unexpected request %s", r.URL)
		}
		if r.Header.Get("User-Agent") != DefaultUserAgent {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(cologne))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSearchCologne(t *testing.T) {
	hits := 0
	c := New(cologneServer(t, &hits).URL, "", nil)
	got := c.Search(context.Background(), "Cologne", 10)
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2 (invalid bbox dropped)", len(got))
	}
	first := got[0]
	if first.BBox != (BBox{MinLon: 6.77, MinLat: 50.83, MaxLon: 7.16, MaxLat: 51.08}) {
		t.Fatalf("bbox = %+v", first.BBox)
	}
	if first.Geometry == nil || first.Class != "boundary" {
		t.Fatalf("first = %+v", first)
	}
	f := first.Feature()
	if f.Name() != first.DisplayName || f.Source() != "search" {
		t.Fatalf("feature props = %v", f.Properties)
	}
	if !orb.Equal(f.Geometry, first.Geometry.Coordinates) {
		t.Fatal("polygon geometry not used verbatim")
	}
}

func TestRectangleFromBBox(t *testing.T) {
	c := Candidate{BBox: BBox{MinLon: 1, MinLat: 2, MaxLon: 3, MaxLat: 4}}
	want := orb.Polygon{{{1, 2}, {3, 2}, {3, 4}, {1, 4}, {1, 2}}}
	if got := c.Polygon(); !orb.Equal(got, want) {
		t.Fatalf("Polygon = %v, want %v", got, want)
	}
}

func TestSearchTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	before := testutil.ToFloat64(metrics.GeocodeFailTotal)
	got := New(url, "", &http.Client{Timeout: time.Second}).Search(context.Background(), "Cologne", 10)
	if got == nil || len(got) != 0 {
		t.Fatalf("got %v, want empty non-nil", got)
	}
	if d := testutil.ToFloat64(metrics.GeocodeFailTotal) - before; d != 1 {
		t.Fatalf("fail delta = %v", d)
	}
}

func TestSearchNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()
	if got := New(srv.URL, "", nil).Search(context.Background(), "Cologne", 10); len(got) != 0 {
		t.Fatalf("got %v", got)
	}
}

func TestSearchUsesCache(t *testing.T) {
	hits := 0
	c := New(cologneServer(t, &hits).URL, "", nil).WithCache(NewLRU(8, time.Minute))
	c.Search(context.Background(), "Cologne", 10)
	got := c.Search(context.Background(), "Cologne", 10)
	if hits != 1 || len(got) != 2 {
		t.Fatalf("hits = %d, len = %d", hits, len(got))
	}
}

func TestLRUEvictsAndExpires(t *testing.T) {
	now := time.Unix(0, 0)
	c := NewLRU(2, time.Second)
	c.now = func() time.Time { return now }
	ctx := context.Background()
	c.Set(ctx, "a", []Candidate{{PlaceID: 1}})
	c.Set(ctx, "b", nil)
	c.Get(ctx, "a")
	c.Set(ctx, "c", nil)
	if _, ok := c.Get(ctx, "b"); ok {
		t.Fatal("b should have been evicted")
	}
	if _, ok := c.Get(ctx, "a"); !ok {
		t.Fatal("a evicted")
	}
	now = now.Add(2 * time.Second)
	if _, ok := c.Get(ctx, "a"); ok {
		t.Fatal("a should have expired")
	}
	if c.Len() != 1 {
		t.Fatalf("Len = %d", c.Len())
	}
}
