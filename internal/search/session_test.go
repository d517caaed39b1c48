package search

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"aoi-map/internal/aoi"
	"aoi-map/internal/geocode"

	"github.com/paulmach/orb"
)

type fakeGeocoder struct {
	mu    sync.Mutex
	calls []string
	gate  map[string]chan struct{}
}

func (f *fakeGeocoder) Search(_ context.Context, q string, limit int) []geocode.Candidate {
	f.mu.Lock()
	f.calls = append(f.calls, q)
	g := f.gate[q]
	f.mu.Unlock()
	if g != nil {
		<-g
	}
	return []geocode.Candidate{{
		PlaceID:     1,
		DisplayName: q + ", Deutschland",
		BBox:        geocode.BBox{MinLon: 6.77, MinLat: 50.83, MaxLon: 7.16, MaxLat: 51.08},
	}}
}

func (f *fakeGeocoder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fitCall struct {
	b       orb.Bound
	padding int
}

type recViewport struct{ calls []fitCall }

func (v *recViewport) FitBounds(b orb.Bound, padding int) { v.calls = append(v.calls, fitCall{b, padding}) }

func TestSubmitDebouncesKeystrokes(t *testing.T) {
	geo := &fakeGeocoder{}
	s := NewSession(geo, aoi.New(aoi.Options{}), nil, 100*time.Millisecond)
	defer s.Close()

	var wg sync.WaitGroup
	errs := make([]error, 3)
	for i, q := range []string{"C", "Co", "Cologne"} {
		wg.Add(1)
		go func(i int, q string) {
			defer wg.Done()
			_, errs[i] = s.Submit(context.Background(), q)
		}(i, q)
		time.Sleep(5 * time.Millisecond)
	}
	wg.Wait()

	if geo.count() != 1 {
		t.Fatalf("geocoder calls = %d, want 1", geo.count())
	}
	if !errors.Is(errs[0], ErrSuperseded) || !errors.Is(errs[1], ErrSuperseded) || errs[2] != nil {
		t.Fatalf("errs = %v", errs)
	}
	q, res := s.Results()
	if q != "Cologne" || len(res) != 1 {
		t.Fatalf("Results = %q, %v", q, res)
	}
}

func TestShortQueryClearsWithoutRequest(t *testing.T) {
	geo := &fakeGeocoder{}
	s := NewSession(geo, aoi.New(aoi.Options{}), nil, time.Millisecond)
	defer s.Close()
	if _, err := s.Query(context.Background(), "Cologne"); err != nil {
		t.Fatal(err)
	}
	res, err := s.Query(context.Background(), " K ")
	if err != nil || len(res) != 0 {
		t.Fatalf("Query = %v, %v", res, err)
	}
	if geo.count() != 1 {
		t.Fatalf("calls = %d", geo.count())
	}
	if _, r := s.Results(); len(r) != 0 {
		t.Fatalf("results not cleared: %v", r)
	}
}

func TestStaleResponseIsDiscarded(t *testing.T) {
	gate := make(chan struct{})
	geo := &fakeGeocoder{gate: map[string]chan struct{}{"Berlin": gate}}
	s := NewSession(geo, aoi.New(aoi.Options{}), nil, time.Millisecond)
	defer s.Close()

	done := make(chan error, 1)
	go func() {
		_, err := s.Query(context.Background(), "Berlin")
		done <- err
	}()
	for geo.count() == 0 {
		time.Sleep(time.Millisecond)
	}
	if _, err := s.Query(context.Background(), "Cologne"); err != nil {
		t.Fatal(err)
	}
	close(gate)
	if err := <-done; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("stale err = %v", err)
	}
	if q, res := s.Results(); q != "Cologne" || res[0].DisplayName != "Cologne, Deutschland" {
		t.Fatalf("Results = %q, %v", q, res)
	}
}

func TestSelectAddsAoiAndFitsBounds(t *testing.T) {
	st := aoi.New(aoi.Options{})
	defer st.Close()
	vp := &recViewport{}
	s := NewSession(&fakeGeocoder{}, st, vp, time.Millisecond)
	defer s.Close()

	if _, err := s.Query(context.Background(), "Cologne"); err != nil {
		t.Fatal(err)
	}
	f, err := s.Select(0)
	if err != nil {
		t.Fatal(err)
	}
	if st.Len() != 1 || f.Source() != aoi.SourceSearch || f.Name() != "Cologne, Deutschland" {
		t.Fatalf("feature = %+v", f)
	}
	want := orb.Polygon{{{6.77, 50.83}, {7.16, 50.83}, {7.16, 51.08}, {6.77, 51.08}, {6.77, 50.83}}}
	if !orb.Equal(f.Geometry, want) {
		t.Fatalf("geometry = %v", f.Geometry)
	}
	if len(vp.calls) != 1 || vp.calls[0].padding != 50 || vp.calls[0].b != (orb.Bound{Min: orb.Point{6.77, 50.83}, Max: orb.Point{7.16, 51.08}}) {
		t.Fatalf("fit calls = %+v", vp.calls)
	}
	if st.FocusedID() != "" {
		t.Fatal("select must not focus")
	}
	if q, res := s.Results(); q != "Cologne, Deutschland" || len(res) != 0 {
		t.Fatalf("after select: %q %v", q, res)
	}
	if _, err := s.Select(0); !errors.Is(err, ErrNoResult) {
		t.Fatalf("second select err = %v", err)
	}
}
