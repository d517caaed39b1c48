package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestTokenBucketRefillsEachSecond(t *testing.T) {
	now := time.Unix(100, 0)
	tb := NewTokenBucket(2)
	tb.now = func() time.Time { return now }
	tb.lastSec = now.Unix()

	if !tb.Allow() || !tb.Allow() {
		t.Fatal("first two requests rejected")
	}
	if tb.Allow() {
		t.Fatal("third request in the same second allowed")
	}
	now = now.Add(time.Second)
	if !tb.Allow() {
		t.Fatal("bucket not refilled")
	}
}

func TestLimitReturns429(t *testing.T) {
	tb := NewTokenBucket(1)
	tb.now = func() time.Time { return time.Unix(5, 0) }
	tb.lastSec = 5
	h := Limit(tb, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	codes := []int{}
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/search?q=x", nil))
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}
}

func TestWrapDisabledByDefault(t *testing.T) {
	t.Setenv("RATE_LIMIT_ENABLED", "")
	next := http.NotFoundHandler()
	if h := Wrap(next); h == nil {
		t.Fatal("nil handler")
	}
}
