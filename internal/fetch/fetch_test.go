package fetch

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"remod/internal/logging"
)

func testLogger() *logging.Logger {
	return logging.NewLogger(logging.Config{Format: logging.HumanFormat, Level: logging.ErrorLevel, Output: io.Discard})
}

func TestFetch_Basic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("export const remote = true;\n"))
	}))
	defer srv.Close()

	f := New(5*time.Second, "", "remod-test", testLogger())
	body, err := f.Fetch(context.Background(), srv.URL+"/mod.ts")
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if body != "export const remote = true;\n" {
		t.Errorf("body = %q", body)
	}
}

func TestFetch_SetsUserAgent(t *testing.T) {
	var gotUA atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA.Store(r.Header.Get("User-Agent"))
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := New(5*time.Second, "", "remod/1.0", testLogger())
	if _, err := f.Fetch(context.Background(), srv.URL); err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if ua, _ := gotUA.Load().(string); ua != "remod/1.0" {
		t.Errorf("User-Agent = %q", ua)
	}
}

func TestFetch_NonOKStatusFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := New(5*time.Second, "", "remod-test", testLogger())
	if _, err := f.Fetch(context.Background(), srv.URL+"/missing.ts"); err == nil {
		t.Error("expected error for 404")
	}
}

func TestFetch_BodyCacheAvoidsNetwork(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("export const cached = 1;\n"))
	}))
	defer srv.Close()

	cacheDir := t.TempDir()
	url := srv.URL + "/mod.ts"

	first := New(5*time.Second, cacheDir, "remod-test", testLogger())
	body1, err := first.Fetch(context.Background(), url)
	if err != nil {
		t.Fatalf("first Fetch() error: %v", err)
	}

	// A fresh Fetcher over the same cache dir must serve from disk.
	second := New(5*time.Second, cacheDir, "remod-test", testLogger())
	body2, err := second.Fetch(context.Background(), url)
	if err != nil {
		t.Fatalf("second Fetch() error: %v", err)
	}

	if body1 != body2 {
		t.Errorf("cache returned different body: %q vs %q", body1, body2)
	}
	if hits.Load() != 1 {
		t.Errorf("server hit %d times, want 1", hits.Load())
	}
}

func TestFetch_ContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	f := New(30*time.Second, "", "remod-test", testLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := f.Fetch(ctx, srv.URL); err == nil {
		t.Error("expected error after context timeout")
	}
}
