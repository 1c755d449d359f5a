package media

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestFetch_Success(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("audio-bytes"))
	}))
	defer ts.Close()

	f := NewHTTPFetcher(5*time.Second, zap.NewNop())
	got, err := f.Fetch(context.Background(), ts.URL+"/clip.mp3")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if string(got) != "audio-bytes" {
		t.Fatalf("unexpected payload %q", got)
	}
}

func TestFetch_RetriesServerErrors(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer ts.Close()

	f := NewHTTPFetcher(10*time.Second, zap.NewNop())
	got, err := f.Fetch(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if string(got) != "ok" {
		t.Fatalf("unexpected payload %q", got)
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Fatalf("expected 3 attempts got %d", n)
	}
}

func TestFetch_NotFoundIsPermanent(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	f := NewHTTPFetcher(10*time.Second, zap.NewNop())
	if _, err := f.Fetch(context.Background(), ts.URL); err == nil {
		t.Fatal("expected error for 404")
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("404 must not be retried, got %d attempts", n)
	}
}

func TestFetch_RejectsEmptyBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	f := NewHTTPFetcher(5*time.Second, zap.NewNop())
	if _, err := f.Fetch(context.Background(), ts.URL); err == nil {
		t.Fatal("expected error for empty payload")
	}
}
