package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kesler-oduya/imagefp/internal/apperr"
)

func newTestFetcher(maxImageSize int64) *Fetcher {
	return New(Config{
		MaxConcurrentDownloads: 4,
		HTTPTimeout:            2 * time.Second,
		MaxImageSize:           maxImageSize,
		EnableHTTP2:            false,
		ConnectionPoolSize:     4,
		KeepAliveTimeout:       30 * time.Second,
	})
}

func TestFetchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("fake-jpeg-bytes"))
	}))
	defer srv.Close()

	f := newTestFetcher(1024)
	data, contentType, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(data) != "fake-jpeg-bytes" {
		t.Fatalf("unexpected body: %q", data)
	}
	if contentType != "image/jpeg" {
		t.Fatalf("unexpected content-type: %q", contentType)
	}
}

func TestFetchNonHTTPScheme(t *testing.T) {
	f := newTestFetcher(1024)
	_, _, err := f.Fetch(context.Background(), "ftp://example.com/a.jpg")
	if kind, _ := apperr.KindOf(err); kind != apperr.KindInvalidRequest {
		t.Fatalf("expected INVALID_REQUEST, got %v", err)
	}
}

func TestFetchNon2xxStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := newTestFetcher(1024)
	_, _, err := f.Fetch(context.Background(), srv.URL)
	if kind, _ := apperr.KindOf(err); kind != apperr.KindSourceUnavailable {
		t.Fatalf("expected SOURCE_UNAVAILABLE, got %v", err)
	}
}

func TestFetchOversizeBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 100)))
	}))
	defer srv.Close()

	f := newTestFetcher(10)
	_, _, err := f.Fetch(context.Background(), srv.URL)
	if kind, _ := apperr.KindOf(err); kind != apperr.KindSourceTooLarge {
		t.Fatalf("expected SOURCE_TOO_LARGE, got %v", err)
	}
}

func TestFetchDeclaredOversizeContentLength(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f := newTestFetcher(10)
	_, _, err := f.Fetch(context.Background(), srv.URL)
	if kind, _ := apperr.KindOf(err); kind != apperr.KindSourceTooLarge {
		t.Fatalf("expected SOURCE_TOO_LARGE, got %v", err)
	}
}
