package memstore

import (
	"context"
	"testing"

	"github.com/kesler-oduya/imagefp/internal/apperr"
)

func TestPutGetExistsRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()

	ok, err := s.Exists(ctx, "a.jpg")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if ok {
		t.Fatal("expected false before Put")
	}

	if err := s.Put(ctx, "a.jpg", []byte("bytes"), "image/jpeg"); err != nil {
		t.Fatalf("put: %v", err)
	}

	ok, err = s.Exists(ctx, "a.jpg")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if !ok {
		t.Fatal("expected true after Put")
	}

	data, contentType, err := s.Get(ctx, "a.jpg")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(data) != "bytes" || contentType != "image/jpeg" {
		t.Fatalf("unexpected get result: %q %q", data, contentType)
	}
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	s := New()
	if _, _, err := s.Get(context.Background(), "missing.jpg"); err == nil {
		t.Fatal("expected error")
	} else if kind, _ := apperr.KindOf(err); kind != apperr.KindNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestPutCopiesDataDefensively(t *testing.T) {
	s := New()
	buf := []byte("original")
	if err := s.Put(context.Background(), "a.jpg", buf, "image/jpeg"); err != nil {
		t.Fatalf("put: %v", err)
	}
	buf[0] = 'X'

	data, _, err := s.Get(context.Background(), "a.jpg")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(data) != "original" {
		t.Fatalf("expected stored copy to be unaffected by caller mutation, got %q", data)
	}
}

func TestPublicURLFormat(t *testing.T) {
	s := New()
	if got, want := s.PublicURL("abc.jpg"), "mem://abc.jpg"; got != want {
		t.Fatalf("PublicURL() = %q, want %q", got, want)
	}
}
