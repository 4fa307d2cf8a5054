package localfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "data")
	s, err := New(dir)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if _, ok, err := s.Get(ctx, "user/local/carbonActivities"); ok || err != nil {
		t.Fatalf("expected missing key, ok=%v err=%v", ok, err)
	}
	if err := s.Set(ctx, "user/local/carbonActivities", []byte(`[]`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set(ctx, "user/local/carbonActivities", []byte(`[{"id":"1"}]`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	// A fresh store over the same directory sees the last write.
	s2, _ := New(dir)
	got, ok, err := s2.Get(ctx, "user/local/carbonActivities")
	if err != nil || !ok || string(got) != `[{"id":"1"}]` {
		t.Fatalf("unexpected get: %q ok=%v err=%v", got, ok, err)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("expected one file without temp leftovers, got %d", len(entries))
	}

	if err := s.Delete(ctx, "user/local/carbonActivities"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, "user/local/carbonActivities"); err != nil {
		t.Fatalf("delete missing key: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "user/local/carbonActivities"); ok {
		t.Fatalf("expected key deleted")
	}
}

func TestStoreHonoursCancelledContext(t *testing.T) {
	s, _ := New(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Set(ctx, "k", []byte("v")); err == nil {
		t.Fatalf("expected context error")
	}
}
