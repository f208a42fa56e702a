package cache

import (
	"testing"
	"time"

	"github.com/appscope/appscope/pkg/directory"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestEmptyListing(t *testing.T) {
	s := openTestStore(t)

	apps, fetched, err := s.Listing()
	if err != nil {
		t.Fatalf("Listing: %v", err)
	}
	if apps != nil {
		t.Errorf("expected nil listing, got %v", apps)
	}
	if !fetched.IsZero() {
		t.Errorf("expected zero fetch time, got %v", fetched)
	}
}

func TestReplaceAndListing(t *testing.T) {
	s := openTestStore(t)
	now := time.Now().Truncate(time.Second)

	apps := []directory.AppSummary{
		{ObjectID: "obj-2", AppID: "app-2", DisplayName: "Zeta"},
		{ObjectID: "obj-1", AppID: "app-1", DisplayName: "Alpha"},
	}
	if err := s.Replace(apps, now); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	got, fetched, err := s.Listing()
	if err != nil {
		t.Fatalf("Listing: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 cached apps, got %d", len(got))
	}
	// Listing orders by display name.
	if got[0].DisplayName != "Alpha" || got[1].DisplayName != "Zeta" {
		t.Errorf("unexpected order: %v", got)
	}
	if !fetched.Equal(now) {
		t.Errorf("fetched = %v, want %v", fetched, now)
	}
}

func TestReplaceIsWholesale(t *testing.T) {
	s := openTestStore(t)
	now := time.Now()

	if err := s.Replace([]directory.AppSummary{{ObjectID: "a"}, {ObjectID: "b"}}, now); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if err := s.Replace([]directory.AppSummary{{ObjectID: "c"}}, now); err != nil {
		t.Fatalf("second Replace: %v", err)
	}

	n, err := s.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1 (replace must not accumulate)", n)
	}
}

func TestReplaceEmptyClearsCache(t *testing.T) {
	s := openTestStore(t)
	if err := s.Replace([]directory.AppSummary{{ObjectID: "a"}}, time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := s.Replace(nil, time.Now()); err != nil {
		t.Fatalf("Replace(nil): %v", err)
	}
	n, err := s.Count()
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("count = %d, want 0", n)
	}
}
