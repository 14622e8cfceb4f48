package store

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"
)

// testStore runs the same scenario on every backend.
func testStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "cryptoPortfolio"); err != nil || ok {
		t.Fatalf("Get(missing) = _, %v, %v want false, nil", ok, err)
	}
	if err := s.Set(ctx, "cryptoPortfolio", []byte(`[]`)); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if err := s.Set(ctx, "cryptoPortfolio", []byte(`[{"id":"bitcoin"}]`)); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	got, ok, err := s.Get(ctx, "cryptoPortfolio")
	if err != nil || !ok {
		t.Fatalf("Get() = _, %v, %v want true, nil", ok, err)
	}
	if want := `[{"id":"bitcoin"}]`; string(got) != want {
		t.Errorf("Get() = %q want %q", got, want)
	}
	if err := s.Delete(ctx, "cryptoPortfolio"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "cryptoPortfolio"); ok {
		t.Errorf("Get() after Delete() found a value")
	}
	if err := s.Delete(ctx, "cryptoPortfolio"); err != nil {
		t.Errorf("Delete(missing) error: %v", err)
	}

	for _, key := range []string{"", "../escape", "a/b", ".hidden"} {
		if err := s.Set(ctx, key, nil); err == nil {
			t.Errorf("Set(%q) must fail", key)
		}
	}
}

func TestMemory(t *testing.T) {
	testStore(t, NewMemory())
}

func TestMemory_Copy(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	v := []byte("true")
	s.Set(ctx, "darkMode", v)
	v[0] = 'X'
	got, _, _ := s.Get(ctx, "darkMode")
	if string(got) != "true" {
		t.Errorf("stored value changed with the caller's slice: %q", got)
	}
	if keys := s.Keys(); len(keys) != 1 || keys[0] != "darkMode" {
		t.Errorf("Keys() = %v", keys)
	}
}

func TestDir(t *testing.T) {
	s, err := NewDir(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	testStore(t, s)

	// no temporary file is left behind.
	entries, err := os.ReadDir(s.Root())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("store directory is not empty: %v", entries)
	}
}

func TestRedis(t *testing.T) {
	url := os.Getenv("CPT_TEST_REDIS_URL")
	if url == "" {
		t.Skip("CPT_TEST_REDIS_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := DialRedis(ctx, url, fmt.Sprintf("cpt-test-%d:", time.Now().UnixNano()))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	testStore(t, s)
}
