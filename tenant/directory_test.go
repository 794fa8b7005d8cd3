package tenant

import (
	"errors"
	"testing"
	"time"
)

type countingDirectory struct {
	*Static
	lookups int
}

func (d *countingDirectory) Label(id string) (string, error) {
	d.lookups++
	return d.Static.Label(id)
}

func TestStaticDirectory(t *testing.T) {
	dir := NewStatic("2088")
	if dir.Current() != "2088" {
		t.Fatalf("expected current 2088, got %q", dir.Current())
	}
	dir.SetCurrent("")
	if dir.Current() != "" {
		t.Fatalf("expected no active tenant")
	}

	if _, err := dir.Label("2088"); !errors.Is(err, ErrUnknown) {
		t.Fatalf("expected ErrUnknown, got %v", err)
	}
	dir.SetLabel("2088", "Alice")
	if label, err := dir.Label("2088"); err != nil || label != "Alice" {
		t.Fatalf("unexpected label %q (%v)", label, err)
	}
}

func TestCachedMemoizesLabels(t *testing.T) {
	inner := &countingDirectory{Static: NewStatic("a")}
	inner.SetLabel("a", "Alice")

	cached := NewCached(inner, time.Minute)
	defer cached.Stop()

	for i := 0; i < 3; i++ {
		label, err := cached.Label("a")
		if err != nil || label != "Alice" {
			t.Fatalf("unexpected label %q (%v)", label, err)
		}
	}
	if inner.lookups != 1 {
		t.Fatalf("expected one upstream lookup, got %d", inner.lookups)
	}

	inner.SetLabel("a", "Alice B")
	cached.Invalidate("a")
	if label, _ := cached.Label("a"); label != "Alice B" {
		t.Fatalf("expected refreshed label, got %q", label)
	}
	if cached.Current() != "a" {
		t.Fatalf("expected current passthrough")
	}
}

func TestCachedKeepsLookupErrors(t *testing.T) {
	cached := NewCached(NewStatic(""), time.Minute)
	defer cached.Stop()

	if _, err := cached.Label("ghost"); !errors.Is(err, ErrUnknown) {
		t.Fatalf("expected ErrUnknown, got %v", err)
	}
}
