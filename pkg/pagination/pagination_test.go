package pagination

import "testing"

func TestNormalizeLimit(t *testing.T) {
	if got := NormalizeLimit(0); got != DefaultLimit {
		t.Fatalf("zero limit should default, got %d", got)
	}
	if got := NormalizeLimit(-5); got != DefaultLimit {
		t.Fatalf("negative limit should default, got %d", got)
	}
	if got := NormalizeLimit(MaxLimit + 1); got != MaxLimit {
		t.Fatalf("limit should cap at max, got %d", got)
	}
	if got := NormalizeLimit(42); got != 42 {
		t.Fatalf("valid limit should pass through, got %d", got)
	}
}

func TestPageNextAndExhausted(t *testing.T) {
	p := Page{Limit: 100, Offset: 0}

	next := p.Next()
	if next.Offset != 100 {
		t.Fatalf("expected offset 100, got %d", next.Offset)
	}
	if next.Next().Offset != 200 {
		t.Fatalf("expected offset 200, got %d", next.Next().Offset)
	}

	if p.Exhausted(100) {
		t.Fatal("full page should not be exhausted")
	}
	if !p.Exhausted(99) {
		t.Fatal("short page should be exhausted")
	}
	if !p.Exhausted(0) {
		t.Fatal("empty page should be exhausted")
	}
}

func TestPageNormalizeClampsOffset(t *testing.T) {
	p := Page{Limit: -1, Offset: -10}.Normalize()
	if p.Limit != DefaultLimit || p.Offset != 0 {
		t.Fatalf("unexpected normalized page %+v", p)
	}
}
