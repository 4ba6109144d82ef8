package pagination

import "testing"

func TestNormalizeLimit(t *testing.T) {
	if got := NormalizeLimit(0); got != DefaultLimit {
		t.Fatalf("expected default limit, got %d", got)
	}
	if got := NormalizeLimit(-5); got != DefaultLimit {
		t.Fatalf("expected default limit for negative input, got %d", got)
	}
	if got := NormalizeLimit(500); got != MaxLimit {
		t.Fatalf("expected max limit, got %d", got)
	}
	if got := NormalizeLimit(10); got != 10 {
		t.Fatalf("expected limit passthrough, got %d", got)
	}
}

func TestOffset(t *testing.T) {
	p := Params{Page: 3, Limit: 20}
	if got := p.Offset(); got != 40 {
		t.Fatalf("expected offset 40, got %d", got)
	}

	zero := Params{}
	if got := zero.Offset(); got != 0 {
		t.Fatalf("expected offset 0 for zero params, got %d", got)
	}
}

func TestMetaFor(t *testing.T) {
	meta := MetaFor(Params{Page: 2, Limit: 10}, 25)
	if meta.TotalPages != 3 {
		t.Fatalf("expected 3 pages, got %d", meta.TotalPages)
	}
	if meta.Page != 2 || meta.Limit != 10 || meta.Total != 25 {
		t.Fatalf("unexpected meta: %+v", meta)
	}

	empty := MetaFor(Params{}, 0)
	if empty.TotalPages != 1 {
		t.Fatalf("expected 1 page for empty result, got %d", empty.TotalPages)
	}
}
