package search

import (
	"errors"
	"testing"
)

type stubSearcher struct {
	results []Result
	err     error
	lastQ   Query
}

func (s *stubSearcher) Search(q Query) ([]Result, int, error) {
	s.lastQ = q
	return s.results, len(s.results), s.err
}

func (s *stubSearcher) Healthy() bool { return true }

func TestSearchUsesFallbackWithoutMeili(t *testing.T) {
	stub := &stubSearcher{results: []Result{{Type: ResultPalette, ID: "pal_1", Name: "Ocean"}}}
	svc := NewService(nil, stub)

	resp := svc.Search(Query{Text: "ocean", TenantID: "t1"})
	if resp.Total != 1 || len(resp.Results) != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Results[0].Name != "Ocean" {
		t.Fatalf("unexpected hit: %+v", resp.Results[0])
	}
	if stub.lastQ.TenantID != "t1" {
		t.Fatal("tenant scope not forwarded")
	}
}

func TestSearchFallbackErrorYieldsEmptyResponse(t *testing.T) {
	stub := &stubSearcher{err: errors.New("boom")}
	svc := NewService(nil, stub)

	resp := svc.Search(Query{Text: "x", TenantID: "t1"})
	if resp.Results == nil || len(resp.Results) != 0 || resp.Total != 0 {
		t.Fatalf("expected empty non-nil results, got %+v", resp)
	}
}

func TestIndexPaletteWithoutMeiliIsNoop(t *testing.T) {
	svc := NewService(nil, &stubSearcher{})
	svc.IndexPalette(PaletteRecord{ID: "pal_1"})
	svc.DeletePalette("pal_1")
}

func TestEscapeLike(t *testing.T) {
	if got := escapeLike(`50%_a\b`); got != `50\%\_a\\b` {
		t.Fatalf("escapeLike = %q", got)
	}
}
