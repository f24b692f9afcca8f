package search

import "log"

// Service is the facade that tries Meilisearch first and falls back to the
// relational tables.
type Service struct {
	meili    *Meili
	fallback Searcher
}

// NewService creates a search service. meili may be nil if Meilisearch is not
// configured.
func NewService(meili *Meili, fallback Searcher) *Service {
	return &Service{meili: meili, fallback: fallback}
}

// Search tries Meilisearch if healthy, otherwise uses the fallback.
func (s *Service) Search(q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to postgres: %v", err)
	}

	results, total, err := s.fallback.Search(q)
	if err != nil {
		log.Printf("search: fallback error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexPalette indexes a palette (fire-and-forget to Meilisearch).
func (s *Service) IndexPalette(rec PaletteRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexPalette(rec); err != nil {
			log.Printf("search: index palette %s: %v", rec.ID, err)
		}
	}()
}

// IndexPreset indexes a preset (fire-and-forget to Meilisearch).
func (s *Service) IndexPreset(rec PresetRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexPreset(rec); err != nil {
			log.Printf("search: index preset %s: %v", rec.ID, err)
		}
	}()
}

// DeletePalette removes a palette from the index (fire-and-forget).
func (s *Service) DeletePalette(id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeletePalette(id); err != nil {
			log.Printf("search: delete palette %s: %v", id, err)
		}
	}()
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
