// Package search provides full-text lookup of custom palettes and theme
// presets, with Meilisearch as the primary engine and PostgreSQL as fallback.
package search

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultPalette ResultType = "palette"
	ResultPreset  ResultType = "preset"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type     ResultType `json:"type"`
	ID       string     `json:"id"`
	TenantID string     `json:"tenantId"`
	Name     string     `json:"name"`
	Snippet  string     `json:"snippet"`
}

// Query describes a search request. Searches are always tenant-scoped.
type Query struct {
	Text       string
	TenantID   string
	FilterType ResultType // empty = all types
	Limit      int
	Offset     int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a theme search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// PaletteRecord is the data we index for a custom palette.
type PaletteRecord struct {
	ID       string `json:"id"`
	TenantID string `json:"tenantId"`
	Name     string `json:"name"`
	Primary  string `json:"primary"`
}

// PresetRecord is the data we index for a theme preset.
type PresetRecord struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenantId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Mode        string `json:"mode"`
}
