package search

import (
	"database/sql"
	"fmt"
	"strings"
)

// PgSearch implements Searcher over the relational tables as a fallback.
// Palette and preset names are short, so ILIKE is good enough here; no
// dedicated tsvector column is maintained for them.
type PgSearch struct {
	db *sql.DB
}

func NewPgSearch(db *sql.DB) *PgSearch {
	return &PgSearch{db: db}
}

// Healthy always returns true; if Postgres is down the whole app is down.
func (p *PgSearch) Healthy() bool {
	return true
}

// Search runs a UNION ALL over color_palettes and custom_theme_presets.
func (p *PgSearch) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	pattern := "%" + escapeLike(q.Text) + "%"

	var subQueries []string
	if q.FilterType == "" || q.FilterType == ResultPalette {
		subQueries = append(subQueries, `
			SELECT 'palette'::text AS type, p.id, p.tenant_id, p.name, p.primary_color AS snippet
			FROM color_palettes p
			WHERE p.tenant_id = $1 AND p.name ILIKE $2`)
	}
	if q.FilterType == "" || q.FilterType == ResultPreset {
		subQueries = append(subQueries, `
			SELECT 'preset'::text AS type, t.id, t.tenant_id, t.name, COALESCE(t.description, '') AS snippet
			FROM custom_theme_presets t
			WHERE t.tenant_id = $1 AND (t.name ILIKE $2 OR t.description ILIKE $2)`)
	}
	if len(subQueries) == 0 {
		return nil, 0, nil
	}

	query := fmt.Sprintf(`
		SELECT type, id, tenant_id, name, snippet
		FROM (%s) hits
		ORDER BY name ASC
		LIMIT $3 OFFSET $4
	`, strings.Join(subQueries, " UNION ALL "))

	rows, err := p.db.Query(query, q.TenantID, pattern, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("pg theme search: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.Type, &r.ID, &r.TenantID, &r.Name, &r.Snippet); err != nil {
			return nil, 0, fmt.Errorf("scan search hit: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate search hits: %w", err)
	}
	return results, len(results), nil
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}
