package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"brandhub/api/internal/util"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) TenantExists(ctx context.Context, tenantID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM tenants WHERE id=$1)`, tenantID).Scan(&exists)
	if err != nil {
		return false, storeErr("check tenant", err)
	}
	return exists, nil
}

// FindBranding returns the tenant's branding row, or nil when the tenant has
// never customized anything. Absence is a sentinel, not a failure.
func (s *PostgresStore) FindBranding(ctx context.Context, tenantID string) (*BrandingRow, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, color_palette_id, font_scheme_id, custom_css, created_by, updated_by, created_at, updated_at
		FROM tenant_branding
		WHERE tenant_id=$1
	`, tenantID)
	item, err := scanBranding(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("find branding", err)
	}
	return item, nil
}

func (s *PostgresStore) CreateBranding(ctx context.Context, tenantID string, paletteID, schemeID, customCSS *string, editorID string) (*BrandingRow, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO tenant_branding (id, tenant_id, color_palette_id, font_scheme_id, custom_css, created_by, updated_by)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($6, ''))
		RETURNING id, tenant_id, color_palette_id, font_scheme_id, custom_css, created_by, updated_by, created_at, updated_at
	`, util.NewID("tb"), tenantID, paletteID, schemeID, customCSS, editorID)
	item, err := scanBranding(row)
	if err != nil {
		return nil, storeErr("create branding", err)
	}
	return item, nil
}

func (s *PostgresStore) UpdateBranding(ctx context.Context, id string, paletteID, schemeID, customCSS *string, editorID string) (*BrandingRow, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE tenant_branding
		SET color_palette_id=$2, font_scheme_id=$3, custom_css=$4, updated_by=NULLIF($5, ''), updated_at=NOW()
		WHERE id=$1
		RETURNING id, tenant_id, color_palette_id, font_scheme_id, custom_css, created_by, updated_by, created_at, updated_at
	`, id, paletteID, schemeID, customCSS, editorID)
	item, err := scanBranding(row)
	if err != nil {
		return nil, storeErr("update branding", err)
	}
	return item, nil
}

// ClearBranding nulls the customizable fields but keeps the row (and its
// logos) intact. Used by reset with preserveLogos.
func (s *PostgresStore) ClearBranding(ctx context.Context, id, editorID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE tenant_branding
		SET color_palette_id=NULL, font_scheme_id=NULL, custom_css=NULL, updated_by=NULLIF($2, ''), updated_at=NOW()
		WHERE id=$1
	`, id, editorID)
	if err != nil {
		return storeErr("clear branding", err)
	}
	return nil
}

func (s *PostgresStore) DeleteBranding(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM tenant_branding WHERE id=$1`, id)
	if err != nil {
		return storeErr("delete branding", err)
	}
	return nil
}

func (s *PostgresStore) ListLogos(ctx context.Context, brandingID string) ([]Logo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, branding_id, slot, storage_path, public_url, file_name, file_size, mime_type, created_at
		FROM tenant_logos
		WHERE branding_id=$1
		ORDER BY slot ASC
	`, brandingID)
	if err != nil {
		return nil, storeErr("list logos", err)
	}
	defer rows.Close()

	items := make([]Logo, 0)
	for rows.Next() {
		var item Logo
		if err := rows.Scan(&item.ID, &item.BrandingID, &item.Slot, &item.Path, &item.URL, &item.FileName, &item.FileSize, &item.MimeType, &item.CreatedAt); err != nil {
			return nil, storeErr("scan logo", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate logos", err)
	}
	return items, nil
}

func (s *PostgresStore) FindLogo(ctx context.Context, brandingID, slot string) (*Logo, error) {
	var item Logo
	err := s.db.QueryRowContext(ctx, `
		SELECT id, branding_id, slot, storage_path, public_url, file_name, file_size, mime_type, created_at
		FROM tenant_logos
		WHERE branding_id=$1 AND slot=$2
	`, brandingID, slot).Scan(&item.ID, &item.BrandingID, &item.Slot, &item.Path, &item.URL, &item.FileName, &item.FileSize, &item.MimeType, &item.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("find logo", err)
	}
	return &item, nil
}

func (s *PostgresStore) InsertLogo(ctx context.Context, logo Logo) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tenant_logos (id, branding_id, slot, storage_path, public_url, file_name, file_size, mime_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, logo.ID, logo.BrandingID, logo.Slot, logo.Path, logo.URL, logo.FileName, logo.FileSize, logo.MimeType)
	if err != nil {
		return storeErr("insert logo", err)
	}
	return nil
}

func (s *PostgresStore) DeleteLogo(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM tenant_logos WHERE id=$1`, id)
	if err != nil {
		return storeErr("delete logo", err)
	}
	return nil
}

func (s *PostgresStore) FindPalette(ctx context.Context, id string) (*ColorPalette, error) {
	row := s.db.QueryRowContext(ctx, paletteSelect+` WHERE id=$1`, id)
	item, err := scanPalette(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("find palette", err)
	}
	return item, nil
}

func (s *PostgresStore) ListPalettes(ctx context.Context, tenantID string) ([]ColorPalette, error) {
	rows, err := s.db.QueryContext(ctx, paletteSelect+` WHERE tenant_id=$1 ORDER BY created_at DESC`, tenantID)
	if err != nil {
		return nil, storeErr("list palettes", err)
	}
	defer rows.Close()

	items := make([]ColorPalette, 0)
	for rows.Next() {
		item, err := scanPalette(rows)
		if err != nil {
			return nil, storeErr("scan palette", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate palettes", err)
	}
	return items, nil
}

func (s *PostgresStore) InsertPalette(ctx context.Context, p ColorPalette) (string, error) {
	if p.ID == "" {
		p.ID = util.NewID("pal")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO color_palettes (
			id, tenant_id, name,
			primary_color, primary_foreground,
			secondary_color, secondary_foreground,
			accent_color, accent_foreground,
			muted_color, muted_foreground,
			background_color, foreground_color,
			card_color, card_foreground,
			destructive_color, destructive_foreground,
			sidebar_background, sidebar_foreground,
			sidebar_primary, sidebar_primary_foreground,
			is_custom, created_by
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,NULLIF($23,''))
	`, p.ID, p.TenantID, p.Name,
		p.PrimaryColor, p.PrimaryForeground,
		p.SecondaryColor, p.SecondaryForeground,
		p.AccentColor, p.AccentForeground,
		p.MutedColor, p.MutedForeground,
		p.BackgroundColor, p.ForegroundColor,
		p.CardColor, p.CardForeground,
		p.DestructiveColor, p.DestructiveForeground,
		p.SidebarBackground, p.SidebarForeground,
		p.SidebarPrimary, p.SidebarPrimaryForeground,
		p.IsCustom, deref(p.CreatedBy))
	if err != nil {
		return "", storeErr("insert palette", err)
	}
	return p.ID, nil
}

func (s *PostgresStore) FindFontScheme(ctx context.Context, id string) (*FontScheme, error) {
	row := s.db.QueryRowContext(ctx, fontSchemeSelect+` WHERE id=$1`, id)
	item, err := scanFontScheme(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("find font scheme", err)
	}
	return item, nil
}

func (s *PostgresStore) ListFontSchemes(ctx context.Context, tenantID string) ([]FontScheme, error) {
	rows, err := s.db.QueryContext(ctx, fontSchemeSelect+` WHERE tenant_id=$1 ORDER BY created_at DESC`, tenantID)
	if err != nil {
		return nil, storeErr("list font schemes", err)
	}
	defer rows.Close()

	items := make([]FontScheme, 0)
	for rows.Next() {
		item, err := scanFontScheme(rows)
		if err != nil {
			return nil, storeErr("scan font scheme", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate font schemes", err)
	}
	return items, nil
}

func (s *PostgresStore) InsertFontScheme(ctx context.Context, f FontScheme) (string, error) {
	if f.ID == "" {
		f.ID = util.NewID("fs")
	}
	sans, err := json.Marshal(f.FontSans)
	if err != nil {
		return "", storeErr("marshal font sans", err)
	}
	mono, err := json.Marshal(f.FontMono)
	if err != nil {
		return "", storeErr("marshal font mono", err)
	}
	sizes, err := json.Marshal(nonNilSizes(f.FontSizes))
	if err != nil {
		return "", storeErr("marshal font sizes", err)
	}
	weights, err := json.Marshal(nonNilWeights(f.FontWeights))
	if err != nil {
		return "", storeErr("marshal font weights", err)
	}
	external, err := json.Marshal(nonNilList(f.ExternalFonts))
	if err != nil {
		return "", storeErr("marshal external fonts", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO font_schemes (id, tenant_id, name, font_sans, font_mono, font_sizes, font_weights, external_fonts, is_custom)
		VALUES ($1, $2, $3, $4::jsonb, $5::jsonb, $6::jsonb, $7::jsonb, $8::jsonb, $9)
	`, f.ID, f.TenantID, f.Name, string(sans), string(mono), string(sizes), string(weights), string(external), f.IsCustom)
	if err != nil {
		return "", storeErr("insert font scheme", err)
	}
	return f.ID, nil
}

func (s *PostgresStore) ListPresets(ctx context.Context, tenantID string) ([]ThemePreset, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, name, COALESCE(description, ''), color_palette_id, font_scheme_id,
			COALESCE(corner_radius, ''), COALESCE(scale, ''), COALESCE(mode, 'light'), created_by, created_at, updated_at
		FROM custom_theme_presets
		WHERE tenant_id=$1
		ORDER BY created_at DESC
	`, tenantID)
	if err != nil {
		return nil, storeErr("list presets", err)
	}
	defer rows.Close()

	items := make([]ThemePreset, 0)
	for rows.Next() {
		var item ThemePreset
		if err := rows.Scan(&item.ID, &item.TenantID, &item.Name, &item.Description, &item.ColorPaletteID, &item.FontSchemeID,
			&item.CornerRadius, &item.Scale, &item.Mode, &item.CreatedBy, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, storeErr("scan preset", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate presets", err)
	}
	return items, nil
}

func (s *PostgresStore) InsertPreset(ctx context.Context, p ThemePreset) (string, error) {
	if p.ID == "" {
		p.ID = util.NewID("preset")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO custom_theme_presets (id, tenant_id, name, description, color_palette_id, font_scheme_id, corner_radius, scale, mode, created_by)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, NULLIF($7, ''), NULLIF($8, ''), $9, NULLIF($10, ''))
	`, p.ID, p.TenantID, p.Name, p.Description, p.ColorPaletteID, p.FontSchemeID, p.CornerRadius, p.Scale, p.Mode, deref(p.CreatedBy))
	if err != nil {
		return "", storeErr("insert preset", err)
	}
	return p.ID, nil
}

// Ping verifies the database connection is alive
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const paletteSelect = `
	SELECT id, tenant_id, name,
		primary_color, primary_foreground,
		secondary_color, secondary_foreground,
		accent_color, accent_foreground,
		muted_color, muted_foreground,
		background_color, foreground_color,
		card_color, card_foreground,
		destructive_color, destructive_foreground,
		sidebar_background, sidebar_foreground,
		sidebar_primary, sidebar_primary_foreground,
		is_custom, created_by, created_at, updated_at
	FROM color_palettes`

const fontSchemeSelect = `
	SELECT id, tenant_id, name, font_sans::text, font_mono::text, font_sizes::text, font_weights::text, external_fonts::text, is_custom, created_at, updated_at
	FROM font_schemes`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBranding(row rowScanner) (*BrandingRow, error) {
	var item BrandingRow
	err := row.Scan(&item.ID, &item.TenantID, &item.ColorPaletteID, &item.FontSchemeID, &item.CustomCSS,
		&item.CreatedBy, &item.UpdatedBy, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if item.ID == "" || item.TenantID == "" {
		return nil, &RowError{Table: "tenant_branding", RowID: item.ID, Reason: "missing id or tenant_id"}
	}
	return &item, nil
}

func scanPalette(row rowScanner) (*ColorPalette, error) {
	var item ColorPalette
	err := row.Scan(&item.ID, &item.TenantID, &item.Name,
		&item.PrimaryColor, &item.PrimaryForeground,
		&item.SecondaryColor, &item.SecondaryForeground,
		&item.AccentColor, &item.AccentForeground,
		&item.MutedColor, &item.MutedForeground,
		&item.BackgroundColor, &item.ForegroundColor,
		&item.CardColor, &item.CardForeground,
		&item.DestructiveColor, &item.DestructiveForeground,
		&item.SidebarBackground, &item.SidebarForeground,
		&item.SidebarPrimary, &item.SidebarPrimaryForeground,
		&item.IsCustom, &item.CreatedBy, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if reason := validatePaletteRow(&item); reason != "" {
		return nil, &RowError{Table: "color_palettes", RowID: item.ID, Reason: reason}
	}
	return &item, nil
}

func validatePaletteRow(p *ColorPalette) string {
	if p.ID == "" || p.TenantID == "" {
		return "missing id or tenant_id"
	}
	for name, value := range map[string]string{
		"primary_color":    p.PrimaryColor,
		"background_color": p.BackgroundColor,
		"foreground_color": p.ForegroundColor,
	} {
		if value == "" {
			return "empty required column " + name
		}
	}
	return ""
}

func scanFontScheme(row rowScanner) (*FontScheme, error) {
	var item FontScheme
	var sans, mono, sizes, weights, external string
	err := row.Scan(&item.ID, &item.TenantID, &item.Name, &sans, &mono, &sizes, &weights, &external, &item.IsCustom, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(sans), &item.FontSans); err != nil {
		return nil, &RowError{Table: "font_schemes", RowID: item.ID, Reason: "malformed font_sans json"}
	}
	if err := json.Unmarshal([]byte(mono), &item.FontMono); err != nil {
		return nil, &RowError{Table: "font_schemes", RowID: item.ID, Reason: "malformed font_mono json"}
	}
	if err := json.Unmarshal([]byte(sizes), &item.FontSizes); err != nil {
		return nil, &RowError{Table: "font_schemes", RowID: item.ID, Reason: "malformed font_sizes json"}
	}
	if err := json.Unmarshal([]byte(weights), &item.FontWeights); err != nil {
		return nil, &RowError{Table: "font_schemes", RowID: item.ID, Reason: "malformed font_weights json"}
	}
	if err := json.Unmarshal([]byte(external), &item.ExternalFonts); err != nil {
		return nil, &RowError{Table: "font_schemes", RowID: item.ID, Reason: "malformed external_fonts json"}
	}
	if len(item.FontSans) == 0 || len(item.FontMono) == 0 {
		return nil, &RowError{Table: "font_schemes", RowID: item.ID, Reason: "empty font stack"}
	}
	return &item, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nonNilList(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func nonNilSizes(v map[string]string) map[string]string {
	if v == nil {
		return map[string]string{}
	}
	return v
}

func nonNilWeights(v map[string]int) map[string]int {
	if v == nil {
		return map[string]int{}
	}
	return v
}
