// Package branding is the facade over the branding config store, cache,
// object storage and cross-instance sync bus.
package branding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"brandhub/api/internal/broadcast"
	"brandhub/api/internal/cache"
	"brandhub/api/internal/storage"
	"brandhub/api/internal/store"
	"brandhub/api/internal/util"
	"brandhub/api/internal/validate"
)

var (
	ErrTenantNotFound     = errors.New("tenant not found")
	ErrPaletteNotFound    = errors.New("color palette not found")
	ErrFontSchemeNotFound = errors.New("font scheme not found")
	ErrInvalidSlot        = errors.New("invalid logo slot")
	ErrLogoNotFound       = errors.New("logo not found")
)

// ValidationError carries the individual check failures for a rejected write.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %v", e.Problems)
}

// Config is the fully resolved branding for one tenant: the stored row joined
// with its palette, font scheme and logos, or the built-in defaults when the
// tenant has customized nothing.
type Config struct {
	TenantID  string                `json:"tenantId"`
	IsDefault bool                  `json:"isDefault"`
	Palette   store.ColorPalette    `json:"palette"`
	Fonts     store.FontScheme      `json:"fonts"`
	Logos     map[string]store.Logo `json:"logos"`
	CustomCSS string                `json:"customCss,omitempty"`
	Presets   []store.ThemePreset   `json:"presets,omitempty"`
	UpdatedAt time.Time             `json:"updatedAt,omitempty"`
	// Warnings carries non-fatal notices produced while resolving, such as
	// the default-configuration fallback.
	Warnings []string `json:"warnings,omitempty"`
}

// DefaultFallbackWarning tags a config served because the tenant has no
// branding row.
const DefaultFallbackWarning = "No custom branding found, using default configuration"

// DataStore is the persistence surface the service needs. *store.PostgresStore
// satisfies it; tests plug in fakes.
type DataStore interface {
	TenantExists(ctx context.Context, tenantID string) (bool, error)
	FindBranding(ctx context.Context, tenantID string) (*store.BrandingRow, error)
	CreateBranding(ctx context.Context, tenantID string, paletteID, schemeID, customCSS *string, editorID string) (*store.BrandingRow, error)
	UpdateBranding(ctx context.Context, id string, paletteID, schemeID, customCSS *string, editorID string) (*store.BrandingRow, error)
	ClearBranding(ctx context.Context, id, editorID string) error
	DeleteBranding(ctx context.Context, id string) error
	ListLogos(ctx context.Context, brandingID string) ([]store.Logo, error)
	FindLogo(ctx context.Context, brandingID, slot string) (*store.Logo, error)
	InsertLogo(ctx context.Context, logo store.Logo) error
	DeleteLogo(ctx context.Context, id string) error
	FindPalette(ctx context.Context, id string) (*store.ColorPalette, error)
	ListPalettes(ctx context.Context, tenantID string) ([]store.ColorPalette, error)
	InsertPalette(ctx context.Context, p store.ColorPalette) (string, error)
	FindFontScheme(ctx context.Context, id string) (*store.FontScheme, error)
	ListFontSchemes(ctx context.Context, tenantID string) ([]store.FontScheme, error)
	InsertFontScheme(ctx context.Context, f store.FontScheme) (string, error)
	ListPresets(ctx context.Context, tenantID string) ([]store.ThemePreset, error)
	InsertPreset(ctx context.Context, p store.ThemePreset) (string, error)
}

type Service struct {
	store   DataStore
	cache   *cache.Cache[Config]
	bus     broadcast.Bus
	objects storage.ObjectStorage
	logger  *log.Logger
}

func NewService(st DataStore, c *cache.Cache[Config], bus broadcast.Bus, objects storage.ObjectStorage, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	if bus == nil {
		bus = broadcast.NoopBus{}
	}
	return &Service{store: st, cache: c, bus: bus, objects: objects, logger: logger}
}

// StartSyncListener subscribes to the bus and drops the in-memory cache entry
// for any tenant another instance reports as changed. The mirror entry is
// left to the writer; dropping only the memory tier forces a rehydrate.
func (s *Service) StartSyncListener() func() {
	return s.bus.Subscribe(func(msg broadcast.Message) {
		if msg.TenantID == "" {
			return
		}
		s.cache.Drop(msg.TenantID)
	})
}

// Load returns the tenant's resolved branding, from cache when possible.
func (s *Service) Load(ctx context.Context, tenantID string) (Config, error) {
	if cfg, ok := s.cache.Get(ctx, tenantID); ok {
		return cfg, nil
	}

	exists, err := s.store.TenantExists(ctx, tenantID)
	if err != nil {
		return Config{}, fmt.Errorf("load branding: %w", err)
	}
	if !exists {
		return Config{}, ErrTenantNotFound
	}

	cfg, err := s.resolve(ctx, tenantID)
	if err != nil {
		return Config{}, err
	}

	ttl := cache.DefaultTTL
	if cfg.IsDefault {
		ttl = cache.ShortTTL
	}
	if err := s.cache.Set(ctx, tenantID, cfg, ttl); err != nil {
		s.logger.Printf("branding: cache write for %s failed: %v", tenantID, err)
	}
	return cfg, nil
}

// resolve reads the branding row and joins palette, fonts, logos and presets.
func (s *Service) resolve(ctx context.Context, tenantID string) (Config, error) {
	row, err := s.store.FindBranding(ctx, tenantID)
	if err != nil {
		return Config{}, fmt.Errorf("resolve branding: %w", err)
	}
	if row == nil {
		s.logger.Printf("branding: no custom branding found for %s, using default configuration", tenantID)
		cfg := DefaultConfig(tenantID)
		cfg.Warnings = []string{DefaultFallbackWarning}
		return cfg, nil
	}

	cfg := DefaultConfig(tenantID)
	cfg.IsDefault = false
	cfg.UpdatedAt = row.UpdatedAt

	if row.ColorPaletteID != nil {
		palette, err := s.store.FindPalette(ctx, *row.ColorPaletteID)
		if err != nil {
			return Config{}, fmt.Errorf("resolve palette: %w", err)
		}
		if palette != nil {
			cfg.Palette = *palette
		}
	}
	if row.FontSchemeID != nil {
		fonts, err := s.store.FindFontScheme(ctx, *row.FontSchemeID)
		if err != nil {
			return Config{}, fmt.Errorf("resolve font scheme: %w", err)
		}
		if fonts != nil {
			cfg.Fonts = *fonts
		}
	}
	if row.CustomCSS != nil {
		cfg.CustomCSS = *row.CustomCSS
	}

	logos, err := s.store.ListLogos(ctx, row.ID)
	if err != nil {
		return Config{}, fmt.Errorf("resolve logos: %w", err)
	}
	for _, logo := range logos {
		cfg.Logos[logo.Slot] = logo
	}

	presets, err := s.store.ListPresets(ctx, tenantID)
	if err != nil {
		return Config{}, fmt.Errorf("resolve presets: %w", err)
	}
	cfg.Presets = presets

	return cfg, nil
}

type SaveRequest struct {
	ColorPaletteID *string `json:"colorPaletteId"`
	FontSchemeID   *string `json:"fontSchemeId"`
	CustomCSS      *string `json:"customCss"`
}

// Save upserts the branding row and republishes. The cache entry is
// invalidated before the write so a concurrent reader cannot pin the old
// value past the save.
func (s *Service) Save(ctx context.Context, tenantID string, req SaveRequest, editorID string) (Config, error) {
	exists, err := s.store.TenantExists(ctx, tenantID)
	if err != nil {
		return Config{}, fmt.Errorf("save branding: %w", err)
	}
	if !exists {
		return Config{}, ErrTenantNotFound
	}

	if req.ColorPaletteID != nil && *req.ColorPaletteID != "" {
		palette, err := s.store.FindPalette(ctx, *req.ColorPaletteID)
		if err != nil {
			return Config{}, fmt.Errorf("check palette: %w", err)
		}
		if palette == nil {
			return Config{}, ErrPaletteNotFound
		}
	}
	if req.FontSchemeID != nil && *req.FontSchemeID != "" {
		scheme, err := s.store.FindFontScheme(ctx, *req.FontSchemeID)
		if err != nil {
			return Config{}, fmt.Errorf("check font scheme: %w", err)
		}
		if scheme == nil {
			return Config{}, ErrFontSchemeNotFound
		}
	}

	if err := s.cache.Invalidate(ctx, tenantID); err != nil {
		s.logger.Printf("branding: invalidate %s before save failed: %v", tenantID, err)
	}

	row, err := s.store.FindBranding(ctx, tenantID)
	if err != nil {
		return Config{}, fmt.Errorf("save branding: %w", err)
	}
	if row == nil {
		_, err = s.store.CreateBranding(ctx, tenantID, req.ColorPaletteID, req.FontSchemeID, req.CustomCSS, editorID)
	} else {
		_, err = s.store.UpdateBranding(ctx, row.ID, req.ColorPaletteID, req.FontSchemeID, req.CustomCSS, editorID)
	}
	if err != nil {
		return Config{}, fmt.Errorf("save branding: %w", err)
	}

	cfg, err := s.resolve(ctx, tenantID)
	if err != nil {
		return Config{}, err
	}
	if err := s.cache.Set(ctx, tenantID, cfg, cache.DefaultTTL); err != nil {
		s.logger.Printf("branding: recache %s after save failed: %v", tenantID, err)
	}
	s.publishUpdate(ctx, tenantID, cfg)
	return cfg, nil
}

// Reset removes the tenant's customization. With preserveLogos the row is
// kept and its fields nulled; otherwise the row, its logos and their storage
// objects are deleted.
func (s *Service) Reset(ctx context.Context, tenantID string, preserveLogos bool, editorID string) (Config, error) {
	exists, err := s.store.TenantExists(ctx, tenantID)
	if err != nil {
		return Config{}, fmt.Errorf("reset branding: %w", err)
	}
	if !exists {
		return Config{}, ErrTenantNotFound
	}

	row, err := s.store.FindBranding(ctx, tenantID)
	if err != nil {
		return Config{}, fmt.Errorf("reset branding: %w", err)
	}
	if row != nil {
		if preserveLogos {
			if err := s.store.ClearBranding(ctx, row.ID, editorID); err != nil {
				return Config{}, fmt.Errorf("reset branding: %w", err)
			}
		} else {
			logos, err := s.store.ListLogos(ctx, row.ID)
			if err != nil {
				return Config{}, fmt.Errorf("reset branding: %w", err)
			}
			if err := s.store.DeleteBranding(ctx, row.ID); err != nil {
				return Config{}, fmt.Errorf("reset branding: %w", err)
			}
			for _, logo := range logos {
				if err := s.objects.Remove(ctx, logo.Path); err != nil {
					s.logger.Printf("branding: orphaned object %s after reset: %v", logo.Path, err)
				}
			}
		}
	}

	if err := s.cache.Invalidate(ctx, tenantID); err != nil {
		s.logger.Printf("branding: invalidate %s after reset failed: %v", tenantID, err)
	}
	if err := s.bus.PublishInvalidation(ctx, tenantID); err != nil {
		s.logger.Printf("branding: publish invalidation for %s failed: %v", tenantID, err)
	}
	return s.Load(ctx, tenantID)
}

// UploadLogo validates the file, stores it, and records its metadata. An
// existing logo's row is displaced before the insert (the slot is unique) but
// its object is removed only after the new metadata commits. A metadata
// failure triggers a compensating delete of the uploaded object.
func (s *Service) UploadLogo(ctx context.Context, tenantID, slot string, file validate.LogoFile, editorID string) (store.Logo, []string, error) {
	if !store.ValidSlot(slot) {
		return store.Logo{}, nil, ErrInvalidSlot
	}
	res := validate.Logo(file)
	if !res.Valid {
		return store.Logo{}, res.Warnings, &ValidationError{Problems: res.Errors}
	}

	exists, err := s.store.TenantExists(ctx, tenantID)
	if err != nil {
		return store.Logo{}, res.Warnings, fmt.Errorf("upload logo: %w", err)
	}
	if !exists {
		return store.Logo{}, res.Warnings, ErrTenantNotFound
	}

	row, err := s.store.FindBranding(ctx, tenantID)
	if err != nil {
		return store.Logo{}, res.Warnings, fmt.Errorf("upload logo: %w", err)
	}
	if row == nil {
		row, err = s.store.CreateBranding(ctx, tenantID, nil, nil, nil, editorID)
		if err != nil {
			return store.Logo{}, res.Warnings, fmt.Errorf("upload logo: %w", err)
		}
	}

	previous, err := s.store.FindLogo(ctx, row.ID, slot)
	if err != nil {
		return store.Logo{}, res.Warnings, fmt.Errorf("upload logo: %w", err)
	}

	path := fmt.Sprintf("%s/%s/%d_%s", tenantID, slot, time.Now().UnixMilli(), validate.SanitizeFileName(file.Name))
	if err := s.objects.Upload(ctx, path, file.Data, file.MimeType); err != nil {
		return store.Logo{}, res.Warnings, fmt.Errorf("upload logo: %w", err)
	}

	logo := store.Logo{
		ID:         util.NewID("logo"),
		BrandingID: row.ID,
		Slot:       slot,
		Path:       path,
		URL:        s.objects.PublicURL(path),
		FileName:   file.Name,
		FileSize:   file.Size,
		MimeType:   file.MimeType,
		CreatedAt:  time.Now(),
	}

	// Displace the old row first; the slot has a uniqueness constraint.
	if previous != nil {
		if err := s.store.DeleteLogo(ctx, previous.ID); err != nil {
			s.compensate(ctx, path)
			return store.Logo{}, res.Warnings, fmt.Errorf("displace previous logo: %w", err)
		}
	}
	if err := s.store.InsertLogo(ctx, logo); err != nil {
		s.compensate(ctx, path)
		return store.Logo{}, res.Warnings, fmt.Errorf("record logo: %w", err)
	}
	if previous != nil {
		if err := s.objects.Remove(ctx, previous.Path); err != nil {
			s.logger.Printf("branding: orphaned object %s after displacement: %v", previous.Path, err)
		}
	}

	if err := s.cache.Invalidate(ctx, tenantID); err != nil {
		s.logger.Printf("branding: invalidate %s after logo upload failed: %v", tenantID, err)
	}
	if err := s.bus.PublishInvalidation(ctx, tenantID); err != nil {
		s.logger.Printf("branding: publish invalidation for %s failed: %v", tenantID, err)
	}
	return logo, res.Warnings, nil
}

// compensate removes an object whose metadata write failed, so storage does
// not accumulate unreferenced files.
func (s *Service) compensate(ctx context.Context, path string) {
	if err := s.objects.Remove(ctx, path); err != nil {
		s.logger.Printf("branding: compensating delete of %s failed: %v", path, err)
	}
}

func (s *Service) RemoveLogo(ctx context.Context, tenantID, slot string) error {
	if !store.ValidSlot(slot) {
		return ErrInvalidSlot
	}
	row, err := s.store.FindBranding(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("remove logo: %w", err)
	}
	if row == nil {
		return ErrLogoNotFound
	}
	logo, err := s.store.FindLogo(ctx, row.ID, slot)
	if err != nil {
		return fmt.Errorf("remove logo: %w", err)
	}
	if logo == nil {
		return ErrLogoNotFound
	}

	if err := s.store.DeleteLogo(ctx, logo.ID); err != nil {
		return fmt.Errorf("remove logo: %w", err)
	}
	if err := s.objects.Remove(ctx, logo.Path); err != nil {
		s.logger.Printf("branding: orphaned object %s after removal: %v", logo.Path, err)
	}

	if err := s.cache.Invalidate(ctx, tenantID); err != nil {
		s.logger.Printf("branding: invalidate %s after logo removal failed: %v", tenantID, err)
	}
	if err := s.bus.PublishInvalidation(ctx, tenantID); err != nil {
		s.logger.Printf("branding: publish invalidation for %s failed: %v", tenantID, err)
	}
	return nil
}

// CreatePalette validates every color slot before persisting.
func (s *Service) CreatePalette(ctx context.Context, p store.ColorPalette) (store.ColorPalette, error) {
	exists, err := s.store.TenantExists(ctx, p.TenantID)
	if err != nil {
		return store.ColorPalette{}, fmt.Errorf("create palette: %w", err)
	}
	if !exists {
		return store.ColorPalette{}, ErrTenantNotFound
	}

	var problems []string
	if p.Name == "" {
		problems = append(problems, "name is required")
	}
	for name, value := range paletteColorFields(&p) {
		if !validate.ColorFormat(value) {
			problems = append(problems, fmt.Sprintf("invalid color for %s: %q", name, value))
		}
	}
	if len(problems) > 0 {
		return store.ColorPalette{}, &ValidationError{Problems: problems}
	}

	p.IsCustom = true
	id, err := s.store.InsertPalette(ctx, p)
	if err != nil {
		return store.ColorPalette{}, fmt.Errorf("create palette: %w", err)
	}
	saved, err := s.store.FindPalette(ctx, id)
	if err != nil {
		return store.ColorPalette{}, fmt.Errorf("create palette: %w", err)
	}
	if saved == nil {
		return store.ColorPalette{}, fmt.Errorf("create palette: row %s not found after insert", id)
	}
	return *saved, nil
}

func paletteColorFields(p *store.ColorPalette) map[string]string {
	return map[string]string{
		"primaryColor":             p.PrimaryColor,
		"primaryForeground":        p.PrimaryForeground,
		"secondaryColor":           p.SecondaryColor,
		"secondaryForeground":      p.SecondaryForeground,
		"accentColor":              p.AccentColor,
		"accentForeground":         p.AccentForeground,
		"mutedColor":               p.MutedColor,
		"mutedForeground":          p.MutedForeground,
		"backgroundColor":          p.BackgroundColor,
		"foregroundColor":          p.ForegroundColor,
		"cardColor":                p.CardColor,
		"cardForeground":           p.CardForeground,
		"destructiveColor":         p.DestructiveColor,
		"destructiveForeground":    p.DestructiveForeground,
		"sidebarBackground":        p.SidebarBackground,
		"sidebarForeground":        p.SidebarForeground,
		"sidebarPrimary":           p.SidebarPrimary,
		"sidebarPrimaryForeground": p.SidebarPrimaryForeground,
	}
}

func (s *Service) ListPalettes(ctx context.Context, tenantID string) ([]store.ColorPalette, error) {
	items, err := s.store.ListPalettes(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list palettes: %w", err)
	}
	return items, nil
}

func (s *Service) CreateFontScheme(ctx context.Context, f store.FontScheme) (store.FontScheme, error) {
	exists, err := s.store.TenantExists(ctx, f.TenantID)
	if err != nil {
		return store.FontScheme{}, fmt.Errorf("create font scheme: %w", err)
	}
	if !exists {
		return store.FontScheme{}, ErrTenantNotFound
	}

	var problems []string
	if f.Name == "" {
		problems = append(problems, "name is required")
	}
	if len(f.FontSans) == 0 {
		problems = append(problems, "fontSans must list at least one family")
	} else if !endsInGenericFamily(f.FontSans) {
		problems = append(problems, "fontSans must end in a generic family")
	}
	if len(f.FontMono) == 0 {
		problems = append(problems, "fontMono must list at least one family")
	} else if !endsInGenericFamily(f.FontMono) {
		problems = append(problems, "fontMono must end in a generic family")
	}
	if len(problems) > 0 {
		return store.FontScheme{}, &ValidationError{Problems: problems}
	}

	f.IsCustom = true
	id, err := s.store.InsertFontScheme(ctx, f)
	if err != nil {
		return store.FontScheme{}, fmt.Errorf("create font scheme: %w", err)
	}
	saved, err := s.store.FindFontScheme(ctx, id)
	if err != nil {
		return store.FontScheme{}, fmt.Errorf("create font scheme: %w", err)
	}
	if saved == nil {
		return store.FontScheme{}, fmt.Errorf("create font scheme: row %s not found after insert", id)
	}
	return *saved, nil
}

var genericFamilies = map[string]bool{
	"serif":      true,
	"sans-serif": true,
	"monospace":  true,
	"cursive":    true,
	"fantasy":    true,
	"system-ui":  true,
}

// endsInGenericFamily reports whether a font stack terminates in a CSS
// generic family, so rendering never falls through to browser defaults.
func endsInGenericFamily(stack []string) bool {
	last := strings.ToLower(strings.TrimSpace(stack[len(stack)-1]))
	return genericFamilies[last]
}

func (s *Service) ListFontSchemes(ctx context.Context, tenantID string) ([]store.FontScheme, error) {
	items, err := s.store.ListFontSchemes(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list font schemes: %w", err)
	}
	return items, nil
}

func (s *Service) CreatePreset(ctx context.Context, p store.ThemePreset) (string, error) {
	exists, err := s.store.TenantExists(ctx, p.TenantID)
	if err != nil {
		return "", fmt.Errorf("create preset: %w", err)
	}
	if !exists {
		return "", ErrTenantNotFound
	}
	if p.Name == "" {
		return "", &ValidationError{Problems: []string{"name is required"}}
	}
	if p.Mode == "" {
		p.Mode = "light"
	}
	id, err := s.store.InsertPreset(ctx, p)
	if err != nil {
		return "", fmt.Errorf("create preset: %w", err)
	}
	return id, nil
}

func (s *Service) ListPresets(ctx context.Context, tenantID string) ([]store.ThemePreset, error) {
	items, err := s.store.ListPresets(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list presets: %w", err)
	}
	return items, nil
}

// ContrastReport checks a proposed palette against WCAG thresholds.
func (s *Service) ContrastReport(colors validate.PaletteColors) validate.Report {
	return validate.ColorContrast(colors)
}

// Stylesheet renders the tenant's branding as a servable CSS document.
func (s *Service) Stylesheet(ctx context.Context, tenantID string) (string, error) {
	cfg, err := s.Load(ctx, tenantID)
	if err != nil {
		return "", err
	}
	doc := NewStyleDocument()
	Apply(cfg, doc)
	return doc.Stylesheet(), nil
}

func (s *Service) publishUpdate(ctx context.Context, tenantID string, cfg Config) {
	data, err := json.Marshal(cfg)
	if err != nil {
		s.logger.Printf("branding: marshal update for %s failed: %v", tenantID, err)
		data = nil
	}
	if err := s.bus.PublishUpdate(ctx, tenantID, data); err != nil {
		s.logger.Printf("branding: publish update for %s failed: %v", tenantID, err)
	}
}
