package export

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"brandhub/api/internal/branding"
	"brandhub/api/internal/store"
)

// ConfigLoader resolves a tenant's branding. *branding.Service satisfies it.
type ConfigLoader interface {
	Load(ctx context.Context, tenantID string) (branding.Config, error)
}

// Service turns a resolved branding config into a downloadable style guide.
type Service struct {
	loader ConfigLoader
}

func NewService(loader ConfigLoader) *Service {
	return &Service{loader: loader}
}

// StyleGuidePDF renders the tenant's branding to HTML and prints it with
// headless Chrome.
func (s *Service) StyleGuidePDF(ctx context.Context, tenantID string) (*Result, error) {
	cfg, err := s.loader.Load(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("load branding for export: %w", err)
	}

	html, err := RenderStyleGuideHTML(buildTemplateData(cfg))
	if err != nil {
		return nil, fmt.Errorf("render style guide: %w", err)
	}

	return exportPDF(html, "brand-style-guide-"+tenantID)
}

func buildTemplateData(cfg branding.Config) TemplateData {
	data := TemplateData{
		TenantID:  cfg.TenantID,
		IsDefault: cfg.IsDefault,
		FontSans:  strings.Join(cfg.Fonts.FontSans, ", "),
		FontMono:  strings.Join(cfg.Fonts.FontMono, ", "),
		CustomCSS: cfg.CustomCSS,
		Swatches: []Swatch{
			{"Background", cfg.Palette.BackgroundColor},
			{"Foreground", cfg.Palette.ForegroundColor},
			{"Primary", cfg.Palette.PrimaryColor},
			{"Primary Foreground", cfg.Palette.PrimaryForeground},
			{"Secondary", cfg.Palette.SecondaryColor},
			{"Secondary Foreground", cfg.Palette.SecondaryForeground},
			{"Accent", cfg.Palette.AccentColor},
			{"Accent Foreground", cfg.Palette.AccentForeground},
			{"Muted", cfg.Palette.MutedColor},
			{"Muted Foreground", cfg.Palette.MutedForeground},
			{"Card", cfg.Palette.CardColor},
			{"Card Foreground", cfg.Palette.CardForeground},
			{"Destructive", cfg.Palette.DestructiveColor},
			{"Destructive Foreground", cfg.Palette.DestructiveForeground},
			{"Sidebar", cfg.Palette.SidebarBackground},
			{"Sidebar Foreground", cfg.Palette.SidebarForeground},
			{"Sidebar Primary", cfg.Palette.SidebarPrimary},
			{"Sidebar Primary Foreground", cfg.Palette.SidebarPrimaryForeground},
		},
	}

	for _, key := range sortedKeys(cfg.Fonts.FontSizes) {
		data.Sizes = append(data.Sizes, ScaleEntry{Name: key, Value: cfg.Fonts.FontSizes[key]})
	}
	weightKeys := make([]string, 0, len(cfg.Fonts.FontWeights))
	for k := range cfg.Fonts.FontWeights {
		weightKeys = append(weightKeys, k)
	}
	sort.Slice(weightKeys, func(i, j int) bool {
		return cfg.Fonts.FontWeights[weightKeys[i]] < cfg.Fonts.FontWeights[weightKeys[j]]
	})
	for _, key := range weightKeys {
		data.Weights = append(data.Weights, ScaleEntry{Name: key, Value: fmt.Sprintf("%d", cfg.Fonts.FontWeights[key])})
	}

	for _, slot := range store.LogoSlots {
		if logo, ok := cfg.Logos[slot]; ok {
			data.Logos = append(data.Logos, LogoEntry{Slot: slot, URL: logo.URL, FileName: logo.FileName})
		}
	}
	return data
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
