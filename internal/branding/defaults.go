package branding

import "brandhub/api/internal/store"

// DefaultPaletteID marks the built-in palette. It is never persisted; rows
// referencing it do not exist.
const DefaultPaletteID = "default"

func defaultPalette() store.ColorPalette {
	return store.ColorPalette{
		ID:                       DefaultPaletteID,
		Name:                     "Default",
		PrimaryColor:             "hsl(222.2 84% 4.9%)",
		PrimaryForeground:        "hsl(210 40% 98%)",
		SecondaryColor:           "hsl(210 40% 96%)",
		SecondaryForeground:      "hsl(222.2 84% 4.9%)",
		AccentColor:              "hsl(210 40% 96%)",
		AccentForeground:         "hsl(222.2 84% 4.9%)",
		MutedColor:               "hsl(210 40% 96%)",
		MutedForeground:          "hsl(215.4 16.3% 46.9%)",
		BackgroundColor:          "hsl(0 0% 100%)",
		ForegroundColor:          "hsl(222.2 84% 4.9%)",
		CardColor:                "hsl(0 0% 100%)",
		CardForeground:           "hsl(222.2 84% 4.9%)",
		DestructiveColor:         "hsl(0 84.2% 60.2%)",
		DestructiveForeground:    "hsl(210 40% 98%)",
		SidebarBackground:        "hsl(0 0% 98%)",
		SidebarForeground:        "hsl(240 5.3% 26.1%)",
		SidebarPrimary:           "hsl(240 5.9% 10%)",
		SidebarPrimaryForeground: "hsl(0 0% 98%)",
		IsCustom:                 false,
	}
}

func defaultFontScheme() store.FontScheme {
	return store.FontScheme{
		ID:       "default",
		Name:     "Default",
		FontSans: []string{"ui-sans-serif", "system-ui", "sans-serif"},
		FontMono: []string{"ui-monospace", "monospace"},
		FontSizes: map[string]string{
			"xs":   "0.75rem",
			"sm":   "0.875rem",
			"base": "1rem",
			"lg":   "1.125rem",
			"xl":   "1.25rem",
			"2xl":  "1.5rem",
			"3xl":  "1.875rem",
			"4xl":  "2.25rem",
		},
		FontWeights: map[string]int{
			"light":    300,
			"normal":   400,
			"medium":   500,
			"semibold": 600,
			"bold":     700,
		},
		ExternalFonts: []string{},
		IsCustom:      false,
	}
}

// DefaultConfig is served when a tenant has no branding row. It is cached
// with a shorter TTL so a first save shows up quickly.
func DefaultConfig(tenantID string) Config {
	return Config{
		TenantID:  tenantID,
		IsDefault: true,
		Palette:   defaultPalette(),
		Fonts:     defaultFontScheme(),
		Logos:     map[string]store.Logo{},
	}
}
