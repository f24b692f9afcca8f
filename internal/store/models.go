package store

import "time"

// Logo slots. At most one logo row may occupy a slot per tenant.
const (
	SlotLogin   = "login"
	SlotSidebar = "sidebar"
	SlotFavicon = "favicon"
)

var LogoSlots = []string{SlotLogin, SlotSidebar, SlotFavicon}

func ValidSlot(slot string) bool {
	for _, s := range LogoSlots {
		if s == slot {
			return true
		}
	}
	return false
}

type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"createdAt"`
}

// BrandingRow is the per-tenant branding config row. Palette, font scheme and
// custom CSS are all optional; absence means the system default applies.
type BrandingRow struct {
	ID             string     `json:"id"`
	TenantID       string     `json:"tenantId"`
	ColorPaletteID *string    `json:"colorPaletteId,omitempty"`
	FontSchemeID   *string    `json:"fontSchemeId,omitempty"`
	CustomCSS      *string    `json:"customCss,omitempty"`
	CreatedBy      *string    `json:"createdBy,omitempty"`
	UpdatedBy      *string    `json:"updatedBy,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

type Logo struct {
	ID         string    `json:"id"`
	BrandingID string    `json:"brandingId"`
	Slot       string    `json:"slot"`
	Path       string    `json:"path"`
	URL        string    `json:"url"`
	FileName   string    `json:"fileName"`
	FileSize   int64     `json:"fileSize"`
	MimeType   string    `json:"mimeType"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ColorPalette holds the 18 semantic color slots. Every background slot is
// paired with a foreground slot for contrast checking.
type ColorPalette struct {
	ID                       string    `json:"id"`
	TenantID                 string    `json:"tenantId"`
	Name                     string    `json:"name"`
	PrimaryColor             string    `json:"primaryColor"`
	PrimaryForeground        string    `json:"primaryForeground"`
	SecondaryColor           string    `json:"secondaryColor"`
	SecondaryForeground      string    `json:"secondaryForeground"`
	AccentColor              string    `json:"accentColor"`
	AccentForeground         string    `json:"accentForeground"`
	MutedColor               string    `json:"mutedColor"`
	MutedForeground          string    `json:"mutedForeground"`
	BackgroundColor          string    `json:"backgroundColor"`
	ForegroundColor          string    `json:"foregroundColor"`
	CardColor                string    `json:"cardColor"`
	CardForeground           string    `json:"cardForeground"`
	DestructiveColor         string    `json:"destructiveColor"`
	DestructiveForeground    string    `json:"destructiveForeground"`
	SidebarBackground        string    `json:"sidebarBackground"`
	SidebarForeground        string    `json:"sidebarForeground"`
	SidebarPrimary           string    `json:"sidebarPrimary"`
	SidebarPrimaryForeground string    `json:"sidebarPrimaryForeground"`
	IsCustom                 bool      `json:"isCustom"`
	CreatedBy                *string   `json:"createdBy,omitempty"`
	CreatedAt                time.Time `json:"createdAt"`
	UpdatedAt                time.Time `json:"updatedAt"`
}

// FontScheme stores the sans/mono stacks plus the fixed-key size and weight
// scales. ExternalFonts lists families to load dynamically at apply time.
type FontScheme struct {
	ID            string            `json:"id"`
	TenantID      string            `json:"tenantId"`
	Name          string            `json:"name"`
	FontSans      []string          `json:"fontSans"`
	FontMono      []string          `json:"fontMono"`
	FontSizes     map[string]string `json:"fontSizes"`
	FontWeights   map[string]int    `json:"fontWeights"`
	ExternalFonts []string          `json:"externalFonts"`
	IsCustom      bool              `json:"isCustom"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

// ThemePreset is a named, reusable palette+font bundle with layout knobs.
// Purely additive; nothing requires a preset to exist.
type ThemePreset struct {
	ID             string    `json:"id"`
	TenantID       string    `json:"tenantId"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	ColorPaletteID *string   `json:"colorPaletteId,omitempty"`
	FontSchemeID   *string   `json:"fontSchemeId,omitempty"`
	CornerRadius   string    `json:"cornerRadius"`
	Scale          string    `json:"scale"`
	Mode           string    `json:"mode"`
	CreatedBy      *string   `json:"createdBy,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}
