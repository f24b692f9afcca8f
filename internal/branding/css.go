package branding

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"brandhub/api/internal/store"
	"brandhub/api/internal/validate"
)

const customStyleID = "tenant-custom-css"

// cssOrder fixes the emission order of custom properties so rendered
// stylesheets are stable across runs.
var cssColorProps = []struct {
	name  string
	value func(p *store.ColorPalette) string
}{
	{"--background", func(p *store.ColorPalette) string { return p.BackgroundColor }},
	{"--foreground", func(p *store.ColorPalette) string { return p.ForegroundColor }},
	{"--primary", func(p *store.ColorPalette) string { return p.PrimaryColor }},
	{"--primary-foreground", func(p *store.ColorPalette) string { return p.PrimaryForeground }},
	{"--secondary", func(p *store.ColorPalette) string { return p.SecondaryColor }},
	{"--secondary-foreground", func(p *store.ColorPalette) string { return p.SecondaryForeground }},
	{"--accent", func(p *store.ColorPalette) string { return p.AccentColor }},
	{"--accent-foreground", func(p *store.ColorPalette) string { return p.AccentForeground }},
	{"--muted", func(p *store.ColorPalette) string { return p.MutedColor }},
	{"--muted-foreground", func(p *store.ColorPalette) string { return p.MutedForeground }},
	{"--card", func(p *store.ColorPalette) string { return p.CardColor }},
	{"--card-foreground", func(p *store.ColorPalette) string { return p.CardForeground }},
	{"--destructive", func(p *store.ColorPalette) string { return p.DestructiveColor }},
	{"--destructive-foreground", func(p *store.ColorPalette) string { return p.DestructiveForeground }},
	{"--sidebar-background", func(p *store.ColorPalette) string { return p.SidebarBackground }},
	{"--sidebar-foreground", func(p *store.ColorPalette) string { return p.SidebarForeground }},
	{"--sidebar-primary", func(p *store.ColorPalette) string { return p.SidebarPrimary }},
	{"--sidebar-primary-foreground", func(p *store.ColorPalette) string { return p.SidebarPrimaryForeground }},
}

// StyleDocument is the server-side model of an applied theme: custom
// properties, font imports and the dedicated custom CSS block. It mirrors
// what a client would put on its root element.
type StyleDocument struct {
	props     map[string]string
	order     []string
	fontLinks []string
	customCSS string
}

func NewStyleDocument() *StyleDocument {
	return &StyleDocument{props: make(map[string]string)}
}

func (d *StyleDocument) setProp(name, value string) {
	if _, ok := d.props[name]; !ok {
		d.order = append(d.order, name)
	}
	d.props[name] = value
}

func (d *StyleDocument) Property(name string) (string, bool) {
	v, ok := d.props[name]
	return v, ok
}

func (d *StyleDocument) FontLinks() []string {
	return append([]string(nil), d.fontLinks...)
}

func (d *StyleDocument) CustomCSS() string {
	return d.customCSS
}

// addFontLink records a Google Fonts import once per family set.
func (d *StyleDocument) addFontLink(href string) {
	for _, existing := range d.fontLinks {
		if existing == href {
			return
		}
	}
	d.fontLinks = append(d.fontLinks, href)
}

type ApplyResult struct {
	Success           bool     `json:"success"`
	AppliedProperties []string `json:"appliedProperties"`
	Errors            []string `json:"errors"`
}

// Apply writes a config onto a document. The three groups (colors, fonts,
// custom CSS) are applied independently so a bad value in one group does not
// block the others.
func Apply(cfg Config, doc *StyleDocument) ApplyResult {
	res := ApplyResult{Errors: []string{}}

	for _, prop := range cssColorProps {
		value := prop.value(&cfg.Palette)
		if value == "" {
			continue
		}
		if !validate.ColorFormat(value) {
			res.Errors = append(res.Errors, fmt.Sprintf("invalid color for %s: %q", prop.name, value))
			continue
		}
		doc.setProp(prop.name, value)
		res.AppliedProperties = append(res.AppliedProperties, prop.name)
	}

	applyFonts(cfg.Fonts, doc, &res)

	if cfg.CustomCSS != "" {
		doc.customCSS = cfg.CustomCSS
	} else {
		doc.customCSS = ""
	}

	res.Success = len(res.Errors) == 0
	return res
}

func applyFonts(fonts store.FontScheme, doc *StyleDocument, res *ApplyResult) {
	if len(fonts.FontSans) > 0 {
		doc.setProp("--font-sans", strings.Join(quoteFamilies(fonts.FontSans), ", "))
		res.AppliedProperties = append(res.AppliedProperties, "--font-sans")
	}
	if len(fonts.FontMono) > 0 {
		doc.setProp("--font-mono", strings.Join(quoteFamilies(fonts.FontMono), ", "))
		res.AppliedProperties = append(res.AppliedProperties, "--font-mono")
	}

	for _, key := range sortedKeys(fonts.FontSizes) {
		name := "--font-size-" + key
		doc.setProp(name, fonts.FontSizes[key])
		res.AppliedProperties = append(res.AppliedProperties, name)
	}
	for _, key := range sortedWeightKeys(fonts.FontWeights) {
		name := "--font-weight-" + key
		doc.setProp(name, fmt.Sprintf("%d", fonts.FontWeights[key]))
		res.AppliedProperties = append(res.AppliedProperties, name)
	}

	if len(fonts.ExternalFonts) > 0 {
		doc.addFontLink(googleFontsURL(fonts.ExternalFonts))
	}
}

// quoteFamilies quotes families with spaces, leaving generics bare.
func quoteFamilies(families []string) []string {
	out := make([]string, 0, len(families))
	for _, f := range families {
		if strings.ContainsAny(f, " ") {
			out = append(out, fmt.Sprintf("%q", f))
		} else {
			out = append(out, f)
		}
	}
	return out
}

func googleFontsURL(families []string) string {
	params := make([]string, 0, len(families))
	for _, f := range families {
		params = append(params, "family="+url.QueryEscape(f))
	}
	return "https://fonts.googleapis.com/css2?" + strings.Join(params, "&") + "&display=swap"
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedWeightKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Stylesheet renders the document as a standalone CSS file: font imports
// first, then the :root custom properties, then the tenant's custom CSS
// wrapped in an identifying comment block.
func (d *StyleDocument) Stylesheet() string {
	var b strings.Builder
	for _, href := range d.fontLinks {
		fmt.Fprintf(&b, "@import url(%q);\n", href)
	}
	if len(d.fontLinks) > 0 {
		b.WriteString("\n")
	}
	b.WriteString(":root {\n")
	for _, name := range d.order {
		fmt.Fprintf(&b, "  %s: %s;\n", name, d.props[name])
	}
	b.WriteString("}\n")
	if d.customCSS != "" {
		fmt.Fprintf(&b, "\n/* %s */\n%s\n", customStyleID, d.customCSS)
	}
	return b.String()
}
