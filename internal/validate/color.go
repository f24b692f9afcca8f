package validate

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Accepted CSS color notations. Anything else is rejected before it reaches
// the stylesheet.
var colorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`),
	regexp.MustCompile(`^rgb\(\s*\d{1,3}\s*,\s*\d{1,3}\s*,\s*\d{1,3}\s*\)$`),
	regexp.MustCompile(`^rgba\(\s*\d{1,3}\s*,\s*\d{1,3}\s*,\s*\d{1,3}\s*,\s*(?:0|1|0?\.\d+)\s*\)$`),
	regexp.MustCompile(`^hsl\(\s*[\d.]+(?:deg)?\s+[\d.]+%\s+[\d.]+%\s*\)$`),
	regexp.MustCompile(`^hsl\(\s*[\d.]+\s*,\s*[\d.]+%\s*,\s*[\d.]+%\s*\)$`),
	regexp.MustCompile(`^hsla\(\s*[\d.]+\s*,\s*[\d.]+%\s*,\s*[\d.]+%\s*,\s*(?:0|1|0?\.\d+)\s*\)$`),
}

func ColorFormat(s string) bool {
	s = strings.TrimSpace(s)
	for _, pattern := range colorPatterns {
		if pattern.MatchString(s) {
			return true
		}
	}
	return false
}

type rgb struct {
	r, g, b float64
}

var (
	hslSpaceRe = regexp.MustCompile(`^hsl\(\s*([\d.]+)(?:deg)?\s+([\d.]+)%\s+([\d.]+)%\s*\)$`)
	hslCommaRe = regexp.MustCompile(`^hsla?\(\s*([\d.]+)\s*,\s*([\d.]+)%\s*,\s*([\d.]+)%\s*(?:,\s*[\d.]+\s*)?\)$`)
	rgbRe      = regexp.MustCompile(`^rgba?\(\s*(\d{1,3})\s*,\s*(\d{1,3})\s*,\s*(\d{1,3})\s*(?:,\s*[\d.]+\s*)?\)$`)
)

func parseColor(s string) (rgb, bool) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "#") {
		return parseHex(s)
	}
	if m := hslSpaceRe.FindStringSubmatch(s); m != nil {
		return hslToRGB(atof(m[1]), atof(m[2]), atof(m[3])), true
	}
	if m := hslCommaRe.FindStringSubmatch(s); m != nil {
		return hslToRGB(atof(m[1]), atof(m[2]), atof(m[3])), true
	}
	if m := rgbRe.FindStringSubmatch(s); m != nil {
		return rgb{atof(m[1]), atof(m[2]), atof(m[3])}, true
	}
	return rgb{}, false
}

func atof(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func parseHex(s string) (rgb, bool) {
	hex := s[1:]
	switch len(hex) {
	case 3:
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	case 6, 8:
		hex = hex[:6]
	default:
		return rgb{}, false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return rgb{}, false
	}
	return rgb{
		r: float64((v >> 16) & 0xFF),
		g: float64((v >> 8) & 0xFF),
		b: float64(v & 0xFF),
	}, true
}

func hslToRGB(h, s, l float64) rgb {
	h = math.Mod(h, 360) / 360
	s /= 100
	l /= 100
	if s == 0 {
		v := l * 255
		return rgb{v, v, v}
	}
	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q
	return rgb{
		r: hueToChannel(p, q, h+1.0/3.0) * 255,
		g: hueToChannel(p, q, h) * 255,
		b: hueToChannel(p, q, h-1.0/3.0) * 255,
	}
}

func hueToChannel(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6.0:
		return p + (q-p)*6*t
	case t < 1.0/2.0:
		return q
	case t < 2.0/3.0:
		return p + (q-p)*(2.0/3.0-t)*6
	default:
		return p
	}
}

// relativeLuminance follows the WCAG 2.1 definition with sRGB gamma.
func relativeLuminance(c rgb) float64 {
	lin := func(v float64) float64 {
		v /= 255
		if v <= 0.03928 {
			return v / 12.92
		}
		return math.Pow((v+0.055)/1.055, 2.4)
	}
	return 0.2126*lin(c.r) + 0.7152*lin(c.g) + 0.0722*lin(c.b)
}

// ContrastRatio computes the WCAG ratio between two colors. Unparseable
// colors yield 1 (no contrast), which fails every threshold.
func ContrastRatio(a, b string) float64 {
	ca, okA := parseColor(a)
	cb, okB := parseColor(b)
	if !okA || !okB {
		return 1
	}
	la := relativeLuminance(ca)
	lb := relativeLuminance(cb)
	lighter := math.Max(la, lb)
	darker := math.Min(la, lb)
	return (lighter + 0.05) / (darker + 0.05)
}

const (
	RatioAA  = 4.5
	RatioAAA = 7.0
)

type PaletteColors struct {
	Primary    string `json:"primary"`
	Secondary  string `json:"secondary"`
	Accent     string `json:"accent"`
	Background string `json:"background"`
}

type ContrastPair struct {
	Name     string  `json:"name"`
	Ratio    float64 `json:"ratio"`
	MeetsAA  bool    `json:"meetsAA"`
	MeetsAAA bool    `json:"meetsAAA"`
}

type Report struct {
	Pairs  []ContrastPair `json:"pairs"`
	AllAA  bool           `json:"allAA"`
	AllAAA bool           `json:"allAAA"`
}

// ColorContrast checks each accent color against the background.
func ColorContrast(p PaletteColors) Report {
	report := Report{AllAA: true, AllAAA: true}
	pairs := []struct {
		name  string
		color string
	}{
		{"primary", p.Primary},
		{"secondary", p.Secondary},
		{"accent", p.Accent},
	}
	for _, pair := range pairs {
		ratio := ContrastRatio(pair.color, p.Background)
		entry := ContrastPair{
			Name:     pair.name,
			Ratio:    math.Round(ratio*100) / 100,
			MeetsAA:  ratio >= RatioAA,
			MeetsAAA: ratio >= RatioAAA,
		}
		if !entry.MeetsAA {
			report.AllAA = false
		}
		if !entry.MeetsAAA {
			report.AllAAA = false
		}
		report.Pairs = append(report.Pairs, entry)
	}
	return report
}
