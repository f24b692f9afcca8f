package validate

import (
	"math"
	"testing"
)

func TestColorFormat(t *testing.T) {
	valid := []string{
		"#fff",
		"#1a2b3c",
		"#1a2b3cff",
		"rgb(255, 0, 0)",
		"rgba(10, 20, 30, 0.5)",
		"hsl(222.2 84% 4.9%)",
		"hsl(222.2deg 84% 4.9%)",
		"hsl(210, 40%, 96.1%)",
		"hsla(210, 40%, 96.1%, 0.8)",
	}
	for _, s := range valid {
		if !ColorFormat(s) {
			t.Errorf("expected %q to be valid", s)
		}
	}

	invalid := []string{
		"",
		"red",
		"#12",
		"#ggg",
		"rgb(255 0 0 0 0)",
		"hsl(222.2 84 4.9)",
		"url(javascript:alert(1))",
	}
	for _, s := range invalid {
		if ColorFormat(s) {
			t.Errorf("expected %q to be invalid", s)
		}
	}
}

func TestContrastRatioBlackWhite(t *testing.T) {
	got := ContrastRatio("#000000", "#ffffff")
	if math.Abs(got-21) > 0.01 {
		t.Fatalf("black/white ratio = %v, want 21", got)
	}
}

func TestContrastRatioSymmetric(t *testing.T) {
	a, b := "hsl(222.2 84% 4.9%)", "hsl(210 40% 96.1%)"
	if ContrastRatio(a, b) != ContrastRatio(b, a) {
		t.Fatal("ratio must not depend on argument order")
	}
}

func TestContrastRatioSameColor(t *testing.T) {
	got := ContrastRatio("#336699", "#336699")
	if math.Abs(got-1) > 0.001 {
		t.Fatalf("same-color ratio = %v, want 1", got)
	}
}

func TestContrastRatioUnparseable(t *testing.T) {
	if got := ContrastRatio("not-a-color", "#ffffff"); got != 1 {
		t.Fatalf("unparseable color ratio = %v, want 1", got)
	}
	if got := ContrastRatio("#000000", "bogus"); got != 1 {
		t.Fatalf("unparseable color ratio = %v, want 1", got)
	}
}

func TestColorContrastReport(t *testing.T) {
	report := ColorContrast(PaletteColors{
		Primary:    "#000000",
		Secondary:  "#111111",
		Accent:     "#aaaaaa",
		Background: "#ffffff",
	})
	if len(report.Pairs) != 3 {
		t.Fatalf("expected 3 pairs, got %d", len(report.Pairs))
	}
	if !report.Pairs[0].MeetsAAA {
		t.Fatal("black on white must meet AAA")
	}
	// #aaaaaa on white is roughly 2.3:1 and fails AA.
	if report.Pairs[2].MeetsAA {
		t.Fatal("light gray on white must fail AA")
	}
	if report.AllAA {
		t.Fatal("report must not claim AA when a pair fails")
	}
}

func TestColorContrastAllPassing(t *testing.T) {
	report := ColorContrast(PaletteColors{
		Primary:    "hsl(222.2 47.4% 11.2%)",
		Secondary:  "#1a1a2e",
		Accent:     "#16213e",
		Background: "hsl(0 0% 100%)",
	})
	if !report.AllAA {
		t.Fatalf("expected all pairs to meet AA: %+v", report.Pairs)
	}
}
