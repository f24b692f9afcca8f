package export

import (
	"bytes"
	"embed"
	"html/template"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

var styleGuideTemplate *template.Template

func init() {
	funcMap := template.FuncMap{
		"lower": strings.ToLower,
		"join":  strings.Join,
	}

	templateContent, err := templateFS.ReadFile("templates/styleguide.html")
	if err != nil {
		// Fallback to built-in template if file not found
		styleGuideTemplate = template.Must(template.New("styleguide").Funcs(funcMap).Parse(fallbackTemplate))
		return
	}

	styleGuideTemplate = template.Must(template.New("styleguide").Funcs(funcMap).Parse(string(templateContent)))
}

// TemplateData holds data for style guide template rendering
type TemplateData struct {
	TenantID  string
	IsDefault bool
	Swatches  []Swatch
	FontSans  string
	FontMono  string
	Sizes     []ScaleEntry
	Weights   []ScaleEntry
	Logos     []LogoEntry
	CustomCSS string
}

// Swatch pairs a semantic color slot with its value.
type Swatch struct {
	Name  string
	Value string
}

type ScaleEntry struct {
	Name  string
	Value string
}

type LogoEntry struct {
	Slot     string
	URL      string
	FileName string
}

// RenderStyleGuideHTML renders the style guide template with provided data
func RenderStyleGuideHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := styleGuideTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// fallbackTemplate is used if the embedded template fails to load
const fallbackTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>Brand Style Guide</title>
  <style>
    body { font-family: Arial, sans-serif; max-width: 800px; margin: 2rem auto; }
    h1 { border-bottom: 2px solid #333; padding-bottom: 0.5rem; }
    .swatch { display: inline-block; width: 140px; margin: 0.5rem; }
    .swatch .chip { height: 48px; border: 1px solid #ddd; border-radius: 4px; }
    .swatch .label { font-size: 0.75rem; color: #666; }
  </style>
</head>
<body>
  <h1>Brand Style Guide</h1>
  <div class="meta">Tenant {{.TenantID}}{{if .IsDefault}} (default configuration){{end}}</div>
  <h2>Colors</h2>
  {{range .Swatches}}<div class="swatch"><div class="chip" style="background: {{.Value}}"></div><div class="label">{{.Name}}<br>{{.Value}}</div></div>{{end}}
  <h2>Typography</h2>
  <p>Sans: {{.FontSans}}</p>
  <p>Mono: {{.FontMono}}</p>
</body>
</html>`
