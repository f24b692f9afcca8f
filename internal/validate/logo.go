// Package validate implements the upload and color safety checks that gate
// every branding write.
package validate

import (
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	// MaxLogoSize rejects the upload outright.
	MaxLogoSize = 5 * 1024 * 1024
	// WarnLogoSize passes but flags the file as heavy.
	WarnLogoSize = 1 * 1024 * 1024
)

var allowedMimeTypes = map[string]bool{
	"image/png":     true,
	"image/jpeg":    true,
	"image/jpg":     true,
	"image/svg+xml": true,
	"image/webp":    true,
}

var allowedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".svg":  true,
	".webp": true,
}

// Filename patterns that indicate tampering or risky names: path traversal,
// absolute paths, Windows reserved device names, hidden files, executable
// double extensions.
var maliciousNamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\.\.`),
	regexp.MustCompile(`^[/\\]`),
	regexp.MustCompile(`(?i)^(con|prn|aux|nul|com[1-9]|lpt[1-9])(\.|$)`),
	regexp.MustCompile(`^\.`),
	regexp.MustCompile(`(?i)\.(exe|bat|cmd|sh|php|pl|py|js|html|htm)$`),
}

type LogoFile struct {
	Name     string
	Size     int64
	MimeType string
	Data     []byte
}

type Result struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// Logo runs every check and collects all failures rather than stopping at the
// first one, so the caller can report them together.
func Logo(f LogoFile) Result {
	res := Result{Valid: true, Errors: []string{}, Warnings: []string{}}

	if f.Size > MaxLogoSize {
		res.Errors = append(res.Errors, fmt.Sprintf("file size %d exceeds the %d byte limit", f.Size, MaxLogoSize))
	} else if f.Size > WarnLogoSize {
		res.Warnings = append(res.Warnings, "file is larger than 1MB and may slow page loads")
	}
	if f.Size == 0 {
		res.Errors = append(res.Errors, "file is empty")
	}

	if !allowedMimeTypes[strings.ToLower(f.MimeType)] {
		res.Errors = append(res.Errors, fmt.Sprintf("mime type %q is not allowed", f.MimeType))
	}

	ext := strings.ToLower(filepath.Ext(f.Name))
	if !allowedExtensions[ext] {
		res.Errors = append(res.Errors, fmt.Sprintf("file extension %q is not allowed", ext))
	}

	for _, pattern := range maliciousNamePatterns {
		if pattern.MatchString(f.Name) {
			res.Errors = append(res.Errors, "file name contains a disallowed pattern")
			break
		}
	}

	if len(f.Data) > 0 && allowedMimeTypes[strings.ToLower(f.MimeType)] {
		if !magicNumberMatches(f.MimeType, f.Data) {
			res.Errors = append(res.Errors, "file content does not match its declared type")
		}
	}

	res.Valid = len(res.Errors) == 0
	return res
}

// magicNumberMatches checks the leading bytes against the declared MIME type.
// SVG is text, so any document starting with "<" (after whitespace) passes.
func magicNumberMatches(mimeType string, data []byte) bool {
	switch strings.ToLower(mimeType) {
	case "image/png":
		return bytes.HasPrefix(data, []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A})
	case "image/jpeg", "image/jpg":
		return bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF})
	case "image/webp":
		return bytes.HasPrefix(data, []byte("RIFF"))
	case "image/svg+xml":
		trimmed := bytes.TrimLeft(data, " \t\r\n")
		return bytes.HasPrefix(trimmed, []byte("<"))
	default:
		return false
	}
}

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// SanitizeFileName replaces unsafe characters and caps the length so the name
// can be embedded in a storage path.
func SanitizeFileName(name string) string {
	safe := unsafeNameChars.ReplaceAllString(name, "_")
	if len(safe) > 100 {
		safe = safe[:100]
	}
	return safe
}
