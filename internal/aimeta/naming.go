package aimeta

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"darkroom/internal/textutil"
)

var titleCaser = cases.Title(language.English)

// NameContext feeds the naming pattern for one file.
type NameContext struct {
	CaptureTime time.Time
	Description string
	Camera      string
	Original    string
	Seq         int
}

// RenderName expands the configured pattern tokens into a filename without
// extension. Rendering is deterministic: the same context always produces
// the same name.
func RenderName(pattern string, nc NameContext) string {
	description := strings.ReplaceAll(textutil.SanitizeFileName(titleCaser.String(nc.Description)), " ", "_")
	camera := textutil.SanitizeToken(nc.Camera)
	original := textutil.SanitizeToken(strings.TrimSuffix(nc.Original, filepath.Ext(nc.Original)))

	replacer := strings.NewReplacer(
		"{year}", nc.CaptureTime.Format("2006"),
		"{month}", nc.CaptureTime.Format("01"),
		"{day}", nc.CaptureTime.Format("02"),
		"{hour}", nc.CaptureTime.Format("15"),
		"{minute}", nc.CaptureTime.Format("04"),
		"{second}", nc.CaptureTime.Format("05"),
		"{description}", description,
		"{camera}", camera,
		"{original}", original,
		"{seq}", fmt.Sprintf("%03d", nc.Seq),
	)
	name := replacer.Replace(pattern)
	name = textutil.SanitizeFileName(name)
	if name == "" {
		name = original
	}
	return name
}

// UniqueName renders the pattern and resolves collisions inside the
// destination directory by bumping a numeric suffix. The extension is
// carried over from the original filename.
func UniqueName(dir, pattern string, nc NameContext) string {
	ext := strings.ToLower(filepath.Ext(nc.Original))
	base := RenderName(pattern, nc)

	candidate := base + ext
	if !exists(filepath.Join(dir, candidate)) {
		return candidate
	}
	for i := 1; i < 1000; i++ {
		candidate = fmt.Sprintf("%s_%03d%s", base, i, ext)
		if !exists(filepath.Join(dir, candidate)) {
			return candidate
		}
	}
	// Pathological directory; fall back to something unique by timestamp.
	return fmt.Sprintf("%s_%d%s", base, time.Now().UnixNano(), ext)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
