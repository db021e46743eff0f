package export

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"
)

const HTMLFile = "index.html"

//go:embed templates/gallery.html
var templates embed.FS

var galleryTemplate = template.Must(template.ParseFS(templates, "templates/gallery.html"))

type galleryPage struct {
	GeneratedAt string
	Viewport    string
	Captured    int
	Failed      int
	Cards       []galleryCard
}

type galleryCard struct {
	Filename  string
	Title     string
	URL       string
	Auth      bool
	Device    string
	ShortHash string
}

// HTMLExporter renders a gallery of the successful captures. Images are
// referenced by filename, so index.html belongs next to the screenshots.
type HTMLExporter struct{}

func NewHTMLExporter() Exporter {
	return &HTMLExporter{}
}

func (e *HTMLExporter) Export(m *Manifest, dir string) (string, error) {
	var buf bytes.Buffer
	if err := galleryTemplate.Execute(&buf, e.transformData(m)); err != nil {
		return "", fmt.Errorf("failed to render gallery: %w", err)
	}

	path := filepath.Join(dir, HTMLFile)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

func (e *HTMLExporter) transformData(m *Manifest) galleryPage {
	page := galleryPage{
		GeneratedAt: m.GeneratedAt.Format(time.RFC3339),
		Viewport:    m.Viewport,
	}
	for _, r := range m.Screenshots {
		if !r.OK() {
			page.Failed++
			continue
		}
		page.Captured++

		title := r.Title
		if title == "" {
			title = r.Description
		}
		if title == "" {
			title = r.Filename
		}
		hash := r.Hash
		if len(hash) > 8 {
			hash = hash[:8]
		}
		page.Cards = append(page.Cards, galleryCard{
			Filename:  r.Filename,
			Title:     title,
			URL:       r.URL,
			Auth:      r.RequiresAuth,
			Device:    r.Device,
			ShortHash: hash,
		})
	}
	return page
}
