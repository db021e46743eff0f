package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
)

const CSVFile = "manifest.csv"

// ScreenshotRow is one line of manifest.csv.
type ScreenshotRow struct {
	URL         string `csv:"URL"`
	Filename    string `csv:"Filename"`
	Device      string `csv:"Device"`
	Viewport    string `csv:"Viewport"`
	Status      string `csv:"Status"`
	Auth        bool   `csv:"Auth"`
	Title       string `csv:"Title"`
	Description string `csv:"Description"`
	Hash        string `csv:"Hash"`
	Error       string `csv:"Error"`
	CapturedAt  string `csv:"Captured At"`
}

type CSVExporter struct{}

func NewCSVExporter() Exporter {
	return &CSVExporter{}
}

func (e *CSVExporter) Export(m *Manifest, dir string) (string, error) {
	path := filepath.Join(dir, CSVFile)
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	rows := e.transformData(m)
	if err := gocsv.MarshalFile(&rows, file); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

func (e *CSVExporter) transformData(m *Manifest) []ScreenshotRow {
	rows := make([]ScreenshotRow, 0, len(m.Screenshots))
	for _, r := range m.Screenshots {
		description := r.Description
		if description == "" {
			description = r.PageDescription
		}
		rows = append(rows, ScreenshotRow{
			URL:         r.URL,
			Filename:    r.Filename,
			Device:      r.Device,
			Viewport:    r.Viewport,
			Status:      string(r.Status),
			Auth:        r.RequiresAuth,
			Title:       r.Title,
			Description: description,
			Hash:        r.Hash,
			Error:       r.Error,
			CapturedAt:  r.CapturedAt.Format(time.RFC3339),
		})
	}
	return rows
}
