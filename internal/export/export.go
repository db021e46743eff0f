// Package export writes the artifacts that describe a capture run.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/yingtu35/parker/internal/capture"
	"github.com/yingtu35/parker/internal/config"
)

type Exporter interface {
	// Export writes the manifest into dir and returns the written path
	Export(m *Manifest, dir string) (string, error)
}

// Manifest is the machine readable record of one run.
type Manifest struct {
	GeneratedAt time.Time        `json:"generated_at"`
	Config      string           `json:"config"`
	OutputDir   string           `json:"output_dir"`
	Viewport    string           `json:"viewport"`
	Screenshots []capture.Result `json:"screenshots"`
	Summary     capture.Summary  `json:"summary"`
}

func NewManifest(configPath, outputDir string, vp config.Viewport, results []capture.Result, generatedAt time.Time) *Manifest {
	if results == nil {
		results = []capture.Result{}
	}
	return &Manifest{
		GeneratedAt: generatedAt,
		Config:      configPath,
		OutputDir:   outputDir,
		Viewport:    vp.String(),
		Screenshots: results,
		Summary:     capture.Summarize(results),
	}
}

// ReadManifest loads a manifest.json written by JSONExporter.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	return &m, nil
}
