// Package config loads the URL document that drives a run and the run
// settings assembled from flags and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yingtu35/parker/internal/auth"
)

// ErrInvalid marks every configuration problem that should stop a run before
// any browser work happens.
var ErrInvalid = errors.New("invalid configuration")

// Document is a parsed URL list.
type Document struct {
	URLs []Target    `yaml:"urls"`
	Auth *auth.Recipe `yaml:"auth"`
}

// NeedsAuth reports whether any target asks for an authenticated session.
func (d *Document) NeedsAuth() bool {
	for _, t := range d.URLs {
		if t.RequiresAuth {
			return true
		}
	}
	return false
}

// Target is one URL to capture.
type Target struct {
	URL          string            `yaml:"url"`
	Name         string            `yaml:"name"`
	Description  string            `yaml:"description"`
	Method       string            `yaml:"method"`
	Data         any               `yaml:"data"`
	Headers      map[string]string `yaml:"headers"`
	RequiresAuth bool              `yaml:"auth"`
	WaitFor      string            `yaml:"wait_for"`
	Wait         *int              `yaml:"wait"` // milliseconds; nil means use the global wait
	Devices      []string          `yaml:"devices"`
}

// UnmarshalYAML accepts either a bare URL string or a mapping.
func (t *Target) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*t = Target{URL: node.Value, Method: "GET"}
		return nil
	}

	type plain Target
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*t = Target(p)
	t.Method = strings.ToUpper(t.Method)
	if t.Method == "" {
		t.Method = "GET"
	}
	return nil
}

// Load reads and parses the document at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: config file not found: %s", ErrInvalid, path)
		}
		return nil, fmt.Errorf("%w: failed to read config file: %w", ErrInvalid, err)
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: failed to parse YAML in %s: %w", ErrInvalid, path, err)
	}
	return &doc, nil
}
