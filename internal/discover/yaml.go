package discover

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

type entry struct {
	URL         string `yaml:"url"`
	Description string `yaml:"description,omitempty"`
}

// WriteConfig writes pages as a parker URL list, using each page title as
// the description.
func WriteConfig(w io.Writer, pages []Page) error {
	doc := struct {
		URLs []entry `yaml:"urls"`
	}{URLs: make([]entry, 0, len(pages))}
	for _, p := range pages {
		doc.URLs = append(doc.URLs, entry{URL: p.URL, Description: p.Title})
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode url list: %w", err)
	}
	return enc.Close()
}
