package models

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tunevault/tunevault/internal/watch"
)

// Manifest is the on-disk job list consumed by the fetch command. Each entry
// becomes one Download with its file resolved under the music folder.
type Manifest struct {
	Downloads []ManifestEntry `yaml:"downloads"`
}

type ManifestEntry struct {
	URL        string    `yaml:"url"`
	Size       int64     `yaml:"size"`
	ModifiedAt time.Time `yaml:"modified_at"`
	File       string    `yaml:"file"`
	Watch      string    `yaml:"watch,omitempty"`
}

func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest %s: %w", path, err)
	}
	if len(m.Downloads) == 0 {
		return nil, fmt.Errorf("manifest %s lists no downloads", path)
	}
	return &m, nil
}

// Jobs converts the manifest entries into Download jobs rooted at musicFolder.
func (m *Manifest) Jobs(musicFolder string) ([]*Download, error) {
	jobs := make([]*Download, 0, len(m.Downloads))
	for i, e := range m.Downloads {
		if e.URL == "" || e.File == "" {
			return nil, fmt.Errorf("manifest entry %d: url and file are required", i)
		}

		var w *watch.Watch
		if e.Watch != "" {
			parsed, err := watch.Parse(e.Watch)
			if err != nil {
				return nil, fmt.Errorf("manifest entry %d: %w", i, err)
			}
			w = &parsed
		}

		dest := filepath.Join(musicFolder, filepath.FromSlash(e.File))
		jobs = append(jobs, NewDownload(e.URL, e.Size, e.ModifiedAt, dest, w))
	}
	return jobs, nil
}
