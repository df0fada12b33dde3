// Package ruleset loads, validates and caches per-service billing rule
// documents.
package ruleset

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/davidbz/tollbooth/internal/domain"
)

// Extensions lists the document extensions DirSource looks for, in order.
//
//nolint:gochecknoglobals // Immutable lookup order
var Extensions = []string{".yaml", ".yml", ".json"}

// Source fetches the raw rule document for a service.
type Source interface {
	// Fetch returns the document bytes and a name used in error messages.
	// A missing document must be reported as domain.ErrConfigNotFound.
	Fetch(ctx context.Context, serviceID string) ([]byte, string, error)
}

// DirSource reads <dir>/<serviceID>.yaml, .yml or .json.
type DirSource struct {
	dir string
}

// NewDirSource creates a directory-backed source.
func NewDirSource(dir string) (*DirSource, error) {
	if dir == "" {
		return nil, errors.New("rules directory cannot be empty")
	}
	return &DirSource{dir: dir}, nil
}

// Dir returns the watched directory.
func (s *DirSource) Dir() string {
	return s.dir
}

// Fetch reads the first existing document for serviceID.
func (s *DirSource) Fetch(_ context.Context, serviceID string) ([]byte, string, error) {
	if serviceID == "" || strings.ContainsAny(serviceID, `/\`) || strings.Contains(serviceID, "..") {
		return nil, "", fmt.Errorf("%w: illegal service id %q", domain.ErrInvalidConfig, serviceID)
	}

	for _, ext := range Extensions {
		path := filepath.Join(s.dir, serviceID+ext)

		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, path, fmt.Errorf("failed to read %s: %w", path, err)
		}
		return data, path, nil
	}

	return nil, "", fmt.Errorf("%w: no configuration found for service %s", domain.ErrConfigNotFound, serviceID)
}

// ServiceIDFromPath returns the service id a document path belongs to, or
// false when the file is not a rule document.
func ServiceIDFromPath(path string) (string, bool) {
	base := filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(base))

	for _, known := range Extensions {
		if ext == known {
			id := strings.TrimSuffix(base, filepath.Ext(base))
			return id, id != ""
		}
	}
	return "", false
}

// MapSource serves documents from memory, keyed by service id.
type MapSource map[string][]byte

// Fetch returns the stored document.
func (m MapSource) Fetch(_ context.Context, serviceID string) ([]byte, string, error) {
	data, ok := m[serviceID]
	if !ok {
		return nil, "", fmt.Errorf("%w: no configuration found for service %s", domain.ErrConfigNotFound, serviceID)
	}
	return data, serviceID, nil
}
