package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// File permission modes for the configuration document.
const (
	configDirPermissions  = 0750
	configFilePermissions = 0600
)

// Repository persists the device -> configuration mapping.
//
// The store treats persistence as best-effort: a Save failure is logged
// and the in-memory mapping remains authoritative.
type Repository interface {
	// Load reads the full mapping. A missing document is not an error;
	// it yields an empty mapping.
	Load(ctx context.Context) (map[string]Config, error)

	// Save writes the full mapping, replacing any previous document.
	Save(ctx context.Context, configs map[string]Config) error
}

// FileRepository stores the configuration mapping as a JSON document on
// disk, matching the layout devices and dashboards already understand.
//
// Writes go through a temp file and rename so a crash mid-write never
// leaves a truncated document.
type FileRepository struct {
	path string
}

// NewFileRepository creates a repository writing to the given path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{path: path}
}

// Load reads the configuration document from disk.
func (r *FileRepository) Load(_ context.Context) (map[string]Config, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]Config{}, nil
		}
		return nil, fmt.Errorf("reading config document: %w", err)
	}

	configs := map[string]Config{}
	if err := json.Unmarshal(data, &configs); err != nil {
		return nil, fmt.Errorf("parsing config document: %w", err)
	}
	return configs, nil
}

// Save writes the configuration document atomically.
func (r *FileRepository) Save(_ context.Context, configs map[string]Config) error {
	data, err := json.MarshalIndent(configs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling config document: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, configDirPermissions); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()          //nolint:errcheck // Best effort cleanup on error path
		os.Remove(tmpName)   //nolint:errcheck // Best effort cleanup on error path
		return fmt.Errorf("writing config document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName) //nolint:errcheck // Best effort cleanup on error path
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Chmod(tmpName, configFilePermissions); err != nil {
		os.Remove(tmpName) //nolint:errcheck // Best effort cleanup on error path
		return fmt.Errorf("setting config permissions: %w", err)
	}

	if err := os.Rename(tmpName, r.path); err != nil {
		os.Remove(tmpName) //nolint:errcheck // Best effort cleanup on error path
		return fmt.Errorf("replacing config document: %w", err)
	}
	return nil
}
