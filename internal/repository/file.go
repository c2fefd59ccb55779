package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Dan9191/tea-service/internal/models"
)

var extFormats = map[string]Format{
	".json": FormatJSON,
	".yaml": FormatYAML,
	".yml":  FormatYAML,
}

// FileStore keeps one record per file in a directory. New records are written
// as JSON; a record that already exists as YAML keeps its format.
type FileStore struct {
	dir string
	log *logrus.Logger
}

// NewFileStore creates the directory if needed
func NewFileStore(dir string, log *logrus.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create scenario directory: %w", err)
	}
	return &FileStore{dir: dir, log: log}, nil
}

// Save writes the record atomically
func (s *FileStore) Save(ctx context.Context, name string, record *models.ScenarioRecord) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	path, format, err := s.find(name)
	if errors.Is(err, ErrRecordNotFound) {
		path, format = filepath.Join(s.dir, name+".json"), FormatJSON
	} else if err != nil {
		return err
	}

	data, err := EncodeRecord(record, format)
	if err != nil {
		return fmt.Errorf("failed to encode scenario %s: %w", name, err)
	}
	if err := writeAtomic(s.dir, path, data); err != nil {
		return fmt.Errorf("failed to write scenario %s: %w", name, err)
	}

	s.log.WithField("path", path).Infof("Scenario saved: %s", name)
	return nil
}

// Load reads and validates a record
func (s *FileStore) Load(ctx context.Context, name string) (*models.ScenarioRecord, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	path, format, err := s.find(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario %s: %w", name, err)
	}
	record, err := DecodeRecord(data, format)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", name, err)
	}
	return record, nil
}

// List returns the sorted names of all record files
func (s *FileStore) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list scenarios: %w", err)
	}

	seen := make(map[string]bool)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if _, ok := extFormats[ext]; !ok {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ext)
		if ValidateName(name) != nil || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// find locates an existing record file, preferring JSON
func (s *FileStore) find(name string) (string, Format, error) {
	for _, ext := range []string{".json", ".yaml", ".yml"} {
		path := filepath.Join(s.dir, name+ext)
		_, err := os.Stat(path)
		if err == nil {
			return path, extFormats[ext], nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", "", fmt.Errorf("failed to stat %s: %w", path, err)
		}
	}
	return "", "", notFound(name)
}

func writeAtomic(dir, path string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".scenario-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
