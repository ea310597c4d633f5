package database

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// MetadataFileName is the name of the json store document inside the storage directory.
const MetadataFileName = "metadata.json"

// JSONStore keeps all records in one pretty-printed JSON document.
type JSONStore struct {
	mu     sync.Mutex
	path   string
	strict bool
}

func NewJSONStore(directory string, strict bool) (*JSONStore, error) {
	if directory == "" {
		return nil, fmt.Errorf("json metadata store requires a directory")
	}
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create metadata directory: %w", err)
	}
	return &JSONStore{
		path:   filepath.Join(directory, MetadataFileName),
		strict: strict,
	}, nil
}

// Path returns the location of the metadata document.
func (s *JSONStore) Path() string {
	return s.path
}

func (s *JSONStore) Load(ctx context.Context) (map[string]ImageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

func (s *JSONStore) Upsert(ctx context.Context, filename string, record ImageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load(ctx)
	if err != nil {
		return err
	}
	record.Filename = filename
	records[filename] = record
	return s.save(records)
}

func (s *JSONStore) Get(ctx context.Context, filename string) (ImageRecord, error) {
	records, err := s.Load(ctx)
	if err != nil {
		return ImageRecord{}, err
	}
	record, ok := records[filename]
	if !ok {
		return ImageRecord{}, ErrRecordNotFound
	}
	return record, nil
}

func (s *JSONStore) List(ctx context.Context) ([]ImageRecord, error) {
	records, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return recordsFromMap(records), nil
}

func (s *JSONStore) Close() error {
	return nil
}

func (s *JSONStore) load(ctx context.Context) (map[string]ImageRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]ImageRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	records := map[string]ImageRecord{}
	if len(bytes.TrimSpace(data)) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(data, &records); err != nil {
		if s.strict {
			return nil, fmt.Errorf("%w: %s: %v", ErrCorruptMetadata, s.path, err)
		}
		slog.Warn("metadata file is corrupt, starting with empty metadata", "path", s.path, "error", err)
		return map[string]ImageRecord{}, nil
	}
	for filename, record := range records {
		record.Filename = filename
		records[filename] = record
	}
	return records, nil
}

// save writes the document to a temporary file in the same directory and renames it
// over the previous version.
func (s *JSONStore) save(records map[string]ImageRecord) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(records); err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".metadata-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temporary metadata file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace metadata: %w", err)
	}
	return nil
}
