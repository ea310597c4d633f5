package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

const (
	StoreTypeJSON   = "json"
	StoreTypeSQLite = "sqlite"
	StoreTypeRedis  = "redis"
)

// ErrRecordNotFound is returned by Get when no record exists for a filename.
var ErrRecordNotFound = errors.New("metadata record not found")

// ErrCorruptMetadata is returned in strict mode when the stored metadata cannot be parsed.
var ErrCorruptMetadata = errors.New("metadata is corrupt")

// MetadataStore persists ImageRecords keyed by filename.
type MetadataStore interface {
	// Load returns all records keyed by filename.
	Load(ctx context.Context) (map[string]ImageRecord, error)
	// Upsert stores record under filename, replacing an existing record.
	Upsert(ctx context.Context, filename string, record ImageRecord) error
	Get(ctx context.Context, filename string) (ImageRecord, error)
	// List returns all records, newest first.
	List(ctx context.Context) ([]ImageRecord, error)
	Close() error
}

// StoreOptions selects and configures a metadata store.
type StoreOptions struct {
	Type string
	// ConnectionString is the sqlite DSN or the redis URL. Unused by the json store.
	ConnectionString string
	// Directory holds metadata.json for the json store.
	Directory string
	// Strict makes the json store fail on a corrupt document instead of starting empty.
	Strict bool
	// KeyPrefix namespaces redis keys.
	KeyPrefix string
}

func NewMetadataStore(options StoreOptions) (store MetadataStore, err error) {
	switch options.Type {
	case StoreTypeJSON, "":
		store, err = NewJSONStore(options.Directory, options.Strict)
	case StoreTypeSQLite:
		store, err = NewSQLiteStore(options.ConnectionString)
	case StoreTypeRedis:
		store, err = NewRedisStoreFromURL(options.ConnectionString, options.KeyPrefix)
	default:
		return nil, fmt.Errorf("unsupported metadata store: %s", options.Type)
	}
	if err != nil {
		return nil, err
	}

	slog.Info("metadata store initialized", "type", options.Type)
	return store, nil
}
