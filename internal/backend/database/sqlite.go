package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps records in the image_metadata table.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(connectionString string) (*SQLiteStore, error) {
	if connectionString == "" {
		return nil, fmt.Errorf("sqlite metadata store requires a connection string")
	}
	db, err := sql.Open("sqlite", connectionString)
	if err != nil {
		return nil, err
	}
	// a single connection keeps ":memory:" databases shared across calls
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.createSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) createSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS image_metadata (
		filename TEXT PRIMARY KEY,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		prompt TEXT NOT NULL,
		model TEXT NOT NULL,
		generation_time REAL NOT NULL,
		created TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("failed to create image_metadata table: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context) (map[string]ImageRecord, error) {
	records, err := s.query(ctx, "SELECT filename, width, height, prompt, model, generation_time, created FROM image_metadata")
	if err != nil {
		return nil, err
	}
	result := make(map[string]ImageRecord, len(records))
	for _, record := range records {
		result[record.Filename] = record
	}
	return result, nil
}

func (s *SQLiteStore) Upsert(ctx context.Context, filename string, record ImageRecord) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO image_metadata (filename, width, height, prompt, model, generation_time, created)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(filename) DO UPDATE SET
			width = excluded.width,
			height = excluded.height,
			prompt = excluded.prompt,
			model = excluded.model,
			generation_time = excluded.generation_time,
			created = excluded.created`,
		filename, record.Width, record.Height, record.Prompt, record.Model, record.GenerationTime, formatTimestamp(record.Created))
	if err != nil {
		return fmt.Errorf("failed to upsert metadata for %s: %w", filename, err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, filename string) (ImageRecord, error) {
	row := s.db.QueryRowContext(ctx, "SELECT filename, width, height, prompt, model, generation_time, created FROM image_metadata WHERE filename = ?", filename)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ImageRecord{}, ErrRecordNotFound
	}
	if err != nil {
		return ImageRecord{}, err
	}
	return record, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]ImageRecord, error) {
	records, err := s.query(ctx, "SELECT filename, width, height, prompt, model, generation_time, created FROM image_metadata")
	if err != nil {
		return nil, err
	}
	SortNewestFirst(records)
	return records, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) query(ctx context.Context, statement string) ([]ImageRecord, error) {
	rows, err := s.db.QueryContext(ctx, statement)
	if err != nil {
		return nil, fmt.Errorf("failed to query metadata: %w", err)
	}
	defer rows.Close()

	var records []ImageRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (ImageRecord, error) {
	var record ImageRecord
	var created string
	if err := row.Scan(&record.Filename, &record.Width, &record.Height, &record.Prompt, &record.Model, &record.GenerationTime, &created); err != nil {
		return ImageRecord{}, err
	}
	record.Created = ParseTimestamp(created)
	return record, nil
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}
