package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/creditrust/credirag/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/creditrust/credirag/internal/core/domain"
)

// Store is an index snapshot file.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the snapshot database at path and applies migrations.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty database path", domain.ErrInvalidInput)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: path}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// OpenExisting opens a snapshot that must already exist. The file is opened
// read-only and no migrations run, so foreign databases are left untouched.
func OpenExisting(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("index %s: %w", path, domain.ErrNotFound)
		}
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	dsn := (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs), RawQuery: "mode=ro&_pragma=busy_timeout(5000)"}).String()
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	var tables int
	err = db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'manifest'`).Scan(&tables)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("reading index %s: %w", path, err)
	}
	if tables == 0 {
		db.Close()
		return nil, fmt.Errorf("index %s has no manifest: %w", path, domain.ErrNotFound)
	}

	return &Store{db: db, path: path}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys fs.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_index.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// WriteSnapshot replaces the stored manifest, chunks and meta in one transaction.
func (s *Store) WriteSnapshot(
	ctx context.Context,
	manifest domain.IndexManifest,
	items []domain.IndexItem,
	meta map[string]string,
) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, table := range []string{"manifest", "chunks", "meta"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO manifest (id, backend, embedding_model, dimensions, built_at,
			chunk_size, chunk_overlap, document_count, chunk_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, manifest.ID, manifest.Backend, manifest.EmbeddingModel, manifest.Dimensions,
		manifest.BuiltAt.UTC().Format(time.RFC3339Nano), manifest.ChunkSize, manifest.ChunkOverlap,
		manifest.DocumentCount, manifest.ChunkCount)
	if err != nil {
		return fmt.Errorf("inserting manifest: %w", err)
	}

	if len(items) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO chunks (seq, id, document_id, category, position,
				start_offset, end_offset, content, extra, embedding)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing chunk insert: %w", err)
		}
		defer stmt.Close()

		for seq, item := range items {
			c := item.Chunk
			extra, err := marshalExtra(c.Extra)
			if err != nil {
				return fmt.Errorf("chunk %s: %w", c.ID, err)
			}
			if _, err := stmt.ExecContext(ctx, seq, c.ID, c.DocumentID, c.Category, c.Position,
				c.Start, c.End, c.Text, extra, float32SliceToBytes(item.Vector)); err != nil {
				return fmt.Errorf("inserting chunk %s: %w", c.ID, err)
			}
		}
	}

	for k, v := range meta {
		if _, err := tx.ExecContext(ctx, "INSERT INTO meta (key, value) VALUES (?, ?)", k, v); err != nil {
			return fmt.Errorf("inserting meta %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ReadManifest returns the stored manifest, or domain.ErrNotFound.
func (s *Store) ReadManifest(ctx context.Context) (*domain.IndexManifest, error) {
	var m domain.IndexManifest
	var builtAt string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, backend, embedding_model, dimensions, built_at,
			chunk_size, chunk_overlap, document_count, chunk_count
		FROM manifest LIMIT 1
	`).Scan(&m.ID, &m.Backend, &m.EmbeddingModel, &m.Dimensions, &builtAt,
		&m.ChunkSize, &m.ChunkOverlap, &m.DocumentCount, &m.ChunkCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("manifest: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("scanning manifest: %w", err)
	}

	if m.BuiltAt, err = time.Parse(time.RFC3339Nano, builtAt); err != nil {
		return nil, fmt.Errorf("parsing built_at: %w", err)
	}
	return &m, nil
}

// ReadItems returns every stored chunk with its vector in insertion order.
func (s *Store) ReadItems(ctx context.Context) ([]domain.IndexItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, category, position, start_offset, end_offset,
			content, extra, embedding
		FROM chunks ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var items []domain.IndexItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return items, nil
}

// ReadMeta returns the backend key/value settings.
func (s *Store) ReadMeta(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM meta")
	if err != nil {
		return nil, fmt.Errorf("querying meta: %w", err)
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scanning meta: %w", err)
		}
		meta[k] = v
	}
	return meta, rows.Err()
}

// ==================== Helper Functions ====================

func scanItem(rows *sql.Rows) (domain.IndexItem, error) {
	var c domain.Chunk
	var extra sql.NullString
	var blob []byte

	if err := rows.Scan(&c.ID, &c.DocumentID, &c.Category, &c.Position, &c.Start, &c.End,
		&c.Text, &extra, &blob); err != nil {
		return domain.IndexItem{}, fmt.Errorf("scanning chunk: %w", err)
	}

	if extra.Valid && extra.String != "" {
		if err := json.Unmarshal([]byte(extra.String), &c.Extra); err != nil {
			return domain.IndexItem{}, fmt.Errorf("unmarshaling chunk extra: %w", err)
		}
	}

	return domain.IndexItem{Chunk: c, Vector: bytesToFloat32Slice(blob)}, nil
}

func marshalExtra(extra map[string]string) (sql.NullString, error) {
	if len(extra) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(extra)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshalling extra: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// float32SliceToBytes converts a []float32 to a little-endian byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
