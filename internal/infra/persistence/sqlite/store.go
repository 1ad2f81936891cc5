// Package sqlite provides a SQLite-backed persistent store. It reuses the
// in-memory store for transactional semantics and snapshots the committed
// state to a single table as JSON blobs after every successful transaction.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tytell/fishdb/internal/infra/persistence/memory"
	"github.com/tytell/fishdb/pkg/domain"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

// Store persists the in-memory state to a single SQLite table as JSON blobs.
type Store struct {
	*memory.Store
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewStore constructs a snapshotting SQLite-backed persistent store.
func NewStore(path string, engine *domain.RulesEngine) (*Store, error) {
	if path == "" {
		path = "fishdb.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create state table: %w", err)
	}
	mem := memory.NewStore(engine)
	s := &Store{Store: mem, db: db, path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

type bucketCodec struct {
	name   string
	get    func(memory.Snapshot) any
	decode func(*memory.Snapshot, []byte) error
}

func snapshotBuckets() []bucketCodec {
	return []bucketCodec{
		{"fish",
			func(s memory.Snapshot) any { return s.Fish },
			func(s *memory.Snapshot, b []byte) error { return json.Unmarshal(b, &s.Fish) }},
		{"tanks",
			func(s memory.Snapshot) any { return s.Tanks },
			func(s *memory.Snapshot, b []byte) error { return json.Unmarshal(b, &s.Tanks) }},
		{"systems",
			func(s memory.Snapshot) any { return s.Systems },
			func(s *memory.Snapshot, b []byte) error { return json.Unmarshal(b, &s.Systems) }},
		{"species",
			func(s memory.Snapshot) any { return s.Species },
			func(s *memory.Snapshot, b []byte) error { return json.Unmarshal(b, &s.Species) }},
		{"collections",
			func(s memory.Snapshot) any { return s.Collections },
			func(s *memory.Snapshot, b []byte) error { return json.Unmarshal(b, &s.Collections) }},
		{"locations",
			func(s memory.Snapshot) any { return s.Locations },
			func(s *memory.Snapshot, b []byte) error { return json.Unmarshal(b, &s.Locations) }},
		{"people",
			func(s memory.Snapshot) any { return s.People },
			func(s *memory.Snapshot, b []byte) error { return json.Unmarshal(b, &s.People) }},
		{"feeding",
			func(s memory.Snapshot) any { return s.Feeding },
			func(s *memory.Snapshot, b []byte) error { return json.Unmarshal(b, &s.Feeding) }},
		{"health",
			func(s memory.Snapshot) any { return s.Health },
			func(s *memory.Snapshot, b []byte) error { return json.Unmarshal(b, &s.Health) }},
		{"water_quality",
			func(s memory.Snapshot) any { return s.Water },
			func(s *memory.Snapshot, b []byte) error { return json.Unmarshal(b, &s.Water) }},
		{"maintenance",
			func(s memory.Snapshot) any { return s.Maintenance },
			func(s *memory.Snapshot, b []byte) error { return json.Unmarshal(b, &s.Maintenance) }},
		{"groups",
			func(s memory.Snapshot) any { return s.GroupEvents },
			func(s *memory.Snapshot, b []byte) error { return json.Unmarshal(b, &s.GroupEvents) }},
		{"experiments",
			func(s memory.Snapshot) any { return s.Experiments },
			func(s *memory.Snapshot, b []byte) error { return json.Unmarshal(b, &s.Experiments) }},
	}
}

func (s *Store) load() error {
	rows, err := s.db.Query(`SELECT bucket, payload FROM state`)
	if err != nil {
		return fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()

	decoders := map[string]func(*memory.Snapshot, []byte) error{}
	for _, b := range snapshotBuckets() {
		decoders[b.name] = b.decode
	}

	var snapshot memory.Snapshot
	loaded := false
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		decode, ok := decoders[bucket]
		if !ok || len(payload) == 0 {
			continue
		}
		if err := decode(&snapshot, payload); err != nil {
			return fmt.Errorf("decode %s: %w", bucket, err)
		}
		loaded = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate state: %w", err)
	}
	if loaded {
		s.ImportState(snapshot)
	}
	return nil
}

func (s *Store) persist() (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.ExportState()
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, b := range snapshotBuckets() {
		data, err := json.Marshal(b.get(snapshot))
		if err != nil {
			retErr = fmt.Errorf("encode %s: %w", b.name, err)
			return retErr
		}
		if _, err := tx.Exec(`INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, b.name, data); err != nil {
			retErr = fmt.Errorf("upsert %s: %w", b.name, err)
			return retErr
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	return nil
}

// RunInTransaction applies the provided function within a transaction, then
// snapshots state to SQLite if successful.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx domain.Transaction) error) (domain.Result, error) {
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return res, err
	}
	if pErr := s.persist(); pErr != nil {
		return res, pErr
	}
	return res, nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }
