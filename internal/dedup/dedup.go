// Package dedup implements the Duplicate Index: a persistent fingerprint →
// path table consulted by the extract strategy so identical media content
// dropped under different archive names is materialized only once.
package dedup

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/rarshelf/rarshelf/internal/logging"
	"github.com/rarshelf/rarshelf/internal/metrics"
)

const defaultTimeout = 5 * time.Second

const driverName = "sqlite3_rarshelf"

var registerOnce sync.Once

func registerDriver() {
	registerOnce.Do(func() {
		sql.Register(driverName, &sqlite3.SQLiteDriver{
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				_, err := conn.Exec("PRAGMA mmap_size = 0", nil)
				return err
			},
		})
	})
}

func init() {
	registerDriver()
}

// Index is the sqlite-backed fingerprint → path table. One writer at a time,
// many readers, serialized internally by sql.DB's own connection pool plus a
// single mutex around writes (§5: "Duplicate Index: one writer at a time;
// many readers. Serialized internally.").
type Index struct {
	db      *sql.DB
	writeMu sync.Mutex
}

// Open creates or opens the duplicate index at path, creating the schema if
// absent.
func Open(path string) (*Index, error) {
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", path)
	db, err := sql.Open(driverName, connStr)
	if err != nil {
		return nil, fmt.Errorf("open duplicate index: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to duplicate index: %w", err)
	}

	db.SetMaxOpenConns(1) // sqlite + WAL: one writer; simplest safe pool size
	db.SetConnMaxLifetime(time.Hour)

	idx := &Index{db: db}
	if err := idx.initialize(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize duplicate index schema: %w", err)
	}
	return idx, nil
}

func (idx *Index) initialize(ctx context.Context) error {
	_, err := idx.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS duplicates (
			fingerprint TEXT PRIMARY KEY,
			path TEXT NOT NULL,
			first_seen_time INTEGER NOT NULL
		);
	`)
	return err
}

// Close closes the underlying database connection.
func (idx *Index) Close() error {
	return idx.db.Close()
}

// Lookup reports whether fingerprint is already known, and if so the path it
// was first recorded under.
func (idx *Index) Lookup(ctx context.Context, fingerprint string) (path string, found bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	start := time.Now()
	err = idx.db.QueryRowContext(ctx,
		"SELECT path FROM duplicates WHERE fingerprint = ?", fingerprint,
	).Scan(&path)
	metrics.DedupLookupsTotal.WithLabelValues(lookupResult(err)).Inc()
	logging.Debugf("dedup: lookup %s took %s (found=%v)", fingerprint, time.Since(start), err == nil)

	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return path, true, nil
}

func lookupResult(err error) string {
	if err == nil {
		return "hit"
	}
	return "miss"
}

// Insert records a new fingerprint → path row. It is a no-op (and not an
// error) if the fingerprint is already present, since two archive sets whose
// content hashes to the same value race here only when processed in the same
// queue worker pass, which §4.4 forbids by design (strictly serial queue).
func (idx *Index) Insert(ctx context.Context, fingerprint, path string) error {
	idx.writeMu.Lock()
	defer idx.writeMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := idx.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO duplicates (fingerprint, path, first_seen_time) VALUES (?, ?, ?)",
		fingerprint, path, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert duplicate index row: %w", err)
	}
	metrics.DedupInsertsTotal.Inc()
	return nil
}
