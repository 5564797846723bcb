// Package db provides PostgreSQL persistence for sellers, scrape jobs and products.
package db

import (
	"context"
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonathan/catalog-tracker/internal/store"
)

//go:embed schema.sql
var schemaSQL string

const unlockTimeout = 5 * time.Second

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool     *pgxpool.Pool
	isoLevel pgx.TxIsoLevel
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := &DB{pool: pool, isoLevel: pgx.ReadCommitted}
	// Verify connection
	if err := db.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return db, nil
}

// New connects with a background context.
func New(databaseURL string) (*DB, error) {
	return Connect(context.Background(), databaseURL)
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: failed to ping database: %w", store.ErrStorageUnavailable, err)
	}
	return nil
}

// Migrate applies the embedded schema. It is safe to run repeatedly.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", classify(err))
	}
	return nil
}

// SetIsolationLevel selects the isolation level used by InPass. Accepted values
// are read_committed, repeatable_read and serializable.
func (db *DB) SetIsolationLevel(level string) error {
	iso, err := ParseIsolationLevel(level)
	if err != nil {
		return err
	}
	db.isoLevel = iso
	return nil
}

// ParseIsolationLevel maps a config value to a pgx isolation level. Empty means
// read committed.
func ParseIsolationLevel(level string) (pgx.TxIsoLevel, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(level), " ", "_")) {
	case "", "read_committed":
		return pgx.ReadCommitted, nil
	case "repeatable_read":
		return pgx.RepeatableRead, nil
	case "serializable":
		return pgx.Serializable, nil
	}
	return "", fmt.Errorf("%w: unknown isolation level %q", store.ErrInvalidArgument, level)
}

// InPass runs fn inside one transaction. Passes over overlapping sellers run
// one after the other: a session-level advisory lock is taken for every seller
// id, in a stable order, before the transaction begins, so its snapshot is
// taken after the previous holder committed. The locks are released once the
// transaction has ended.
func (db *DB) InPass(ctx context.Context, sellerIDs []uuid.UUID, fn func(tx store.Tx) error) error {
	conn, err := db.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to acquire connection: %w", store.ErrStorageUnavailable, err)
	}
	defer conn.Release()

	keys := lockKeys(sellerIDs)
	if len(keys) > 0 {
		defer unlockAll(conn)
	}
	for _, key := range keys {
		if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock(hashtextextended($1, 0))`, key); err != nil {
			return fmt.Errorf("failed to lock seller %s: %w", key, classify(err))
		}
	}

	tx, err := conn.BeginTx(ctx, pgx.TxOptions{IsoLevel: db.isoLevel})
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %w", store.ErrStorageUnavailable, err)
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if err := fn(&passTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: failed to commit transaction: %w", store.ErrStorageUnavailable, err)
	}
	return nil
}

// unlockAll drops every session-level advisory lock held by conn. A connection
// whose locks cannot be released is closed so the pool never hands it out again.
func unlockAll(conn *pgxpool.Conn) {
	ctx, cancel := context.WithTimeout(context.Background(), unlockTimeout)
	defer cancel()
	if _, err := conn.Exec(ctx, `SELECT pg_advisory_unlock_all()`); err != nil {
		_ = conn.Conn().Close(ctx)
	}
}

// lockKeys returns the distinct non-nil seller ids as sorted strings.
func lockKeys(ids []uuid.UUID) []string {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		keys = append(keys, id.String())
	}
	sort.Strings(keys)
	return keys
}

// uuidStrings renders ids for a $n::uuid[] parameter.
func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
