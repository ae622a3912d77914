// Package ledger records completed barista orders in SQLite.
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	defaultBusyTimeout = 5 * time.Second
	// Fixed width so created_at sorts as text.
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		drink_type TEXT NOT NULL,
		size TEXT NOT NULL,
		milk TEXT NOT NULL,
		extras TEXT NOT NULL DEFAULT '[]',
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at)`,
}

// Options describes parameters for opening a ledger.
type Options struct {
	Path     string // Database file; parent directories are created
	ReadOnly bool
}

// Ledger stores completed orders.
type Ledger struct {
	db  *sql.DB
	now func() time.Time
}

// NotFoundError indicates a requested order does not exist.
type NotFoundError struct {
	ID string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("order %s not found", e.ID)
}

// IsNotFound returns true when err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

// Open initialises the ledger database at opts.Path.
func Open(opts Options) (*Ledger, error) {
	if opts.Path == "" {
		return nil, errors.New("ledger: database path is required")
	}

	dsn := opts.Path
	if opts.ReadOnly {
		dsn = fmt.Sprintf("file:%s?mode=ro", opts.Path)
	} else if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return nil, fmt.Errorf("ledger: ensure directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("ledger: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := applyPragmas(ctx, db, opts.ReadOnly); err != nil {
		db.Close()
		return nil, err
	}
	if !opts.ReadOnly {
		if err := applySchema(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
	}

	return &Ledger{db: db, now: time.Now}, nil
}

func applyPragmas(ctx context.Context, db *sql.DB, readOnly bool) error {
	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", int(defaultBusyTimeout.Milliseconds())),
	}
	if !readOnly {
		pragmas = append(pragmas,
			"PRAGMA journal_mode = WAL",
			"PRAGMA synchronous = NORMAL",
		)
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("ledger: apply pragma %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ledger: begin schema transaction: %w", err)
	}
	for _, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("ledger: apply schema: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ledger: commit schema: %w", err)
	}
	return nil
}

// Close finalises the underlying database connection.
func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

// Save validates and stores o, assigning an ID and timestamp when unset.
func (l *Ledger) Save(ctx context.Context, o Order) (Order, error) {
	if err := o.Validate(); err != nil {
		return Order{}, err
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = l.now()
	}
	o.CreatedAt = o.CreatedAt.UTC()
	if o.Extras == nil {
		o.Extras = []string{}
	}

	extras, err := json.Marshal(o.Extras)
	if err != nil {
		return Order{}, fmt.Errorf("ledger: encode extras: %w", err)
	}

	_, err = l.db.ExecContext(ctx,
		`INSERT INTO orders (id, drink_type, size, milk, extras, name, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.DrinkType, o.Size, o.Milk, string(extras), o.Name, o.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return Order{}, fmt.Errorf("ledger: insert order: %w", err)
	}
	return o, nil
}

// Get returns the order with the given id.
func (l *Ledger) Get(ctx context.Context, id string) (Order, error) {
	row := l.db.QueryRowContext(ctx,
		`SELECT id, drink_type, size, milk, extras, name, created_at FROM orders WHERE id = ?`, id)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Order{}, NotFoundError{ID: id}
	}
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

// List returns up to limit orders, newest first. A limit <= 0 returns all.
func (l *Ledger) List(ctx context.Context, limit int) ([]Order, error) {
	query := `SELECT id, drink_type, size, milk, extras, name, created_at FROM orders ORDER BY created_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ledger: list orders: %w", err)
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger: list orders: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(s scanner) (Order, error) {
	var (
		o         Order
		extras    string
		createdAt string
	)
	if err := s.Scan(&o.ID, &o.DrinkType, &o.Size, &o.Milk, &extras, &o.Name, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, err
		}
		return Order{}, fmt.Errorf("ledger: scan order: %w", err)
	}
	if err := json.Unmarshal([]byte(extras), &o.Extras); err != nil {
		return Order{}, fmt.Errorf("ledger: decode extras for %s: %w", o.ID, err)
	}
	ts, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return Order{}, fmt.Errorf("ledger: parse created_at for %s: %w", o.ID, err)
	}
	o.CreatedAt = ts
	return o, nil
}
