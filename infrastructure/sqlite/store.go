// Package sqlite implements the relational store on modernc.org/sqlite.
//
// The store owns exactly one connection. Every call holds it exclusively for
// its duration, so a batch transaction is never observed half applied.
package sqlite

import (
	"context"
	"database/sql"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	sqlitedrv "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/reglet-dev/artefact-host/domain/entities"
	"github.com/reglet-dev/artefact-host/domain/errors"
	"github.com/reglet-dev/artefact-host/domain/ports"
)

// MemoryLocator opens a non-durable in-memory database.
const MemoryLocator = ":memory:"

// DefaultBusyTimeout bounds how long a call waits on a locked database.
const DefaultBusyTimeout = 5 * time.Second

var _ ports.QueryExecutor = (*Store)(nil)

// Store serializes access to a single SQLite connection.
type Store struct {
	db      *sql.DB
	conn    *sql.Conn
	sem     chan struct{}
	logger  *slog.Logger
	locator string
	busy    time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithBusyTimeout sets the lock-contention wait. Non-positive values are ignored.
func WithBusyTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.busy = d
		}
	}
}

// WithLogger sets the logger used for store diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Open opens locator, or an in-memory database for MemoryLocator, and applies
// the connection pragmas.
func Open(ctx context.Context, locator string, opts ...Option) (*Store, error) {
	s := &Store{
		sem:     make(chan struct{}, 1),
		logger:  slog.Default(),
		locator: locator,
		busy:    DefaultBusyTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	if locator != MemoryLocator {
		if dir := filepath.Dir(locator); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, &errors.StoreError{Op: "open", Err: fmt.Errorf("create db dir: %w", err)}
			}
		}
	}

	db, err := sql.Open("sqlite", locator)
	if err != nil {
		return nil, &errors.StoreError{Op: "open", Err: err}
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		return nil, &errors.StoreError{Op: "open", Err: err}
	}

	pragmas := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA synchronous=NORMAL;`,
		`PRAGMA foreign_keys=ON;`,
		fmt.Sprintf(`PRAGMA busy_timeout=%d;`, s.busy.Milliseconds()),
	}
	for _, p := range pragmas {
		if _, err := conn.ExecContext(ctx, p); err != nil {
			_ = conn.Close()
			_ = db.Close()
			return nil, &errors.StoreError{Op: "open", Err: fmt.Errorf("%s: %w", p, err)}
		}
	}

	s.db = db
	s.conn = conn
	s.logger.Debug("sqlite: store opened", "locator", locator)
	return s, nil
}

// Close releases the connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	if err := s.acquire(context.Background()); err != nil {
		return err
	}
	defer s.release()

	connErr := s.conn.Close()
	dbErr := s.db.Close()
	if err := stdErrors.Join(connErr, dbErr); err != nil {
		return &errors.StoreError{Op: "close", Err: err}
	}
	return nil
}

// Locator returns the path the store was opened with.
func (s *Store) Locator() string {
	return s.locator
}

func (s *Store) acquire(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) release() {
	<-s.sem
}

// execer is the subset shared by *sql.Conn and *sql.Tx.
type execer interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// Execute runs one statement. Prepare, execute and conversion failures are
// returned in the result. An unknown method is returned as an
// UnsupportedMethodError before the statement is prepared.
func (s *Store) Execute(ctx context.Context, payload entities.QueryPayload) (entities.QueryResult, error) {
	if !payload.Method.Valid() {
		return entities.QueryResult{}, &errors.UnsupportedMethodError{Method: string(payload.Method)}
	}
	if err := s.acquire(ctx); err != nil {
		return entities.QueryResult{}, err
	}
	defer s.release()

	res, err := s.dispatch(ctx, s.conn, payload)
	if err != nil {
		return entities.QueryErrorResult(s.classify(err)), nil
	}
	return res, nil
}

// ExecuteBatch runs payloads in order inside one transaction and commits only
// if all of them succeed. Any failure rolls the transaction back and is
// returned as a BatchError naming the failing statement.
func (s *Store) ExecuteBatch(ctx context.Context, payloads []entities.QueryPayload) ([]entities.QueryResult, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	defer s.release()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, &errors.StoreError{Op: "begin", Err: s.classify(err)}
	}
	defer func() { _ = tx.Rollback() }()

	results := make([]entities.QueryResult, 0, len(payloads))
	for i, p := range payloads {
		if !p.Method.Valid() {
			return nil, &errors.BatchError{Index: i, Err: &errors.UnsupportedMethodError{Method: string(p.Method)}}
		}
		res, err := s.dispatch(ctx, tx, p)
		if err != nil {
			return nil, &errors.BatchError{Index: i, Err: s.classify(err)}
		}
		results = append(results, res)
	}

	if err := tx.Commit(); err != nil {
		return nil, &errors.StoreError{Op: "commit", Err: s.classify(err)}
	}
	return results, nil
}

// Query runs query with MethodAll.
func (s *Store) Query(ctx context.Context, query string, params ...any) (entities.QueryResult, error) {
	payload, err := entities.NewQuery(entities.MethodAll, query, params...)
	if err != nil {
		return entities.QueryResult{}, err
	}
	return s.Execute(ctx, payload)
}

// Exec runs query with MethodRun.
func (s *Store) Exec(ctx context.Context, query string, params ...any) (entities.QueryResult, error) {
	payload, err := entities.NewQuery(entities.MethodRun, query, params...)
	if err != nil {
		return entities.QueryResult{}, err
	}
	return s.Execute(ctx, payload)
}

func (s *Store) dispatch(ctx context.Context, ex execer, payload entities.QueryPayload) (entities.QueryResult, error) {
	stmt, err := ex.PrepareContext(ctx, payload.SQL)
	if err != nil {
		return entities.QueryResult{}, err
	}
	defer stmt.Close()

	args := toStoreParameters(payload.Params)

	switch payload.Method {
	case entities.MethodRun:
		res, err := stmt.ExecContext(ctx, args...)
		if err != nil {
			return entities.QueryResult{}, err
		}
		changes, err := res.RowsAffected()
		if err != nil {
			return entities.QueryResult{}, err
		}
		lastID, err := res.LastInsertId()
		if err != nil {
			return entities.QueryResult{}, err
		}
		return entities.QueryRunResult(changes, lastID), nil
	case entities.MethodAll, entities.MethodValues:
		rows, err := collectRows(ctx, stmt, args, -1)
		if err != nil {
			return entities.QueryResult{}, err
		}
		return entities.QueryRowsResult(rows), nil
	case entities.MethodGet:
		rows, err := collectRows(ctx, stmt, args, 1)
		if err != nil {
			return entities.QueryResult{}, err
		}
		return entities.QueryRowsResult(rows), nil
	default:
		return entities.QueryResult{}, &errors.UnsupportedMethodError{Method: string(payload.Method)}
	}
}

// collectRows materializes up to limit rows, or all rows when limit is negative.
func collectRows(ctx context.Context, stmt *sql.Stmt, args []any, limit int) ([][]entities.Value, error) {
	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	cols := make([]Column, len(types))
	for i, ct := range types {
		cols[i] = Column{Name: ct.Name(), DeclType: ct.DatabaseTypeName()}
	}

	out := [][]entities.Value{}
	raw := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range raw {
		ptrs[i] = &raw[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make([]entities.Value, len(cols))
		for i, c := range cols {
			v, err := FromColumn(c, raw[i])
			if err != nil {
				return nil, err
			}
			row[i] = v
		}
		out = append(out, row)
		if limit > 0 && len(out) >= limit {
			return out, nil
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// classify turns SQLITE_BUSY into a BusyTimeoutError and leaves other errors as is.
func (s *Store) classify(err error) error {
	var se *sqlitedrv.Error
	if stdErrors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_BUSY {
		s.logger.Warn("sqlite: busy timeout exceeded", "locator", s.locator, "timeout", s.busy)
		return &errors.BusyTimeoutError{Wait: s.busy, Err: err}
	}
	return err
}
