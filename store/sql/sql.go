package sql

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/flabs/taskmanager/log"
	"github.com/flabs/taskmanager/types"

	"github.com/cockroachdb/errors"
	// drivers registered by name
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const (
	// SQLite is the embedded database driver
	SQLite = "sqlite"
	// Postgres .
	Postgres = "pgx"
)

// Store is a store on database/sql
type Store struct {
	db     *sql.DB
	config types.SQLConfig
	tables tableNames
}

type tableNames struct {
	specs       string
	hierarchies string
	tasks       string
	locks       string
}

// New opens the configured driver, the driver must have been registered
func New(ctx context.Context, config types.SQLConfig) (*Store, error) {
	if !slices.Contains(sql.Drivers(), config.Driver) {
		return nil, types.NewDetailedErr(types.ErrUnknownDriver, config.Driver)
	}
	db, err := sql.Open(config.Driver, config.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", config.Driver)
	}
	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "ping %s", config.Driver)
	}
	s := NewWithDB(db, config)
	if config.CreateSchema {
		if err := s.CreateSchema(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	log.WithFunc("store.sql.New").WithField("driver", config.Driver).Info(ctx, "database opened")
	return s, nil
}

// NewWithDB wraps an opened database
func NewWithDB(db *sql.DB, config types.SQLConfig) *Store {
	prefix := config.TablePrefix
	if prefix != "" {
		prefix += "_"
	}
	return &Store{
		db:     db,
		config: config,
		tables: tableNames{
			specs:       prefix + "specs",
			hierarchies: prefix + "hierarchies",
			tasks:       prefix + "tasks",
			locks:       prefix + "locks",
		},
	}
}

// CreateSchema creates the tables when missing
func (s *Store) CreateSchema(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (id TEXT PRIMARY KEY, body TEXT NOT NULL)", s.tables.specs),
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (id TEXT PRIMARY KEY, body TEXT NOT NULL)", s.tables.hierarchies),
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (task_id TEXT PRIMARY KEY, root_id TEXT NOT NULL)", s.tables.tasks),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_root_idx ON %s (root_id)", s.tables.tasks, s.tables.tasks),
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (name TEXT PRIMARY KEY, owner TEXT NOT NULL, expires BIGINT NOT NULL)", s.tables.locks),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "create schema")
		}
	}
	return nil
}

// Close the database
func (s *Store) Close() error {
	return errors.WithStack(s.db.Close())
}

// rebind turns ? placeholders into $n for postgres
func (s *Store) rebind(query string) string {
	if s.config.Driver != Postgres {
		return query
	}
	b := strings.Builder{}
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

func (s *Store) upsert(table, key, value string) string {
	return s.rebind(fmt.Sprintf(
		"INSERT INTO %s (%s, %s) VALUES (?, ?) ON CONFLICT (%s) DO UPDATE SET %s = excluded.%s",
		table, key, value, key, value, value,
	))
}

func (s *Store) inTx(ctx context.Context, f func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.WithStack(err)
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				log.WithFunc("store.sql.inTx").Error(ctx, rerr, "rollback failed")
			}
		}
	}()
	if err = f(tx); err != nil {
		return err
	}
	return errors.WithStack(tx.Commit())
}

func (s *Store) queryBodies(ctx context.Context, query string, args ...any) ([][]byte, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer rows.Close()
	bodies := [][]byte{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, errors.WithStack(err)
		}
		bodies = append(bodies, []byte(body))
	}
	return bodies, errors.WithStack(rows.Err())
}

func (s *Store) queryBody(ctx context.Context, query string, args ...any) ([]byte, error) {
	var body string
	err := s.db.QueryRowContext(ctx, s.rebind(query), args...).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.WithStack(types.ErrKeyNotExists)
	}
	return []byte(body), errors.WithStack(err)
}
