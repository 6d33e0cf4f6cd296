package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	goerrors "github.com/goliatone/go-errors"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Config selects the SQL backend.
type Config struct {
	// Driver is DriverSQLite or DriverPostgres.
	Driver string
	// DSN is handed to database/sql as is.
	DSN string
}

// DefaultConfig returns an in-memory SQLite database.
func DefaultConfig() Config {
	return Config{Driver: DriverSQLite, DSN: ":memory:"}
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	if err := goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&c,
			validation.Field(&c.Driver, validation.Required, validation.In(DriverSQLite, DriverPostgres)),
			validation.Field(&c.DSN, validation.Required),
		)
	}, "invalid document store config"); err != nil {
		return err
	}
	return nil
}

// documentRow is one document of one collection. body holds the JSON
// encoding and doc_id the JSON encoding of its _id.
type documentRow struct {
	bun.BaseModel `bun:"table:documents,alias:d"`

	ID         int64  `bun:"id,pk,autoincrement"`
	Collection string `bun:"collection,notnull,unique:collection_doc"`
	DocID      string `bun:"doc_id,notnull,unique:collection_doc"`
	Body       string `bun:"body,notnull"`
}

// Option customizes a Store.
type Option func(*Store)

// WithLogger sets the logger used for schema and update events.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Store keeps documents of every collection in a single SQL table.
type Store struct {
	db     *bun.DB
	logger *slog.Logger
}

// Open connects to the database described by cfg and creates the documents
// table when missing.
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sqldb, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryExternal, "open document database")
	}

	var dialect schema.Dialect
	switch cfg.Driver {
	case DriverPostgres:
		dialect = pgdialect.New()
	default:
		// one connection keeps an in-memory database alive and serializes writers
		sqldb.SetMaxOpenConns(1)
		dialect = sqlitedialect.New()
	}

	s := New(bun.NewDB(sqldb, dialect), opts...)
	if err := s.Init(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing bun database. Call Init before use.
func New(db *bun.DB, opts ...Option) *Store {
	s := &Store{db: db, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init creates the documents table when missing.
func (s *Store) Init(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*documentRow)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, "create documents table")
	}
	s.logger.Debug("documents table ready", "dialect", s.db.Dialect().Name().String())
	return nil
}

// Collection returns a handle on the named collection.
func (s *Store) Collection(name string) *Collection {
	return &Collection{store: s, name: name}
}

// DB exposes the underlying bun database.
func (s *Store) DB() *bun.DB {
	return s.db
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, "ping document database")
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
