package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"qa-harness/internal/config"
	"qa-harness/internal/users"

	mssql "github.com/denisenkom/go-mssqldb"
	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Store is a users.Store backed by a SQL database
type Store struct {
	db      *sql.DB
	dialect Dialect
	log     *zap.Logger
}

var _ users.Store = (*Store)(nil)

// Open connects to the configured database and makes sure the users table
// exists
func Open(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (*Store, error) {
	dialect, err := LookupDialect(cfg.Type)
	if err != nil {
		return nil, err
	}
	dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(dialect.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Type, err)
	}
	if dialect.Name == "sqlite" {
		// a second connection to ":memory:" would see an empty database
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", cfg.Type, err)
	}

	store := New(db, dialect, log)
	if err := store.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// New wraps an open database
func New(db *sql.DB, dialect Dialect, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{db: db, dialect: dialect, log: log}
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// EnsureSchema creates the users table when it does not exist
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.Schema); err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}
	s.log.Debug("users table ready", zap.String("dialect", s.dialect.Name))
	return nil
}

// bind renders a statement with one placeholder per %s verb
func (s *Store) bind(query string, n int) string {
	args := make([]any, n)
	for i := range args {
		args[i] = s.dialect.Placeholder(i + 1)
	}
	return fmt.Sprintf(query, args...)
}

// Create inserts a user
func (s *Store) Create(ctx context.Context, u *users.User) error {
	query := s.bind("INSERT INTO users (id, email, name, is_active, created_at) VALUES (%s, %s, %s, %s, %s)", 5)
	_, err := s.db.ExecContext(ctx, query, u.ID.String(), u.Email, u.Name, u.IsActive, u.CreatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return users.ErrDuplicateEmail
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// Get loads a user by id
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*users.User, error) {
	query := s.bind("SELECT id, email, name, is_active, created_at FROM users WHERE id = %s", 1)

	var (
		u   users.User
		raw string
	)
	err := s.db.QueryRowContext(ctx, query, id.String()).Scan(&raw, &u.Email, &u.Name, &u.IsActive, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, users.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if u.ID, err = uuid.Parse(raw); err != nil {
		return nil, fmt.Errorf("stored user id %q: %w", raw, err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}

// Update overwrites the mutable fields of a user
func (s *Store) Update(ctx context.Context, u *users.User) error {
	query := s.bind("UPDATE users SET email = %s, name = %s, is_active = %s WHERE id = %s", 4)
	res, err := s.db.ExecContext(ctx, query, u.Email, u.Name, u.IsActive, u.ID.String())
	if err != nil {
		if IsUniqueViolation(err) {
			return users.ErrDuplicateEmail
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	return requireOneRow(res)
}

// Delete removes a user
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	query := s.bind("DELETE FROM users WHERE id = %s", 1)
	res, err := s.db.ExecContext(ctx, query, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return requireOneRow(res)
}

// Truncate removes every user
func (s *Store) Truncate(ctx context.Context) error {
	start := time.Now()
	if _, err := s.db.ExecContext(ctx, s.dialect.Truncate); err != nil {
		return fmt.Errorf("failed to truncate users: %w", err)
	}
	s.log.Debug("users truncated", zap.Duration("duration", time.Since(start)))
	return nil
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return users.ErrNotFound
	}
	return nil
}

// IsUniqueViolation reports whether err is a unique constraint violation
// from any supported driver
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	var msErr mssql.Error
	if errors.As(err, &msErr) {
		return msErr.Number == 2627 || msErr.Number == 2601
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
