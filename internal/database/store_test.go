package database

import (
	"context"
	"net/url"
	"testing"
	"time"

	"qa-harness/internal/config"
	"qa-harness/internal/users"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	base := config.DatabaseConfig{Host: "db", Port: 5432, Name: "appdb", User: "app", Password: "s3cret"}

	t.Run("postgres", func(t *testing.T) {
		cfg := base
		cfg.Type = "postgres"
		dsn, err := DSN(cfg)
		require.NoError(t, err)
		assert.Equal(t, "host=db port=5432 user=app password=s3cret dbname=appdb sslmode=disable", dsn)
	})

	t.Run("mysql", func(t *testing.T) {
		cfg := base
		cfg.Type = "mysql"
		cfg.Port = 3306
		dsn, err := DSN(cfg)
		require.NoError(t, err)

		parsed, err := mysql.ParseDSN(dsn)
		require.NoError(t, err)
		assert.Equal(t, "app", parsed.User)
		assert.Equal(t, "s3cret", parsed.Passwd)
		assert.Equal(t, "db:3306", parsed.Addr)
		assert.Equal(t, "appdb", parsed.DBName)
		assert.True(t, parsed.ParseTime)
		assert.True(t, parsed.ClientFoundRows)
	})

	t.Run("sqlserver", func(t *testing.T) {
		cfg := base
		cfg.Type = "sqlserver"
		cfg.Port = 1433
		cfg.Password = "p@ss;word"
		dsn, err := DSN(cfg)
		require.NoError(t, err)

		u, err := url.Parse(dsn)
		require.NoError(t, err)
		assert.Equal(t, "sqlserver", u.Scheme)
		assert.Equal(t, "db:1433", u.Host)
		pw, _ := u.User.Password()
		assert.Equal(t, "p@ss;word", pw)
		assert.Equal(t, "appdb", u.Query().Get("database"))
	})

	t.Run("sqlite requires a path", func(t *testing.T) {
		_, err := DSN(config.DatabaseConfig{Type: "sqlite"})
		assert.Error(t, err)
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := DSN(config.DatabaseConfig{Type: "oracle"})
		assert.ErrorContains(t, err, "unsupported database type: oracle")
	})
}

func TestPlaceholders(t *testing.T) {
	tests := []struct {
		dialect string
		want    string
	}{
		{"postgres", "$2"},
		{"mysql", "?"},
		{"sqlserver", "@p2"},
		{"sqlite", "?"},
	}
	for _, tt := range tests {
		t.Run(tt.dialect, func(t *testing.T) {
			d, err := LookupDialect(tt.dialect)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Placeholder(2))
		})
	}
}

func openMemory(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), config.DatabaseConfig{Type: "sqlite", Path: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreCRUD(t *testing.T) {
	ctx := context.Background()
	store := openMemory(t)
	require.NoError(t, store.Ping(ctx))

	created := time.Date(2024, 5, 6, 7, 8, 9, 123000, time.UTC)
	u := &users.User{ID: uuid.New(), Email: "a@example.com", Name: "Alice", IsActive: true, CreatedAt: created}
	require.NoError(t, store.Create(ctx, u))

	got, err := store.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "a@example.com", got.Email)
	assert.Equal(t, "Alice", got.Name)
	assert.True(t, got.IsActive)
	assert.True(t, created.Equal(got.CreatedAt), "created_at %s != %s", got.CreatedAt, created)

	got.Name = "Alice Updated"
	got.IsActive = false
	require.NoError(t, store.Update(ctx, got))

	again, err := store.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice Updated", again.Name)
	assert.False(t, again.IsActive)

	require.NoError(t, store.Delete(ctx, u.ID))
	_, err = store.Get(ctx, u.ID)
	assert.ErrorIs(t, err, users.ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, u.ID), users.ErrNotFound)
	assert.ErrorIs(t, store.Update(ctx, u), users.ErrNotFound)
}

func TestStoreDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	store := openMemory(t)
	now := time.Now().UTC()

	a := &users.User{ID: uuid.New(), Email: "a@example.com", Name: "A", CreatedAt: now}
	b := &users.User{ID: uuid.New(), Email: "b@example.com", Name: "B", CreatedAt: now}
	require.NoError(t, store.Create(ctx, a))
	require.NoError(t, store.Create(ctx, b))

	dup := &users.User{ID: uuid.New(), Email: "a@example.com", Name: "Dup", CreatedAt: now}
	assert.ErrorIs(t, store.Create(ctx, dup), users.ErrDuplicateEmail)

	b.Email = "a@example.com"
	assert.ErrorIs(t, store.Update(ctx, b), users.ErrDuplicateEmail)
}

func TestStoreTruncate(t *testing.T) {
	ctx := context.Background()
	store := openMemory(t)
	svc := users.NewService(store)

	first, err := svc.Create(ctx, users.CreateInput{Email: "a@example.com", Name: "A"})
	require.NoError(t, err)
	require.NoError(t, store.Truncate(ctx))

	_, err = store.Get(ctx, first.ID)
	assert.ErrorIs(t, err, users.ErrNotFound)
	_, err = svc.Create(ctx, users.CreateInput{Email: "a@example.com", Name: "A"})
	assert.NoError(t, err)
}

func TestOpenRejectsUnknownType(t *testing.T) {
	_, err := Open(context.Background(), config.DatabaseConfig{Type: "oracle"}, nil)
	assert.ErrorContains(t, err, "unsupported database type")
}
