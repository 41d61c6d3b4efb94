// Package database is the SQL user store of the CRUD service. It supports
// postgres, mysql, sqlserver and sqlite through database/sql.
package database

import (
	"fmt"
	"net/url"
	"strconv"

	"qa-harness/internal/config"

	"github.com/go-sql-driver/mysql"
)

// Dialect captures what differs between the supported databases
type Dialect struct {
	Name   string
	Driver string
	// Placeholder renders the n-th (1-based) bind parameter
	Placeholder func(n int) string
	Schema      string
	Truncate    string
}

var dialects = map[string]Dialect{
	"postgres": {
		Name:        "postgres",
		Driver:      "postgres",
		Placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
		Schema: `CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY,
	email VARCHAR(255) NOT NULL,
	name VARCHAR(255) NOT NULL,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL,
	CONSTRAINT uq_users_email UNIQUE (email)
)`,
		Truncate: "TRUNCATE TABLE users",
	},
	"mysql": {
		Name:        "mysql",
		Driver:      "mysql",
		Placeholder: func(int) string { return "?" },
		Schema: `CREATE TABLE IF NOT EXISTS users (
	id CHAR(36) PRIMARY KEY,
	email VARCHAR(255) NOT NULL,
	name VARCHAR(255) NOT NULL,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at DATETIME(6) NOT NULL,
	UNIQUE KEY uq_users_email (email)
)`,
		Truncate: "TRUNCATE TABLE users",
	},
	"sqlserver": {
		Name:        "sqlserver",
		Driver:      "sqlserver",
		Placeholder: func(n int) string { return "@p" + strconv.Itoa(n) },
		Schema: `IF OBJECT_ID(N'users', N'U') IS NULL
CREATE TABLE users (
	id CHAR(36) PRIMARY KEY,
	email NVARCHAR(255) NOT NULL,
	name NVARCHAR(255) NOT NULL,
	is_active BIT NOT NULL DEFAULT 1,
	created_at DATETIME2 NOT NULL,
	CONSTRAINT uq_users_email UNIQUE (email)
)`,
		Truncate: "TRUNCATE TABLE users",
	},
	"sqlite": {
		Name:        "sqlite",
		Driver:      "sqlite",
		Placeholder: func(int) string { return "?" },
		Schema: `CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL,
	name TEXT NOT NULL,
	is_active BOOLEAN NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL,
	CONSTRAINT uq_users_email UNIQUE (email)
)`,
		Truncate: "DELETE FROM users",
	},
}

// LookupDialect returns the dialect for a database type
func LookupDialect(dbType string) (Dialect, error) {
	d, ok := dialects[dbType]
	if !ok {
		return Dialect{}, fmt.Errorf("unsupported database type: %s", dbType)
	}
	return d, nil
}

// DSN builds the driver connection string for cfg
func DSN(cfg config.DatabaseConfig) (string, error) {
	switch cfg.Type {
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name), nil
	case "mysql":
		mc := mysql.NewConfig()
		mc.User = cfg.User
		mc.Passwd = cfg.Password
		mc.Net = "tcp"
		mc.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
		mc.DBName = cfg.Name
		mc.ParseTime = true
		// report matched rather than changed rows so a no-op UPDATE is not a miss
		mc.ClientFoundRows = true
		return mc.FormatDSN(), nil
	case "sqlserver":
		q := url.Values{}
		q.Set("database", cfg.Name)
		u := &url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(cfg.User, cfg.Password),
			Host:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			RawQuery: q.Encode(),
		}
		return u.String(), nil
	case "sqlite":
		if cfg.Path == "" {
			return "", fmt.Errorf("sqlite database path is empty")
		}
		return cfg.Path, nil
	default:
		return "", fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
}
