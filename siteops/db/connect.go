package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	_ "github.com/tursodatabase/go-libsql"
)

// LibSQLConfig holds configuration for libsql connections. A DSN with a
// libsql://, http:// or https:// scheme is treated as a remote database,
// anything else as a path to an embedded .db file.
type LibSQLConfig struct {
	DSN          string
	AuthToken    string // Remote only
	MaxOpenConns int
	MaxIdleConns int
}

func ConnectToDB(dsn string, logger zerolog.Logger) (*sql.DB, error) {
	return ConnectToDBWithConfig(&LibSQLConfig{DSN: dsn}, logger)
}

func ConnectToDBWithConfig(config *LibSQLConfig, logger zerolog.Logger) (*sql.DB, error) {
	dsn, err := config.driverDSN(logger)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open libsql connection: %w", err)
	}

	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}

	if err := verifyLibSQL(db, logger); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func (c *LibSQLConfig) isRemote() bool {
	for _, scheme := range []string{"libsql://", "http://", "https://"} {
		if strings.HasPrefix(c.DSN, scheme) {
			return true
		}
	}
	return false
}

func (c *LibSQLConfig) driverDSN(logger zerolog.Logger) (string, error) {
	if c.DSN == "" {
		return "", fmt.Errorf("database dsn is required")
	}

	if c.isRemote() {
		u, err := url.Parse(c.DSN)
		if err != nil {
			return "", fmt.Errorf("invalid remote dsn: %w", err)
		}
		if c.AuthToken != "" {
			q := u.Query()
			q.Set("authToken", c.AuthToken)
			u.RawQuery = q.Encode()
		}
		logger.Info().Str("host", u.Host).Msg("Connecting to remote libsql")
		return u.String(), nil
	}

	path := strings.TrimPrefix(c.DSN, "file:")
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("could not create database directory %s: %w", dir, err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Info().Str("path", path).Msg("Database not found, creating a new one")
		file, err := os.Create(path)
		if err != nil {
			return "", fmt.Errorf("could not create db at path %s: %w", path, err)
		}
		file.Close()
	}

	dsn := "file:" + path
	logger.Info().Str("dsn", dsn).Msg("Connecting to embedded libsql")
	return dsn, nil
}

// verifyLibSQL checks connectivity and turns on foreign keys so that
// deleting a conversation cascades to its messages.
func verifyLibSQL(db *sql.DB, logger zerolog.Logger) error {
	ctx := context.Background()

	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("basic connectivity test failed: %w", err)
	}
	if result != 1 {
		return fmt.Errorf("basic connectivity test failed: unexpected result %d", result)
	}

	if err := execPragma(ctx, db, "PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	var jsonResult string
	if err := db.QueryRowContext(ctx, "SELECT json_extract('{\"test\":\"value\"}', '$.test')").Scan(&jsonResult); err != nil {
		logger.Warn().Err(err).Msg("JSON1 test failed")
	} else if jsonResult != "value" {
		logger.Warn().Str("result", jsonResult).Msg("JSON1 test returned unexpected result")
	}

	return nil
}

// execPragma runs a PRAGMA, falling back to Query for drivers that report
// returned rows on Exec.
func execPragma(ctx context.Context, db *sql.DB, query string) error {
	if _, err := db.ExecContext(ctx, query); err != nil {
		if !strings.Contains(err.Error(), "returned rows") {
			return err
		}
		rows, qerr := db.QueryContext(ctx, query)
		if qerr != nil {
			return qerr
		}
		return rows.Close()
	}
	return nil
}
