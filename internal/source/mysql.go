// Package source reads schema metadata and row data from the MySQL side of
// a migration.
package source

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/go-sql-driver/mysql"

	"mysql2ch/internal/schema"
)

type Config struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	Charset  string
}

// DSN renders the go-sql-driver connection string. parseTime makes the
// driver hand DATE/DATETIME columns back as time.Time instead of raw bytes.
func (c Config) DSN() string {
	charset := c.Charset
	if charset == "" {
		charset = "utf8mb4"
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=true",
		c.User, c.Password, c.Host, c.Port, c.Database, charset)
}

type Client struct {
	db  *sql.DB
	cfg Config
	log *slog.Logger
}

func Connect(cfg Config, log *slog.Logger) (*Client, error) {
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect mysql %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Database, err)
	}
	if log == nil {
		log = slog.Default()
	}
	log.Info("connected to mysql", "host", cfg.Host, "port", cfg.Port, "database", cfg.Database)
	return &Client{db: db, cfg: cfg, log: log}, nil
}

func (c *Client) Close() error { return c.db.Close() }

// Columns returns the table's columns in declared order. A table with no
// columns in information_schema does not exist, which is an error here so
// callers can tell "absent" apart from "empty".
func (c *Client) Columns(ctx context.Context, table string) ([]schema.Column, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT COLUMN_NAME, COLUMN_TYPE, COLUMN_COMMENT, EXTRA
		FROM information_schema.COLUMNS
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION`,
		c.cfg.Database, table)
	if err != nil {
		return nil, fmt.Errorf("query columns of %s: %w", table, err)
	}
	defer rows.Close()

	var cols []schema.Column
	for rows.Next() {
		var name, rawType string
		var comment, extra sql.NullString
		if err := rows.Scan(&name, &rawType, &comment, &extra); err != nil {
			return nil, fmt.Errorf("scan column of %s: %w", table, err)
		}
		cols = append(cols, schema.Column{
			Name:    name,
			RawType: rawType,
			Comment: comment.String,
			AutoInc: strings.Contains(strings.ToLower(extra.String), "auto_increment"),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns of %s: %w", table, err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("table %s not found in database %s", table, c.cfg.Database)
	}
	return cols, nil
}

// TableComment never fails: the comment is cosmetic, so a failed lookup is
// logged and reported as empty.
func (c *Client) TableComment(ctx context.Context, table string) (string, error) {
	var comment sql.NullString
	err := c.db.QueryRowContext(ctx, `
		SELECT TABLE_COMMENT
		FROM information_schema.TABLES
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?`,
		c.cfg.Database, table).Scan(&comment)
	if err != nil {
		c.log.Warn("could not read table comment", "table", table, "err", err)
		return "", nil
	}
	return comment.String, nil
}

func (c *Client) RowCount(ctx context.Context, table string) (int64, error) {
	var n int64
	err := c.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM `%s`", table)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count rows of %s: %w", table, err)
	}
	return n, nil
}

// StreamRows selects the named columns and hands each row to fn in result
// order. The driver streams the result set, so memory stays bounded by
// whatever the caller accumulates.
func (c *Client) StreamRows(ctx context.Context, table string, columns []string, fn func(row []any) error) error {
	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = "`" + col + "`"
	}
	query := fmt.Sprintf("SELECT %s FROM `%s`", strings.Join(quoted, ", "), table)

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("query rows of %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return fmt.Errorf("scan row of %s: %w", table, err)
		}
		if err := fn(values); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Exec runs a write statement on the source database. Only the seeder uses
// this; the migration path never writes to MySQL.
func (c *Client) Exec(ctx context.Context, query string, args ...any) error {
	_, err := c.db.ExecContext(ctx, query, args...)
	return err
}
