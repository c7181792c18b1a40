// Package target manages the ClickHouse side of a migration: table
// lifecycle and bulk row insertion over the native protocol.
package target

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	clickhouse "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"mysql2ch/internal/schema"
)

type Config struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

type Client struct {
	conn driver.Conn
	cfg  Config
	log  *slog.Logger
}

func Connect(ctx context.Context, cfg Config, log *slog.Logger) (*Client, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("connect clickhouse %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Database, err)
	}
	if log == nil {
		log = slog.Default()
	}
	log.Info("connected to clickhouse", "host", cfg.Host, "port", cfg.Port, "database", cfg.Database)
	return &Client{conn: conn, cfg: cfg, log: log}, nil
}

func (c *Client) Close() error { return c.conn.Close() }

// Exists never errors. A failed existence check is logged and reported as
// false: attempting creation and failing loudly beats silently skipping a
// table.
func (c *Client) Exists(ctx context.Context, table string) bool {
	var exists uint8
	err := c.conn.QueryRow(ctx, fmt.Sprintf("EXISTS TABLE `%s`", table)).Scan(&exists)
	if err != nil {
		c.log.Warn("table existence check failed", "table", table, "err", err)
		return false
	}
	return exists == 1
}

// Drop is idempotent; dropping an absent table is not an error.
func (c *Client) Drop(ctx context.Context, table string) error {
	if err := c.conn.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS `%s`", table)); err != nil {
		return fmt.Errorf("drop table %s: %w", table, err)
	}
	return nil
}

// CreateStatement builds the DDL for a migrated table. The first column in
// the list becomes the MergeTree ordering key; that the first mapped source
// column is a sensible key is assumed, not validated.
func CreateStatement(table string, columns []schema.TargetColumn, tableComment string) (string, error) {
	if len(columns) == 0 {
		return "", fmt.Errorf("table %s has no mapped columns", table)
	}

	defs := make([]string, len(columns))
	for i, col := range columns {
		if col.Comment != "" {
			defs[i] = fmt.Sprintf("`%s` %s COMMENT '%s'", col.Name, col.Type.Name, escapeComment(col.Comment))
		} else {
			defs[i] = fmt.Sprintf("`%s` %s", col.Name, col.Type.Name)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE `%s` (\n    %s\n) ENGINE = MergeTree()\nORDER BY `%s`",
		table, strings.Join(defs, ",\n    "), columns[0].Name)
	if tableComment != "" {
		fmt.Fprintf(&b, "\nCOMMENT '%s'", escapeComment(tableComment))
	}
	return b.String(), nil
}

func escapeComment(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

func (c *Client) Create(ctx context.Context, table string, columns []schema.TargetColumn, tableComment string) error {
	stmt, err := CreateStatement(table, columns, tableComment)
	if err != nil {
		return err
	}
	if err := c.conn.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}
	c.log.Info("created table", "table", table, "columns", len(columns), "order_by", columns[0].Name)
	return nil
}

// InsertBatch sends one prepared batch keyed by an explicit column list.
func (c *Client) InsertBatch(ctx context.Context, table string, columns []string, rows [][]any) error {
	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = "`" + col + "`"
	}
	batch, err := c.conn.PrepareBatch(ctx,
		fmt.Sprintf("INSERT INTO `%s` (%s)", table, strings.Join(quoted, ", ")))
	if err != nil {
		return fmt.Errorf("prepare batch for %s: %w", table, err)
	}
	for _, row := range rows {
		if err := batch.Append(row...); err != nil {
			batch.Abort()
			return fmt.Errorf("append row to batch for %s: %w", table, err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch to %s: %w", table, err)
	}
	return nil
}

func (c *Client) RowCount(ctx context.Context, table string) (int64, error) {
	var n uint64
	err := c.conn.QueryRow(ctx, fmt.Sprintf("SELECT count() FROM `%s`", table)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count rows of %s: %w", table, err)
	}
	return int64(n), nil
}

// Describe returns the existing structure of a target table, for the check
// command's report.
func (c *Client) Describe(ctx context.Context, table string) ([]schema.Column, error) {
	rows, err := c.conn.Query(ctx, `
		SELECT name, type, comment
		FROM system.columns
		WHERE database = currentDatabase() AND table = ?
		ORDER BY position`, table)
	if err != nil {
		return nil, fmt.Errorf("describe table %s: %w", table, err)
	}
	defer rows.Close()

	var cols []schema.Column
	for rows.Next() {
		var name, typ, comment string
		if err := rows.Scan(&name, &typ, &comment); err != nil {
			return nil, fmt.Errorf("scan column of %s: %w", table, err)
		}
		cols = append(cols, schema.Column{Name: name, RawType: typ, Comment: comment})
	}
	return cols, rows.Err()
}
