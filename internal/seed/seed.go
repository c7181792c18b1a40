// Package seed fills a source MySQL table with fake rows so a migration
// can be exercised end to end without production data.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"mysql2ch/internal/schema"
	"mysql2ch/internal/source"
)

const insertChunk = 100

// Fill inserts n fake rows into table, generating values from the
// introspected column types. Auto-increment columns are left to the server.
// Returns the number of rows actually inserted.
func Fill(ctx context.Context, src *source.Client, table string, n int, log *slog.Logger) (int, error) {
	if log == nil {
		log = slog.Default()
	}
	cols, err := src.Columns(ctx, table)
	if err != nil {
		return 0, err
	}

	var insertCols []schema.Column
	var names []string
	for _, c := range cols {
		if c.AutoInc {
			continue
		}
		insertCols = append(insertCols, c)
		names = append(names, "`"+c.Name+"`")
	}
	if len(insertCols) == 0 {
		return 0, fmt.Errorf("table %s has no insertable columns", table)
	}

	rowPlaceholder := "(" + strings.TrimSuffix(strings.Repeat("?,", len(insertCols)), ",") + ")"
	inserted := 0

	for inserted < n {
		chunk := n - inserted
		if chunk > insertChunk {
			chunk = insertChunk
		}
		args := make([]any, 0, chunk*len(insertCols))
		for i := 0; i < chunk; i++ {
			for _, c := range insertCols {
				args = append(args, valueFor(c))
			}
		}
		query := fmt.Sprintf("INSERT INTO `%s` (%s) VALUES %s",
			table, strings.Join(names, ", "),
			strings.TrimSuffix(strings.Repeat(rowPlaceholder+",", chunk), ","))
		if err := src.Exec(ctx, query, args...); err != nil {
			return inserted, fmt.Errorf("seed %s: %w", table, err)
		}
		inserted += chunk
		log.Debug("seeded chunk", "table", table, "rows", inserted)
	}
	return inserted, nil
}

// valueFor picks a generator from the raw column type, with a few
// name-based overrides so common columns get plausible data.
func valueFor(c schema.Column) any {
	rawType := strings.ToLower(c.RawType)
	name := strings.ToLower(c.Name)

	if strings.HasPrefix(rawType, "enum(") || strings.HasPrefix(rawType, "set(") {
		if opts := enumOptions(c.RawType); len(opts) > 0 {
			return gofakeit.RandomString(opts)
		}
		return ""
	}

	switch {
	case strings.HasPrefix(rawType, "tinyint(1)"):
		return gofakeit.Bool()
	case strings.Contains(rawType, "bigint"):
		return gofakeit.Number(1, 1_000_000_000)
	case strings.Contains(rawType, "int"):
		return gofakeit.Number(1, 10_000)
	case strings.Contains(rawType, "decimal"), strings.Contains(rawType, "float"),
		strings.Contains(rawType, "double"):
		return gofakeit.Float64Range(0, 10_000)
	case strings.HasPrefix(rawType, "date") && !strings.HasPrefix(rawType, "datetime"):
		return gofakeit.DateRange(
			time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)).Format("2006-01-02")
	case strings.Contains(rawType, "datetime"), strings.Contains(rawType, "timestamp"):
		return gofakeit.DateRange(
			time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)).Format("2006-01-02 15:04:05")
	case strings.Contains(rawType, "year"):
		return gofakeit.Number(2000, 2025)
	case strings.Contains(rawType, "text"), strings.Contains(rawType, "blob"):
		return gofakeit.Sentence(10)
	}

	limit := charLength(rawType)
	switch {
	case strings.Contains(name, "email"):
		return truncate(gofakeit.Email(), limit)
	case strings.Contains(name, "phone"):
		return truncate(gofakeit.Phone(), limit)
	case strings.Contains(name, "name"):
		return truncate(gofakeit.Name(), limit)
	case strings.Contains(name, "city"):
		return truncate(gofakeit.City(), limit)
	case strings.Contains(name, "url"), strings.Contains(name, "link"):
		return truncate(gofakeit.URL(), limit)
	}
	if limit > 0 && limit < 12 {
		return gofakeit.LetterN(uint(limit))
	}
	return truncate(gofakeit.Sentence(3), limit)
}

// enumOptions parses the quoted values out of enum('a','b') / set('a','b').
func enumOptions(rawType string) []string {
	open := strings.IndexByte(rawType, '(')
	end := strings.LastIndexByte(rawType, ')')
	if open < 0 || end <= open {
		return nil
	}
	var opts []string
	for _, part := range strings.Split(rawType[open+1:end], ",") {
		opts = append(opts, strings.Trim(strings.TrimSpace(part), "'"))
	}
	return opts
}

func charLength(rawType string) int {
	open := strings.IndexByte(rawType, '(')
	end := strings.IndexByte(rawType, ')')
	if open < 0 || end <= open {
		return 0
	}
	n, err := strconv.Atoi(rawType[open+1 : end])
	if err != nil {
		return 0
	}
	return n
}

func truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) > limit {
		return string(runes[:limit])
	}
	return s
}
