// Package engine drives table migrations: it composes the mapping loader,
// the type mapper, the value coercer and the two database clients into a
// per-table state machine, and collects one MigrationResult per mapping
// file.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"mysql2ch/internal/coerce"
	"mysql2ch/internal/mapping"
	"mysql2ch/internal/schema"
	"mysql2ch/internal/typemap"
)

// diagnosticRows bounds the single-row retry pass after a failed bulk
// insert. It exists to name the offending row, not to recover.
const diagnosticRows = 5

// DefaultBatchSize is used when the configuration does not set one.
const DefaultBatchSize = 1000

// Source is the relational system rows and metadata are read from.
type Source interface {
	Columns(ctx context.Context, table string) ([]schema.Column, error)
	TableComment(ctx context.Context, table string) (string, error)
	RowCount(ctx context.Context, table string) (int64, error)
	StreamRows(ctx context.Context, table string, columns []string, fn func(row []any) error) error
}

// Target is the analytical store rows are written to.
type Target interface {
	Exists(ctx context.Context, table string) bool
	Drop(ctx context.Context, table string) error
	Create(ctx context.Context, table string, columns []schema.TargetColumn, tableComment string) error
	InsertBatch(ctx context.Context, table string, columns []string, rows [][]any) error
	RowCount(ctx context.Context, table string) (int64, error)
}

type Options struct {
	BatchSize    int
	AutoRecreate bool // drop and recreate an existing target table
	SkipExisting bool // report an existing target table as done, without streaming
}

type Migrator struct {
	source Source
	target Target
	coerce *coerce.Coercer
	log    *slog.Logger
	opts   Options
}

func New(src Source, tgt Target, log *slog.Logger, opts Options) *Migrator {
	if log == nil {
		log = slog.Default()
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	return &Migrator{
		source: src,
		target: tgt,
		coerce: coerce.New(log),
		log:    log,
		opts:   opts,
	}
}

// Run migrates every mapping file in order, strictly sequentially, and
// returns one result per file. Cancellation is coarse-grained: the context
// is checked between tables, never mid-batch. onTable, if set, is called
// after each table finishes.
func (m *Migrator) Run(ctx context.Context, files []string, onTable func(schema.MigrationResult)) []schema.MigrationResult {
	results := make([]schema.MigrationResult, 0, len(files))
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			m.log.Warn("run cancelled, remaining tables skipped", "remaining", len(files)-len(results))
			break
		}
		res := m.MigrateFile(ctx, file)
		results = append(results, res)
		if onTable != nil {
			onTable(res)
		}
	}
	return results
}

// MigrateFile runs the full state machine for one mapping file. Per-table
// failures are converted into a Failed result here; they never propagate.
func (m *Migrator) MigrateFile(ctx context.Context, file string) schema.MigrationResult {
	start := time.Now()

	tm, err := mapping.LoadFile(file)
	if err != nil {
		stem := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		m.log.Error("mapping file rejected", "file", file, "err", err)
		return schema.MigrationResult{
			SourceTable: stem,
			State:       schema.StateFailed,
			ErrorMsg:    err.Error(),
			Elapsed:     time.Since(start),
		}
	}

	res := m.migrateTable(ctx, tm)
	res.Elapsed = time.Since(start)
	return res
}

func (m *Migrator) migrateTable(ctx context.Context, tm *mapping.TableMapping) schema.MigrationResult {
	res := schema.MigrationResult{
		SourceTable: tm.SourceTable,
		TargetTable: tm.TargetTable,
		State:       schema.StatePending,
	}
	fail := func(err error) schema.MigrationResult {
		m.log.Error("table migration failed", "source", tm.SourceTable, "target", tm.TargetTable, "err", err)
		res.State = schema.StateFailed
		res.ErrorMsg = err.Error()
		return res
	}

	m.log.Info("migrating table", "source", tm.SourceTable, "target", tm.TargetTable)

	// Pending -> SchemaValidated: read source schema and row count. An
	// empty or absent source table is a failure by policy, not a no-op.
	srcRows, err := m.source.RowCount(ctx, tm.SourceTable)
	if err != nil {
		return fail(&SchemaError{Table: tm.SourceTable, Err: err})
	}
	res.SourceRows = srcRows
	if srcRows == 0 {
		return fail(fmt.Errorf("source table %s absent or empty", tm.SourceTable))
	}

	srcCols, err := m.source.Columns(ctx, tm.SourceTable)
	if err != nil {
		return fail(&SchemaError{Table: tm.SourceTable, Err: err})
	}
	tableComment, _ := m.source.TableComment(ctx, tm.SourceTable)
	res.State = schema.StateSchemaValidated

	// Field selection follows source column order. Source columns missing
	// from the mapping, and mapping entries with no live source column,
	// are both dropped silently.
	var srcNames []string
	var tgtCols []schema.TargetColumn
	for _, col := range srcCols {
		tgtName, ok := tm.Target(col.Name)
		if !ok {
			continue
		}
		srcNames = append(srcNames, col.Name)
		tgtCols = append(tgtCols, schema.TargetColumn{
			Name:    tgtName,
			Type:    typemap.Map(col.RawType),
			Comment: col.Comment,
		})
	}
	m.log.Debug("field mapping resolved",
		"source", tm.SourceTable, "mapped", len(tgtCols), "source_columns", len(srcCols))

	// SchemaValidated -> TargetPrepared: apply the existence policy.
	if m.target.Exists(ctx, tm.TargetTable) {
		if m.opts.SkipExisting {
			m.log.Info("target table exists, skipping", "table", tm.TargetTable)
			tgtRows, err := m.target.RowCount(ctx, tm.TargetTable)
			if err != nil {
				m.log.Warn("could not count existing target rows", "table", tm.TargetTable, "err", err)
			}
			res.TargetRows = tgtRows
			res.State = schema.StateVerified
			res.Success = true
			return res
		}
		if m.opts.AutoRecreate {
			m.log.Info("target table exists, recreating", "table", tm.TargetTable)
			if err := m.target.Drop(ctx, tm.TargetTable); err != nil {
				return fail(&SchemaCreationError{Table: tm.TargetTable, Err: err})
			}
		}
	}

	if len(tgtCols) == 0 {
		return fail(&SchemaCreationError{Table: tm.TargetTable,
			Err: fmt.Errorf("no source column matches the field mapping")})
	}
	if err := m.target.Create(ctx, tm.TargetTable, tgtCols, tableComment); err != nil {
		return fail(&SchemaCreationError{Table: tm.TargetTable, Err: err})
	}
	res.State = schema.StateTargetPrepared

	// TargetPrepared -> Streaming.
	res.State = schema.StateStreaming
	streamed, err := m.streamRows(ctx, tm, srcNames, tgtCols)
	if err != nil {
		return fail(err)
	}

	// Streaming -> Verified. A row-count mismatch is surfaced for human
	// review but does not fail the table.
	tgtRows, err := m.target.RowCount(ctx, tm.TargetTable)
	if err != nil {
		m.log.Warn("could not count target rows after streaming", "table", tm.TargetTable, "err", err)
	}
	res.TargetRows = tgtRows
	if tgtRows != srcRows {
		m.log.Warn("row counts diverge after streaming",
			"source", tm.SourceTable, "source_rows", srcRows,
			"target", tm.TargetTable, "target_rows", tgtRows)
	}
	m.log.Info("table migrated",
		"source", tm.SourceTable, "target", tm.TargetTable,
		"rows", streamed, "source_rows", srcRows, "target_rows", tgtRows)

	res.State = schema.StateVerified
	res.Success = true
	return res
}

// streamRows pulls source rows in bounded batches, coerces every cell to
// its mapped target type, and bulk-inserts each batch before fetching the
// next. Batches go out strictly in source iteration order.
func (m *Migrator) streamRows(ctx context.Context, tm *mapping.TableMapping, srcNames []string, tgtCols []schema.TargetColumn) (int64, error) {
	tgtNames := make([]string, len(tgtCols))
	types := make([]typemap.TargetType, len(tgtCols))
	for i, col := range tgtCols {
		tgtNames[i] = col.Name
		types[i] = col.Type
	}

	var total int64
	batch := make([][]any, 0, m.opts.BatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := m.target.InsertBatch(ctx, tm.TargetTable, tgtNames, batch); err != nil {
			m.diagnoseBatch(ctx, tm.TargetTable, tgtNames, batch)
			return &BatchInsertError{Table: tm.TargetTable, Rows: len(batch), Err: err}
		}
		total += int64(len(batch))
		m.log.Debug("batch inserted", "table", tm.TargetTable, "rows", len(batch), "total", total)
		batch = batch[:0]
		return nil
	}

	err := m.source.StreamRows(ctx, tm.SourceTable, srcNames, func(row []any) error {
		out := make([]any, len(row))
		for i, v := range row {
			out[i] = m.coerce.Coerce(tgtNames[i], v, types[i])
		}
		batch = append(batch, out)
		if len(batch) >= m.opts.BatchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return total, err
	}
	return total, flush()
}

// diagnoseBatch retries the first rows of a rejected batch one at a time to
// name the offending row and field values. Rows accepted here stay in the
// target; the table fails regardless, so the duplicates only matter for a
// rerun, which recreates or skips the table anyway.
func (m *Migrator) diagnoseBatch(ctx context.Context, table string, columns []string, rows [][]any) {
	n := len(rows)
	if n > diagnosticRows {
		n = diagnosticRows
	}
	m.log.Info("retrying rejected batch row by row", "table", table, "rows", n)
	for i := 0; i < n; i++ {
		if err := m.target.InsertBatch(ctx, table, columns, rows[i:i+1]); err != nil {
			m.log.Error("offending row identified", "table", table, "row", i+1, "err", err)
			for j, col := range columns {
				m.log.Error("offending row field", "row", i+1, "field", col,
					"value", fmt.Sprintf("%.100v", rows[i][j]))
			}
			return
		}
		m.log.Debug("row accepted individually", "table", table, "row", i+1)
	}
}
