package engine

import "fmt"

// ConnectionError means a source or target connection could not be
// established. It is fatal to the whole run; nothing per-table can recover
// from it.
type ConnectionError struct {
	System string // "mysql" or "clickhouse"
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s connection failed: %v", e.System, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// SchemaError means source metadata for one table could not be read (table
// absent, introspection query failed). Fatal to that table only.
type SchemaError struct {
	Table string
	Err   error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("source schema of %s unreadable: %v", e.Table, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// SchemaCreationError means the target DDL was rejected, or no columns were
// mapped at all. Fatal to that table only.
type SchemaCreationError struct {
	Table string
	Err   error
}

func (e *SchemaCreationError) Error() string {
	return fmt.Sprintf("create target table %s: %v", e.Table, e.Err)
}

func (e *SchemaCreationError) Unwrap() error { return e.Err }

// BatchInsertError means a bulk insert was rejected even after the bounded
// single-row diagnostic pass. Fatal to that table; rows from earlier
// batches of the same table stay in place (no rollback).
type BatchInsertError struct {
	Table string
	Rows  int
	Err   error
}

func (e *BatchInsertError) Error() string {
	return fmt.Sprintf("bulk insert of %d rows into %s failed: %v", e.Rows, e.Table, e.Err)
}

func (e *BatchInsertError) Unwrap() error { return e.Err }
