package schema

import (
	"time"

	"mysql2ch/internal/typemap"
)

// Column is one source column as reported by information_schema,
// in declared order.
type Column struct {
	Name    string
	RawType string // COLUMN_TYPE, parameters included (e.g. "decimal(10,2)")
	Comment string
	AutoInc bool
}

// TargetColumn is one column of the ClickHouse table being created.
type TargetColumn struct {
	Name    string
	Type    typemap.TargetType
	Comment string
}

// State tracks where a table migration got to before it finished.
type State int

const (
	StatePending State = iota
	StateSchemaValidated
	StateTargetPrepared
	StateStreaming
	StateVerified
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateSchemaValidated:
		return "schema-validated"
	case StateTargetPrepared:
		return "target-prepared"
	case StateStreaming:
		return "streaming"
	case StateVerified:
		return "verified"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// MigrationResult is the outcome record for one table migration attempt.
// Immutable once returned; the run collects one per mapping file.
type MigrationResult struct {
	SourceTable string
	TargetTable string
	State       State
	Success     bool
	SourceRows  int64
	TargetRows  int64
	ErrorMsg    string
	Elapsed     time.Duration
}
