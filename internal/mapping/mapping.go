package mapping

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FormatError reports a mapping file that cannot be used: a file name that
// does not encode a table pair, a missing header column, or malformed CSV.
type FormatError struct {
	File   string
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("mapping file %s: %s: %v", e.File, e.Reason, e.Err)
	}
	return fmt.Sprintf("mapping file %s: %s", e.File, e.Reason)
}

func (e *FormatError) Unwrap() error { return e.Err }

// FieldMapping renames one source field on its way into the target table.
type FieldMapping struct {
	Source string
	Target string
}

// TableMapping is one migration unit: a source/target table pair and the
// field renames between them. Field order follows the mapping file, but the
// engine always applies fields in source column order, so only membership
// and the rename matter here.
type TableMapping struct {
	SourceTable string
	TargetTable string
	Fields      []FieldMapping

	index map[string]string
}

// Target returns the target field name for a source field.
func (m *TableMapping) Target(sourceField string) (string, bool) {
	t, ok := m.index[sourceField]
	return t, ok
}

// Header names accepted for the two columns. "mysql"/"clickhouse" is the
// dictionary format the rename tooling emits; "source"/"target" is allowed
// as the semantic equivalent.
var (
	sourceHeaders = map[string]bool{"mysql": true, "source": true}
	targetHeaders = map[string]bool{"clickhouse": true, "target": true}
)

// LoadFile parses one mapping CSV. The file stem encodes the table pair as
// <sourceTable>-<targetTable>; the split happens at the first dash.
func LoadFile(path string) (*TableMapping, error) {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	src, dst, ok := strings.Cut(stem, "-")
	if !ok || src == "" || dst == "" {
		return nil, &FormatError{File: base, Reason: "file name does not encode a <source>-<target> table pair"}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &FormatError{File: base, Reason: "cannot open", Err: err}
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, &FormatError{File: base, Reason: "cannot read header", Err: err}
	}

	srcIdx, dstIdx := -1, -1
	for i, name := range header {
		switch n := strings.ToLower(strings.TrimSpace(name)); {
		case sourceHeaders[n]:
			srcIdx = i
		case targetHeaders[n]:
			dstIdx = i
		}
	}
	if srcIdx < 0 {
		return nil, &FormatError{File: base, Reason: `required column "mysql" not found in header`}
	}
	if dstIdx < 0 {
		return nil, &FormatError{File: base, Reason: `required column "clickhouse" not found in header`}
	}

	tm := &TableMapping{
		SourceTable: src,
		TargetTable: dst,
		index:       make(map[string]string),
	}
	for {
		record, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, &FormatError{File: base, Reason: "malformed record", Err: err}
		}
		if srcIdx >= len(record) || dstIdx >= len(record) {
			return nil, &FormatError{File: base, Reason: "record is missing a mapped column"}
		}
		sf := strings.TrimSpace(record[srcIdx])
		tf := strings.TrimSpace(record[dstIdx])
		if sf == "" {
			continue
		}
		if _, dup := tm.index[sf]; dup {
			// Last entry wins, same as the dictionary the file came from.
			for i := range tm.Fields {
				if tm.Fields[i].Source == sf {
					tm.Fields[i].Target = tf
				}
			}
		} else {
			tm.Fields = append(tm.Fields, FieldMapping{Source: sf, Target: tf})
		}
		tm.index[sf] = tf
	}
	return tm, nil
}

// LoadDir lists the mapping CSV files in dir, sorted by name so runs are
// deterministic.
func LoadDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read mapping dir %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}
