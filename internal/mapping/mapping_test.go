package mapping_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"mysql2ch/internal/mapping"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "users-app_users.csv",
		"mysql,clickhouse\nid,user_id\n name , user_name \ncreated,created_at\n")

	tm, err := mapping.LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if tm.SourceTable != "users" || tm.TargetTable != "app_users" {
		t.Errorf("table pair = %s -> %s, want users -> app_users", tm.SourceTable, tm.TargetTable)
	}
	if len(tm.Fields) != 3 {
		t.Fatalf("got %d fields, want 3", len(tm.Fields))
	}
	// Whitespace around values is trimmed.
	if got, ok := tm.Target("name"); !ok || got != "user_name" {
		t.Errorf("Target(name) = (%q, %v), want user_name", got, ok)
	}
	if _, ok := tm.Target("missing"); ok {
		t.Error("Target(missing) should not resolve")
	}
}

func TestLoadFileSemanticHeaders(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a-b.csv", "source,target\nx,y\n")

	tm, err := mapping.LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := tm.Target("x"); got != "y" {
		t.Errorf("Target(x) = %q, want y", got)
	}
}

func TestLoadFileSplitsAtFirstDash(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "orders-ods-orders.csv", "mysql,clickhouse\nid,id\n")

	tm, err := mapping.LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if tm.SourceTable != "orders" || tm.TargetTable != "ods-orders" {
		t.Errorf("table pair = %s -> %s, want orders -> ods-orders", tm.SourceTable, tm.TargetTable)
	}
}

func TestLoadFileBadName(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "users.csv", "mysql,clickhouse\nid,id\n")

	_, err := mapping.LoadFile(path)
	var fe *mapping.FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("got %v, want FormatError for name without table pair", err)
	}
}

func TestLoadFileMissingColumn(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a-b.csv", "mysql,other\nid,id\n")

	_, err := mapping.LoadFile(path)
	var fe *mapping.FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("got %v, want FormatError for missing clickhouse column", err)
	}
}

func TestLoadFileDuplicateLastWins(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a-b.csv", "mysql,clickhouse\nid,first\nid,second\n")

	tm, err := mapping.LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := tm.Target("id"); got != "second" {
		t.Errorf("Target(id) = %q, want second (last entry wins)", got)
	}
	if len(tm.Fields) != 1 {
		t.Errorf("got %d fields, want 1", len(tm.Fields))
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b-b.csv", "mysql,clickhouse\n")
	writeFile(t, dir, "a-a.csv", "mysql,clickhouse\n")
	writeFile(t, dir, "notes.txt", "not a mapping")

	files, err := mapping.LoadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Fatalf("got %d files, want 2", len(files))
	}
	if filepath.Base(files[0]) != "a-a.csv" || filepath.Base(files[1]) != "b-b.csv" {
		t.Errorf("files not sorted: %v", files)
	}
}
