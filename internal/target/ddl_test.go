package target_test

import (
	"strings"
	"testing"

	"mysql2ch/internal/schema"
	"mysql2ch/internal/target"
	"mysql2ch/internal/typemap"
)

func TestCreateStatement(t *testing.T) {
	cols := []schema.TargetColumn{
		{Name: "user_id", Type: typemap.TargetType{Name: "Int32", Family: typemap.Int}, Comment: "主键"},
		{Name: "user_name", Type: typemap.TargetType{Name: "String", Family: typemap.String}},
		{Name: "balance", Type: typemap.TargetType{Name: "Decimal(10,2)", Family: typemap.Decimal}},
	}

	stmt, err := target.CreateStatement("app_users", cols, "user accounts")
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{
		"CREATE TABLE `app_users`",
		"`user_id` Int32 COMMENT '主键'",
		"`user_name` String",
		"`balance` Decimal(10,2)",
		"ENGINE = MergeTree()",
		"ORDER BY `user_id`",
		"COMMENT 'user accounts'",
	} {
		if !strings.Contains(stmt, want) {
			t.Errorf("statement missing %q:\n%s", want, stmt)
		}
	}
}

// The first mapped column is always the ordering key, whatever it is.
func TestCreateStatementOrderByFirstColumn(t *testing.T) {
	cols := []schema.TargetColumn{
		{Name: "note", Type: typemap.TargetType{Name: "String", Family: typemap.String}},
		{Name: "id", Type: typemap.TargetType{Name: "Int64", Family: typemap.Int}},
	}
	stmt, err := target.CreateStatement("t", cols, "")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stmt, "ORDER BY `note`") {
		t.Errorf("ordering key should be the first column:\n%s", stmt)
	}
	if strings.Contains(stmt, "COMMENT ''") {
		t.Errorf("empty table comment should be omitted:\n%s", stmt)
	}
}

func TestCreateStatementNoColumns(t *testing.T) {
	if _, err := target.CreateStatement("t", nil, ""); err == nil {
		t.Fatal("expected error for a table with no mapped columns")
	}
}

func TestCreateStatementEscapesComments(t *testing.T) {
	cols := []schema.TargetColumn{
		{Name: "a", Type: typemap.TargetType{Name: "String", Family: typemap.String}, Comment: "it's quoted"},
	}
	stmt, err := target.CreateStatement("t", cols, "")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stmt, `it\'s quoted`) {
		t.Errorf("single quote not escaped:\n%s", stmt)
	}
}
