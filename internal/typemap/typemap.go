package typemap

import "strings"

// Family tags the ClickHouse side of a mapped type so value conversion
// can switch exhaustively instead of re-matching type name strings per cell.
type Family int

const (
	String Family = iota
	Int
	Float
	Decimal
	Bool
	Date
	DateTime
)

func (f Family) String() string {
	switch f {
	case String:
		return "string"
	case Int:
		return "int"
	case Float:
		return "float"
	case Decimal:
		return "decimal"
	case Bool:
		return "bool"
	case Date:
		return "date"
	case DateTime:
		return "datetime"
	}
	return "unknown"
}

// TargetType is a ClickHouse column type plus its conversion family.
type TargetType struct {
	Name   string
	Family Family
}

var baseTypes = map[string]TargetType{
	"TINYINT":            {"Int8", Int},
	"TINYINT UNSIGNED":   {"UInt8", Int},
	"SMALLINT":           {"Int16", Int},
	"SMALLINT UNSIGNED":  {"UInt16", Int},
	"MEDIUMINT":          {"Int32", Int},
	"MEDIUMINT UNSIGNED": {"UInt32", Int},
	"INT":                {"Int32", Int},
	"INTEGER":            {"Int32", Int},
	"INT UNSIGNED":       {"UInt32", Int},
	"INTEGER UNSIGNED":   {"UInt32", Int},
	"BIGINT":             {"Int64", Int},
	"BIGINT UNSIGNED":    {"UInt64", Int},
	"YEAR":               {"Int16", Int},
	"FLOAT":              {"Float32", Float},
	"DOUBLE":             {"Float64", Float},
	"DECIMAL":            {"Decimal", Decimal},
	"DECIMAL UNSIGNED":   {"Decimal", Decimal},
	"CHAR":               {"String", String},
	"VARCHAR":            {"String", String},
	"TINYTEXT":           {"String", String},
	"TEXT":               {"String", String},
	"MEDIUMTEXT":         {"String", String},
	"LONGTEXT":           {"String", String},
	"BINARY":             {"String", String},
	"VARBINARY":          {"String", String},
	"TINYBLOB":           {"String", String},
	"BLOB":               {"String", String},
	"MEDIUMBLOB":         {"String", String},
	"LONGBLOB":           {"String", String},
	"DATE":               {"Date32", Date},
	"TIME":               {"DateTime64(6)", DateTime},
	"DATETIME":           {"DateTime64(6)", DateTime},
	"TIMESTAMP":          {"DateTime64(6)", DateTime},
	"ENUM":               {"LowCardinality(String)", String},
	"SET":                {"String", String},
	"JSON":               {"String", String},
	"GEOMETRY":           {"String", String},
	"POINT":              {"String", String},
	"LINESTRING":         {"String", String},
	"POLYGON":            {"String", String},
}

// Map translates a MySQL column type, as reported by information_schema
// COLUMN_TYPE (e.g. "varchar(50)", "int unsigned", "decimal(10,2)"), into
// the ClickHouse type used on the target side. Map is total: anything it
// does not recognize becomes String.
func Map(mysqlType string) TargetType {
	trimmed := strings.TrimSpace(mysqlType)
	upper := strings.ToUpper(trimmed)

	// tinyint(1) is MySQL's boolean convention; must be checked before
	// parameters are stripped or it collapses into plain TINYINT.
	if strings.HasPrefix(upper, "TINYINT(1)") {
		return TargetType{"Bool", Bool}
	}

	base := upper
	params := ""
	if i := strings.IndexByte(upper, '('); i >= 0 {
		if j := strings.IndexByte(upper, ')'); j > i {
			params = strings.TrimSpace(trimmed[i+1 : j])
			base = strings.TrimSpace(upper[:i]) + upper[j+1:]
		} else {
			base = strings.TrimSpace(upper[:i])
		}
	}
	base = strings.Join(strings.Fields(base), " ")

	t, ok := baseTypes[base]
	if !ok {
		return TargetType{"String", String}
	}
	// Decimal keeps the original (precision,scale) text verbatim.
	if t.Family == Decimal && params != "" {
		return TargetType{"Decimal(" + params + ")", Decimal}
	}
	return t
}
