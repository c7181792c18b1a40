package coerce_test

import (
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"mysql2ch/internal/coerce"
	"mysql2ch/internal/typemap"
)

func newCoercer() *coerce.Coercer {
	return coerce.New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

var (
	intType      = typemap.TargetType{Name: "Int32", Family: typemap.Int}
	floatType    = typemap.TargetType{Name: "Float64", Family: typemap.Float}
	decimalType  = typemap.TargetType{Name: "Decimal(10,2)", Family: typemap.Decimal}
	boolType     = typemap.TargetType{Name: "Bool", Family: typemap.Bool}
	dateType     = typemap.TargetType{Name: "Date32", Family: typemap.Date}
	datetimeType = typemap.TargetType{Name: "DateTime64(6)", Family: typemap.DateTime}
	stringType   = typemap.TargetType{Name: "String", Family: typemap.String}
)

func TestCoerceNullDefaults(t *testing.T) {
	c := newCoercer()
	sentinel := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		typ  typemap.TargetType
		want any
	}{
		{"int", intType, int64(0)},
		{"float", floatType, float64(0)},
		{"bool", boolType, false},
		{"date", dateType, sentinel},
		{"datetime", datetimeType, sentinel},
		{"string", stringType, ""},
	}
	for _, tc := range cases {
		if got := c.Coerce("f", nil, tc.typ); got != tc.want {
			t.Errorf("Coerce(nil, %s) = %v, want %v", tc.name, got, tc.want)
		}
	}

	d := c.Coerce("f", nil, decimalType)
	if dd, ok := d.(decimal.Decimal); !ok || !dd.IsZero() {
		t.Errorf("Coerce(nil, decimal) = %v, want zero decimal", d)
	}
}

func TestCoerceInt(t *testing.T) {
	c := newCoercer()
	cases := []struct {
		in   any
		want int64
	}{
		{int64(42), 42},
		{float64(3.9), 3},
		{"3.0", 3},
		{"  17 ", 17},
		{[]byte("25"), 25},
		{"not-a-number", 0},
		{"", 0},
		{true, 1},
	}
	for _, tc := range cases {
		if got := c.Coerce("f", tc.in, intType); got != tc.want {
			t.Errorf("Coerce(%v, int) = %v, want %d", tc.in, got, tc.want)
		}
	}
}

func TestCoerceFloat(t *testing.T) {
	c := newCoercer()
	cases := []struct {
		in   any
		want float64
	}{
		{float64(2.5), 2.5},
		{int64(7), 7},
		{"1.25", 1.25},
		{[]byte("0.5"), 0.5},
		{"not-a-number", 0},
	}
	for _, tc := range cases {
		if got := c.Coerce("f", tc.in, floatType); got != tc.want {
			t.Errorf("Coerce(%v, float) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestCoerceDecimal(t *testing.T) {
	c := newCoercer()

	got := c.Coerce("f", []byte("12.34"), decimalType)
	want := decimal.RequireFromString("12.34")
	if d, ok := got.(decimal.Decimal); !ok || !d.Equal(want) {
		t.Errorf("Coerce([]byte(12.34), decimal) = %v, want %v", got, want)
	}

	got = c.Coerce("f", "garbage", decimalType)
	if d, ok := got.(decimal.Decimal); !ok || !d.IsZero() {
		t.Errorf("Coerce(garbage, decimal) = %v, want zero", got)
	}
}

func TestCoerceBool(t *testing.T) {
	c := newCoercer()
	cases := []struct {
		in   any
		want bool
	}{
		{true, true},
		{int64(0), false},
		{int64(2), true},
		{"true", true},
		{"TRUE", true},
		{"1", true},
		{"yes", true},
		{"on", true},
		{"no", false},
		{"off", false},
		{"anything else", false},
		{[]byte("Yes"), true},
	}
	for _, tc := range cases {
		if got := c.Coerce("f", tc.in, boolType); got != tc.want {
			t.Errorf("Coerce(%v, bool) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestCoerceDateTime(t *testing.T) {
	c := newCoercer()
	sentinel := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

	native := time.Date(2023, 6, 15, 10, 30, 0, 0, time.UTC)
	if got := c.Coerce("f", native, datetimeType); got != native {
		t.Errorf("native time.Time should pass through, got %v", got)
	}

	cases := []struct {
		in   string
		want time.Time
	}{
		{"2023-06-15 10:30:00", time.Date(2023, 6, 15, 10, 30, 0, 0, time.UTC)},
		{"2023-06-15 10:30:00.500000", time.Date(2023, 6, 15, 10, 30, 0, 500000000, time.UTC)},
		{"2023-06-15", time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC)},
		{"15/06/2023", sentinel},
		{"garbage", sentinel},
	}
	for _, tc := range cases {
		got := c.Coerce("f", tc.in, datetimeType)
		if ts, ok := got.(time.Time); !ok || !ts.Equal(tc.want) {
			t.Errorf("Coerce(%q, datetime) = %v, want %v", tc.in, got, tc.want)
		}
	}

	if got := c.Coerce("f", "2023-06-15", dateType); got.(time.Time) != time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC) {
		t.Errorf("Coerce(2023-06-15, date) = %v", got)
	}
	if got := c.Coerce("f", int64(5), dateType); got.(time.Time) != sentinel {
		t.Errorf("Coerce(int, date) = %v, want sentinel", got)
	}
}

func TestCoerceString(t *testing.T) {
	c := newCoercer()

	if got := c.Coerce("f", "hello", stringType); got != "hello" {
		t.Errorf("Coerce(hello, string) = %v", got)
	}
	if got := c.Coerce("f", []byte("bytes"), stringType); got != "bytes" {
		t.Errorf("Coerce(bytes, string) = %v", got)
	}
	if got := c.Coerce("f", int64(42), stringType); got != "42" {
		t.Errorf("Coerce(42, string) = %v, want stringified", got)
	}
}

func TestSanitizeStripsControlCharacters(t *testing.T) {
	in := "a\x00b\x01c\td\ne\rf"
	got, ok := coerce.Sanitize(in)
	if !ok {
		t.Fatal("Sanitize rejected valid input")
	}
	if got != "abc\td\ne\rf" {
		t.Errorf("Sanitize(%q) = %q", in, got)
	}
}

func TestSanitizeBoundsLength(t *testing.T) {
	// NUL byte plus 1200 printable characters: NUL removed, length capped.
	in := "x\x00" + strings.Repeat("y", 1200)
	got, ok := coerce.Sanitize(in)
	if !ok {
		t.Fatal("Sanitize rejected valid input")
	}
	if strings.ContainsRune(got, 0) {
		t.Error("Sanitize kept a NUL byte")
	}
	if len([]rune(got)) > coerce.MaxStringLen {
		t.Errorf("Sanitize output length = %d, want <= %d", len([]rune(got)), coerce.MaxStringLen)
	}
}

func TestSanitizeRejectsInvalidUTF8(t *testing.T) {
	got, ok := coerce.Sanitize(string([]byte{0xff, 0xfe, 'a'}))
	if ok || got != "" {
		t.Errorf("Sanitize(invalid utf8) = (%q, %v), want (\"\", false)", got, ok)
	}
}
