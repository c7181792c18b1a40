// Package coerce converts raw MySQL row values into values the ClickHouse
// driver accepts for the mapped column type. Conversion is total: NULLs and
// unparseable inputs degrade to a fixed default per type family, and every
// degradation is reported through the injected logger rather than as an
// error.
package coerce

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"mysql2ch/internal/typemap"
)

// MaxStringLen bounds every string value sent to the target. Longer values
// are truncated; this is a lossy payload safeguard, not a business rule.
const MaxStringLen = 1000

var (
	sentinelDate     = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	sentinelDateTime = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
)

// Accepted textual date/time layouts, tried in order; first match wins.
var datetimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999",
	"2006-01-02",
}

type Coercer struct {
	log *slog.Logger
}

func New(log *slog.Logger) *Coercer {
	if log == nil {
		log = slog.Default()
	}
	return &Coercer{log: log}
}

// Default returns the sentinel value substituted for NULL or unparseable
// input for the given target type.
func Default(t typemap.TargetType) any {
	switch t.Family {
	case typemap.Int:
		return int64(0)
	case typemap.Float:
		return float64(0)
	case typemap.Decimal:
		return decimal.Zero
	case typemap.Bool:
		return false
	case typemap.Date:
		return sentinelDate
	case typemap.DateTime:
		return sentinelDateTime
	case typemap.String:
		return ""
	}
	return ""
}

// Coerce converts one cell. field is only used for diagnostics.
func (c *Coercer) Coerce(field string, value any, t typemap.TargetType) any {
	if value == nil {
		return Default(t)
	}

	switch t.Family {
	case typemap.Int:
		return c.toInt(field, value, t)
	case typemap.Float:
		return c.toFloat(field, value, t)
	case typemap.Decimal:
		return c.toDecimal(field, value, t)
	case typemap.Bool:
		return toBool(value)
	case typemap.Date, typemap.DateTime:
		return c.toTime(field, value, t)
	case typemap.String:
		return c.toString(field, value)
	}
	return c.toString(field, value)
}

func (c *Coercer) toInt(field string, value any, t typemap.TargetType) int64 {
	switch v := value.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case uint64:
		return int64(v)
	case float64:
		return int64(v)
	case float32:
		return int64(v)
	case bool:
		if v {
			return 1
		}
		return 0
	case []byte:
		return c.parseInt(field, string(v), t)
	case string:
		return c.parseInt(field, v, t)
	}
	c.degraded(field, value, t)
	return 0
}

// parseInt goes through float so decimal-looking strings like "3.0" still
// land on an integer target.
func (c *Coercer) parseInt(field, s string, t typemap.TargetType) int64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		c.degraded(field, s, t)
		return 0
	}
	return int64(f)
}

func (c *Coercer) toFloat(field string, value any, t typemap.TargetType) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int:
		return float64(v)
	case uint64:
		return float64(v)
	case []byte:
		return c.parseFloat(field, string(v), t)
	case string:
		return c.parseFloat(field, v, t)
	}
	c.degraded(field, value, t)
	return 0
}

func (c *Coercer) parseFloat(field, s string, t typemap.TargetType) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		c.degraded(field, s, t)
		return 0
	}
	return f
}

func (c *Coercer) toDecimal(field string, value any, t typemap.TargetType) decimal.Decimal {
	switch v := value.(type) {
	case decimal.Decimal:
		return v
	case float64:
		return decimal.NewFromFloat(v)
	case float32:
		return decimal.NewFromFloat32(v)
	case int64:
		return decimal.NewFromInt(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case []byte:
		return c.parseDecimal(field, string(v), t)
	case string:
		return c.parseDecimal(field, v, t)
	}
	c.degraded(field, value, t)
	return decimal.Zero
}

func (c *Coercer) parseDecimal(field, s string, t typemap.TargetType) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		c.degraded(field, s, t)
		return decimal.Zero
	}
	return d
}

// toBool never degrades: anything that is not recognizably true is false,
// which is the documented behavior rather than a fallback.
func toBool(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case int64:
		return v != 0
	case int:
		return v != 0
	case uint64:
		return v != 0
	case float64:
		return v != 0
	case []byte:
		return boolString(string(v))
	case string:
		return boolString(v)
	}
	return false
}

func boolString(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on":
		return true
	}
	return false
}

func (c *Coercer) toTime(field string, value any, t typemap.TargetType) time.Time {
	switch v := value.(type) {
	case time.Time:
		return v
	case []byte:
		return c.parseTime(field, string(v), t)
	case string:
		return c.parseTime(field, v, t)
	}
	c.degraded(field, value, t)
	return Default(t).(time.Time)
}

func (c *Coercer) parseTime(field, s string, t typemap.TargetType) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range datetimeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts
		}
	}
	c.degraded(field, s, t)
	return Default(t).(time.Time)
}

func (c *Coercer) toString(field string, value any) string {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		s = fmt.Sprintf("%v", v)
	}
	clean, ok := Sanitize(s)
	if !ok {
		c.log.Warn("string value failed sanitization, replaced with empty string",
			"field", field, "value", preview(s))
	}
	return clean
}

// Sanitize strips control characters (except tab, newline and carriage
// return), rejects byte sequences that are not valid UTF-8, and truncates
// to MaxStringLen characters. The second return value is false when the
// input had to be dropped entirely.
func Sanitize(s string) (string, bool) {
	if s == "" {
		return "", true
	}
	if !utf8.ValidString(s) {
		return "", false
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= 0x20 || r == '\t' || r == '\n' || r == '\r' {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if runes := []rune(out); len(runes) > MaxStringLen {
		out = string(runes[:MaxStringLen])
	}
	return out, true
}

func (c *Coercer) degraded(field string, value any, t typemap.TargetType) {
	c.log.Warn("value degraded to type default",
		"field", field,
		"value", preview(fmt.Sprintf("%v", value)),
		"target", t.Name,
		"default", fmt.Sprintf("%v", Default(t)))
}

func preview(s string) string {
	if len(s) > 80 {
		return s[:80] + "..."
	}
	return s
}
