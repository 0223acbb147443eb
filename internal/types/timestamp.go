package types

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// zonelessLayouts are accepted when a server sends local date-times
// without an offset (e.g. "2024-03-01T09:15:00.123").
var zonelessLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// Timestamp is a server-assigned point in time. It tolerates both
// RFC 3339 and zone-less ISO 8601 on the wire, and always encodes as
// RFC 3339 in UTC.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t, truncated to microseconds so it survives a
// round trip through either database.
func NewTimestamp(t time.Time) *Timestamp {
	return &Timestamp{Time: t.UTC().Truncate(time.Microsecond)}
}

// ParseTimestamp parses RFC 3339 first, then the zone-less layouts
// (interpreted as UTC).
func ParseTimestamp(s string) (Timestamp, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return Timestamp{Time: t}, nil
	}
	for _, layout := range zonelessLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return Timestamp{Time: t}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("ParseTimestamp: unsupported format %q", s)
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(ts.UTC().Format(time.RFC3339Nano))
}

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("Timestamp: %w", err)
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*ts = parsed
	return nil
}

// Scan implements sql.Scanner. SQLite may hand back either a time.Time
// (DATETIME columns) or the stored text.
func (ts *Timestamp) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		ts.Time = v
		return nil
	case string:
		return ts.scanText(v)
	case []byte:
		return ts.scanText(string(v))
	case nil:
		ts.Time = time.Time{}
		return nil
	default:
		return fmt.Errorf("Timestamp: cannot scan %T", src)
	}
}

func (ts *Timestamp) scanText(s string) error {
	// go-sqlite3 writes time.Time values using this layout.
	if t, err := time.Parse("2006-01-02 15:04:05.999999999-07:00", s); err == nil {
		ts.Time = t
		return nil
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*ts = parsed
	return nil
}

// Value implements driver.Valuer.
func (ts Timestamp) Value() (driver.Value, error) {
	return ts.UTC(), nil
}
