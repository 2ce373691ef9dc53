package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Text is a nullable free-text column.
//
// The zero value means the column was not part of the row at all: gorm never
// calls Scan for a column the result set does not carry. A column that exists
// but holds SQL NULL scans as Valid with Null set. NonText marks a value that
// arrived with a non-string type; String then holds its printed form.
type Text struct {
	String  string
	Valid   bool
	Null    bool
	NonText bool
}

// NewText builds a present textual value.
func NewText(value string) Text {
	return Text{String: value, Valid: true}
}

// NullText is a column that exists but holds no value.
func NullText() Text {
	return Text{Valid: true, Null: true}
}

// Present reports whether the column was part of the row, NULL or not.
func (t Text) Present() bool {
	return t.Valid
}

// Ptr returns the value as a string pointer, nil when absent or NULL.
func (t Text) Ptr() *string {
	if !t.Valid || t.Null {
		return nil
	}
	value := t.String
	return &value
}

// Scan implements sql.Scanner.
func (t *Text) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*t = NullText()
	case string:
		*t = Text{String: v, Valid: true}
	case []byte:
		*t = Text{String: string(v), Valid: true}
	default:
		*t = Text{String: fmt.Sprint(v), Valid: true, NonText: true}
	}
	return nil
}

// Value implements driver.Valuer.
func (t Text) Value() (driver.Value, error) {
	if !t.Valid || t.Null {
		return nil, nil
	}
	return t.String, nil
}

// GormDataType reports the column type used by gorm migrations.
func (Text) GormDataType() string {
	return "text"
}

// MarshalJSON renders absent and NULL values as null.
func (t Text) MarshalJSON() ([]byte, error) {
	if !t.Valid || t.Null {
		return []byte("null"), nil
	}
	return json.Marshal(t.String)
}

// UnmarshalJSON accepts null, strings and any other JSON scalar. An explicit
// null is a present NULL; a missing key leaves the zero (absent) value.
func (t *Text) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" || trimmed == "" {
		*t = NullText()
		return nil
	}

	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*t = Text{String: text, Valid: true}
		return nil
	}

	*t = Text{String: trimmed, Valid: true, NonText: true}
	return nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// Timestamp is a nullable, timezone-aware instant. Values that cannot be
// parsed scan as absent rather than failing the whole row.
type Timestamp struct {
	Time  time.Time
	Valid bool
}

// NewTimestamp builds a present timestamp normalised to UTC.
func NewTimestamp(t time.Time) Timestamp {
	if t.IsZero() {
		return Timestamp{}
	}
	return Timestamp{Time: t.UTC(), Valid: true}
}

// ParseTimestamp parses the formats the remote store is known to emit.
func ParseTimestamp(raw string) (Timestamp, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Timestamp{}, false
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return NewTimestamp(parsed), !parsed.IsZero()
		}
	}
	return Timestamp{}, false
}

// Ptr returns the timestamp as a pointer, nil when absent.
func (t Timestamp) Ptr() *time.Time {
	if !t.Valid {
		return nil
	}
	value := t.Time
	return &value
}

// Scan implements sql.Scanner.
func (t *Timestamp) Scan(value interface{}) error {
	switch v := value.(type) {
	case time.Time:
		*t = NewTimestamp(v)
	case string:
		*t, _ = ParseTimestamp(v)
	case []byte:
		*t, _ = ParseTimestamp(string(v))
	default:
		*t = Timestamp{}
	}
	return nil
}

// Value implements driver.Valuer.
func (t Timestamp) Value() (driver.Value, error) {
	if !t.Valid {
		return nil, nil
	}
	return t.Time.UTC(), nil
}

// GormDataType reports the column type used by gorm migrations.
func (Timestamp) GormDataType() string {
	return "timestamp"
}

// MarshalJSON renders an absent timestamp as null.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if !t.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time)
}

// UnmarshalJSON accepts null or any parseable timestamp string.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		*t = Timestamp{}
		return nil
	}
	*t, _ = ParseTimestamp(*raw)
	return nil
}
