package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// TimeWindow is a half-open [start, end) range expressed as "HH:MM".
type TimeWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// WeeklyAvailability maps a lowercase weekday ("monday") to its declared windows.
// An empty value means no availability data was declared.
type WeeklyAvailability map[string][]TimeWindow

// Declared reports whether any window exists on any day.
func (a WeeklyAvailability) Declared() bool {
	for _, windows := range a {
		if len(windows) > 0 {
			return true
		}
	}
	return false
}

// Windows returns the declared windows for a weekday.
func (a WeeklyAvailability) Windows(day string) []TimeWindow {
	if a == nil {
		return nil
	}
	return a[strings.ToLower(strings.TrimSpace(day))]
}

// Value encodes availability as JSON for JSONB columns.
func (a WeeklyAvailability) Value() (driver.Value, error) {
	if a == nil {
		return []byte(`{}`), nil
	}
	return json.Marshal(a)
}

// Scan decodes a JSONB column.
func (a *WeeklyAvailability) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*a = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported availability type %T", src)
	}
	if len(raw) == 0 {
		*a = nil
		return nil
	}
	decoded := WeeklyAvailability{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("decode availability: %w", err)
	}
	normalised := make(WeeklyAvailability, len(decoded))
	for day, windows := range decoded {
		key := strings.ToLower(strings.TrimSpace(day))
		normalised[key] = append(normalised[key], windows...)
	}
	*a = normalised
	return nil
}

// NormalizeDay lowercases and trims a weekday key.
func NormalizeDay(day string) string {
	return strings.ToLower(strings.TrimSpace(day))
}
