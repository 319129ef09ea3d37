package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Date accepts RFC 3339 timestamps and date-only "2006-01-02" values on input.
// Date-only values are interpreted as midnight UTC.
type Date struct {
	time.Time
}

const DateOnlyLayout = "2006-01-02"

func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		d.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return d.Parse(s)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(time.RFC3339))
}

// Parse parses an RFC 3339 timestamp first, then a date-only value.
func (d *Date) Parse(s string) error {
	parsed, err := time.Parse(time.RFC3339, s)
	if err == nil {
		d.Time = parsed
		return nil
	}
	parsed, err2 := time.Parse(DateOnlyLayout, s)
	if err2 == nil {
		d.Time = parsed
		return nil
	}
	return fmt.Errorf("cannot parse date %q: %w", s, err)
}

// ParseDate parses s into a time.Time using the same rules as Date.
func ParseDate(s string) (time.Time, error) {
	var d Date
	if err := d.Parse(s); err != nil {
		return time.Time{}, err
	}
	return d.Time, nil
}
