package domain

import (
	"bytes"
	"fmt"
	"time"
)

// naiveLayout matches datetimes the API serialises without a zone; they are UTC.
const naiveLayout = "2006-01-02T15:04:05.999999999"

// Time is a timestamp that accepts both RFC 3339 and zone-less ISO 8601 values.
type Time struct {
	time.Time
}

// Now returns the current time as a Time.
func Now() Time {
	return Time{time.Now().UTC()}
}

func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.UTC().Format(time.RFC3339Nano) + `"`), nil
}

func (t *Time) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		t.Time = time.Time{}
		return nil
	}
	s := string(data)
	if v, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t.Time = v
		return nil
	}
	v, err := time.ParseInLocation(naiveLayout, s, time.UTC)
	if err != nil {
		return fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	t.Time = v
	return nil
}
