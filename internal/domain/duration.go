package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Duration is an exercise duration. It travels as a Go duration string ("45s", "1m30s")
// in JSON, accepts a plain number of seconds on input, and is stored as whole seconds.
type Duration time.Duration

// NewDuration returns a pointer to d converted to a Duration.
func NewDuration(d time.Duration) *Duration {
	v := Duration(d)
	return &v
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// Seconds returns the duration truncated to whole seconds.
func (d Duration) Seconds() int64 {
	return int64(time.Duration(d) / time.Second)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case float64:
		*d = Duration(time.Duration(v * float64(time.Second)))
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		*d = Duration(parsed)
	default:
		return fmt.Errorf("invalid duration %s", string(b))
	}
	return nil
}

// Value stores the duration as whole seconds.
func (d Duration) Value() (driver.Value, error) {
	return d.Seconds(), nil
}

// Scan reads whole seconds written by Value.
func (d *Duration) Scan(src any) error {
	switch v := src.(type) {
	case int64:
		*d = Duration(time.Duration(v) * time.Second)
	case float64:
		*d = Duration(time.Duration(v * float64(time.Second)))
	case []byte:
		var secs int64
		if _, err := fmt.Sscan(string(v), &secs); err != nil {
			return fmt.Errorf("scan duration: %w", err)
		}
		*d = Duration(time.Duration(secs) * time.Second)
	default:
		return fmt.Errorf("scan duration: unsupported type %T", src)
	}
	return nil
}
