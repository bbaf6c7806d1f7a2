package ocpp

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateTimeFormat is used for every dateTime written to a charge point.
const DateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// DateTime is an OCPP dateTime field, serialised in UTC with millisecond precision.
type DateTime struct {
	time.Time
}

func NewDateTime(t time.Time) *DateTime {
	return &DateTime{Time: t}
}

func (d DateTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.UTC().Format(DateTimeFormat))
}

func (d *DateTime) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return &DateTimeError{Value: string(b)}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return &DateTimeError{Value: s}
	}
	d.Time = t
	return nil
}

// DateTimeError reports a dateTime value that is not RFC 3339.
type DateTimeError struct {
	Value string
}

func (e *DateTimeError) Error() string {
	return fmt.Sprintf("invalid dateTime %q", e.Value)
}
