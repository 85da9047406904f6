package dto

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// EventForm is the raw event payload as submitted by the event form.
type EventForm struct {
	Name              string      `json:"name" validate:"required"`
	Description       *string     `json:"description"`
	IsActive          *bool       `json:"isActive" validate:"required"`
	DurationInMinutes FlexibleInt `json:"durationInMinutes" validate:"gt=0,lte=720"`
}

// Coercion failures recorded by FlexibleInt.
const (
	IssueNotNumber  = "not_number"
	IssueNotInteger = "not_integer"
)

// FlexibleInt accepts a JSON integer, an integral float or a numeric string.
// Decoding never fails: values that cannot be coerced keep their raw token and
// an Issue, and are rejected later by the event schema.
type FlexibleInt struct {
	Value int
	Raw   string
	Issue string
}

// IntOf wraps an already coerced integer.
func IntOf(v int) FlexibleInt {
	return FlexibleInt{Value: v, Raw: strconv.Itoa(v)}
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexibleInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*f = FlexibleInt{Raw: string(data)}
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	raw := string(data)
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			f.Issue = IssueNotNumber
			return nil
		}
		raw = strings.TrimSpace(s)
		f.Raw = raw
		if raw == "" {
			return nil
		}
	}

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		f.Issue = IssueNotNumber
		return nil
	}
	if value != math.Trunc(value) {
		f.Issue = IssueNotInteger
		return nil
	}
	// Out of int32 range still fails the 1..720 bounds; clamp so the bound check reports it.
	switch {
	case value > math.MaxInt32:
		value = math.MaxInt32
	case value < math.MinInt32:
		value = math.MinInt32
	}
	f.Value = int(value)
	return nil
}

// MarshalJSON writes the coerced integer.
func (f FlexibleInt) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Itoa(f.Value)), nil
}

// Int returns the plain integer value.
func (f FlexibleInt) Int() int {
	return f.Value
}

// Valid reports whether decoding produced an integer.
func (f FlexibleInt) Valid() bool {
	return f.Issue == ""
}
