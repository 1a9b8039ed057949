package parse

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

var null = []byte("null")

// IsNull reports whether raw is absent or the JSON literal null.
func IsNull(raw json.RawMessage) bool {
	s := bytes.TrimSpace(raw)
	return len(s) == 0 || bytes.Equal(s, null)
}

// Float decodes a reading sent either as a JSON number or as a numeric
// string. Strings may use a decimal comma ("990,5") and a dot as the
// thousands separator ("1.020,5"). Null and blank strings yield nil.
func Float(raw json.RawMessage) (*float64, error) {
	if IsNull(raw) {
		return nil, nil
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return &n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("unable to parse number from %s", raw)
	}
	return floatString(s)
}

func floatString(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	norm := s
	if strings.Contains(norm, ",") {
		norm = strings.ReplaceAll(norm, ".", "")
		norm = strings.Replace(norm, ",", ".", 1)
	}
	f, err := strconv.ParseFloat(norm, 64)
	if err != nil {
		return nil, fmt.Errorf("unable to parse number %q: %w", s, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("number %q is not finite", s)
	}
	return &f, nil
}

// Int decodes an identifier sent as a JSON number or a numeric string.
// Fractional values and values outside the int64 range are rejected.
func Int(raw json.RawMessage) (*int64, error) {
	f, err := Float(raw)
	if err != nil || f == nil {
		return nil, err
	}
	if *f != math.Trunc(*f) || math.Abs(*f) >= math.MaxInt64 {
		return nil, fmt.Errorf("number %v is not an integer", *f)
	}
	n := int64(*f)
	return &n, nil
}

// Bool decodes a flag sent as a JSON boolean or as a string accepted by
// strconv.ParseBool. Null and blank strings yield nil.
func Bool(raw json.RawMessage) (*bool, error) {
	if IsNull(raw) {
		return nil, nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return &b, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("unable to parse flag from %s", raw)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil, fmt.Errorf("unable to parse flag %q: %w", s, err)
	}
	return &b, nil
}

// String decodes a label. Numbers are kept as their literal text so that a
// tank named 12 still gets a title. Null yields nil; an empty string does not.
func String(raw json.RawMessage) (*string, error) {
	if IsNull(raw) {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return &s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, fmt.Errorf("unable to parse text from %s", raw)
	}
	s = n.String()
	return &s, nil
}
