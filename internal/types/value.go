package types

import (
	"encoding/json"
	"math"
	"strconv"
)

// NotAvailable is how a missing value is rendered to people
const NotAvailable = "N/A"

// ValueKind distinguishes a number, a string and the absence of a value
type ValueKind uint8

const (
	KindMissing ValueKind = iota
	KindNumber
	KindText
)

// Value is a field or reduction result. A missing value is never the same as
// zero: it marshals to JSON null and renders as N/A.
type Value struct {
	Kind ValueKind
	Num  float64
	Text string
}

// Missing returns the undefined value
func Missing() Value { return Value{} }

// Number wraps a float. NaN and infinities are treated as missing.
func Number(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Missing()
	}
	return Value{Kind: KindNumber, Num: f}
}

// Text wraps a string
func Text(s string) Value { return Value{Kind: KindText, Text: s} }

// Defined reports whether the value is present
func (v Value) Defined() bool { return v.Kind != KindMissing }

// Float returns the number held by v
func (v Value) Float() (float64, bool) {
	if v.Kind != KindNumber {
		return 0, false
	}
	return v.Num, true
}

func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindText:
		return v.Text
	}
	return NotAvailable
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNumber:
		return json.Marshal(v.Num)
	case KindText:
		return json.Marshal(v.Text)
	}
	return []byte("null"), nil
}

func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = Missing()
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*v = Number(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*v = Text(s)
	return nil
}
