// Package ledger is the client for the Aleo-style ledger that hosts the
// prediction pool program. It submits named program executions through an
// execution endpoint and reads program mapping values from a node's REST API.
package ledger

import (
	"fmt"
	"math/big"
	"strings"
)

// maxFieldBytes is the maximum number of UTF-8 bytes that fit in a single
// field element. Longer strings are truncated before encoding, matching the
// wire format the deployed pool program expects.
const maxFieldBytes = 31

// Value is a typed primitive passed as a positional program input. The
// client does not interpret values beyond rendering their wire form.
type Value interface {
	// Wire renders the value in the ledger's input literal syntax,
	// e.g. "1234field", "42u64", or "[1field, 2field]".
	Wire() string
}

// FieldValue is a 256-bit field element.
type FieldValue struct {
	n *big.Int
}

// Field encodes a byte string as a field element. Input longer than 31 bytes
// is truncated.
func Field(s string) FieldValue {
	b := []byte(s)
	if len(b) > maxFieldBytes {
		b = b[:maxFieldBytes]
	}
	return FieldValue{n: new(big.Int).SetBytes(b)}
}

// Wire renders the field in input literal form, e.g. "1234field".
func (f FieldValue) Wire() string {
	if f.n == nil {
		return "0field"
	}
	return f.n.String() + "field"
}

// RawValue passes an already-encoded input literal through unchanged. Market
// keys are stored in their wire form, so callers hand them back as-is.
type RawValue struct {
	s string
}

// Raw wraps a pre-encoded input literal such as "1234field".
func Raw(s string) RawValue {
	return RawValue{s: s}
}

// Wire returns the literal unchanged.
func (r RawValue) Wire() string {
	return r.s
}

// U64Value is an unsigned 64-bit integer tagged with its width.
type U64Value struct {
	n uint64
}

// U64 wraps an unsigned 64-bit integer input.
func U64(n uint64) U64Value {
	return U64Value{n: n}
}

// Wire renders the integer in input literal form, e.g. "42u64".
func (u U64Value) Wire() string {
	return fmt.Sprintf("%du64", u.n)
}

// ArrayValue is an ordered fixed-size array of values.
type ArrayValue struct {
	items []Value
}

// Array groups values into an array input.
func Array(items ...Value) ArrayValue {
	return ArrayValue{items: items}
}

// Wire renders the array in input literal form, e.g. "[1field, 2field]".
func (a ArrayValue) Wire() string {
	parts := make([]string, len(a.items))
	for i, v := range a.items {
		parts[i] = v.Wire()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// FieldString decodes a field literal (with or without the "field" suffix)
// back into the byte string it encodes.
func FieldString(field string) (string, error) {
	raw := strings.TrimSuffix(strings.TrimSpace(field), "field")
	n, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return "", fmt.Errorf("ledger: invalid field literal %q", field)
	}
	return string(n.Bytes()), nil
}
