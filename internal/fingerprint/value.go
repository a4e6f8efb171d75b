package fingerprint

import (
	"fmt"
	"strconv"
	"strings"
)

// Value is a sealed interface over the types that may appear in an operator
// argument payload. Only String, Int, Float, Bool, List, Set, and Map
// implement it.
//
// List is order-significant; Set is order-insignificant and canonicalizes to
// a sorted encoding (see canonical.go). Floats are allowed because host
// operator payloads legitimately carry them; determinism is preserved by
// shortest round-trip formatting at the serialization boundary.
type Value interface {
	value() // Sealed - only these types implement it
}

// String represents a string value.
type String string

func (String) value() {}

// Int represents an integer value. Always int64.
type Int int64

func (Int) value() {}

// Float represents a floating-point value.
// Encoded with strconv shortest round-trip formatting, so encoding is a pure
// function of the bit pattern.
type Float float64

func (Float) value() {}

// Bool represents a boolean value.
type Bool bool

func (Bool) value() {}

// List represents an ordered sequence of values.
type List []Value

func (List) value() {}

// Set represents an unordered collection of values.
// Two Sets with the same elements in different order encode identically.
type Set []Value

func (Set) value() {}

// Map represents string-keyed nested payload data.
// Use SortedKeys for deterministic iteration.
type Map map[string]Value

func (Map) value() {}

// Truthy reports whether a value survives compaction.
// False booleans, zero numbers, empty strings, and empty containers are
// falsy and get dropped from stored fingerprints.
func Truthy(v Value) bool {
	switch val := v.(type) {
	case nil:
		return false
	case String:
		return val != ""
	case Int:
		return val != 0
	case Float:
		return val != 0
	case Bool:
		return bool(val)
	case List:
		return len(val) > 0
	case Set:
		return len(val) > 0
	case Map:
		return len(val) > 0
	default:
		return false
	}
}

// Compact recursively drops falsy fields from maps.
// A map whose fields are all falsy compacts to nil. Non-map values are
// returned unchanged; list and set elements are never dropped, only
// nested maps inside them are compacted.
func Compact(v Value) Value {
	switch val := v.(type) {
	case Map:
		out := make(Map, len(val))
		for k, elem := range val {
			if !Truthy(elem) {
				continue
			}
			c := Compact(elem)
			if c == nil {
				continue
			}
			out[k] = c
		}
		if len(out) == 0 {
			return nil
		}
		return out
	case List:
		out := make(List, len(val))
		for i, elem := range val {
			if m, ok := elem.(Map); ok {
				if c := Compact(m); c != nil {
					out[i] = c
				} else {
					out[i] = Map{}
				}
				continue
			}
			out[i] = elem
		}
		return out
	case Set:
		out := make(Set, len(val))
		copy(out, val)
		return out
	default:
		return v
	}
}

// Equal reports structural equality between two values.
// Sets compare as element multisets (order-insensitive); lists compare
// element-wise; ints and floats of equal numeric value are still distinct
// types and compare unequal.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch av := a.(type) {
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Int:
		bv, ok := b.(Int)
		return ok && av == bv
	case Float:
		bv, ok := b.(Float)
		return ok && av == bv
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case List:
		bv, ok := b.(List)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Set:
		bv, ok := b.(Set)
		if !ok || len(av) != len(bv) {
			return false
		}
		// Multiset comparison via canonical element encodings.
		return equalSets(av, bv)
	case Map:
		bv, ok := b.(Map)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, elem := range av {
			other, exists := bv[k]
			if !exists || !Equal(elem, other) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func equalSets(a, b Set) bool {
	counts := make(map[string]int, len(a))
	for _, elem := range a {
		enc, err := MarshalCanonical(elem)
		if err != nil {
			return false
		}
		counts[string(enc)]++
	}
	for _, elem := range b {
		enc, err := MarshalCanonical(elem)
		if err != nil {
			return false
		}
		counts[string(enc)]--
		if counts[string(enc)] < 0 {
			return false
		}
	}
	return true
}

// FromGo converts plain Go data (as produced by encoding/json or a host
// bridge) into a Value. Maps become Map, slices become List, json-style
// float64 values that hold integral numbers stay Float (the host reports
// property types explicitly, so no guessing here). Nil entries are rejected.
func FromGo(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("nil is not representable in a fingerprint payload")
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case int:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case float64:
		return Float(val), nil
	case float32:
		return Float(val), nil
	case bool:
		return Bool(val), nil
	case []any:
		out := make(List, len(val))
		for i, elem := range val {
			conv, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = conv
		}
		return out, nil
	case map[string]any:
		out := make(Map, len(val))
		for k, elem := range val {
			conv, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			out[k] = conv
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported payload type: %T", v)
	}
}

// SortedKeys returns map keys in canonical order (UTF-16 code units).
// See canonical.go for why plain string sorting is not used.
func (m Map) SortedKeys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sortKeysCanonical(keys)
	return keys
}

// formatFloat produces the canonical textual form of a Float.
func formatFloat(f Float) string {
	s := strconv.FormatFloat(float64(f), 'g', -1, 64)
	// Guarantee a float-shaped literal so decoding keeps the type.
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
