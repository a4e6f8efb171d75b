package fingerprint

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strings"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// SetSentinel is the reserved marker prepended to a set's serialized
// sequence form. A genuine list whose first element would collide with the
// marker namespace (any string starting with '\a') is escaped by doubling
// the leading '\a'.
const SetSentinel = "\aset"

// setEscape is the character that opens the sentinel namespace.
const setEscape = '\a'

// CorruptError reports a violation of the fingerprint wire grammar.
// Callers discard the single unreadable record, never the whole blob.
type CorruptError struct {
	Reason string
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("corrupt fingerprint: %s", e.Reason)
}

func corruptf(format string, args ...any) error {
	return &CorruptError{Reason: fmt.Sprintf(format, args...)}
}

// MarshalCanonical produces the canonical serialized form of a value.
// This is the ONLY serialization used for fingerprint comparison and
// persistence.
//
// Canonical form properties:
//  1. Object keys sorted by UTF-16 code units (not UTF-8 bytes)
//  2. No HTML escaping (< > & are NOT escaped)
//  3. Strings are NFC normalized
//  4. Sets serialize as ["\aset", elem...] with elements sorted by their
//     own canonical encoding, so element order never leaks into the bytes
//  5. A list whose first element is a string starting with '\a' doubles
//     that prefix to stay distinguishable from the set sentinel
//
// Encoding the same logical value twice yields byte-identical output.
func MarshalCanonical(v Value) ([]byte, error) {
	if v == nil {
		return nil, fmt.Errorf("nil value is not encodable")
	}
	switch val := v.(type) {
	case String:
		return marshalCanonicalString(string(val))
	case Int:
		return []byte(fmt.Sprintf("%d", int64(val))), nil
	case Float:
		return []byte(formatFloat(val)), nil
	case Bool:
		if val {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case List:
		return marshalCanonicalList(val)
	case Set:
		return marshalCanonicalSet(val)
	case Map:
		return marshalCanonicalMap(val)
	default:
		return nil, fmt.Errorf("unsupported type for canonical encoding: %T", v)
	}
}

// UnmarshalCanonical is the inverse of MarshalCanonical.
// Grammar violations (malformed JSON, null, a bare '\a'-prefixed list head
// that is neither the sentinel nor a doubled escape) yield a CorruptError.
func UnmarshalCanonical(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, corruptf("invalid encoding: %v", err)
	}
	// Reject trailing garbage after the first value.
	if dec.More() {
		return nil, corruptf("trailing data after value")
	}
	return decodeValue(raw)
}

func decodeValue(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return nil, corruptf("null is not a fingerprint value")
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case json.Number:
		s := string(val)
		if strings.ContainsAny(s, ".eE") {
			f, err := val.Float64()
			if err != nil {
				return nil, corruptf("unreadable number %q", s)
			}
			return Float(f), nil
		}
		n, err := val.Int64()
		if err != nil {
			return nil, corruptf("integer out of range: %q", s)
		}
		return Int(n), nil
	case []any:
		return decodeSequence(val)
	case map[string]any:
		out := make(Map, len(val))
		for k, elem := range val {
			conv, err := decodeValue(elem)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			out[k] = conv
		}
		return out, nil
	default:
		return nil, corruptf("unsupported wire type %T", v)
	}
}

// decodeSequence resolves the sentinel/escape grammar for serialized
// sequences: a leading "\aset" marks a set, a leading "\a\a..." unescapes
// to a plain list element, and any other leading '\a' string is corrupt.
func decodeSequence(raw []any) (Value, error) {
	elems := make([]Value, len(raw))
	for i, elem := range raw {
		conv, err := decodeValue(elem)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		elems[i] = conv
	}

	if len(elems) > 0 {
		if head, ok := elems[0].(String); ok && strings.HasPrefix(string(head), string(setEscape)) {
			if string(head) == SetSentinel {
				return Set(elems[1:]), nil
			}
			if strings.HasPrefix(string(head), string([]byte{setEscape, setEscape})) {
				elems[0] = String(string(head)[1:])
				return List(elems), nil
			}
			return nil, corruptf("sequence head %q is inside the sentinel namespace but is not a valid marker or escape", string(head))
		}
	}
	return List(elems), nil
}

// marshalCanonicalString produces a canonical JSON string with NFC
// normalization and without HTML escaping.
func marshalCanonicalString(s string) ([]byte, error) {
	// NFC normalize at serialization boundary
	normalized := norm.NFC.String(s)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false) // <, > and & must NOT be escaped
	if err := enc.Encode(normalized); err != nil {
		return nil, err
	}

	// json.Encoder adds trailing newline, remove it
	result := buf.Bytes()
	if len(result) > 0 && result[len(result)-1] == '\n' {
		result = result[:len(result)-1]
	}
	return result, nil
}

func marshalCanonicalList(list List) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')

	for i, elem := range list {
		if i > 0 {
			buf.WriteByte(',')
		}
		if i == 0 {
			if head, ok := elem.(String); ok && strings.HasPrefix(string(head), string(setEscape)) {
				elem = String(string(setEscape) + string(head))
			}
		}
		elemBytes, err := MarshalCanonical(elem)
		if err != nil {
			return nil, fmt.Errorf("list[%d]: %w", i, err)
		}
		buf.Write(elemBytes)
	}

	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func marshalCanonicalSet(set Set) ([]byte, error) {
	encoded := make([]string, len(set))
	for i, elem := range set {
		elemBytes, err := MarshalCanonical(elem)
		if err != nil {
			return nil, fmt.Errorf("set element: %w", err)
		}
		encoded[i] = string(elemBytes)
	}
	// Element order must not leak into the bytes.
	sort.Strings(encoded)

	var buf bytes.Buffer
	buf.WriteByte('[')
	head, err := marshalCanonicalString(SetSentinel)
	if err != nil {
		return nil, err
	}
	buf.Write(head)
	for _, enc := range encoded {
		buf.WriteByte(',')
		buf.WriteString(enc)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func marshalCanonicalMap(m Map) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	keys := m.SortedKeys()
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := marshalCanonicalString(k)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valBytes, err := MarshalCanonical(m[k])
		if err != nil {
			return nil, fmt.Errorf("value for key %q: %w", k, err)
		}
		buf.Write(valBytes)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// sortKeysCanonical sorts strings by UTF-16 code units.
// Go's sort.Strings compares UTF-8 bytes, which produces a DIFFERENT order
// for strings containing supplementary-plane characters.
func sortKeysCanonical(keys []string) {
	slices.SortFunc(keys, compareKeysUTF16)
}

// compareKeysUTF16 compares strings code unit by code unit after UTF-16
// conversion, with correct surrogate handling.
func compareKeysUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	minLen := len(a16)
	if len(b16) < minLen {
		minLen = len(b16)
	}
	for i := 0; i < minLen; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	if len(a16) < len(b16) {
		return -1
	}
	if len(a16) > len(b16) {
		return 1
	}
	return 0
}
