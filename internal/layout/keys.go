package layout

// RemappableKeys lists the physical keys of a US-QWERTY board whose
// characters layouts may move around: letters, digits, and the symbol keys
// the host can represent as distinct event types.
var RemappableKeys = buildRemappableKeys()

func buildRemappableKeys() []string {
	var keys []string
	for c := 'A'; c <= 'Z'; c++ {
		keys = append(keys, string(c))
	}
	for c := '0'; c <= '9'; c++ {
		keys = append(keys, string(c))
	}
	keys = append(keys, "`", "-", "=", "[", "]", ";", "'", ",", ".", "/", "\\")
	return keys
}

// remappableTypes is the set of host event types a layout remap may rewrite.
// Modifier keys, function keys, the numpad and navigation keys stay put on
// every layout and are deliberately absent.
var remappableTypes = buildRemappableTypes()

func buildRemappableTypes() map[string]bool {
	set := make(map[string]bool)
	for c := 'A'; c <= 'Z'; c++ {
		set[string(c)] = true
	}
	for t := range typeToChar {
		set[t] = true
	}
	return set
}

// typeToChar maps host event types to the character on the US-QWERTY key
// that produces them. Letters map to themselves and are handled by the
// pass-through in TypeToChar.
//
// The host reports both ' and " as QUOTE and displays the double quote, so
// QUOTE maps to " here and layouts that move the quote key must be written
// with " in place of '.
var typeToChar = map[string]string{
	"ZERO":          "0",
	"ONE":           "1",
	"TWO":           "2",
	"THREE":         "3",
	"FOUR":          "4",
	"FIVE":          "5",
	"SIX":           "6",
	"SEVEN":         "7",
	"EIGHT":         "8",
	"NINE":          "9",
	"GRLESS":        "<",
	"SEMI_COLON":    ";",
	"PERIOD":        ".",
	"COMMA":         ",",
	"QUOTE":         "\"",
	"ACCENT_GRAVE":  "`",
	"MINUS":         "-",
	"PLUS":          "+",
	"SLASH":         "/",
	"BACK_SLASH":    "\\",
	"EQUAL":         "=",
	"LEFT_BRACKET":  "[",
	"RIGHT_BRACKET": "]",
}

var charToType = buildCharToType()

func buildCharToType() map[string]string {
	m := make(map[string]string, len(typeToChar))
	for t, c := range typeToChar {
		m[c] = t
	}
	return m
}

// TypeToChar converts a host event type to its US-QWERTY character.
// Unknown types pass through unchanged.
func TypeToChar(eventType string) string {
	if c, ok := typeToChar[eventType]; ok {
		return c
	}
	return eventType
}

// CharToType converts a US-QWERTY character to the host event type for the
// key that produces it. Unknown characters pass through unchanged.
func CharToType(char string) string {
	if t, ok := charToType[char]; ok {
		return t
	}
	return char
}

// IsRemappableType reports whether a layout remap may rewrite entries bound
// to the given event type.
func IsRemappableType(eventType string) bool {
	return remappableTypes[eventType]
}
