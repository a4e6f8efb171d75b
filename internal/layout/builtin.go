package layout

// Built-in layout names, in presentation order.
const (
	NameQWERTY  = "QWERTY"
	NameAZERTY  = "AZERTY"
	NameQWERTZ  = "QWERTZ"
	NameDvorak  = "Dvorak"
	NameColemak = "Colemak"
)

func mustStrings(qwerty, replace string) Translation {
	t, err := FromStrings(qwerty, replace)
	if err != nil {
		panic(err)
	}
	return t
}

var (
	// QWERTY is the identity layout.
	QWERTY = Identity()

	// AZERTY does not move `.` to `:` because the host cannot represent
	// `:` as an input key, and likewise leaves the accent, dollar and
	// bracket keys alone.
	AZERTY = mustStrings(
		"QA  WZ  ;M,",
		"AQ  ZW  M,;")

	// QWERTZ swaps only Y and Z; the accented keys have no host
	// representation.
	QWERTZ = mustStrings(
		"YZ",
		"ZY")

	// Dvorak is written with `"` in place of `'` because the host folds
	// both onto the QUOTE event type and displays the double quote.
	Dvorak = mustStrings(
		`  -=  QWERTYUIOP[]\  ASDFGHJKL;"  ZXCVBNM,./  `,
		`  []  ",.PYFGCRL/=\  AOEUIDHTNS-  ;QJKXBMWVZ  `)

	// Colemak keeps `'` as-is; the pair is idempotent and dropped anyway.
	Colemak = mustStrings(
		`  QWERTYUIOP[]\  ASDFGHJKL;'  ZXCVBNM,./  `,
		`  QWFPGJLUY;[]\  ARSTDHNEIO'  ZXCVBKM,./  `)
)

// BuiltInNames lists the built-in layouts in presentation order.
var BuiltInNames = []string{NameQWERTY, NameAZERTY, NameQWERTZ, NameDvorak, NameColemak}

var builtIn = map[string]Translation{
	NameQWERTY:  QWERTY,
	NameAZERTY:  AZERTY,
	NameQWERTZ:  QWERTZ,
	NameDvorak:  Dvorak,
	NameColemak: Colemak,
}

// builtInDescriptions is keyed like builtIn; shown by the layouts listing.
var builtInDescriptions = map[string]string{
	NameQWERTY:  "Standard US-QWERTY keyboard layout",
	NameAZERTY:  "French AZERTY keyboard layout. Does not remap `'`, `[`, `]` and `.` because the host cannot represent accent/dollar/colon keys internally.",
	NameQWERTZ:  "German QWERTZ keyboard layout. Does not remap accented keys the host cannot represent internally.",
	NameDvorak:  "Standard US-Dvorak keyboard layout. The `'` key is written as `\"` because the host cannot represent it distinctly.",
	NameColemak: "Colemak keyboard layout",
}

// IsBuiltIn reports whether a layout name is one of the built-ins.
func IsBuiltIn(name string) bool {
	_, ok := builtIn[name]
	return ok
}
