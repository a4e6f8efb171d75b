// Package layout models keyboard layouts as character translations relative
// to US-QWERTY, with the built-in layout table and a registry for
// user-defined layouts.
package layout

import (
	"fmt"
	"sort"
	"strings"
)

// Pair is one source-to-target character mapping.
type Pair struct {
	In  string
	Out string
}

// Translation is an immutable mapping between two keyboard layouts,
// expressed as character substitutions relative to US-QWERTY. It carries
// both directions plus the set of keys whose mapping is not bijective.
//
// All constructors drop identity pairs, so a Translation never stores
// mappings of a key to itself and the empty Translation is the identity.
type Translation struct {
	inOut     map[string]string
	outIn     map[string]string
	conflicts map[string]bool
}

// Identity returns the empty translation.
func Identity() Translation {
	return Translation{
		inOut:     map[string]string{},
		outIn:     map[string]string{},
		conflicts: map[string]bool{},
	}
}

// FromPairs builds a translation from ordered in→out pairs, deriving the
// reverse direction. When two inputs claim the same output, or an output
// collides with a key the translation leaves in place, the first claim wins
// and the contested output is recorded as a conflict.
func FromPairs(pairs []Pair) Translation {
	inOut := make(map[string]string)
	var order []string
	for _, p := range pairs {
		if p.In == p.Out {
			continue
		}
		if _, seen := inOut[p.In]; !seen {
			order = append(order, p.In)
		}
		inOut[p.In] = p.Out
	}

	nonRemapped := make(map[string]bool)
	for _, k := range RemappableKeys {
		if _, remapped := inOut[k]; !remapped {
			nonRemapped[k] = true
		}
	}

	outIn := make(map[string]string)
	conflicts := make(map[string]bool)
	for _, in := range order {
		out := inOut[in]
		if _, taken := outIn[out]; taken || nonRemapped[out] {
			conflicts[out] = true
			continue
		}
		outIn[out] = in
	}
	return Translation{inOut: inOut, outIn: outIn, conflicts: conflicts}
}

// FromMap is FromPairs over a map, iterated in sorted-key order so the
// derived direction is deterministic.
func FromMap(inOut map[string]string) Translation {
	keys := make([]string, 0, len(inOut))
	for k := range inOut {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]Pair, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, Pair{In: k, Out: inOut[k]})
	}
	return FromPairs(pairs)
}

// FromMaps builds a translation from explicit forward and reverse maps.
// Conflicts are keyed by the contested output character, exactly as in
// FromPairs: an output claimed by two inputs, an output colliding with a key
// the translation leaves in place, or a pair the two directions disagree on.
func FromMaps(inOut, outIn map[string]string) Translation {
	fwd := make(map[string]string)
	for i, o := range inOut {
		if i != o {
			fwd[i] = o
		}
	}
	rev := make(map[string]string)
	for o, i := range outIn {
		if o != i {
			rev[o] = i
		}
	}

	nonRemapped := make(map[string]bool)
	for _, k := range RemappableKeys {
		if _, remapped := fwd[k]; !remapped {
			nonRemapped[k] = true
		}
	}
	claims := make(map[string]int)
	for _, o := range fwd {
		claims[o]++
	}

	conflicts := make(map[string]bool)
	for i, o := range fwd {
		if claims[o] > 1 || nonRemapped[o] {
			conflicts[o] = true
			continue
		}
		if back, ok := rev[o]; !ok || back != i {
			conflicts[o] = true
		}
	}
	for o, i := range rev {
		if fwd2, ok := fwd[i]; !ok || fwd2 != o {
			conflicts[o] = true
		}
	}
	return Translation{inOut: fwd, outIn: rev, conflicts: conflicts}
}

// FromStrings builds a translation from two aligned character strings, one
// spelling keys as they sit on a QWERTY board, the other the characters the
// target layout puts on those keys. Spaces are ignored in both strings and
// may be used freely for alignment.
func FromStrings(qwerty, replace string) (Translation, error) {
	q := []rune(strings.ReplaceAll(qwerty, " ", ""))
	r := []rune(strings.ReplaceAll(replace, " ", ""))
	if len(q) != len(r) {
		return Translation{}, fmt.Errorf("aligned layout strings differ in length: %d vs %d keys", len(q), len(r))
	}
	pairs := make([]Pair, len(q))
	for i := range q {
		pairs[i] = Pair{In: string(q[i]), Out: string(r[i])}
	}
	return FromPairs(pairs), nil
}

// Inverse swaps the two directions.
func Inverse(t Translation) Translation {
	return FromMaps(t.outIn, t.inOut)
}

// Compose chains translations left to right: the result maps a character
// through each argument in order.
func Compose(layouts ...Translation) Translation {
	if len(layouts) == 0 {
		return Identity()
	}
	inOut := make(map[string]string)
	for k, v := range layouts[len(layouts)-1].inOut {
		inOut[k] = v
	}
	for idx := len(layouts) - 2; idx >= 0; idx-- {
		layer := make(map[string]string)
		for i, o := range layouts[idx].inOut {
			if next, ok := inOut[o]; ok {
				layer[i] = next
			} else {
				layer[i] = o
			}
		}
		for i, o := range layer {
			inOut[i] = o
		}
	}

	outIn := make(map[string]string)
	for k, v := range layouts[0].outIn {
		outIn[k] = v
	}
	for idx := 1; idx < len(layouts); idx++ {
		layer := make(map[string]string)
		for o, i := range layouts[idx].outIn {
			if prev, ok := outIn[i]; ok {
				layer[o] = prev
			} else {
				layer[o] = i
			}
		}
		for o, i := range layer {
			outIn[o] = i
		}
	}
	return FromMaps(inOut, outIn)
}

// InputToTarget builds the translation a remap pass applies: from the
// layout the user's physical keyboard produces to the layout the keymap
// should behave as.
func InputToTarget(input, target Translation) Translation {
	return Compose(input, Inverse(target))
}

// Update overlays mappings onto a copy, overriding per key rather than
// composing. An identity pair in the overlay erases an existing mapping for
// that key.
func (t Translation) Update(inOut map[string]string) Translation {
	newInOut := make(map[string]string, len(t.inOut)+len(inOut))
	for k, v := range t.inOut {
		newInOut[k] = v
	}
	for k, v := range inOut {
		newInOut[k] = v
	}

	keys := make([]string, 0, len(inOut))
	for k := range inOut {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	newOutIn := make(map[string]string, len(t.outIn)+len(inOut))
	for k, v := range t.outIn {
		newOutIn[k] = v
	}
	for _, i := range keys {
		o := inOut[i]
		newOutIn[o] = i
	}
	return FromMaps(newInOut, newOutIn)
}

// UpdateKey is Update for a single pair.
func (t Translation) UpdateKey(in, out string) Translation {
	return t.Update(map[string]string{in: out})
}

// MapInputToOutput translates one character forward; unmapped characters
// pass through.
func (t Translation) MapInputToOutput(char string) string {
	if out, ok := t.inOut[char]; ok {
		return out
	}
	return char
}

// MapOutputToInput translates one character backward; unmapped characters
// pass through.
func (t Translation) MapOutputToInput(char string) string {
	if in, ok := t.outIn[char]; ok {
		return in
	}
	return char
}

// MapType translates a host event type forward through the character table.
func (t Translation) MapType(eventType string) string {
	return CharToType(t.MapInputToOutput(TypeToChar(eventType)))
}

// MapTypeReverse translates a host event type backward.
func (t Translation) MapTypeReverse(eventType string) string {
	return CharToType(t.MapOutputToInput(TypeToChar(eventType)))
}

// InOut returns a copy of the forward map.
func (t Translation) InOut() map[string]string {
	out := make(map[string]string, len(t.inOut))
	for k, v := range t.inOut {
		out[k] = v
	}
	return out
}

// OutIn returns a copy of the reverse map.
func (t Translation) OutIn() map[string]string {
	out := make(map[string]string, len(t.outIn))
	for k, v := range t.outIn {
		out[k] = v
	}
	return out
}

// RemappedInputs returns the sorted set of characters the forward direction
// moves.
func (t Translation) RemappedInputs() []string {
	keys := make([]string, 0, len(t.inOut))
	for k := range t.inOut {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RemappedOutputs returns the sorted set of characters the reverse
// direction moves.
func (t Translation) RemappedOutputs() []string {
	keys := make([]string, 0, len(t.outIn))
	for k := range t.outIn {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Conflicts returns the sorted keys whose mapping is not bijective.
func (t Translation) Conflicts() []string {
	keys := make([]string, 0, len(t.conflicts))
	for k := range t.conflicts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsValid reports whether the translation is fully bijective.
func (t Translation) IsValid() bool {
	return len(t.conflicts) == 0
}

// IsIdentity reports whether the translation moves no keys.
func (t Translation) IsIdentity() bool {
	return len(t.inOut) == 0 && len(t.outIn) == 0
}
