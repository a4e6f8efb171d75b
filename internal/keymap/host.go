package keymap

import (
	"errors"
	"fmt"
	"sort"
)

// ErrMutationForbidden is returned by a Host when the current lifecycle
// point disallows preference mutation. The driver treats it as an expected
// no-op, never as a failure.
var ErrMutationForbidden = errors.New("host forbids keymap mutation at this lifecycle point")

// EntryRef is a live handle to one keymap entry.
//
// Entry() returns a value snapshot; SetKey rewrites the entry's assignment
// in place. Handles stay valid for the duration of one scan only - the host
// gives no longer-lived identity than that.
type EntryRef interface {
	Entry() Entry
	SetKey(KeyIdentity) error
}

// Host is the surface the reconciliation driver works against.
// Implementations wrap the real host's keymap storage or, for tests and the
// CLI, an in-memory snapshot.
type Host interface {
	Categories() ([]Category, error)
	Entries(cat Category) ([]EntryRef, error)
}

// MemoryHost is an in-memory Host backed by a snapshot.
// Used by the CLI (operating on exported keymap files) and by tests.
type MemoryHost struct {
	cats    []Category
	entries map[string][]*memEntry

	// Forbidden simulates the host lifecycle window where preference
	// mutation is rejected (teardown).
	Forbidden bool
}

type memEntry struct {
	host  *MemoryHost
	entry Entry
}

func (m *memEntry) Entry() Entry { return m.entry }

func (m *memEntry) SetKey(k KeyIdentity) error {
	if m.host.Forbidden {
		return ErrMutationForbidden
	}
	if err := k.Validate(); err != nil {
		return err
	}
	m.entry.Key = k
	return nil
}

// NewMemoryHost creates an empty in-memory host.
func NewMemoryHost() *MemoryHost {
	return &MemoryHost{entries: make(map[string][]*memEntry)}
}

// AddCategory registers a category. Adding the same category twice is an
// error; category IDs are the journal's top-level keys and must be unique.
func (h *MemoryHost) AddCategory(cat Category) error {
	id := cat.ID()
	if _, exists := h.entries[id]; exists {
		return fmt.Errorf("duplicate category %s", id)
	}
	h.cats = append(h.cats, cat)
	h.entries[id] = nil
	return nil
}

// AddEntry appends an entry to a category, registering the category if
// needed. Duplicate entries are accepted: the host itself registers
// spurious duplicates, and the matcher must cope with them.
func (h *MemoryHost) AddEntry(cat Category, e Entry) error {
	if err := e.Key.Validate(); err != nil {
		return err
	}
	id := cat.ID()
	if _, exists := h.entries[id]; !exists {
		h.cats = append(h.cats, cat)
	}
	h.entries[id] = append(h.entries[id], &memEntry{host: h, entry: e})
	return nil
}

// Categories returns all categories in registration order.
func (h *MemoryHost) Categories() ([]Category, error) {
	out := make([]Category, len(h.cats))
	copy(out, h.cats)
	return out, nil
}

// Entries returns handles for all entries in a category.
func (h *MemoryHost) Entries(cat Category) ([]EntryRef, error) {
	ents, exists := h.entries[cat.ID()]
	if !exists {
		return nil, fmt.Errorf("unknown category %s", cat.ID())
	}
	out := make([]EntryRef, len(ents))
	for i, e := range ents {
		out[i] = e
	}
	return out, nil
}

// Shuffle reorders entries within every category by a deterministic
// rotation. Tests use it to prove scans do not depend on host-internal
// ordering.
func (h *MemoryHost) Shuffle() {
	for id, ents := range h.entries {
		if len(ents) < 2 {
			continue
		}
		rotated := append(ents[1:], ents[0])
		h.entries[id] = rotated
	}
	sort.SliceStable(h.cats, func(i, j int) bool {
		return h.cats[i].ID() > h.cats[j].ID()
	})
}
