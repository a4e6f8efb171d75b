package keymap

import (
	"encoding/json"
	"fmt"

	"keylayer/internal/fingerprint"
)

// Snapshot is the serializable form of a whole keymap, as exported by the
// host. The CLI operates on snapshot files; tests build hosts from them.
type Snapshot struct {
	Categories []SnapshotCategory `json:"categories"`
}

// SnapshotCategory is one category and its entries.
type SnapshotCategory struct {
	Name    string          `json:"name"`
	Space   string          `json:"space"`
	Region  string          `json:"region"`
	Modal   bool            `json:"modal,omitempty"`
	Entries []SnapshotEntry `json:"entries"`
}

// SnapshotEntry is one entry. Operator args are stored in the canonical
// fingerprint encoding so sets round-trip distinctly from lists.
type SnapshotEntry struct {
	Op        string          `json:"op"`
	Props     json.RawMessage `json:"props,omitempty"`
	PropValue string          `json:"propvalue,omitempty"`
	Inactive  bool            `json:"inactive,omitempty"`

	Key         string `json:"key"`
	Press       string `json:"press,omitempty"`
	Class       string `json:"class,omitempty"`
	Shift       int8   `json:"shift,omitempty"`
	Ctrl        int8   `json:"ctrl,omitempty"`
	Alt         int8   `json:"alt,omitempty"`
	OSKey       int8   `json:"oskey,omitempty"`
	Hyper       int8   `json:"hyper,omitempty"`
	KeyModifier string `json:"key_modifier,omitempty"`
	Direction   string `json:"direction,omitempty"`
	Repeat      bool   `json:"repeat,omitempty"`
}

// HostFromSnapshot builds an in-memory host from a snapshot.
func HostFromSnapshot(s Snapshot) (*MemoryHost, error) {
	h := NewMemoryHost()
	for _, sc := range s.Categories {
		cat := Category{Name: sc.Name, Space: sc.Space, Region: sc.Region, Modal: sc.Modal}
		if err := h.AddCategory(cat); err != nil {
			return nil, err
		}
		for i, se := range sc.Entries {
			e, err := se.toEntry()
			if err != nil {
				return nil, fmt.Errorf("category %s entry %d: %w", cat.ID(), i, err)
			}
			if err := h.AddEntry(cat, e); err != nil {
				return nil, fmt.Errorf("category %s entry %d: %w", cat.ID(), i, err)
			}
		}
	}
	return h, nil
}

// SnapshotFromHost exports the current state of a host.
func SnapshotFromHost(h Host) (Snapshot, error) {
	var s Snapshot
	cats, err := h.Categories()
	if err != nil {
		return Snapshot{}, err
	}
	for _, cat := range cats {
		refs, err := h.Entries(cat)
		if err != nil {
			return Snapshot{}, err
		}
		sc := SnapshotCategory{Name: cat.Name, Space: cat.Space, Region: cat.Region, Modal: cat.Modal}
		for _, ref := range refs {
			se, err := fromEntry(ref.Entry())
			if err != nil {
				return Snapshot{}, fmt.Errorf("category %s: %w", cat.ID(), err)
			}
			sc.Entries = append(sc.Entries, se)
		}
		s.Categories = append(s.Categories, sc)
	}
	return s, nil
}

func (se SnapshotEntry) toEntry() (Entry, error) {
	var props fingerprint.Map
	if len(se.Props) > 0 {
		v, err := fingerprint.UnmarshalCanonical(se.Props)
		if err != nil {
			return Entry{}, fmt.Errorf("props: %w", err)
		}
		m, ok := v.(fingerprint.Map)
		if !ok {
			return Entry{}, fmt.Errorf("props: expected map, got %T", v)
		}
		props = m
	}

	press := Press(se.Press)
	if press == "" {
		press = PressDown
	}
	class := Class(se.Class)
	if class == "" {
		class = ClassKeyboard
	}

	e := Entry{
		Key: KeyIdentity{
			Key:         se.Key,
			Press:       press,
			Shift:       se.Shift,
			Ctrl:        se.Ctrl,
			Alt:         se.Alt,
			OSKey:       se.OSKey,
			Hyper:       se.Hyper,
			KeyModifier: se.KeyModifier,
			Class:       class,
			Direction:   se.Direction,
			RepeatOK:    se.Repeat,
		},
		Shortcut: Shortcut{
			Op:        se.Op,
			Props:     props,
			PropValue: se.PropValue,
			Active:    !se.Inactive,
		},
	}
	if err := e.Key.Validate(); err != nil {
		return Entry{}, err
	}
	return e, nil
}

func fromEntry(e Entry) (SnapshotEntry, error) {
	se := SnapshotEntry{
		Op:          e.Shortcut.Op,
		PropValue:   e.Shortcut.PropValue,
		Inactive:    !e.Shortcut.Active,
		Key:         e.Key.Key,
		Shift:       e.Key.Shift,
		Ctrl:        e.Key.Ctrl,
		Alt:         e.Key.Alt,
		OSKey:       e.Key.OSKey,
		Hyper:       e.Key.Hyper,
		KeyModifier: e.Key.KeyModifier,
		Direction:   e.Key.Direction,
		Repeat:      e.Key.RepeatOK,
	}
	if e.Key.Press != PressDown {
		se.Press = string(e.Key.Press)
	}
	if e.Key.Class != ClassKeyboard {
		se.Class = string(e.Key.Class)
	}
	if len(e.Shortcut.Props) > 0 {
		enc, err := fingerprint.MarshalCanonical(e.Shortcut.Props)
		if err != nil {
			return SnapshotEntry{}, fmt.Errorf("props: %w", err)
		}
		se.Props = json.RawMessage(enc)
	}
	return se, nil
}

// ParseSnapshot decodes a snapshot from JSON bytes.
func ParseSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("parse keymap snapshot: %w", err)
	}
	return s, nil
}

// EncodeSnapshot serializes a snapshot to indented JSON.
func EncodeSnapshot(s Snapshot) ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}
