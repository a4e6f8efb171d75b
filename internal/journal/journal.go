// Package journal tracks which keymap entries have been remapped: a
// per-category, per-operator table of fingerprint records, serialized as one
// canonical blob in the preference store, plus the matcher that correlates
// live entries back to their records.
package journal

import (
	"bytes"
	"log/slog"
	"sort"
	"sync"

	"keylayer/internal/fingerprint"
)

// Record is one journaled remap. The operator name doubles as the bucket
// key, Source and Target hold the pre- and post-remap key characters.
type Record = fingerprint.Fingerprint

// Journal is the remap table: category id → operator → records. Records
// are held by pointer so a reconcile pass can update Source/Target in place
// instead of appending duplicates.
type Journal struct {
	cats map[string]map[string][]*Record
}

// New returns an empty journal.
func New() *Journal {
	return &Journal{cats: make(map[string]map[string][]*Record)}
}

// Empty reports whether nothing is journaled.
func (j *Journal) Empty() bool {
	return j.Len() == 0
}

// Len counts journaled records.
func (j *Journal) Len() int {
	n := 0
	for _, ops := range j.cats {
		for _, recs := range ops {
			n += len(recs)
		}
	}
	return n
}

// Categories returns the journaled category ids, sorted.
func (j *Journal) Categories() []string {
	out := make([]string, 0, len(j.cats))
	for cat := range j.cats {
		out = append(out, cat)
	}
	sort.Strings(out)
	return out
}

// Operators returns the journaled operator names for a category, sorted.
func (j *Journal) Operators(cat string) []string {
	ops := j.cats[cat]
	out := make([]string, 0, len(ops))
	for op := range ops {
		out = append(out, op)
	}
	sort.Strings(out)
	return out
}

// HasCategory reports whether any record exists for a category.
func (j *Journal) HasCategory(cat string) bool {
	return len(j.cats[cat]) > 0
}

// Records returns the records for one operator in one category.
// The returned slice is the journal's own; callers must not reorder it.
func (j *Journal) Records(cat, op string) []*Record {
	return j.cats[cat][op]
}

// Append journals a record, creating buckets as needed. A record encoding
// byte-identically to one already present is a duplicate claim: the first
// record wins and the new one is dropped.
func (j *Journal) Append(cat string, rec *Record) bool {
	ops := j.cats[cat]
	if ops == nil {
		ops = make(map[string][]*Record)
		j.cats[cat] = ops
	}
	enc, err := fingerprint.MarshalCanonical(rec.Record())
	if err == nil {
		for _, existing := range ops[rec.Op] {
			have, herr := fingerprint.MarshalCanonical(existing.Record())
			if herr == nil && bytes.Equal(have, enc) {
				slog.Debug("duplicate journal claim dropped",
					"category", cat,
					"operator", rec.Op)
				return false
			}
		}
	}
	ops[rec.Op] = append(ops[rec.Op], rec)
	return true
}

// Forget removes one record. Reports whether it was present.
func (j *Journal) Forget(cat string, rec *Record) bool {
	ops := j.cats[cat]
	recs := ops[rec.Op]
	for i, r := range recs {
		if r == rec {
			ops[rec.Op] = append(recs[:i:i], recs[i+1:]...)
			if len(ops[rec.Op]) == 0 {
				delete(ops, rec.Op)
			}
			if len(ops) == 0 {
				delete(j.cats, cat)
			}
			return true
		}
	}
	return false
}

// Clear drops every record.
func (j *Journal) Clear() {
	j.cats = make(map[string]map[string][]*Record)
}

// All iterates every record as (category, record) pairs in sorted bucket
// order.
func (j *Journal) All() []CatRecord {
	var out []CatRecord
	for _, cat := range j.Categories() {
		for _, op := range j.Operators(cat) {
			for _, rec := range j.cats[cat][op] {
				out = append(out, CatRecord{Category: cat, Record: rec})
			}
		}
	}
	return out
}

// CatRecord pairs a record with the category it belongs to.
type CatRecord struct {
	Category string
	Record   *Record
}

// Encode serializes the journal as one canonical blob. Encoding the same
// logical journal twice yields byte-identical output.
func (j *Journal) Encode() ([]byte, error) {
	root := fingerprint.Map{}
	for cat, ops := range j.cats {
		opsMap := fingerprint.Map{}
		for op, recs := range ops {
			list := make(fingerprint.List, 0, len(recs))
			for _, rec := range recs {
				list = append(list, rec.Record())
			}
			if len(list) > 0 {
				opsMap[op] = list
			}
		}
		if len(opsMap) > 0 {
			root[cat] = opsMap
		}
	}
	return fingerprint.MarshalCanonical(root)
}

// Decode rebuilds a journal from its blob.
//
// Degradation is deliberately lopsided: a single unreadable record is
// dropped with a warning and the rest of the journal survives, while a blob
// that does not parse at all degrades to an empty journal and the error is
// returned so the caller can warn about lost tracking state.
func Decode(data []byte) (*Journal, error) {
	j := New()
	if len(data) == 0 {
		return j, nil
	}
	root, err := fingerprint.UnmarshalCanonical(data)
	if err != nil {
		return New(), err
	}
	rootMap, ok := root.(fingerprint.Map)
	if !ok {
		return New(), &fingerprint.CorruptError{Reason: "journal blob is not an object"}
	}
	for cat, opsVal := range rootMap {
		opsMap, ok := opsVal.(fingerprint.Map)
		if !ok {
			slog.Warn("discarding malformed journal category", "category", cat)
			continue
		}
		for op, recsVal := range opsMap {
			list, ok := recsVal.(fingerprint.List)
			if !ok {
				slog.Warn("discarding malformed journal bucket",
					"category", cat,
					"operator", op)
				continue
			}
			for _, recVal := range list {
				m, ok := recVal.(fingerprint.Map)
				if !ok {
					slog.Warn("discarding malformed journal record",
						"category", cat,
						"operator", op)
					continue
				}
				rec, err := fingerprint.FromRecord(op, m)
				if err != nil {
					slog.Warn("discarding unreadable journal record",
						"category", cat,
						"operator", op,
						"error", err)
					continue
				}
				j.Append(cat, &rec)
			}
		}
	}
	return j, nil
}

// Cache memoizes one decoded journal against its raw blob, so re-reads of
// an unchanged preference string cost a comparison instead of a parse.
type Cache struct {
	mu      sync.Mutex
	raw     []byte
	decoded *Journal
}

// Load returns the journal for a blob, reusing the cached decode when the
// bytes are unchanged. A corrupt blob degrades to an empty journal with a
// warning; emulation state is recoverable by reverting and reapplying.
func (c *Cache) Load(raw []byte) *Journal {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.decoded != nil && bytes.Equal(c.raw, raw) {
		return c.decoded
	}
	j, err := Decode(raw)
	if err != nil {
		slog.Warn("remap journal unreadable, starting from an empty journal", "error", err)
	}
	c.raw = append([]byte(nil), raw...)
	c.decoded = j
	return j
}

// Store replaces the cached blob after a re-encode.
func (c *Cache) Store(raw []byte, j *Journal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.raw = append([]byte(nil), raw...)
	c.decoded = j
}
