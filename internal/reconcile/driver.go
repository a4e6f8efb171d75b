// Package reconcile drives remap passes against a keymap host: applying a
// layout translation to eligible entries, reconciling the journal with what
// the host actually holds, and reverting everything back.
//
// Failure policy: per-entry errors are logged and skipped, never raised.
// A pass always runs to completion and reports what happened.
package reconcile

import (
	"errors"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"keylayer/internal/journal"
	"keylayer/internal/keymap"
	"keylayer/internal/layout"
)

// State is the lifecycle state of one keymap category.
type State string

const (
	StateReverted    State = "REVERTED"
	StateApplying    State = "APPLYING"
	StateApplied     State = "APPLIED"
	StateReconciling State = "RECONCILING"
	StateReverting   State = "REVERTING"
)

// Status is the summary answer for one category.
type Status string

const (
	StatusReverted       Status = "REVERTED"
	StatusApplied        Status = "APPLIED"
	StatusNeedsReconcile Status = "NEEDS_RECONCILE"
)

// PassReport aggregates the outcome of one pass. Token identifies the pass
// in logs.
type PassReport struct {
	Token     string       `json:"token"`
	Applied   int          `json:"applied"`
	Updated   int          `json:"updated"`
	Skipped   int          `json:"skipped"`
	Reverted  int          `json:"reverted"`
	Forgotten int          `json:"forgotten"`
	Conflicts []*PassError `json:"conflicts,omitempty"`
	Errors    []*PassError `json:"errors,omitempty"`
}

// Options configure a driver.
type Options struct {
	Translation layout.Translation

	// AllowConflicts accepts non-bijective translations; contested
	// destinations are remapped anyway since the journal records every
	// source.
	AllowConflicts bool

	// ReapplyOnReload re-runs reconciliation on start and file load.
	ReapplyOnReload bool

	// DetectAddonChanges re-runs reconciliation when the host's add-on
	// set changes.
	DetectAddonChanges bool
}

// Driver owns the remap passes over one host and one journal.
// Not safe for concurrent use; callers serialize passes.
type Driver struct {
	host   keymap.Host
	jrn    *journal.Journal
	opts   Options
	active bool
	states map[string]State
	last   *PassReport
}

// NewDriver creates a driver. The journal may already carry records from a
// previous session; active should be set from persisted settings.
func NewDriver(host keymap.Host, jrn *journal.Journal, opts Options) *Driver {
	return &Driver{
		host:   host,
		jrn:    jrn,
		opts:   opts,
		states: make(map[string]State),
	}
}

// Journal exposes the driver's journal for persistence.
func (d *Driver) Journal() *journal.Journal { return d.jrn }

// Active reports whether emulation is currently enabled.
func (d *Driver) Active() bool { return d.active }

// SetActive restores the persisted emulation flag.
func (d *Driver) SetActive(active bool) { d.active = active }

// LastReport returns the report of the most recent pass, or nil.
func (d *Driver) LastReport() *PassReport { return d.last }

// Conflicts returns the conflicts recorded by the most recent pass.
func (d *Driver) Conflicts() []*PassError {
	if d.last == nil {
		return nil
	}
	return d.last.Conflicts
}

type passKind int

const (
	passApply passKind = iota
	passReconcile
)

// eligible mirrors the host-side remappability gate: keyboard entries on
// press or release only. Mouse, drag, timer and text-input entries never
// move with a layout.
func eligible(e keymap.Entry) bool {
	if e.Key.Class != keymap.ClassKeyboard {
		return false
	}
	return e.Key.Press == keymap.PressDown || e.Key.Press == keymap.PressRelease
}

// Apply remaps every unclaimed eligible entry through the translation and
// journals each move. Entries already journaled are left alone, so applying
// twice never remaps twice.
func (d *Driver) Apply() *PassReport {
	return d.pass(passApply)
}

// Reconcile is Apply plus journal hygiene: entries the host reset are
// re-remapped with their record updated in place, and records that no live
// entry matches anymore are forgotten.
func (d *Driver) Reconcile() *PassReport {
	return d.pass(passReconcile)
}

func (d *Driver) pass(kind passKind) *PassReport {
	report := &PassReport{Token: uuid.NewString()}
	d.last = report

	workingState := StateApplying
	if kind == passReconcile {
		workingState = StateReconciling
	}

	inputs := stringSet(d.opts.Translation.RemappedInputs())
	outputs := stringSet(d.opts.Translation.RemappedOutputs())
	conflicts := stringSet(d.opts.Translation.Conflicts())

	cats, err := d.host.Categories()
	if err != nil {
		slog.Error("listing keymap categories failed", "pass", report.Token, "error", err)
		return report
	}

	for _, cat := range cats {
		catID := cat.ID()
		d.states[catID] = workingState

		refs, err := d.host.Entries(cat)
		if err != nil {
			slog.Error("listing keymap entries failed",
				"pass", report.Token,
				"category", catID,
				"error", err)
			d.settleState(catID)
			continue
		}

		touched := make(map[*journal.Record]bool)
		for _, ref := range refs {
			d.visitEntry(report, catID, ref, inputs, outputs, conflicts, touched)
		}

		if kind == passReconcile {
			d.forgetUntouched(report, catID, touched)
		}
		d.settleState(catID)
	}

	slog.Info("remap pass complete",
		"pass", report.Token,
		"applied", report.Applied,
		"updated", report.Updated,
		"skipped", report.Skipped,
		"forgotten", report.Forgotten,
		"conflicts", len(report.Conflicts))
	return report
}

func (d *Driver) visitEntry(
	report *PassReport,
	catID string,
	ref keymap.EntryRef,
	inputs, outputs, conflicts map[string]bool,
	touched map[*journal.Record]bool,
) {
	e := ref.Entry()
	if !eligible(e) {
		return
	}
	char := layout.TypeToChar(e.Key.Key)
	in := inputs[char]
	if !in && !outputs[char] {
		return
	}

	live := journal.Live(e)
	m := journal.Resolve(live, d.jrn.Records(catID, e.Shortcut.Op))
	if m.Record != nil {
		touched[m.Record] = true
		if m.Side != journal.SideBefore || !in {
			// Sitting at its target, or somewhere the user moved it.
			return
		}
		// The host reset this entry to its source; re-remap and update
		// the record in place instead of journaling a duplicate.
		target := d.opts.Translation.MapInputToOutput(char)
		if conflicts[target] && !d.opts.AllowConflicts {
			report.Conflicts = append(report.Conflicts,
				NewConflictError(catID, e.Shortcut.Op, char, target))
			return
		}
		m.Record.Source = char
		m.Record.Target = target
		if d.setKey(report, catID, ref, e, target) {
			report.Updated++
			slog.Debug("reapplied reset entry",
				"category", catID,
				"operator", e.Shortcut.Op,
				"source", char,
				"target", target)
		}
		return
	}

	if !in {
		// Looks remapped but nothing claims it; not ours to touch.
		return
	}

	target := d.opts.Translation.MapInputToOutput(char)
	if conflicts[target] && !d.opts.AllowConflicts {
		report.Conflicts = append(report.Conflicts,
			NewConflictError(catID, e.Shortcut.Op, char, target))
		return
	}

	rec := &journal.Record{
		Op:        live.Print.Op,
		Props:     live.Print.Props,
		PropValue: live.Print.PropValue,
		Inactive:  live.Print.Inactive,
		Press:     live.Print.Press,
		Modifiers: live.Print.Modifiers,
		Source:    char,
		Target:    target,
	}
	// Journal before mutating, so a write that lands is always tracked.
	if !d.jrn.Append(catID, rec) {
		report.Errors = append(report.Errors, &PassError{
			Code:     ErrCodeDuplicateClaim,
			Message:  "identical entry already journaled",
			Category: catID,
			Operator: e.Shortcut.Op,
			Key:      char,
		})
		return
	}
	touched[rec] = true

	if target == char {
		report.Applied++
		return
	}
	if d.setKey(report, catID, ref, e, target) {
		report.Applied++
	}
}

// setKey writes the new key through the host, translating the character
// back to an event type. Returns false when the write did not land.
func (d *Driver) setKey(report *PassReport, catID string, ref keymap.EntryRef, e keymap.Entry, targetChar string) bool {
	err := ref.SetKey(e.Key.WithKey(layout.CharToType(targetChar)))
	if err == nil {
		return true
	}
	if errors.Is(err, keymap.ErrMutationForbidden) {
		// Expected at some lifecycle points; the next pass picks the
		// entry up again.
		slog.Debug("host forbids keymap mutation, skipping entry",
			"category", catID,
			"operator", e.Shortcut.Op)
		report.Skipped++
		return false
	}
	slog.Error("keymap write failed",
		"category", catID,
		"operator", e.Shortcut.Op,
		"error", err)
	report.Skipped++
	return false
}

// forgetUntouched drops records in a category that no live entry resolved
// to during the pass. The host deleted or rebound those entries; keeping
// their records would only misfire on future matches.
func (d *Driver) forgetUntouched(report *PassReport, catID string, touched map[*journal.Record]bool) {
	var stale []*journal.Record
	for _, op := range d.jrn.Operators(catID) {
		for _, rec := range d.jrn.Records(catID, op) {
			if !touched[rec] {
				stale = append(stale, rec)
			}
		}
	}
	for _, rec := range stale {
		d.jrn.Forget(catID, rec)
		report.Forgotten++
		slog.Debug("forgetting unresolvable journal record",
			"category", catID,
			"operator", rec.Op,
			"source", rec.Source,
			"target", rec.Target)
	}
}

// settleState records the resting state of a category after a pass.
func (d *Driver) settleState(catID string) {
	if d.jrn.HasCategory(catID) {
		d.states[catID] = StateApplied
	} else {
		d.states[catID] = StateReverted
	}
}

// Revert restores every resolvable entry to its journaled source key, then
// clears the journal regardless. Unresolvable records are logged and
// counted; reverting with an empty journal is a no-op.
func (d *Driver) Revert() *PassReport {
	report := &PassReport{Token: uuid.NewString()}
	d.last = report

	touched := make(map[*journal.Record]bool)
	cats, err := d.host.Categories()
	if err != nil {
		slog.Error("listing keymap categories failed", "pass", report.Token, "error", err)
		cats = nil
	}

	for _, cat := range cats {
		catID := cat.ID()
		if !d.jrn.HasCategory(catID) {
			d.states[catID] = StateReverted
			continue
		}
		d.states[catID] = StateReverting

		refs, err := d.host.Entries(cat)
		if err != nil {
			slog.Error("listing keymap entries failed",
				"pass", report.Token,
				"category", catID,
				"error", err)
			d.states[catID] = StateReverted
			continue
		}
		for _, ref := range refs {
			e := ref.Entry()
			if !eligible(e) {
				continue
			}
			recs := d.jrn.Records(catID, e.Shortcut.Op)
			if len(recs) == 0 {
				continue
			}
			live := journal.Live(e)
			m := journal.Resolve(live, recs)
			if m.Record == nil {
				continue
			}
			touched[m.Record] = true
			if m.Record.Source == "" || live.Char == m.Record.Source {
				continue
			}
			if d.setKey(report, catID, ref, e, m.Record.Source) {
				report.Reverted++
			}
		}
		d.states[catID] = StateReverted
	}

	for _, cr := range d.jrn.All() {
		if touched[cr.Record] {
			continue
		}
		report.Forgotten++
		report.Errors = append(report.Errors,
			NewUnresolvableError(cr.Category, cr.Record.Op, cr.Record.Source, cr.Record.Target))
		slog.Debug("journaled remap not found during revert",
			"category", cr.Category,
			"operator", cr.Record.Op,
			"source", cr.Record.Source,
			"target", cr.Record.Target)
	}

	// Tracking state is cleared even when some entries could not be
	// restored; a stale journal is worse than a lost record.
	d.jrn.Clear()

	slog.Info("revert pass complete",
		"pass", report.Token,
		"reverted", report.Reverted,
		"forgotten", report.Forgotten,
		"skipped", report.Skipped)
	return report
}

// Status summarizes one category: Reverted when nothing is journaled,
// NeedsReconcile when unclaimed or host-reset entries are pending, Applied
// otherwise.
func (d *Driver) Status(cat keymap.Category) Status {
	catID := cat.ID()
	if !d.jrn.HasCategory(catID) {
		return StatusReverted
	}
	if d.hasPending(cat) {
		return StatusNeedsReconcile
	}
	return StatusApplied
}

// hasPending reports whether a category holds entries the next pass would
// touch.
func (d *Driver) hasPending(cat keymap.Category) bool {
	catID := cat.ID()
	inputs := stringSet(d.opts.Translation.RemappedInputs())

	refs, err := d.host.Entries(cat)
	if err != nil {
		slog.Error("listing keymap entries failed", "category", catID, "error", err)
		return false
	}
	for _, ref := range refs {
		e := ref.Entry()
		if !eligible(e) {
			continue
		}
		char := layout.TypeToChar(e.Key.Key)
		if !inputs[char] {
			continue
		}
		m := journal.Resolve(journal.Live(e), d.jrn.Records(catID, e.Shortcut.Op))
		if m.Record == nil || m.Side == journal.SideBefore {
			return true
		}
	}
	return false
}

// States returns a copy of the per-category state table, keyed by category
// id.
func (d *Driver) States() map[string]State {
	out := make(map[string]State, len(d.states))
	for k, v := range d.states {
		out[k] = v
	}
	return out
}

// CategoryIDs returns the known category ids, sorted: every host category
// plus any journaled category the host no longer reports.
func (d *Driver) CategoryIDs() []string {
	seen := make(map[string]bool)
	var out []string
	if cats, err := d.host.Categories(); err == nil {
		for _, cat := range cats {
			id := cat.ID()
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	for _, id := range d.jrn.Categories() {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

func stringSet(keys []string) map[string]bool {
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set
}
