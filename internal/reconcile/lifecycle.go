package reconcile

import "log/slog"

// Lifecycle entry points. The host (or the CLI standing in for it) calls
// these at well-defined moments; each returns the pass report, or nil when
// the moment required no pass.

// OnStart runs after the host finishes loading. Reconciles when emulation
// is active and reapply-on-reload is enabled.
func (d *Driver) OnStart() *PassReport {
	if !d.active || !d.opts.ReapplyOnReload {
		return nil
	}
	slog.Debug("reconciling on start")
	return d.Reconcile()
}

// OnFileLoad runs after the host loads a new file, which can rebuild parts
// of the keymap.
func (d *Driver) OnFileLoad() *PassReport {
	if !d.active || !d.opts.ReapplyOnReload {
		return nil
	}
	slog.Debug("reconciling on file load")
	return d.Reconcile()
}

// OnAddonListChanged runs when the host's add-on set changes; newly
// registered add-ons bring unremapped entries with them.
func (d *Driver) OnAddonListChanged() *PassReport {
	if !d.active || !d.opts.DetectAddonChanges {
		return nil
	}
	slog.Debug("reconciling on add-on list change")
	return d.Reconcile()
}

// OnUserApply enables emulation and applies the translation.
func (d *Driver) OnUserApply() *PassReport {
	d.active = true
	return d.Apply()
}

// OnUserRevert disables emulation and restores the keymap.
func (d *Driver) OnUserRevert() *PassReport {
	d.active = false
	return d.Revert()
}

// OnTeardown runs when the driver's owner is being unloaded. Reverts
// best-effort; hosts commonly forbid keymap writes at this point, which
// Revert already treats as a skip rather than a failure.
func (d *Driver) OnTeardown() *PassReport {
	if !d.active {
		return nil
	}
	slog.Debug("best-effort revert on teardown")
	return d.Revert()
}
