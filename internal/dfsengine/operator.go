package dfsengine

import "context"

// SetPrecacEnable is C7's top-level on/off switch (§6).
func (e *Engine) SetPrecacEnable(ctx context.Context, enable bool) error {
	if !enable {
		e.Disable()

		return nil
	}

	return e.Enable(ctx)
}

// OverridePrecacTimeout sets an operator-forced CAC duration in seconds;
// -1 restores the regulatory default (§3, §4.8).
func (e *Engine) OverridePrecacTimeout(seconds int32) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.overrideSec = seconds
}

// SetPrecacIntermediateChan sets the non-DFS parking channel the radio sits
// on while pre-CAC of a future home channel is pending (§4.9, §6). Rejects a
// DFS frequency without mutating operator state.
func (e *Engine) SetPrecacIntermediateChan(ctx context.Context, freq uint16) error {
	if e.reg != nil {
		ch, found, err := e.reg.FindChannel(ctx, freq, PHYModeAuto)
		if err != nil {
			return err
		}

		if found && ch.IsDFS {
			return ErrInvalidIntermediateChannel
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.intermedFreq = freq

	return nil
}

// GetPrecacIntermediateChan returns the current parking channel. Per
// SPEC_FULL.md §9's Open Question decision, this is validated only at the
// time it was set — it is never retroactively re-checked against the
// regulatory table.
func (e *Engine) GetPrecacIntermediateChan() uint16 {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.intermedFreq
}

// RequestPreferredChannel implements §4.9's operator-requested home
// channel: park on the intermediate frequency until freq's pre-CAC
// completes, at which point the timer-expiry path issues the CSA
// (checkAutoswitchLocked). If freq is already done, switch immediately.
func (e *Engine) RequestPreferredChannel(ctx context.Context, freq uint16) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.autoswitchTgt = freq
	e.checkAutoswitchLocked(ctx)
}

// DecidePrecacPreferredChan implements §6's decide_precac_preferred_chan:
// reports whether the caller should be redirected to the intermediate
// parking channel rather than freq directly, because freq is a DFS channel
// whose pre-CAC is not yet complete.
func (e *Engine) DecidePrecacPreferredChan(ctx context.Context, freq uint16, mode PHYMode) (bool, error) {
	if e.reg == nil {
		return false, nil
	}

	ch, found, err := e.reg.FindChannel(ctx, freq, mode)
	if err != nil {
		return false, err
	}

	if !found || !ch.IsDFS {
		return false, nil
	}

	return !e.forest.IsCACDone(freq), nil
}

// GetPrecacChanState is the operator surface's full §4.4 chan-state query:
// if freq is the engine's current pre-CAC timer target, report ChanStateNow
// regardless of what the forest's tree-only state would say — matching
// original_source's dfs_get_precac_chan_state, which checks
// dfs_is_precac_timer_running before falling back to the tree state. Every
// other state comes from Forest.GetChanState.
func (e *Engine) GetPrecacChanState(freq uint16) ChanState {
	e.mu.Lock()
	running := e.timerRunning && e.targetFreq == freq
	e.mu.Unlock()

	if running {
		return ChanStateNow
	}

	return e.forest.GetChanState(freq)
}

// SetPrecacPreferredNext wraps Forest.RotateToHead (§4.10).
func (e *Engine) SetPrecacPreferredNext(freq uint16, width Bandwidth) {
	e.forest.RotateToHead(freq, width)
}

// PrintPrecacLists wraps Forest.PrintPrecacLists (§6).
func (e *Engine) PrintPrecacLists() []string {
	return e.forest.PrintPrecacLists()
}

// ResetPrecacLists implements §6's reset_precaclists: cancel any running
// timer, tear down and rebuild the forest from the regulatory collaborator
// from scratch, and return to mode off (the operator must re-enable).
func (e *Engine) ResetPrecacLists(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cancelTimerLocked()
	e.mode = ModeOff
	e.autoswitchTgt = 0

	if e.forest == nil || e.reg == nil {
		return nil
	}

	return e.forest.Reset(ctx, e.reg)
}
