package dfsengine

import "context"

// MarkNOL implements C6's radar hook (§6: mark_precac_nol). freqList is
// treated as 20 MHz leaf frequencies. isOnSecondarySeg distinguishes radar
// on the pre-CAC target itself (secondary) from radar on the currently
// serving primary; detectorID identifies which agile radio reported it,
// used to match the round-robin index in agile mode.
func (e *Engine) MarkNOL(ctx context.Context, isOnSecondarySeg bool, detectorID uint8, freqList []uint16) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.forest != nil {
		e.forest.MarkNOL(freqList)
	}

	switch e.mode {
	case ModeLegacyRunning:
		e.cancelTimerLocked()

		if isOnSecondarySeg {
			e.mode = ModeLegacySelecting
			e.pickAndArmLegacyLocked(ctx)

			return
		}

		// Radar on the primary: the channel-change decision belongs to
		// the external selector (§9 open question), not this engine.
		e.mode = ModeOff

		if e.OnPrimaryRadarExternal != nil && len(freqList) > 0 {
			e.OnPrimaryRadarExternal(freqList[0])
		}
	case ModeAgileRunning:
		e.cancelTimerLocked()

		if detectorID == e.targetRadio {
			e.mode = ModeAgileSelecting
			e.pickAndArmAgileLocked(ctx)

			return
		}

		// Radar came from a different agile radio than the one
		// currently under test: drop the stale target rather than
		// advancing the round robin on its behalf.
		e.targetFreq = 0
	case ModeOff, ModeLegacySelecting, ModeAgileSelecting:
	}
}

// UnmarkNOL implements C6's unmark_precac_nol(freq) hook. Scenario 6 (§8):
// with no timer running, clearing NOL re-kicks pre-CAC selection — via
// mgmt.channel_change_by_precac for legacy (if no primary CAC is racing),
// or by re-arming the agile candidate search.
func (e *Engine) UnmarkNOL(ctx context.Context, freq uint16) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.forest != nil {
		e.forest.UnmarkNOL(freq)
	}

	if e.timerRunning {
		return
	}

	switch {
	case e.legacyCapable && !e.pricac.IsPrimaryCACRunning(ctx):
		if err := e.mgmt.ChannelChangeByPrecac(ctx); err != nil {
			e.logger.Error("unmark-nol: channel-change-by-precac failed", "err", err)
		}
	case e.agileCapable:
		e.mode = ModeAgileSelecting
		e.pickAndArmAgileLocked(ctx)
	}
}

// ProcessOCACComplete is the agile firmware hook (§6, §4.7): the three
// ocac_status outcomes of an off-channel-CAC attempt.
func (e *Engine) ProcessOCACComplete(ctx context.Context, status OCACStatus, centerFreq uint16) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.ocacStatus = status

	switch status {
	case OCACSuccess:
		e.forest.MarkCACDone(centerFreq, e.targetWidth)
		e.cancelTimerLocked()
		e.mode = ModeAgileSelecting

		if !e.checkAutoswitchLocked(ctx) {
			e.pickAndArmAgileLocked(ctx)
		}
	case OCACReset:
		e.mode = ModeAgileSelecting
		e.pickAndArmAgileLocked(ctx)
	case OCACCancel:
		e.cancelTimerLocked()
		e.mode = ModeAgileSelecting
	}
}
