package dfsengine

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
)

// Mode is the timer/mode machine's top-level state (§3, §4.7).
type Mode int

const (
	ModeOff Mode = iota
	ModeLegacySelecting
	ModeLegacyRunning
	ModeAgileSelecting
	ModeAgileRunning
)

// OCACStatus is the firmware-reported three-state result of an
// off-channel-CAC attempt, agile mode only (§4.7).
type OCACStatus int

const (
	OCACSuccess OCACStatus = iota
	OCACReset
	OCACCancel
)

// Engine (C5) owns the single pre-CAC timer, the current pre-CAC target, and
// the legacy/agile mode machine. All fields below "Timer state" in §3 live
// here; all mutation is guarded by mu, matching the teacher's single
// mheard_mutex guarding one long-lived state struct (mheard.go).
type Engine struct {
	mu sync.Mutex

	forest *Forest
	reg    Regulatory
	mgmt   Management
	fw     Firmware
	timers TimerSource
	pricac PrimaryCACStatus
	logger *log.Logger

	legacyCapable bool
	agileCapable  bool
	numRadios     uint8

	mode          Mode
	timerRunning  bool
	timerHandle   TimerHandle
	timerGen      uint64 // bumped on every cancel; invalidates in-flight fires
	targetFreq    uint16
	targetWidth   Bandwidth
	radioIndex    uint8
	targetRadio   uint8 // radio index the currently-running agile target used
	ocacStatus    OCACStatus
	autoswitchTgt uint16
	intermedFreq  uint16
	overrideSec   int32 // -1 = default

	serving OperatingChannel

	// OnPrimaryRadarExternal is invoked (never acted on internally) when
	// radar is reported on the primary segment of the serving channel —
	// the open design-note callback (SPEC_FULL.md §9): the engine only
	// cancels its own timer and defers the channel-change decision to
	// whoever sets this.
	OnPrimaryRadarExternal func(freq uint16)
}

// EngineConfig bundles the collaborators and capability flags an Engine is
// built from, mirroring samoyed's misc_config_s/audio_s struct-of-handles
// construction pattern rather than variadic options.
type EngineConfig struct {
	Forest        *Forest
	Regulatory    Regulatory
	Management    Management
	Firmware      Firmware
	Timers        TimerSource
	PrimaryCAC    PrimaryCACStatus
	Logger        *log.Logger
	LegacyCapable bool
	AgileCapable  bool
	NumRadios     uint8
}

// NewEngine constructs an Engine in mode off. Nil collaborator fields fall
// back to the package's Noop/Real stand-ins so tests may supply only what
// they exercise.
func NewEngine(cfg EngineConfig) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	timers := cfg.Timers
	if timers == nil {
		timers = RealTimer{}
	}

	mgmt := cfg.Management
	if mgmt == nil {
		mgmt = NoopManagement{}
	}

	fw := cfg.Firmware
	if fw == nil {
		fw = NoopFirmware{}
	}

	pricac := cfg.PrimaryCAC
	if pricac == nil {
		pricac = NeverRunningPrimaryCAC{}
	}

	numRadios := cfg.NumRadios
	if numRadios == 0 {
		numRadios = 1
	}

	return &Engine{ //nolint:exhaustruct
		forest:        cfg.Forest,
		reg:           cfg.Regulatory,
		mgmt:          mgmt,
		fw:            fw,
		timers:        timers,
		pricac:        pricac,
		logger:        logger,
		legacyCapable: cfg.LegacyCapable,
		agileCapable:  cfg.AgileCapable,
		numRadios:     numRadios,
		mode:          ModeOff,
		overrideSec:   -1,
	}
}

// SetLogger overrides the engine's logger, for test silencing.
func (e *Engine) SetLogger(logger *log.Logger) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.logger = logger
}

// SetServingChannel records the channel the radio currently serves; used by
// exclusion accounting (§4.6) on the next selection.
func (e *Engine) SetServingChannel(ch OperatingChannel) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.serving = ch
}

// Mode reports the engine's current top-level state.
func (e *Engine) Mode() Mode {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.mode
}

// Enable implements §4.7's off→legacy_selecting / off→agile_selecting
// transition: queries the regulatory domain, and if ETSI and a capable mode
// is configured, picks an initial candidate and arms the timer.
func (e *Engine) Enable(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.forest == nil || e.reg == nil {
		e.logger.Error("enable: no forest/regulatory collaborator configured")

		return nil
	}

	domain, err := e.reg.DFSDomain(ctx)
	if err != nil {
		return err
	}

	if domain != DomainETSI {
		e.logger.Info("enable: non-ETSI domain, pre-CAC stays off", "domain", domain)
		e.mode = ModeOff

		return nil
	}

	switch {
	case e.agileCapable:
		e.mode = ModeAgileSelecting
		e.pickAndArmAgileLocked(ctx)
	case e.legacyCapable:
		e.mode = ModeLegacySelecting
		e.pickAndArmLegacyLocked(ctx)
	default:
		e.logger.Info("enable: no pre-CAC capability configured")
	}

	return nil
}

// Disable cancels any running timer and returns to mode off.
func (e *Engine) Disable() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cancelTimerLocked()
	e.mode = ModeOff
}

// cancelTimerLocked stops the current timer, if any, and bumps the
// generation token so that a fire already in flight on another goroutine
// (Cancel does not wait for it, see TimerHandle) is recognized as stale and
// dropped by onTimeout instead of acting on post-cancel state.
func (e *Engine) cancelTimerLocked() {
	e.timerGen++

	if e.timerHandle != nil {
		e.timerHandle.Cancel()
		e.timerHandle = nil
	}

	e.timerRunning = false
}

// pickAndArmLegacyLocked implements the legacy_selecting state: pick a
// candidate excluding the current primary, arm on success (§4.7).
func (e *Engine) pickAndArmLegacyLocked(ctx context.Context) {
	candidate := e.forest.Select(e.serving, BW80)
	if candidate == 0 {
		e.logger.Debug("legacy pre-CAC: no candidate available")
		e.timerRunning = false

		return
	}

	e.targetFreq = candidate
	e.targetWidth = BW80
	e.armLocked(ctx, candidate, BW80)
	e.mode = ModeLegacyRunning

	if err := e.mgmt.ChannelChangeByPrecac(ctx); err != nil {
		e.logger.Error("legacy pre-CAC: channel-change-by-precac failed", "err", err)
	}
}

// pickAndArmAgileLocked mirrors pickAndArmLegacyLocked for the agile mode,
// mapping the serving width to the agile pre-CAC width (§4.7) and advancing
// the round-robin radio index.
func (e *Engine) pickAndArmAgileLocked(ctx context.Context) {
	width := agileWidthFor(e.serving.Width)

	candidate := e.forest.Select(e.serving, width)
	if candidate == 0 {
		e.logger.Debug("agile pre-CAC: no candidate available")
		e.timerRunning = false

		return
	}

	e.targetFreq = candidate
	e.targetWidth = width
	e.targetRadio = e.radioIndex
	e.armLocked(ctx, candidate, width)
	e.mode = ModeAgileRunning

	cfg := AgileChanConfig{
		TargetFreq: candidate,
		Width:      width,
		MinTimeout: armDuration(candidate, width, e.overrideSec),
		MaxTimeout: MaxPrecacDuration,
		RadioIndex: e.radioIndex,
	}

	if err := e.fw.AgileChanConfig(ctx, cfg); err != nil {
		e.logger.Error("agile pre-CAC: firmware config failed", "err", err)
	}

	e.radioIndex = (e.radioIndex + 1) % e.numRadios
}

// armLocked arms the host timer for a candidate per §4.8, applying the
// racing-primary-CAC exception when the serving primary is itself under CAC.
func (e *Engine) armLocked(ctx context.Context, freq uint16, width Bandwidth) {
	e.cancelTimerLocked()

	var duration = armDuration(freq, width, e.overrideSec)

	if e.pricac != nil && e.pricac.IsPrimaryCACRunning(ctx) {
		primaryMin, _ := cacDuration(e.serving.Seg1, e.serving.Width, e.overrideSec)
		secondaryMin, _ := cacDuration(freq, width, e.overrideSec)
		duration = racingPrimaryArmDuration(primaryMin, secondaryMin)
	}

	target := freq
	gen := e.timerGen

	e.timerHandle = e.timers.Arm(duration, func() {
		e.onTimeout(context.Background(), gen, target, width)
	})
	e.timerRunning = true
}

// onTimeout is the timer callback. It re-acquires the lock (running outside
// any other lock per §9's design note) and dispatches to the legacy or agile
// expiry handler. gen must still match the engine's current timer
// generation — it won't if this fire raced a cancelTimerLocked call that
// already moved the engine on (§5) — otherwise the fire is stale and ignored.
func (e *Engine) onTimeout(ctx context.Context, gen uint64, freq uint16, width Bandwidth) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.timerRunning || gen != e.timerGen {
		return
	}

	switch e.mode {
	case ModeLegacyRunning:
		e.onLegacyTimeoutLocked(ctx, freq, width)
	case ModeAgileRunning:
		e.onAgileTimeoutLocked(ctx, freq, width)
	case ModeOff, ModeLegacySelecting, ModeAgileSelecting:
	}
}

// onLegacyTimeoutLocked implements §4.7's legacy_running→legacy_selecting
// transition: mark-done, check the auto-switch target (§4.9), else continue.
func (e *Engine) onLegacyTimeoutLocked(ctx context.Context, freq uint16, width Bandwidth) {
	e.forest.MarkCACDone(freq, width)
	e.mode = ModeLegacySelecting

	if e.checkAutoswitchLocked(ctx) {
		return
	}

	e.pickAndArmLegacyLocked(ctx)
}

// onAgileTimeoutLocked implements the agile sibling, including the
// ocac_status three-state (§4.7). Timer-driven expiry without an explicit
// ProcessOCACComplete call is treated as a success per the state machine's
// default completion path.
func (e *Engine) onAgileTimeoutLocked(ctx context.Context, freq uint16, width Bandwidth) {
	e.forest.MarkCACDone(freq, width)
	e.mode = ModeAgileSelecting

	if e.checkAutoswitchLocked(ctx) {
		return
	}

	e.pickAndArmAgileLocked(ctx)
}

// checkAutoswitchLocked implements §4.9: if an auto-switch target is
// pending and now done, issue the CSA and halt pre-CAC, returning true.
func (e *Engine) checkAutoswitchLocked(ctx context.Context) bool {
	if e.autoswitchTgt == 0 || !e.forest.IsCACDone(e.autoswitchTgt) {
		return false
	}

	if err := e.mgmt.PrecacChanChangeCSA(ctx, e.autoswitchTgt, PHYModeAuto); err != nil {
		e.logger.Error("autoswitch: csa failed", "freq", e.autoswitchTgt, "err", err)

		return false
	}

	e.intermedFreq = e.autoswitchTgt
	e.autoswitchTgt = 0
	e.cancelTimerLocked()
	e.mode = ModeOff

	return true
}
