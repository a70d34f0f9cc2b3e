package dfsengine

import (
	"context"
	"time"
)

// Domain is a regulatory domain identifier. The engine is inert unless the
// active domain is ETSI (§1, §6).
type Domain int

const (
	DomainUnknown Domain = iota
	DomainETSI
	DomainFCC
	DomainOther
)

// PHYMode selects which PHY table a regulatory lookup should use.
type PHYMode int

const (
	PHYModeAuto PHYMode = iota
	PHYMode11A
	PHYMode11AC
	PHYMode11AX
)

// RegChannel is one entry of the regulatory channel table (§6:
// iterate_channels returns a sequence of these).
type RegChannel struct {
	Freq  uint16
	Flags uint32
	IsDFS bool
	Seg1  uint16 // VHT80/160 segment-1 center this channel belongs to
	Seg2  uint16 // VHT80 segment-2 center for 80+80/160, 0 otherwise
	Width Bandwidth
}

// Regulatory is the external regulatory-domain collaborator (§6). The
// engine never decides DFS-ness itself; it is always delegated here.
type Regulatory interface {
	DFSDomain(ctx context.Context) (Domain, error)
	IterateChannels(ctx context.Context) ([]RegChannel, error)
	FindChannel(ctx context.Context, freq uint16, mode PHYMode) (RegChannel, bool, error)
}

// Management is the upward signaling collaborator (§6): channel-switch
// announcements and precac-driven channel changes.
type Management interface {
	ChannelChangeByPrecac(ctx context.Context) error
	PrecacChanChangeCSA(ctx context.Context, targetFreq uint16, mode PHYMode) error
}

// AgileChanConfig is the parameter block passed to the firmware's agile
// off-channel-CAC configuration call.
type AgileChanConfig struct {
	TargetFreq uint16
	Width      Bandwidth
	MinTimeout time.Duration
	MaxTimeout time.Duration
	RadioIndex uint8
}

// Firmware is the lower-MAC transport collaborator (§6).
type Firmware interface {
	AgileChanConfig(ctx context.Context, cfg AgileChanConfig) error
	OCACAbort(ctx context.Context) error
}

// TimerHandle is a single armed timer. Cancel is best-effort and never
// blocks: it stops the timer if it hasn't fired yet, but does not wait for
// an in-flight callback to finish. Callers never hold Engine.mu across a
// blocking wait, so a fire racing a cancel cannot deadlock; the engine
// instead recognizes and drops stale fires via a generation token (§5).
type TimerHandle interface {
	Cancel()
}

// TimerSource arms one-shot timers on the host OS timer primitive (§6).
type TimerSource interface {
	Arm(d time.Duration, fire func()) TimerHandle
}

// PrimaryCACStatus reports whether the radio's own primary-channel CAC is
// currently running, used by §4.8's racing-timeout rule.
type PrimaryCACStatus interface {
	IsPrimaryCACRunning(ctx context.Context) bool
}

// realTimerHandle adapts time.Timer to TimerHandle.
type realTimerHandle struct {
	t *time.Timer
}

// Cancel stops the underlying timer. If fire is already running (or about
// to run) on another goroutine, Stop returns false and Cancel returns
// without waiting for it — the engine's generation token makes that fire a
// no-op instead.
func (h *realTimerHandle) Cancel() {
	h.t.Stop()
}

// RealTimer is the default TimerSource, backed by time.AfterFunc.
type RealTimer struct{}

func (RealTimer) Arm(d time.Duration, fire func()) TimerHandle {
	t := time.AfterFunc(d, fire)

	return &realTimerHandle{t: t}
}

// NoopManagement and NoopFirmware are test/dry-run collaborators: they
// record nothing is reachable and simply succeed, mirroring samoyed's
// pattern of swapping a real backend for a pure-Go stand-in behind the same
// call sites (dns_sd.go swapping Avahi for brutella/dnssd).
type NoopManagement struct{}

func (NoopManagement) ChannelChangeByPrecac(context.Context) error { return nil }

func (NoopManagement) PrecacChanChangeCSA(context.Context, uint16, PHYMode) error { return nil }

type NoopFirmware struct{}

func (NoopFirmware) AgileChanConfig(context.Context, AgileChanConfig) error { return nil }

func (NoopFirmware) OCACAbort(context.Context) error { return nil }

// NeverRunningPrimaryCAC is the trivial PrimaryCACStatus stand-in NewEngine
// falls back to when no PrimaryCAC collaborator is configured.
type NeverRunningPrimaryCAC struct{}

func (NeverRunningPrimaryCAC) IsPrimaryCACRunning(context.Context) bool { return false }
