package dfsengine

import (
	"context"
	"sync"
	"time"

	"testing"

	"github.com/stretchr/testify/assert"
)

// fakeTimerHandle/fakeTimerSource let tests fire the engine's timer
// callback synchronously instead of waiting on a real clock.
type fakeTimerHandle struct {
	canceled bool
}

func (h *fakeTimerHandle) Cancel() { h.canceled = true }

type fakeTimerSource struct {
	mu    sync.Mutex
	armed []func()
}

func (f *fakeTimerSource) Arm(_ time.Duration, fire func()) TimerHandle {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.armed = append(f.armed, fire)

	return &fakeTimerHandle{} //nolint:exhaustruct
}

// fireLast invokes the most recently armed callback, simulating timer
// expiry.
func (f *fakeTimerSource) fireLast() {
	f.mu.Lock()
	fire := f.armed[len(f.armed)-1]
	f.mu.Unlock()

	fire()
}

func newTestEngine(agile bool) (*Engine, *fakeTimerSource, *Forest) {
	domain := NewStaticETSIDomain()
	forest, _ := NewForest(context.Background(), domain, nil) //nolint:errcheck

	timers := &fakeTimerSource{} //nolint:exhaustruct

	engine := NewEngine(EngineConfig{ //nolint:exhaustruct
		Forest:        forest,
		Regulatory:    domain,
		Timers:        timers,
		LegacyCapable: !agile,
		AgileCapable:  agile,
	})

	return engine, timers, forest
}

func TestEngine_LegacyEnableArmsFirstCandidate(t *testing.T) {
	engine, timers, forest := newTestEngine(false)

	err := engine.Enable(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, ModeLegacyRunning, engine.Mode())
	assert.Equal(t, ChannelToFreq(58), engine.targetFreq)
	assert.Len(t, timers.armed, 1)

	_ = forest
}

func TestEngine_LegacyTimeoutMarksDoneAndAdvances(t *testing.T) {
	engine, timers, forest := newTestEngine(false)

	assert.NoError(t, engine.Enable(context.Background()))

	first := engine.targetFreq
	timers.fireLast()

	assert.True(t, forest.IsCACDone(first))
	assert.Equal(t, ModeLegacyRunning, engine.Mode())
	assert.NotEqual(t, first, engine.targetFreq)
}

func TestEngine_AgileEnableUsesMappedWidth(t *testing.T) {
	engine, timers, _ := newTestEngine(true)
	engine.SetServingChannel(OperatingChannel{Width: BW160, Seg1: ChannelToFreq(58)}) //nolint:exhaustruct

	assert.NoError(t, engine.Enable(context.Background()))
	assert.Equal(t, BW80, engine.targetWidth)
	assert.Len(t, timers.armed, 1)
}

func TestEngine_AutoswitchHaltsOnCompletion(t *testing.T) {
	engine, timers, forest := newTestEngine(false)

	var csaTarget uint16

	engine.mgmt = &recordingManagement{
		onCSA: func(freq uint16) { csaTarget = freq },
	}

	assert.NoError(t, engine.Enable(context.Background()))

	target := engine.targetFreq
	engine.RequestPreferredChannel(context.Background(), target)

	timers.fireLast()

	assert.True(t, forest.IsCACDone(target))
	assert.Equal(t, target, csaTarget)
	assert.Equal(t, ModeOff, engine.Mode())
	assert.Equal(t, target, engine.GetPrecacIntermediateChan())
}

func TestEngine_RadarOnSecondaryRepicks(t *testing.T) {
	engine, timers, forest := newTestEngine(false)
	assert.NoError(t, engine.Enable(context.Background()))

	target := engine.targetFreq

	engine.MarkNOL(context.Background(), true, 0, []uint16{target - 10})

	assert.Equal(t, ModeLegacyRunning, engine.Mode())
	assert.NotEqual(t, target, engine.targetFreq)
	assert.Len(t, timers.armed, 2)

	_ = forest
}

func TestEngine_RadarOnPrimaryInvokesCallback(t *testing.T) {
	engine, _, _ := newTestEngine(false)
	assert.NoError(t, engine.Enable(context.Background()))

	var gotFreq uint16

	engine.OnPrimaryRadarExternal = func(freq uint16) { gotFreq = freq }

	engine.MarkNOL(context.Background(), false, 0, []uint16{5260})

	assert.Equal(t, ModeOff, engine.Mode())
	assert.Equal(t, uint16(5260), gotFreq)
}

func TestEngine_ProcessOCACCompleteSuccess(t *testing.T) {
	engine, timers, forest := newTestEngine(true)
	assert.NoError(t, engine.Enable(context.Background()))

	target := engine.targetFreq
	targetWidth := engine.targetWidth

	engine.ProcessOCACComplete(context.Background(), OCACSuccess, target)

	assert.True(t, forest.IsCACDone(target))
	assert.Equal(t, ModeAgileRunning, engine.Mode())
	assert.NotEqual(t, target, engine.targetFreq)

	_ = targetWidth
	assert.GreaterOrEqual(t, len(timers.armed), 2)
}

func TestEngine_DisableCancelsTimer(t *testing.T) {
	engine, timers, _ := newTestEngine(false)
	assert.NoError(t, engine.Enable(context.Background()))

	engine.Disable()

	assert.Equal(t, ModeOff, engine.Mode())
	assert.False(t, engine.timerRunning)

	_ = timers
}

func TestEngine_GetPrecacChanState_NowForActiveTarget(t *testing.T) {
	engine, _, _ := newTestEngine(false)
	assert.NoError(t, engine.Enable(context.Background()))

	target := engine.targetFreq
	other := ChannelToFreq(106) // a different tree's root, still pending

	assert.Equal(t, ChanStateNow, engine.GetPrecacChanState(target))
	assert.Equal(t, ChanStateRequired, engine.GetPrecacChanState(other))
}

func TestDurations_WeatherBandUsesLongerMinimum(t *testing.T) {
	regularMin, _ := cacDuration(5290, BW80, -1)
	weatherMin, _ := cacDuration(5630, BW80, -1)

	assert.Equal(t, MinPrecacDuration, regularMin)
	assert.Equal(t, MinWeatherPrecacDuration, weatherMin)
	assert.Greater(t, weatherMin, regularMin)
}

func TestDurations_OperatorOverrideWins(t *testing.T) {
	d, maxD := cacDuration(5630, BW80, 5)
	assert.Equal(t, 5*time.Second, d)
	assert.Equal(t, MaxPrecacDuration, maxD)
}
