package dfsengine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

// fccDomain is a minimal non-ETSI Regulatory stand-in for scenario 1.
type fccDomain struct{}

func (fccDomain) DFSDomain(context.Context) (Domain, error) { return DomainFCC, nil }

func (fccDomain) IterateChannels(context.Context) ([]RegChannel, error) { return nil, nil }

func (fccDomain) FindChannel(context.Context, uint16, PHYMode) (RegChannel, bool, error) {
	return RegChannel{}, false, nil //nolint:exhaustruct
}

func TestScenario1_EmptyInitNonETSI(t *testing.T) {
	forest, err := NewForest(context.Background(), fccDomain{}, nil)
	assert.NoError(t, err)
	assert.Empty(t, forest.trees)

	serving := OperatingChannel{Width: BW80, Seg1: 5290} //nolint:exhaustruct
	assert.Zero(t, forest.Select(serving, BW80))
}

func TestScenario2_ETSIInit(t *testing.T) {
	domain := NewStaticETSIDomain()
	forest, err := NewForest(context.Background(), domain, nil)
	assert.NoError(t, err)

	var roots []uint16
	for _, tr := range forest.trees {
		roots = append(roots, tr.center)
	}

	assert.Contains(t, roots, ChannelToFreq(58))
	assert.Contains(t, roots, ChannelToFreq(106))
	assert.Contains(t, roots, ChannelToFreq(122))
	assert.Contains(t, roots, ChannelToFreq(138))

	assert.False(t, forest.IsCACDone(ChannelToFreq(100)))

	for _, tr := range forest.trees {
		checkSumRuleForest(t, tr.root)
	}
}

func checkSumRuleForest(t *testing.T, n *node) {
	t.Helper()

	if n == nil || n.isLeaf() {
		return
	}

	assert.Equal(t, n.nCACDone, n.left.nCACDone+n.right.nCACDone)
	assert.Equal(t, n.nNOL, n.left.nNOL+n.right.nNOL)

	checkSumRuleForest(t, n.left)
	checkSumRuleForest(t, n.right)
}

func TestScenario3_MarkDoneAt80MHz(t *testing.T) {
	domain := NewStaticETSIDomain()
	forest, err := NewForest(context.Background(), domain, nil)
	assert.NoError(t, err)

	center := ChannelToFreq(58) // 5290
	forest.MarkCACDone(center, BW80)

	assert.True(t, forest.IsCACDone(center))
	assert.True(t, forest.IsCACDone(center-20)) // 5270, the left 40 MHz node
	assert.True(t, forest.IsCACDone(center+20)) // 5310, the right 40 MHz node
}

func TestScenario4_RadarAfterFullDone(t *testing.T) {
	domain := NewStaticETSIDomain()
	forest, err := NewForest(context.Background(), domain, nil)
	assert.NoError(t, err)

	center := ChannelToFreq(58) // 5290
	forest.MarkCACDone(center, BW80)
	assert.True(t, forest.IsCACDone(center))

	forest.MarkNOL([]uint16{center - 10}) // 5280

	assert.Equal(t, uint8(1), forest.treeFor(center-10).find(center-10).nNOL)
	assert.False(t, forest.IsCACDone(center))
	assert.True(t, forest.IsCACDone(center+10)) // 5300 still done
}

func TestScenario5_SelectionExcludesServing(t *testing.T) {
	domain := NewStaticETSIDomain()
	forest, err := NewForest(context.Background(), domain, nil)
	assert.NoError(t, err)

	serving := OperatingChannel{Width: BW80, Seg1: ChannelToFreq(58)} //nolint:exhaustruct

	candidate := forest.Select(serving, BW80)
	assert.Equal(t, ChannelToFreq(106), candidate)
}

func TestScenario6_NOLExpiryTriggersReplan(t *testing.T) {
	domain := NewStaticETSIDomain()
	forest, err := NewForest(context.Background(), domain, nil)
	assert.NoError(t, err)

	var csaCalled, channelChangeCalled bool

	mgmt := &recordingManagement{
		onChannelChange: func() { channelChangeCalled = true },
		onCSA:           func(uint16) { csaCalled = true },
	}

	engine := NewEngine(EngineConfig{ //nolint:exhaustruct
		Forest:        forest,
		Regulatory:    domain,
		Management:    mgmt,
		LegacyCapable: true,
	})

	forest.MarkNOL([]uint16{5280})

	engine.UnmarkNOL(context.Background(), 5280)

	assert.True(t, channelChangeCalled)
	assert.False(t, csaCalled)
}

type recordingManagement struct {
	onChannelChange func()
	onCSA           func(uint16)
}

func (r *recordingManagement) ChannelChangeByPrecac(context.Context) error {
	if r.onChannelChange != nil {
		r.onChannelChange()
	}

	return nil
}

func (r *recordingManagement) PrecacChanChangeCSA(_ context.Context, freq uint16, _ PHYMode) error {
	if r.onCSA != nil {
		r.onCSA(freq)
	}

	return nil
}

func TestRotateToHead(t *testing.T) {
	domain := NewStaticETSIDomain()
	forest, err := NewForest(context.Background(), domain, nil)
	assert.NoError(t, err)

	target := ChannelToFreq(122)
	forest.RotateToHead(target, BW80)

	assert.Equal(t, target, forest.trees[0].center)
}

func TestGetChanState(t *testing.T) {
	domain := NewStaticETSIDomain()
	forest, err := NewForest(context.Background(), domain, nil)
	assert.NoError(t, err)

	center := ChannelToFreq(58)

	assert.Equal(t, ChanStateRequired, forest.GetChanState(center))

	forest.MarkCACDone(center, BW80)
	assert.Equal(t, ChanStateDone, forest.GetChanState(center))

	forest.MarkNOL([]uint16{center - 10})
	assert.Equal(t, ChanStateNOL, forest.GetChanState(center-10))
}
