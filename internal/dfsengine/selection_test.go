package dfsengine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func freqCoveredBy(freq uint16, exclusionCenters []uint16, bw Bandwidth) bool {
	half := uint16(bw) / 2

	for _, c := range exclusionCenters {
		if within(freq, c, half) {
			return true
		}
	}

	return false
}

func TestSelection_P7_AvoidsExclusion(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		center := uint16(5290)
		tree := buildBandTree(center, allValid)

		exclude := rapid.SampledFrom([]uint16{center - 10, center + 10, center}).Draw(t, "exclude")
		width := rapid.SampledFrom([]Bandwidth{BW20, BW40, BW80}).Draw(t, "width")

		candidate := tree.selectCandidate(width, []uint16{exclude}, BW80)
		if candidate == 0 {
			return
		}

		assert.False(t, freqCoveredBy(candidate, []uint16{exclude}, width),
			"selected candidate %d must not overlap excluded center %d", candidate, exclude)
	})
}

func TestSelection_P8_FindsWhenExists(t *testing.T) {
	center := uint16(5290)
	tree := buildBandTree(center, allValid)

	// Nothing done, nothing excluded: an 80 MHz candidate must exist.
	candidate := tree.selectCandidate(BW80, nil, BW80)
	assert.Equal(t, center, candidate)

	// Exclude a disjoint center far away: candidate still found.
	candidate = tree.selectCandidate(BW80, []uint16{9999}, BW80)
	assert.Equal(t, center, candidate)
}

func TestSelection_PrefersLeftChild(t *testing.T) {
	center := uint16(5290)
	tree := buildBandTree(center, allValid)

	// Mark the right 40 MHz subtree fully done so only the left 20 MHz
	// leaves still need CAC; the walk should land on one of those.
	tree.markLeafCACDone(center + 10)
	tree.markLeafCACDone(center + 30)

	candidate := tree.selectCandidate(BW20, nil, BW80)
	assert.Contains(t, []uint16{center - 30, center - 10}, candidate)
}

func TestForest_Select_ExcludesServingChannel(t *testing.T) {
	domain := NewStaticETSIDomain()
	forest, err := NewForest(context.Background(), domain, nil)
	assert.NoError(t, err)

	serving := OperatingChannel{Width: BW80, Seg1: ChannelToFreq(58)}

	candidate := forest.Select(serving, BW80)
	assert.NotEqual(t, serving.Seg1, candidate)
	assert.NotZero(t, candidate)
}
