package dfsengine

import (
	"context"
	"strconv"
	"sync"

	"github.com/charmbracelet/log"
)

// ChanState is the coarse pre-CAC status of a channel, as exposed to
// operators (§6). ChanStateNow — "this is the entry the pre-CAC timer is
// currently running against" — is only decidable with the Engine's active
// timer target in hand (original_source's dfs_get_precac_chan_state checks
// dfs_is_precac_timer_running plus the head-of-list entry); Forest alone
// only ever reports required/done/nol/err, so only Engine.GetPrecacChanState
// returns ChanStateNow.
type ChanState int

const (
	ChanStateRequired ChanState = iota
	ChanStateNow
	ChanStateDone
	ChanStateNOL
	ChanStateErr
)

// Forest (C3) is the ordered sequence of band trees, one per unique 80 MHz
// DFS center advertised by the regulatory collaborator. All mutation is
// guarded by a single per-radio lock; membership is immutable once built,
// rebuilt only by an explicit Reset.
type Forest struct {
	mu     sync.Mutex
	trees  []*bandTree
	logger *log.Logger
}

// NewForest queries the regulatory collaborator and builds one band tree
// per unique 80 MHz center it advertises. Returns an empty forest (not an
// error) when the domain isn't ETSI — the engine is simply inert (spec.md
// scenario 1).
func NewForest(ctx context.Context, reg Regulatory, logger *log.Logger) (*Forest, error) {
	if logger == nil {
		logger = log.Default()
	}

	f := &Forest{logger: logger} //nolint:exhaustruct

	domain, err := reg.DFSDomain(ctx)
	if err != nil {
		return nil, err
	}

	if domain != DomainETSI {
		logger.Info("regulatory domain is not ETSI, pre-CAC disabled", "domain", domain)

		return f, nil
	}

	if err := f.rebuild(ctx, reg); err != nil {
		return nil, err
	}

	return f, nil
}

func (f *Forest) rebuild(ctx context.Context, reg Regulatory) error {
	chans, err := reg.IterateChannels(ctx)
	if err != nil {
		return err
	}

	valid := make(map[uint16]bool, len(chans))
	centers := make([]uint16, 0)
	seen := make(map[uint16]bool)

	for _, c := range chans {
		if !c.IsDFS || c.Width != BW80 {
			continue
		}

		valid[c.Freq] = true

		if !seen[c.Seg1] {
			seen[c.Seg1] = true

			centers = append(centers, c.Seg1)
		}
	}

	trees := make([]*bandTree, 0, len(centers))
	for _, center := range centers {
		trees = append(trees, buildBandTree(center, func(f uint16) bool { return valid[f] }))
	}

	f.trees = trees

	return nil
}

// Reset rebuilds the forest from the regulatory collaborator from scratch,
// discarding all CAC/NOL state, tearing down the old trees via destroy
// (§4.3).
func (f *Forest) Reset(ctx context.Context, reg Regulatory) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, t := range f.trees {
		t.destroy()
	}

	domain, err := reg.DFSDomain(ctx)
	if err != nil {
		return err
	}

	if domain != DomainETSI {
		f.trees = nil

		return nil
	}

	return f.rebuild(ctx, reg)
}

// treeFor returns the band tree containing frequency f, or nil.
func (f *Forest) treeFor(freq uint16) *bandTree {
	for _, t := range f.trees {
		if t.find(freq) != nil {
			return t
		}
	}

	return nil
}

// MarkCACDone marks every 20 MHz subchannel spanned by an aggregate of the
// given width centered at centerFreq as CAC-done (§4.2, scenario 3).
func (f *Forest) MarkCACDone(centerFreq uint16, width Bandwidth) {
	f.mu.Lock()
	defer f.mu.Unlock()

	t := f.treeFor(centerFreq)
	if t == nil {
		f.logger.Error("mark-cac-done: no band tree for frequency", "freq", centerFreq)

		return
	}

	for _, leaf := range subchannelsOf(centerFreq, width) {
		t.markLeafCACDone(leaf)
	}
}

// MarkNOL puts every frequency in freqs into NOL (§4.2, scenario 4). Each
// entry is treated as a 20 MHz leaf frequency, matching the radar-hook
// signature in §6 (mark_precac_nol(..., freq_list[])).
func (f *Forest) MarkNOL(freqs []uint16) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, freq := range freqs {
		t := f.treeFor(freq)
		if t == nil {
			f.logger.Error("mark-nol: no band tree for frequency", "freq", freq)

			continue
		}

		t.markLeafNOL(freq)
	}
}

// UnmarkNOL clears NOL for a single frequency (§4.2, scenario 6).
func (f *Forest) UnmarkNOL(freq uint16) {
	f.mu.Lock()
	defer f.mu.Unlock()

	t := f.treeFor(freq)
	if t == nil {
		f.logger.Error("unmark-nol: no band tree for frequency", "freq", freq)

		return
	}

	t.unmarkLeafNOL(freq)
}

// IsCACDone reports §4.4's is-CAC-done-for for a frequency at any level
// (20/40/80 MHz center).
func (f *Forest) IsCACDone(freq uint16) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.isCACDoneLocked(freq)
}

func (f *Forest) isCACDoneLocked(freq uint16) bool {
	t := f.treeFor(freq)
	if t == nil {
		return false
	}

	return t.isCACDoneFor(freq)
}

// IsPrecacRequired reports §4.4's is-pcac-required-for.
func (f *Forest) IsPrecacRequired(freq uint16) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	t := f.treeFor(freq)
	if t == nil {
		return false
	}

	return t.isPrecacRequiredFor(freq)
}

// IsDoneForComplexChannel implements §4.4 for 80+80/160 operating channels:
// AND the is-done result for both halves.
func (f *Forest) IsDoneForComplexChannel(ch OperatingChannel) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, c := range ch.ExclusionCenters() {
		if !f.isCACDoneLocked(c) {
			return false
		}
	}

	return true
}

// GetChanState implements the §6 operator query at the tree level: it never
// returns ChanStateNow, since distinguishing "required" from "currently
// running" needs the Engine's active timer target (see the ChanState doc
// comment) — callers wanting that distinction use Engine.GetPrecacChanState.
func (f *Forest) GetChanState(freq uint16) ChanState {
	f.mu.Lock()
	defer f.mu.Unlock()

	t := f.treeFor(freq)
	if t == nil {
		return ChanStateErr
	}

	n := t.find(freq)
	if n == nil {
		return ChanStateErr
	}

	switch {
	case n.nNOL > 0:
		return ChanStateNOL
	case n.nCACDone == n.span():
		return ChanStateDone
	default:
		return ChanStateRequired
	}
}

// RotateToHead implements §4.10: rotate the band tree containing freq to
// the head of the forest's ordered list, making it the next candidate. For
// a 160 MHz request the band tree containing freq-40 is then rotated to the
// head as well, so it ends up first and freq's tree second; the freq+40
// half is never rotated.
func (f *Forest) RotateToHead(freq uint16, width Bandwidth) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.rotateOne(freq)

	if width == BW160 {
		// The secondary 80 MHz half is the other segment of the 160
		// MHz pair; OperatingChannel.ExclusionCenters derives it, and
		// with PrimaryIsLowHalf left false that is always freq-40.
		ch := OperatingChannel{Width: BW160, Seg1: freq, Seg2: 0} //nolint:exhaustruct
		for _, c := range ch.ExclusionCenters() {
			if c != freq {
				f.rotateOne(c)
			}
		}
	}
}

func (f *Forest) rotateOne(freq uint16) {
	idx := -1

	for i, t := range f.trees {
		if t.find(freq) != nil {
			idx = i

			break
		}
	}

	if idx <= 0 {
		return
	}

	t := f.trees[idx]
	f.trees = append(f.trees[:idx], f.trees[idx+1:]...)
	f.trees = append([]*bandTree{t}, f.trees...)
}

// PrintPrecacLists is the C7 diagnostic dump: a morris-preorder walk of
// every band tree, channel numbers derived only for display (§9).
func (f *Forest) PrintPrecacLists() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var lines []string

	for _, t := range f.trees {
		lines = append(lines, "tree "+formatChan(t.center))

		t.morrisPreOrder(func(n *node) {
			state := "required"

			switch {
			case n.nNOL > 0:
				state = "nol"
			case n.nCACDone == n.span():
				state = "done"
			case n.nValid == 0:
				state = "inv"
			}

			lines = append(lines, "  "+formatChan(n.centerFreq)+" bw="+n.bandwidth.String()+" "+state)
		})
	}

	return lines
}

func formatChan(freq uint16) string {
	return strconv.Itoa(FreqToIEEEChannel(freq)) + "(" + strconv.Itoa(int(freq)) + ")"
}
