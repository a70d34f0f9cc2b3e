// Package dfsengine implements the zero-CAC pre-CAC engine for a 5 GHz DFS
// radio operating under the ETSI regulatory domain.
package dfsengine

import "fmt"

// Bandwidth is a channel aggregate width in MHz.
type Bandwidth uint16

const (
	BW20     Bandwidth = 20
	BW40     Bandwidth = 40
	BW80     Bandwidth = 80
	BW160    Bandwidth = 160
	BW8080   Bandwidth = 8080 // 80+80, not contiguous; carries two centers
	minSubCh           = 20
)

// subChans reports how many 20 MHz leaves a node of this width spans.
// 80+80 is never a tree node width (only an operating-channel width), so it
// is not handled here.
func (b Bandwidth) subChans() uint8 {
	return uint8(b / minSubCh)
}

func (b Bandwidth) String() string {
	if b == BW8080 {
		return "80+80"
	}

	return fmt.Sprintf("%d", uint16(b))
}

// node is one vertex of a band tree (C1). It is pure data: counters plus
// child pointers. All mutation happens through the bandTree mutators so the
// sum invariant (P1) and bounds invariant (P2) are never violated in
// isolation.
type node struct {
	centerFreq uint16
	bandwidth  Bandwidth
	nValid     uint8 // regulatory-permitted subchannel count for this node
	nCACDone   uint8
	nNOL       uint8
	left       *node
	right      *node
}

func newLeaf(freq uint16, valid bool) *node {
	var n uint8
	if valid {
		n = 1
	}

	return &node{centerFreq: freq, bandwidth: BW20, nValid: n} //nolint:exhaustruct
}

func newInterior(freq uint16, bw Bandwidth, left, right *node) *node {
	return &node{ //nolint:exhaustruct
		centerFreq: freq,
		bandwidth:  bw,
		nValid:     left.nValid + right.nValid,
		left:       left,
		right:      right,
	}
}

// span is the node's structural subchannel count (bandwidth/20), used by
// is-CAC-done-for per spec — deliberately distinct from nValid, which may be
// smaller when a subchannel is not regulatory-valid.
func (n *node) span() uint8 {
	return n.bandwidth.subChans()
}

func (n *node) isLeaf() bool {
	return n.left == nil && n.right == nil
}
