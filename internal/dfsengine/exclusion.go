package dfsengine

// OperatingChannel describes the channel the radio is currently serving
// (its primary, and for 80+80/160 its secondary 80 MHz segment), as needed
// by §4.6's exclusion accounting and §4.4's complex-channel status query.
type OperatingChannel struct {
	Width Bandwidth
	Seg1  uint16 // primary center, or the low/high 80 MHz half for 160
	Seg2  uint16 // secondary 80 MHz center, 80+80 only

	// PrimaryIsLowHalf disambiguates a 160 MHz channel's second 80 MHz
	// half: Seg1±40 depending on whether the primary segment (Seg1) is
	// the low or high half of the 160 MHz channel (§4.4, §4.6).
	PrimaryIsLowHalf bool
}

// ExclusionCenters derives the set of 80 MHz centers the radio currently
// occupies (§4.6): one for 20/40/80, two for 80+80, and for 160 the primary
// plus Seg1±40.
func (c OperatingChannel) ExclusionCenters() []uint16 {
	switch c.Width {
	case BW20, BW40, BW80:
		return []uint16{c.Seg1}
	case BW8080:
		return []uint16{c.Seg1, c.Seg2}
	case BW160:
		if c.PrimaryIsLowHalf {
			return []uint16{c.Seg1, c.Seg1 + 40}
		}

		return []uint16{c.Seg1, c.Seg1 - 40}
	default:
		return nil
	}
}

func within(a, center uint16, halfSpan uint16) bool {
	lo := int(center) - int(halfSpan)
	hi := int(center) + int(halfSpan)

	return int(a) >= lo && int(a) <= hi
}

// perSegmentSubChans is the subchannel weight a single occupied segment
// contributes to exclusion accounting: each exclusion center counts as an
// 80 MHz occupant unless the whole operating channel is narrower (20/40
// MHz), matching the source's default-to-80-unless-narrower chwidth_val.
func perSegmentSubChans(opWidth Bandwidth) uint8 {
	switch opWidth {
	case BW20:
		return 1
	case BW40:
		return 2
	default:
		return 4
	}
}

// excludedSubchansForNode implements §4.6: for each exclusion center that
// falls within node's frequency span and the node is itself still in need
// of CAC, reduce the node's effective free subchannel count by the
// operating width's own subchannel count.
func excludedSubchansForNode(n *node, exclusionCenters []uint16, opWidth Bandwidth) int {
	if n == nil {
		return 0
	}

	var excluded int

	half := uint16(n.bandwidth) / 2
	weight := int(perSegmentSubChans(opWidth))

	for _, center := range exclusionCenters {
		if within(center, n.centerFreq, half) && n.nCACDone < n.span() && n.nNOL == 0 {
			excluded += weight
		}
	}

	return excluded
}

// agileWidthFor maps a serving channel width to the agile pre-CAC width
// §4.7 dictates: 20→20, 40→40, 80→80, 160→80, 80+80→80.
func agileWidthFor(servingWidth Bandwidth) Bandwidth {
	switch servingWidth {
	case BW20, BW40, BW80:
		return servingWidth
	case BW160, BW8080:
		return BW80
	default:
		return BW80
	}
}
