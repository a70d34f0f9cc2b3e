package dfsengine

import "context"

/*
 * StaticDomain is a Regulatory implementation backed by a fixed table
 * rather than a live query to firmware/regdb. It exists for tests and for
 * the precacctl CLI's dry-run mode, the same role samoyed's dns_sd.go gives
 * a pure-Go stand-in for a C/system dependency it can't always reach.
 *
 * The default table is the ETSI 5 GHz DFS channel plan: UNII-2A (52-64)
 * and UNII-2C/2E (100-144): 20 MHz channels, with channel numbers 5 MHz
 * apart starting at 5000 MHz.
 */

// ChannelToFreq converts an IEEE 5 GHz channel number to its center
// frequency in MHz. StaticDomain uses it to turn its channel-number table
// into frequencies; the core itself canonicalizes on frequency.
func ChannelToFreq(channel int) uint16 {
	return uint16(5000 + 5*channel) //nolint:gosec
}

// FreqToIEEEChannel is ChannelToFreq's inverse, used by PrintPrecacLists.
func FreqToIEEEChannel(freq uint16) int {
	return (int(freq) - 5000) / 5
}

var etsiDFSChannels = []int{
	52, 56, 60, 64,
	100, 104, 108, 112, 116, 120, 124, 128, 132, 136, 140, 144,
}

// StaticDomain advertises a fixed ETSI DFS channel set, grouped into VHT80
// entries the way NewForest expects (§3: "ordered sequence of band trees,
// one per unique DFS 80 MHz center").
type StaticDomain struct {
	Domain   Domain
	Channels []int // IEEE channel numbers, 20 MHz each
}

// NewStaticETSIDomain returns the default ETSI DFS channel table.
func NewStaticETSIDomain() *StaticDomain {
	return &StaticDomain{Domain: DomainETSI, Channels: append([]int(nil), etsiDFSChannels...)}
}

func (d *StaticDomain) DFSDomain(context.Context) (Domain, error) {
	return d.Domain, nil
}

func (d *StaticDomain) IterateChannels(context.Context) ([]RegChannel, error) {
	groups := group80MHz(d.Channels)

	chans := make([]RegChannel, 0, len(d.Channels))
	for _, g := range groups {
		for _, ch := range g.members {
			chans = append(chans, RegChannel{
				Freq:  ChannelToFreq(ch),
				IsDFS: true,
				Seg1:  ChannelToFreq(g.centerChannel),
				Width: BW80,
			})
		}
	}

	return chans, nil
}

func (d *StaticDomain) FindChannel(ctx context.Context, freq uint16, _ PHYMode) (RegChannel, bool, error) {
	chans, err := d.IterateChannels(ctx)
	if err != nil {
		return RegChannel{}, false, err //nolint:exhaustruct
	}

	for _, c := range chans {
		if c.Freq == freq {
			return c, true, nil
		}
	}

	return RegChannel{}, false, nil //nolint:exhaustruct
}

type vht80Group struct {
	centerChannel int
	members       []int
}

// group80MHz buckets 20 MHz channel numbers into contiguous runs of (up to)
// four and reports each run's VHT80 center channel number. A short trailing
// run (e.g. a band whose top channel is excluded) still yields a group; the
// band tree builder marks the missing leaf invalid rather than omitting it,
// per §4.1.
func group80MHz(channels []int) []vht80Group {
	var groups []vht80Group

	for i := 0; i < len(channels); i += 4 {
		end := i + 4
		if end > len(channels) {
			end = len(channels)
		}

		members := channels[i:end]
		// VHT80 center channel is the midpoint of the lowest and
		// highest member's assumed 4-channel block, even when the
		// block is short (mirrors the real regulatory table, which
		// always groups in fours starting from the block's own
		// lowest channel).
		low := members[0]
		groups = append(groups, vht80Group{centerChannel: low + 6, members: members})
	}

	return groups
}
