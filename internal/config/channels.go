// Package config loads the regulatory channel table used to seed the
// dfsengine's StaticDomain test/fallback collaborator when no live
// regulatory component is wired in (§6's "find_dot11_chan" family, as
// configuration rather than a firmware query).
package config

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// searchLocations mirrors deviceid.go's tocalls.yaml search list: try the
// working directory, then a couple of installed-package locations, in
// order, and use whichever is found first.
var searchLocations = []string{
	"channels.yaml",
	"data/channels.yaml",
	"../data/channels.yaml",
	"/usr/local/share/precacd/channels.yaml",
	"/usr/share/precacd/channels.yaml",
}

// ChannelEntry is one row of the regulatory channel table, as loaded from
// YAML.
type ChannelEntry struct {
	Channel int    `yaml:"channel"`
	IsDFS   bool   `yaml:"dfs"`
	Band    string `yaml:"band"`
}

// RegulatoryTable is the parsed channels.yaml document: a flat list of IEEE
// channel numbers for one regulatory domain.
type RegulatoryTable struct {
	Domain   string         `yaml:"domain"`
	Channels []ChannelEntry `yaml:"channels"`
}

// Load searches searchLocations in order and parses the first file found.
// Unlike deviceid_init, failure to find any file is a returned error rather
// than a logged-and-continue: the CLI's dry-run mode has no other source of
// channel data to fall back to.
func Load() (*RegulatoryTable, error) {
	for _, location := range searchLocations {
		fp, err := os.Open(location)
		if err != nil {
			continue
		}

		table, err := Parse(fp)
		fp.Close()

		if err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", location, err)
		}

		return table, nil
	}

	return nil, fmt.Errorf("config: no channels.yaml found in %v", searchLocations)
}

// Parse unmarshals a channels.yaml document from r.
func Parse(r io.Reader) (*RegulatoryTable, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading: %w", err)
	}

	var table RegulatoryTable

	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("unmarshalling: %w", err)
	}

	return &table, nil
}

// DFSChannels returns the IEEE channel numbers flagged as DFS, in file
// order — the shape dfsengine.StaticDomain.Channels expects.
func (t *RegulatoryTable) DFSChannels() []int {
	var chans []int

	for _, c := range t.Channels {
		if c.IsDFS {
			chans = append(chans, c.Channel)
		}
	}

	return chans
}
