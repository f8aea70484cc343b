package state

import (
	"sort"

	"github.com/yourusername/modewatch/internal/modes"
)

// Snapshot is a serializable copy of a session's state
type Snapshot struct {
	Channels []ChannelSnapshot `json:"channels" yaml:"channels"`
	Clients  []ClientSnapshot  `json:"clients" yaml:"clients"`
}

// ChannelSnapshot is the rendered state of one channel
type ChannelSnapshot struct {
	Name    string                 `json:"name" yaml:"name"`
	Modes   string                 `json:"modes,omitempty" yaml:"modes,omitempty"`
	Lists   map[string][]ListEntry `json:"lists,omitempty" yaml:"lists,omitempty"`
	Members []string               `json:"members,omitempty" yaml:"members,omitempty"`
}

// ClientSnapshot is the rendered state of one client
type ClientSnapshot struct {
	Nick  string `json:"nick" yaml:"nick"`
	Modes string `json:"modes,omitempty" yaml:"modes,omitempty"`
}

// TakeSnapshot copies the store into plain values, rendering masks through reg.
// Channels, members and clients are sorted by name.
func TakeSnapshot(s *Store, reg *modes.Registry) Snapshot {
	var snap Snapshot

	for _, ch := range s.Channels() {
		cs := ChannelSnapshot{
			Name:  ch.Name,
			Modes: ch.ModeString(reg),
		}

		if len(ch.Lists) > 0 {
			cs.Lists = make(map[string][]ListEntry, len(ch.Lists))
			for code, entries := range ch.Lists {
				cs.Lists[string(code)] = append([]ListEntry(nil), entries...)
			}
		}

		keys := make([]string, 0, len(ch.Members))
		for key := range ch.Members {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			m := ch.Members[key]
			cs.Members = append(cs.Members, reg.StatusSymbols(m.Status)+m.Nick)
		}

		snap.Channels = append(snap.Channels, cs)
	}
	sort.Slice(snap.Channels, func(i, j int) bool {
		return s.Fold(snap.Channels[i].Name) < s.Fold(snap.Channels[j].Name)
	})

	for _, c := range s.Clients() {
		snap.Clients = append(snap.Clients, ClientSnapshot{
			Nick:  c.Nick,
			Modes: reg.ModeString(modes.User, modes.Boolean, c.Modes),
		})
	}
	sort.Slice(snap.Clients, func(i, j int) bool {
		return s.Fold(snap.Clients[i].Nick) < s.Fold(snap.Clients[j].Nick)
	})

	return snap
}
