// Package state holds the live channel, membership and client entities of one
// IRC session. The types are plain data holders; the mode parser and the
// session's membership tracking are the only writers.
package state

import (
	"sort"
	"strings"
	"time"

	"github.com/yourusername/modewatch/internal/modes"
)

// ListEntry is one entry of a list mode such as a ban
type ListEntry struct {
	Value string    `json:"value" yaml:"value"`
	SetBy string    `json:"set_by" yaml:"set_by"`
	SetAt time.Time `json:"set_at" yaml:"set_at"`
}

// Membership is the per-channel status of one member
type Membership struct {
	Nick   string
	Status uint64
}

// Channel is the mode state of one channel
type Channel struct {
	Name    string
	Modes   uint64
	Params  map[byte]string
	Lists   map[byte][]ListEntry
	Members map[string]*Membership // folded nick -> membership
}

// NewChannel creates an empty channel
func NewChannel(name string) *Channel {
	return &Channel{
		Name:    name,
		Params:  make(map[byte]string),
		Lists:   make(map[byte][]ListEntry),
		Members: make(map[string]*Membership),
	}
}

// SetFlag sets or clears a boolean mode flag
func (c *Channel) SetFlag(flag uint64, adding bool) {
	if adding {
		c.Modes |= flag
	} else {
		c.Modes &^= flag
	}
}

// HasFlag reports whether a boolean mode flag is set
func (c *Channel) HasFlag(flag uint64) bool {
	return c.Modes&flag != 0
}

// SetParam sets the value of a parameter mode
func (c *Channel) SetParam(code byte, value string) {
	c.Params[code] = value
}

// ClearParam removes a parameter mode
func (c *Channel) ClearParam(code byte) {
	delete(c.Params, code)
}

// AddListEntry appends an entry to a list mode. Re-adding an existing value
// replaces its metadata but keeps its position.
func (c *Channel) AddListEntry(code byte, entry ListEntry) {
	entries := c.Lists[code]
	for i := range entries {
		if entries[i].Value == entry.Value {
			entries[i] = entry
			return
		}
	}
	c.Lists[code] = append(entries, entry)
}

// RemoveListEntry removes a value from a list mode, reporting whether it was present
func (c *Channel) RemoveListEntry(code byte, value string) bool {
	entries := c.Lists[code]
	for i := range entries {
		if entries[i].Value == value {
			c.Lists[code] = append(entries[:i], entries[i+1:]...)
			if len(c.Lists[code]) == 0 {
				delete(c.Lists, code)
			}
			return true
		}
	}
	return false
}

// ListEntries returns the entries of a list mode in insertion order
func (c *Channel) ListEntries(code byte) []ListEntry {
	return c.Lists[code]
}

// Member returns the membership stored under a folded nick
func (c *Channel) Member(folded string) (*Membership, bool) {
	m, ok := c.Members[folded]
	return m, ok
}

// AddMember stores a membership under a folded nick, keeping an existing one
func (c *Channel) AddMember(folded, nick string) *Membership {
	if m, ok := c.Members[folded]; ok {
		return m
	}
	m := &Membership{Nick: nick}
	c.Members[folded] = m
	return m
}

// RemoveMember drops a membership, reporting whether it existed
func (c *Channel) RemoveMember(folded string) bool {
	if _, ok := c.Members[folded]; !ok {
		return false
	}
	delete(c.Members, folded)
	return true
}

// ResetModes clears boolean modes and parameters ahead of a full snapshot
func (c *Channel) ResetModes() {
	c.Modes = 0
	c.Params = make(map[byte]string)
}

// ModeString renders the boolean and parameter modes of the channel, such as
// "+ntk secret"
func (c *Channel) ModeString(reg *modes.Registry) string {
	modeStr := reg.ModeString(modes.Channel, modes.Boolean, c.Modes)
	if len(c.Params) == 0 {
		return modeStr
	}

	codes := make([]byte, 0, len(c.Params))
	for code := range c.Params {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })

	if modeStr == "" {
		modeStr = "+"
	}
	args := make([]string, 0, len(codes))
	for _, code := range codes {
		modeStr += string(code)
		args = append(args, c.Params[code])
	}
	return modeStr + " " + strings.Join(args, " ")
}
