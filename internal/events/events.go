// Package events defines the mode change events produced by the parser and
// the dispatcher that fans them out to subscribers.
//
// Events carry live pointers into session state (channels, memberships,
// clients). Subscribers must treat them as read-only for the duration of the
// callback and must not feed new lines into the session from inside one.
package events

import (
	"fmt"
	"time"

	"github.com/yourusername/modewatch/internal/errors"
	"github.com/yourusername/modewatch/internal/state"
)

// Kind identifies an event type
type Kind int

const (
	KindChannelModeChanged Kind = iota
	KindChannelSingleModeChanged
	KindChannelPrefixModeChanged
	KindChannelNonUserModeChanged
	KindUserModeChanged
	KindParseError
	KindSubscriberDispatchError
)

// Kinds lists every event kind
var Kinds = []Kind{
	KindChannelModeChanged,
	KindChannelSingleModeChanged,
	KindChannelPrefixModeChanged,
	KindChannelNonUserModeChanged,
	KindUserModeChanged,
	KindParseError,
	KindSubscriberDispatchError,
}

// String returns the event kind name
func (k Kind) String() string {
	switch k {
	case KindChannelModeChanged:
		return "ChannelModeChanged"
	case KindChannelSingleModeChanged:
		return "ChannelSingleModeChanged"
	case KindChannelPrefixModeChanged:
		return "ChannelPrefixModeChanged"
	case KindChannelNonUserModeChanged:
		return "ChannelNonUserModeChanged"
	case KindUserModeChanged:
		return "UserModeChanged"
	case KindParseError:
		return "ParseError"
	case KindSubscriberDispatchError:
		return "SubscriberDispatchError"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Event is implemented by every event type
type Event interface {
	Kind() Kind
	// ChannelName is the channel the event concerns, or "" for none
	ChannelName() string
}

// ChannelModeChanged is the aggregate event for one processed channel mode line
type ChannelModeChanged struct {
	Channel  *state.Channel
	Actor    string // "" when set by the server
	Modes    string // mode characters with signs, such as "+ov-k"
	Params   []string
	Snapshot bool // true for RPL_CHANNELMODEIS
	Time     time.Time
}

func (ChannelModeChanged) Kind() Kind { return KindChannelModeChanged }

func (e ChannelModeChanged) ChannelName() string { return e.Channel.Name }

// ChannelSingleModeChanged reports one list or parameter mode change
type ChannelSingleModeChanged struct {
	Channel *state.Channel
	Actor   string
	Adding  bool
	Mode    byte
	Param   string
	Time    time.Time
}

func (ChannelSingleModeChanged) Kind() Kind { return KindChannelSingleModeChanged }

func (e ChannelSingleModeChanged) ChannelName() string { return e.Channel.Name }

// Change renders the change as "{+/-}<char>[ param]"
func (e ChannelSingleModeChanged) Change() string {
	change := signed(e.Adding, e.Mode)
	if e.Param != "" {
		change += " " + e.Param
	}
	return change
}

// ChannelPrefixModeChanged reports a member gaining or losing a status mode
type ChannelPrefixModeChanged struct {
	Channel *state.Channel
	Member  *state.Membership
	Actor   string
	Adding  bool
	Mode    byte
	Time    time.Time
}

func (ChannelPrefixModeChanged) Kind() Kind { return KindChannelPrefixModeChanged }

func (e ChannelPrefixModeChanged) ChannelName() string { return e.Channel.Name }

// Change renders the change as "{+/-}<char>"
func (e ChannelPrefixModeChanged) Change() string {
	return signed(e.Adding, e.Mode)
}

// ChannelNonUserModeChanged carries the non-prefix part of a mode line
type ChannelNonUserModeChanged struct {
	Channel *state.Channel
	Actor   string
	Modes   string
	Params  []string
	Time    time.Time
}

func (ChannelNonUserModeChanged) Kind() Kind { return KindChannelNonUserModeChanged }

func (e ChannelNonUserModeChanged) ChannelName() string { return e.Channel.Name }

// UserModeChanged is the aggregate event for one processed user mode line
type UserModeChanged struct {
	Client   *state.Client
	Actor    string
	Modes    string
	Snapshot bool // true for RPL_UMODEIS
	Time     time.Time
}

func (UserModeChanged) Kind() Kind { return KindUserModeChanged }

func (UserModeChanged) ChannelName() string { return "" }

// ParseError reports a problem found while processing a line
type ParseError struct {
	Err     *errors.ModeError
	Channel string
	Line    string
	Time    time.Time
}

func (ParseError) Kind() Kind { return KindParseError }

func (e ParseError) ChannelName() string { return e.Channel }

// SubscriberDispatchError reports a subscriber that failed handling an event
type SubscriberDispatchError struct {
	Origin     Kind
	Subscriber string
	Channel    string
	Err        *errors.ModeError
}

func (SubscriberDispatchError) Kind() Kind { return KindSubscriberDispatchError }

func (e SubscriberDispatchError) ChannelName() string { return e.Channel }

func signed(adding bool, mode byte) string {
	if adding {
		return "+" + string(mode)
	}
	return "-" + string(mode)
}
