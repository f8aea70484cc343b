// Package parser decodes MODE lines and mode snapshot replies into state
// changes and events.
package parser

import (
	"fmt"
	"strings"
	"time"

	"github.com/yourusername/modewatch/internal/errors"
	"github.com/yourusername/modewatch/internal/events"
	"github.com/yourusername/modewatch/internal/modes"
	"github.com/yourusername/modewatch/internal/output"
	"github.com/yourusername/modewatch/internal/state"
	"gopkg.in/irc.v4"
)

// IRC numerics handled by the parser
const (
	RplUModeIs       = "221"
	RplChannelModeIs = "324"
	RplInviteList    = "346"
	RplExceptList    = "348"
	RplNamReply      = "353"
	RplBanList       = "367"
)

// Publisher receives events as they are generated
type Publisher interface {
	Publish(events.Event) bool
}

// Parser applies mode lines to a session's registry and store and publishes
// the resulting events. It is not safe for concurrent use.
type Parser struct {
	registry   *modes.Registry
	store      *state.Store
	pub        Publisher
	logger     output.Logger
	serverName string
	now        func() time.Time
}

// New creates a parser over the given registry, store and publisher
func New(registry *modes.Registry, store *state.Store, pub Publisher, logger output.Logger) *Parser {
	if logger == nil {
		logger = output.NopLogger{}
	}
	return &Parser{
		registry:   registry,
		store:      store,
		pub:        pub,
		logger:     logger,
		serverName: "server",
		now:        time.Now,
	}
}

// SetServerName sets the label recorded as list entry setter when a line has no actor
func (p *Parser) SetServerName(name string) {
	p.serverName = name
}

// SetClock replaces the time source used to stamp list entries and events
func (p *Parser) SetClock(now func() time.Time) {
	p.now = now
}

// line carries the per-line context through a walk
type line struct {
	raw      string
	actor    string
	target   string
	modes    string
	args     []string
	next     int
	snapshot bool
	at       time.Time
}

// param consumes the next positional parameter
func (l *line) param() (string, bool) {
	if l.next >= len(l.args) {
		return "", false
	}
	arg := l.args[l.next]
	l.next++
	return arg, true
}

// IsModeLine reports whether the parser handles this command
func IsModeLine(command string) bool {
	switch command {
	case "MODE", RplUModeIs, RplChannelModeIs,
		RplNamReply, RplBanList, RplInviteList, RplExceptList:
		return true
	}
	return false
}

// Handle applies one message. Lines that are not mode related are ignored.
// Problems are published as ParseError events; structural errors are also
// returned after the events generated so far have been published.
func (p *Parser) Handle(msg *irc.Message) error {
	switch msg.Command {
	case "MODE":
		return p.handleMode(msg, 0, false)
	case RplChannelModeIs:
		return p.handleMode(msg, 1, true)
	case RplUModeIs:
		return p.handleMode(msg, 0, true)
	case RplNamReply:
		return p.handleNames(msg)
	case RplBanList, RplInviteList, RplExceptList:
		return p.handleListReply(msg)
	}
	return nil
}

// HandleTokens applies a line given as tokens: an optional prefix, the
// command, then its parameters
func (p *Parser) HandleTokens(tokens []string) error {
	msg, err := MessageFromTokens(tokens)
	if err != nil {
		modeErr := errors.NewStructuralError("", strings.Join(tokens, " "), err.Error())
		p.report(modeErr, "", strings.Join(tokens, " "))
		return modeErr
	}
	return p.Handle(msg)
}

// MessageFromTokens builds a message from tokens. The first token is a prefix
// when it starts with ':' or carries a '!' or '@'. A bare first token is a
// command when it looks like one, unless it is not upper case and an upper
// case command follows it, as in "mode MODE #c +n".
func MessageFromTokens(tokens []string) (*irc.Message, error) {
	if len(tokens) == 0 {
		return nil, fmt.Errorf("empty line")
	}

	msg := &irc.Message{}
	rest := tokens
	if looksLikePrefix(tokens[0]) || !looksLikeCommand(tokens[0]) || bareNickPrefix(tokens) {
		msg.Prefix = irc.ParsePrefix(strings.TrimPrefix(tokens[0], ":"))
		rest = tokens[1:]
	}
	if len(rest) == 0 {
		return nil, fmt.Errorf("line has a prefix but no command")
	}

	msg.Command = strings.ToUpper(rest[0])
	msg.Params = append([]string(nil), rest[1:]...)
	return msg, nil
}

func looksLikePrefix(token string) bool {
	return strings.HasPrefix(token, ":") || strings.ContainsAny(token, "!@")
}

func bareNickPrefix(tokens []string) bool {
	return len(tokens) > 1 &&
		tokens[0] != strings.ToUpper(tokens[0]) &&
		tokens[1] == strings.ToUpper(tokens[1]) && looksLikeCommand(tokens[1])
}

func looksLikeCommand(token string) bool {
	if len(token) == 3 && isDigits(token) {
		return true
	}
	return IsModeLine(strings.ToUpper(token))
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func (p *Parser) handleMode(msg *irc.Message, targetIdx int, snapshot bool) error {
	raw := msg.String()
	if len(msg.Params) < targetIdx+2 {
		modeErr := errors.NewStructuralError(firstParam(msg, targetIdx), "",
			fmt.Sprintf("%s needs a target and a mode string", msg.Command))
		p.report(modeErr, "", raw)
		return modeErr
	}

	l := &line{
		raw:      raw,
		target:   msg.Params[targetIdx],
		modes:    msg.Params[targetIdx+1],
		args:     msg.Params[targetIdx+2:],
		snapshot: snapshot,
		at:       p.now(),
	}
	// Snapshots are server state; MODE lines without a prefix come from the server too
	if !snapshot && msg.Prefix != nil {
		l.actor = msg.Prefix.Name
	}

	if p.registry.IsChannel(l.target) {
		return p.walkChannel(l)
	}
	return p.walkUser(l)
}

func firstParam(msg *irc.Message, idx int) string {
	if idx < len(msg.Params) {
		return msg.Params[idx]
	}
	return ""
}

// walkUser applies a user mode string. User modes never take parameters.
func (p *Parser) walkUser(l *line) error {
	client := p.store.EnsureClient(l.target)
	if l.snapshot {
		client.Modes = 0
	}

	var applied modeBuilder
	adding := true
	for i := 0; i < len(l.modes); i++ {
		code := l.modes[i]
		switch code {
		case '+':
			adding = true
			continue
		case '-':
			adding = false
			continue
		}

		def, ok := p.resolve(modes.User, code, l)
		if !ok {
			continue
		}
		client.SetFlag(def.Flag, adding)
		applied.add(adding, code)
	}

	if applied.empty() {
		return nil
	}
	p.pub.Publish(events.UserModeChanged{
		Client:   client,
		Actor:    l.actor,
		Modes:    applied.modes(),
		Snapshot: l.snapshot,
		Time:     l.at,
	})
	return nil
}

// resolve looks a character up, registering unknown characters as boolean.
// ok is false when the character was rejected.
func (p *Parser) resolve(scope modes.Scope, code byte, l *line) (modes.Definition, bool) {
	if def, ok := p.registry.Lookup(scope, code); ok {
		return def, true
	}

	channel := ""
	if scope == modes.Channel {
		channel = l.target
	}

	def, err := p.registry.RegisterUnknown(scope, modes.Boolean, code)
	if err != nil {
		if modeErr, ok := errors.AsModeError(err); ok {
			modeErr.Target = l.target
			p.report(modeErr, channel, l.raw)
		}
		return def, false
	}

	p.report(errors.NewUnknownModeError(l.target, code), channel, l.raw)
	return def, true
}

// report publishes a problem on the dispatcher's error channel
func (p *Parser) report(err *errors.ModeError, channel, raw string) {
	p.pub.Publish(events.ParseError{
		Err:     err,
		Channel: channel,
		Line:    raw,
		Time:    p.now(),
	})
}

// modeBuilder accumulates a compact mode string such as "+ov-k" and its parameters
type modeBuilder struct {
	sb     strings.Builder
	sign   byte
	params []string
}

func (b *modeBuilder) add(adding bool, code byte, params ...string) {
	sign := byte('-')
	if adding {
		sign = '+'
	}
	if sign != b.sign {
		b.sb.WriteByte(sign)
		b.sign = sign
	}
	b.sb.WriteByte(code)
	b.params = append(b.params, params...)
}

func (b *modeBuilder) empty() bool {
	return b.sb.Len() == 0
}

func (b *modeBuilder) modes() string {
	return b.sb.String()
}
