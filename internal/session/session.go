// Package session ties together the mode registry, the state store, the
// parser and the dispatcher of one IRC connection. There is no process-wide
// state: every session owns its own tables and subscribers.
package session

import (
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/yourusername/modewatch/internal/config"
	"github.com/yourusername/modewatch/internal/errors"
	"github.com/yourusername/modewatch/internal/events"
	"github.com/yourusername/modewatch/internal/modes"
	"github.com/yourusername/modewatch/internal/output"
	"github.com/yourusername/modewatch/internal/parser"
	"github.com/yourusername/modewatch/internal/state"
	"gopkg.in/irc.v4"
)

// Session processes the lines of one IRC connection. It is not safe for
// concurrent use; a call made while another is in progress, including one
// from inside a subscriber callback, is rejected when the re-entrancy guard
// is enabled.
type Session struct {
	id         string
	logger     output.Logger
	registry   *modes.Registry
	store      *state.Store
	dispatcher *events.Dispatcher
	parser     *parser.Parser
	members    *memberTracker

	guard bool
	busy  atomic.Bool
}

// New creates a session from configuration
func New(cfg *config.Config, logger output.Logger) (*Session, error) {
	if logger == nil {
		logger = output.NopLogger{}
	}

	registry := modes.NewRegistry(logger)
	if err := registry.LoadDefaults(cfg.Modes); err != nil {
		return nil, err
	}

	store := state.NewStore(registry.Fold)

	dispatcher := events.NewDispatcher(logger)
	dispatcher.SetFold(registry.Fold)
	dispatcher.SetLogDropped(cfg.Dispatch.LogDroppedErrors)

	p := parser.New(registry, store, dispatcher, logger)
	p.SetServerName(cfg.Session.ServerName)

	return &Session{
		id:         uuid.New().String(),
		logger:     logger,
		registry:   registry,
		store:      store,
		dispatcher: dispatcher,
		parser:     p,
		members:    newMemberTracker(store, logger, cfg.Session.Nickname),
		guard:      cfg.Dispatch.ReentrancyGuard,
	}, nil
}

// ID returns the unique identifier of this session
func (s *Session) ID() string { return s.id }

// Registry returns the session's mode registry
func (s *Session) Registry() *modes.Registry { return s.registry }

// Store returns the session's channel and client directory
func (s *Session) Store() *state.Store { return s.store }

// Dispatcher returns the dispatcher subscribers register with
func (s *Session) Dispatcher() *events.Dispatcher { return s.dispatcher }

// Nick returns the nick the session believes it is using
func (s *Session) Nick() string { return s.members.self }

// SetMembershipObserver installs an observer notified of joins, parts,
// quits and nick changes
func (s *Session) SetMembershipObserver(o MembershipObserver) {
	s.members.observer = o
}

// Snapshot returns the current channel and client state
func (s *Session) Snapshot() state.Snapshot {
	return state.TakeSnapshot(s.store, s.registry)
}

// HandleLine parses and applies one raw IRC line
func (s *Session) HandleLine(raw string) error {
	raw = strings.TrimRight(raw, "\r\n")
	if raw == "" {
		return nil
	}

	msg, err := irc.ParseMessage(raw)
	if err != nil {
		return errors.NewStructuralError("", raw, err.Error())
	}
	return s.Handle(msg)
}

// HandleTokens applies a line given as tokens: an optional prefix, the
// command, then its parameters
func (s *Session) HandleTokens(tokens []string) error {
	msg, err := parser.MessageFromTokens(tokens)
	if err != nil {
		return errors.NewStructuralError("", strings.Join(tokens, " "), err.Error())
	}
	return s.Handle(msg)
}

// Handle applies one parsed message
func (s *Session) Handle(msg *irc.Message) error {
	if !s.busy.CompareAndSwap(false, true) {
		if s.guard {
			return errors.NewReentrantError(msg.String())
		}
		return s.handle(msg)
	}
	defer s.busy.Store(false)

	return s.handle(msg)
}

func (s *Session) handle(msg *irc.Message) error {
	switch msg.Command {
	case "001": // RPL_WELCOME
		if len(msg.Params) > 0 {
			s.members.self = msg.Params[0]
		}

	case "005": // RPL_ISUPPORT
		s.applyISupport(msg)

	case "JOIN":
		s.members.handleJoin(msg)

	case "PART":
		s.members.handlePart(msg)

	case "KICK":
		s.members.handleKick(msg)

	case "QUIT":
		s.members.handleQuit(msg)

	case "NICK":
		s.members.handleNick(msg)

	default:
		if parser.IsModeLine(msg.Command) {
			return s.parser.Handle(msg)
		}
	}
	return nil
}

// applyISupport feeds the KEY=VALUE tokens of a 005 line to the registry.
// The first parameter is our nick and the trailing one is human text.
func (s *Session) applyISupport(msg *irc.Message) {
	if len(msg.Params) < 2 {
		return
	}

	var tokens []string
	for _, param := range msg.Params[1:] {
		if param == "" || strings.ContainsRune(param, ' ') {
			continue
		}
		tokens = append(tokens, param)
	}

	before := s.registry.Fold("[]\\^")
	if err := s.registry.ApplyISupport(tokens); err != nil {
		s.logger.Warning("Ignoring part of ISUPPORT: %v", err)
	}

	if s.registry.Fold("[]\\^") != before && len(s.store.Channels())+len(s.store.Clients()) > 0 {
		s.logger.Warning("CASEMAPPING changed after state was tracked; existing keys keep the old mapping")
	}
}
