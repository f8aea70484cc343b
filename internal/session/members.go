package session

import (
	"github.com/yourusername/modewatch/internal/output"
	"github.com/yourusername/modewatch/internal/state"
	"gopkg.in/irc.v4"
)

// MembershipObserver is notified after the store applied a membership change
type MembershipObserver interface {
	OnJoin(channel, nick string, isSelf bool)
	OnPart(channel, nick string, isSelf bool)
	OnQuit(nick string)
	OnNickChange(oldNick, newNick string, isSelf bool)
}

// memberTracker keeps channel membership current so MODE lines find the
// members they change
type memberTracker struct {
	store    *state.Store
	logger   output.Logger
	self     string
	observer MembershipObserver
}

func newMemberTracker(store *state.Store, logger output.Logger, nick string) *memberTracker {
	return &memberTracker{
		store:  store,
		logger: logger,
		self:   nick,
	}
}

func (mt *memberTracker) isSelf(nick string) bool {
	return mt.self != "" && mt.store.Fold(nick) == mt.store.Fold(mt.self)
}

// sourceNick returns the nick of the message source, or "" for none
func sourceNick(msg *irc.Message) string {
	if msg.Prefix == nil {
		return ""
	}
	return msg.Prefix.Name
}

// handleJoin handles JOIN messages
func (mt *memberTracker) handleJoin(msg *irc.Message) {
	nick := sourceNick(msg)
	if len(msg.Params) == 0 || nick == "" {
		return
	}
	channel := msg.Params[0]
	self := mt.isSelf(nick)

	ch, _ := mt.store.EnsureChannel(channel)
	mt.store.EnsureClient(nick)
	ch.AddMember(mt.store.Fold(nick), nick)

	if self {
		mt.logger.Info("Joined %s", channel)
	}
	if mt.observer != nil {
		mt.observer.OnJoin(channel, nick, self)
	}
}

// handlePart handles PART messages
func (mt *memberTracker) handlePart(msg *irc.Message) {
	nick := sourceNick(msg)
	if len(msg.Params) == 0 || nick == "" {
		return
	}
	mt.leave(msg.Params[0], nick)
}

// handleKick handles KICK messages
func (mt *memberTracker) handleKick(msg *irc.Message) {
	if len(msg.Params) < 2 {
		return
	}
	channel, kicked := msg.Params[0], msg.Params[1]
	if mt.isSelf(kicked) {
		mt.logger.Warning("Kicked from %s by %s", channel, sourceNick(msg))
	}
	mt.leave(channel, kicked)
}

// leave removes nick from channel. When we leave, the whole channel is
// forgotten since no further updates will arrive for it.
func (mt *memberTracker) leave(channel, nick string) {
	self := mt.isSelf(nick)
	if self {
		mt.store.RemoveChannel(channel)
	} else if ch, ok := mt.store.Channel(channel); ok {
		ch.RemoveMember(mt.store.Fold(nick))
	}

	if mt.observer != nil {
		mt.observer.OnPart(channel, nick, self)
	}
}

// handleQuit handles QUIT messages
func (mt *memberTracker) handleQuit(msg *irc.Message) {
	nick := sourceNick(msg)
	if nick == "" {
		return
	}
	mt.store.RemoveClient(nick)

	if mt.observer != nil {
		mt.observer.OnQuit(nick)
	}
}

// handleNick handles NICK messages
func (mt *memberTracker) handleNick(msg *irc.Message) {
	oldNick := sourceNick(msg)
	if len(msg.Params) == 0 || oldNick == "" {
		return
	}
	newNick := msg.Params[0]
	self := mt.isSelf(oldNick)

	mt.store.RenameClient(oldNick, newNick)
	if self {
		mt.self = newNick
		mt.logger.Success("Nickname changed to: %s", newNick)
	}

	if mt.observer != nil {
		mt.observer.OnNickChange(oldNick, newNick, self)
	}
}
