package parser

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/yourusername/modewatch/internal/errors"
	"github.com/yourusername/modewatch/internal/modes"
	"github.com/yourusername/modewatch/internal/state"
	"gopkg.in/irc.v4"
)

// listReplyModes maps list reply numerics to the mode they enumerate
var listReplyModes = map[string]byte{
	RplBanList:    'b',
	RplExceptList: 'e',
	RplInviteList: 'I',
}

// handleListReply stores one entry of a ban, exception or invite list reply:
// "367 <me> <channel> <mask> [<setter> [<unix time>]]"
func (p *Parser) handleListReply(msg *irc.Message) error {
	raw := msg.String()
	if len(msg.Params) < 3 {
		modeErr := errors.NewStructuralError("", "", fmt.Sprintf("%s needs a channel and a mask", msg.Command))
		p.report(modeErr, "", raw)
		return modeErr
	}

	code := listReplyModes[msg.Command]
	if def, ok := p.registry.Lookup(modes.Channel, code); !ok || def.Kind != modes.List {
		// The server does not expose this list as a list mode
		return nil
	}

	channel, mask := msg.Params[1], msg.Params[2]
	ch, ok := p.store.Channel(channel)
	if !ok {
		ch, _ = p.store.EnsureChannel(channel)
		p.report(errors.NewUnknownTargetError("channel", channel), channel, raw)
	}

	entry := state.ListEntry{Value: mask, SetBy: p.serverName, SetAt: p.now()}
	if len(msg.Params) > 3 {
		entry.SetBy = nickOf(msg.Params[3])
	}
	if len(msg.Params) > 4 {
		if ts, err := strconv.ParseInt(msg.Params[4], 10, 64); err == nil {
			entry.SetAt = time.Unix(ts, 0).UTC()
		}
	}
	ch.AddListEntry(code, entry)
	return nil
}

// handleNames seeds memberships from "353 <me> <type> <channel> :<names>".
// Each name may carry several status symbols, such as "@+alice".
func (p *Parser) handleNames(msg *irc.Message) error {
	raw := msg.String()
	if len(msg.Params) < 4 {
		modeErr := errors.NewStructuralError("", "", "353 needs a channel and a names list")
		p.report(modeErr, "", raw)
		return modeErr
	}

	channel := msg.Params[2]
	ch, _ := p.store.EnsureChannel(channel)

	for _, name := range strings.Fields(msg.Params[3]) {
		var status uint64
		nick := name

		// Strip every leading status symbol
		for len(nick) > 0 {
			def, ok := p.registry.PrefixBySymbol(nick[0])
			if !ok {
				break
			}
			status |= def.Flag
			nick = nick[1:]
		}

		// userhost-in-names sends nick!user@host
		nick = nickOf(nick)
		if nick == "" {
			continue
		}

		p.store.EnsureClient(nick)
		member := ch.AddMember(p.store.Fold(nick), nick)
		member.Status = status
	}
	return nil
}

// nickOf returns the nick part of a nick!user@host mask
func nickOf(mask string) string {
	if i := strings.IndexAny(mask, "!@"); i >= 0 {
		return mask[:i]
	}
	return mask
}
