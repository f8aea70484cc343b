package parser

import (
	"fmt"

	"github.com/yourusername/modewatch/internal/errors"
	"github.com/yourusername/modewatch/internal/events"
	"github.com/yourusername/modewatch/internal/modes"
	"github.com/yourusername/modewatch/internal/state"
)

// walkChannel applies a channel mode string left to right. Prefix, list and
// parameter changes are published as they happen; the aggregate events follow
// once the whole string was applied. Running out of parameters aborts the rest
// of the line, keeping what was already applied and published.
func (p *Parser) walkChannel(l *line) error {
	ch, created := p.store.EnsureChannel(l.target)
	if created {
		p.report(errors.NewUnknownTargetError("channel", l.target), l.target, l.raw)
	}
	if l.snapshot {
		ch.ResetModes()
	}

	var full, nonUser modeBuilder
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

		def, ok := p.resolve(modes.Channel, code, l)
		if !ok {
			continue
		}

		switch def.Kind {
		case modes.Prefix:
			nick, ok := l.param()
			if !ok {
				return p.missingParam(l, code)
			}
			member := p.member(ch, nick, l)
			if adding {
				member.Status |= def.Flag
			} else {
				member.Status &^= def.Flag
			}
			full.add(adding, code, nick)
			p.pub.Publish(events.ChannelPrefixModeChanged{
				Channel: ch,
				Member:  member,
				Actor:   l.actor,
				Adding:  adding,
				Mode:    code,
				Time:    l.at,
			})

		case modes.List:
			value, ok := l.param()
			if !ok {
				return p.missingParam(l, code)
			}
			if adding {
				ch.AddListEntry(code, state.ListEntry{
					Value: value,
					SetBy: p.setter(l),
					SetAt: l.at,
				})
			} else {
				ch.RemoveListEntry(code, value)
			}
			full.add(adding, code, value)
			nonUser.add(adding, code, value)
			p.publishSingle(ch, l, adding, code, value)

		case modes.Parameter:
			var value string
			if adding || def.UnsetTakesParam {
				if value, ok = l.param(); !ok {
					return p.missingParam(l, code)
				}
			}
			if adding {
				ch.SetParam(code, value)
			} else {
				ch.ClearParam(code)
			}
			if adding || def.UnsetTakesParam {
				full.add(adding, code, value)
				nonUser.add(adding, code, value)
			} else {
				full.add(adding, code)
				nonUser.add(adding, code)
			}
			p.publishSingle(ch, l, adding, code, value)

		default:
			ch.SetFlag(def.Flag, adding)
			full.add(adding, code)
			nonUser.add(adding, code)
		}
	}

	if full.empty() {
		return nil
	}

	p.pub.Publish(events.ChannelModeChanged{
		Channel:  ch,
		Actor:    l.actor,
		Modes:    full.modes(),
		Params:   full.params,
		Snapshot: l.snapshot,
		Time:     l.at,
	})

	if !nonUser.empty() {
		p.pub.Publish(events.ChannelNonUserModeChanged{
			Channel: ch,
			Actor:   l.actor,
			Modes:   nonUser.modes(),
			Params:  nonUser.params,
			Time:    l.at,
		})
	}

	return nil
}

func (p *Parser) publishSingle(ch *state.Channel, l *line, adding bool, code byte, param string) {
	p.pub.Publish(events.ChannelSingleModeChanged{
		Channel: ch,
		Actor:   l.actor,
		Adding:  adding,
		Mode:    code,
		Param:   param,
		Time:    l.at,
	})
}

// member resolves a member of ch, synthesizing one when the nick is not known
func (p *Parser) member(ch *state.Channel, nick string, l *line) *state.Membership {
	folded := p.store.Fold(nick)
	if m, ok := ch.Member(folded); ok {
		return m
	}

	p.store.EnsureClient(nick)
	p.report(errors.NewUnknownTargetError("member of "+ch.Name, nick), ch.Name, l.raw)
	return ch.AddMember(folded, nick)
}

func (p *Parser) setter(l *line) string {
	if l.actor == "" {
		return p.serverName
	}
	return l.actor
}

func (p *Parser) missingParam(l *line, code byte) error {
	modeErr := errors.NewStructuralError(l.target, l.modes,
		fmt.Sprintf("missing parameter for mode '%c'", code))
	p.report(modeErr, l.target, l.raw)
	return modeErr
}
