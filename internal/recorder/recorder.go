// Package recorder journals a session's mode events and keeps the stored
// channel membership and list tables in step with them.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yourusername/modewatch/internal/circuitbreaker"
	"github.com/yourusername/modewatch/internal/database"
	"github.com/yourusername/modewatch/internal/events"
	"github.com/yourusername/modewatch/internal/metrics"
	"github.com/yourusername/modewatch/internal/modes"
	"github.com/yourusername/modewatch/internal/output"
	"github.com/yourusername/modewatch/internal/session"
	"github.com/yourusername/modewatch/internal/state"
)

// Name is the subscriber name the recorder registers under
const Name = "recorder"

// Recorder is a dispatcher subscriber and membership observer that writes to
// the database
type Recorder struct {
	db        *database.DB
	collector *metrics.Collector
	sessionID string
	registry  *modes.Registry
	fold      func(string) string
	logger    output.Logger
	breaker   *circuitbreaker.Breaker
}

// Attach creates a recorder for sess and subscribes it to every event kind
func Attach(sess *session.Session, db *database.DB, collector *metrics.Collector, logger output.Logger) *Recorder {
	if logger == nil {
		logger = output.NopLogger{}
	}
	r := &Recorder{
		db:        db,
		collector: collector,
		sessionID: sess.ID(),
		registry:  sess.Registry(),
		fold:      sess.Store().Fold,
		logger:    logger,
	}
	r.breaker = circuitbreaker.New(circuitbreaker.Config{
		Threshold: 5,
		Cooldown:  30 * time.Second,
		HealthCheck: func(ctx context.Context) error {
			return db.Conn().PingContext(ctx)
		},
		OnStateChange: func(from, to circuitbreaker.State) {
			if to == circuitbreaker.StateOpen {
				logger.Error("Database writes failing, journal paused for %v", 30*time.Second)
				return
			}
			logger.Info("Journal breaker %s -> %s", from, to)
		},
	})
	sess.Dispatcher().SubscribeAll(r, "")
	sess.SetMembershipObserver(r)
	return r
}

// Name implements events.Subscriber
func (r *Recorder) Name() string { return Name }

// Breaker exposes the breaker guarding database writes
func (r *Recorder) Breaker() *circuitbreaker.Breaker { return r.breaker }

// write runs fn through the breaker. Writes refused while the breaker is open
// are dropped without an error so a dead database does not flood the
// dispatcher with failures.
func (r *Recorder) write(fn func() error) error {
	err := r.breaker.Call(fn)
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return nil
	}
	return err
}

// HandleEvent implements events.Subscriber
func (r *Recorder) HandleEvent(ev events.Event) error {
	if err := r.write(func() error { return r.count(ev) }); err != nil {
		r.logger.Warning("Failed to record metric: %v", err)
	}

	rec := &database.EventRecord{
		SessionID: r.sessionID,
		Kind:      ev.Kind().String(),
		Channel:   r.fold(ev.ChannelName()),
	}
	var mirror func() error

	switch e := ev.(type) {
	case events.ChannelModeChanged:
		rec.Actor, rec.Mode, rec.Params, rec.CreatedAt = e.Actor, e.Modes, e.Params, e.Time

	case events.ChannelSingleModeChanged:
		rec.Actor, rec.Mode, rec.CreatedAt = e.Actor, e.Change(), e.Time
		if e.Param != "" {
			rec.Params = []string{e.Param}
		}
		mirror = func() error { return r.syncListEntry(e) }

	case events.ChannelPrefixModeChanged:
		rec.Actor, rec.Mode, rec.CreatedAt = e.Actor, e.Change(), e.Time
		rec.Target = e.Member.Nick
		status := r.registry.StatusSymbols(e.Member.Status)
		mirror = func() error {
			return r.db.UpsertMember(rec.Channel, r.fold(e.Member.Nick), e.Member.Nick, status)
		}

	case events.ChannelNonUserModeChanged:
		// Already journaled through ChannelModeChanged
		return nil

	case events.UserModeChanged:
		rec.Actor, rec.Mode, rec.CreatedAt = e.Actor, e.Modes, e.Time
		rec.Target = e.Client.Nick

	case events.ParseError:
		rec.Target, rec.CreatedAt = e.Err.Target, e.Time
		rec.Mode = string(e.Err.Type)
		rec.Params = []string{e.Err.Message}

	case events.SubscriberDispatchError:
		// A failing journal would fail again; log instead of journaling
		r.logger.Warning("Subscriber %s failed on %s: %v", e.Subscriber, e.Origin, e.Err)
		return nil

	default:
		return fmt.Errorf("unhandled event type %T", ev)
	}

	return r.write(func() error {
		if mirror != nil {
			if err := mirror(); err != nil {
				return err
			}
		}
		return r.db.RecordEvent(rec)
	})
}

func (r *Recorder) count(ev events.Event) error {
	switch e := ev.(type) {
	case events.ParseError:
		return r.collector.RecordError(string(e.Err.Type))
	case events.SubscriberDispatchError:
		return r.collector.RecordError(string(e.Err.Type))
	}
	return r.collector.RecordEvent(ev.Kind().String())
}

// syncListEntry mirrors a list mode change into the list table
func (r *Recorder) syncListEntry(e events.ChannelSingleModeChanged) error {
	def, ok := r.registry.Lookup(modes.Channel, e.Mode)
	if !ok || def.Kind != modes.List {
		return nil
	}

	channel := r.fold(e.Channel.Name)
	if !e.Adding {
		return r.db.RemoveListEntry(channel, e.Mode, e.Param)
	}

	for _, entry := range e.Channel.ListEntries(e.Mode) {
		if entry.Value == e.Param {
			return r.db.UpsertListEntry(channel, e.Mode, entry.Value, entry.SetBy, entry.SetAt)
		}
	}
	return r.db.UpsertListEntry(channel, e.Mode, e.Param, e.Actor, e.Time)
}

// SyncStore writes the membership and list state of every channel, covering
// state seeded by NAMES and list replies, which publish no events
func (r *Recorder) SyncStore(store *state.Store) error {
	if r.breaker.State() == circuitbreaker.StateOpen {
		if err := r.breaker.TryHealthCheck(context.Background()); err != nil {
			return fmt.Errorf("database unavailable: %w", err)
		}
	}

	var failed []string
	for _, ch := range store.Channels() {
		channel := r.fold(ch.Name)
		for key, m := range ch.Members {
			if err := r.db.UpsertMember(channel, key, m.Nick, r.registry.StatusSymbols(m.Status)); err != nil {
				failed = append(failed, err.Error())
			}
		}
		for code, entries := range ch.Lists {
			for _, entry := range entries {
				if err := r.db.UpsertListEntry(channel, code, entry.Value, entry.SetBy, entry.SetAt); err != nil {
					failed = append(failed, err.Error())
				}
			}
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("sync failed: %s", strings.Join(failed, "; "))
	}
	return nil
}

// OnJoin implements session.MembershipObserver
func (r *Recorder) OnJoin(channel, nick string, isSelf bool) {
	if isSelf {
		// A fresh join starts from empty channel state
		if err := r.write(func() error { return r.db.ClearChannel(r.fold(channel)) }); err != nil {
			r.logger.Warning("Failed to clear stored state for %s: %v", channel, err)
		}
	}
	if err := r.write(func() error { return r.db.UpsertMember(r.fold(channel), r.fold(nick), nick, "") }); err != nil {
		r.logger.Warning("Failed to add member %s to %s: %v", nick, channel, err)
	}
}

// OnPart implements session.MembershipObserver
func (r *Recorder) OnPart(channel, nick string, isSelf bool) {
	if isSelf {
		if err := r.write(func() error { return r.db.ClearChannel(r.fold(channel)) }); err != nil {
			r.logger.Warning("Failed to clear stored state for %s: %v", channel, err)
		}
		return
	}
	if err := r.write(func() error { return r.db.RemoveMember(r.fold(channel), r.fold(nick)) }); err != nil {
		r.logger.Warning("Failed to remove member %s from %s: %v", nick, channel, err)
	}
}

// OnQuit implements session.MembershipObserver
func (r *Recorder) OnQuit(nick string) {
	if err := r.write(func() error { return r.db.RemoveMemberEverywhere(r.fold(nick)) }); err != nil {
		r.logger.Warning("Failed to remove %s from all channels: %v", nick, err)
	}
}

// OnNickChange implements session.MembershipObserver
func (r *Recorder) OnNickChange(oldNick, newNick string, isSelf bool) {
	if err := r.write(func() error { return r.db.RenameMember(r.fold(oldNick), r.fold(newNick), newNick) }); err != nil {
		r.logger.Warning("Failed to rename member %s to %s: %v", oldNick, newNick, err)
	}
}
