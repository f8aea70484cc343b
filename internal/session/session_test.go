package session

import (
	"testing"

	"github.com/yourusername/modewatch/internal/config"
	"github.com/yourusername/modewatch/internal/errors"
	"github.com/yourusername/modewatch/internal/events"
	"github.com/yourusername/modewatch/internal/modes"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Session.Nickname = "me"
	s, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func feed(t *testing.T, s *Session, lines ...string) {
	t.Helper()
	for _, line := range lines {
		if err := s.HandleLine(line); err != nil {
			t.Fatalf("HandleLine(%q) error = %v", line, err)
		}
	}
}

// observerLog records membership notifications
type observerLog struct {
	calls []string
}

func (o *observerLog) OnJoin(channel, nick string, isSelf bool) {
	o.calls = append(o.calls, "join "+channel+" "+nick)
}

func (o *observerLog) OnPart(channel, nick string, isSelf bool) {
	o.calls = append(o.calls, "part "+channel+" "+nick)
}

func (o *observerLog) OnQuit(nick string) {
	o.calls = append(o.calls, "quit "+nick)
}

func (o *observerLog) OnNickChange(oldNick, newNick string, isSelf bool) {
	o.calls = append(o.calls, "nick "+oldNick+" "+newNick)
}

func TestSession_PrefixModesOnJoinedMembers(t *testing.T) {
	s := newTestSession(t)

	var prefix, nonUser int
	events.On(s.Dispatcher(), "prefix", "", func(events.ChannelPrefixModeChanged) error {
		prefix++
		return nil
	})
	events.On(s.Dispatcher(), "nonuser", "", func(events.ChannelNonUserModeChanged) error {
		nonUser++
		return nil
	})
	var parseErrors int
	events.On(s.Dispatcher(), "errors", "", func(events.ParseError) error {
		parseErrors++
		return nil
	})

	feed(t, s,
		":me!u@h JOIN #chan",
		":alice!a@h JOIN #chan",
		":bob!b@h JOIN :#chan",
		":nick!u@h MODE #chan +ov alice bob",
	)

	if prefix != 2 {
		t.Errorf("prefix events = %d, want 2", prefix)
	}
	if nonUser != 0 {
		t.Errorf("non-user events = %d, want 0", nonUser)
	}
	if parseErrors != 0 {
		t.Errorf("parse errors = %d, want 0", parseErrors)
	}

	snap := s.Snapshot()
	if len(snap.Channels) != 1 {
		t.Fatalf("channels = %d, want 1", len(snap.Channels))
	}
	want := map[string]bool{"@alice": true, "+bob": true, "me": true}
	for _, m := range snap.Channels[0].Members {
		if !want[m] {
			t.Errorf("unexpected member %q", m)
		}
	}
}

func TestSession_ISupport(t *testing.T) {
	s := newTestSession(t)
	feed(t, s,
		":irc.example.net 005 me CHANMODES=eIbq,k,flj,CFLMPQScgimnprstuz PREFIX=(ov)@+ CHANTYPES=# :are supported by this server",
		":irc.example.net 005 me CASEMAPPING=ascii :are supported by this server",
	)

	def, ok := s.Registry().Lookup(modes.Channel, 'q')
	if !ok || def.Kind != modes.List {
		t.Errorf("Lookup(q) = %+v, want list mode", def)
	}
	def, ok = s.Registry().Lookup(modes.Channel, 'f')
	if !ok || def.Kind != modes.Parameter || def.UnsetTakesParam {
		t.Errorf("Lookup(f) = %+v, want parameter without unset param", def)
	}
	if s.Registry().IsChannel("&local") {
		t.Error("&local is a channel after CHANTYPES=#")
	}
	if got := s.Registry().Fold("[A]"); got != "[a]" {
		t.Errorf("Fold([A]) = %q, want ascii folding", got)
	}
}

func TestSession_ChannelModeIs(t *testing.T) {
	s := newTestSession(t)

	var got []events.ChannelModeChanged
	events.On(s.Dispatcher(), "agg", "#chan", func(ev events.ChannelModeChanged) error {
		got = append(got, ev)
		return nil
	})

	if err := s.HandleTokens([]string{"server", "324", "mynick", "#chan", "+nt"}); err != nil {
		t.Fatalf("HandleTokens() error = %v", err)
	}

	ch, ok := s.Store().Channel("#CHAN")
	if !ok {
		t.Fatal("#chan not created")
	}
	n, _ := s.Registry().Lookup(modes.Channel, 'n')
	tt, _ := s.Registry().Lookup(modes.Channel, 't')
	if ch.Modes != n.Flag|tt.Flag {
		t.Errorf("Modes = %#x, want n|t", ch.Modes)
	}
	if len(got) != 1 || got[0].Actor != "" {
		t.Errorf("aggregate events = %+v, want one from the server", got)
	}
}

func TestSession_FilterFollowsCasemapping(t *testing.T) {
	s := newTestSession(t)

	var got []string
	events.On(s.Dispatcher(), "watch", "#a[b]", func(ev events.ChannelModeChanged) error {
		got = append(got, ev.Modes)
		return nil
	})

	feed(t, s,
		":irc.example.net 005 me CASEMAPPING=ascii :are supported by this server",
		":irc.example.net 324 me #A[B] +n",
		":irc.example.net 324 me #a{b} +t",
	)

	if len(got) != 1 || got[0] != "+n" {
		t.Errorf("events after CASEMAPPING=ascii = %v, want only the #A[B] change", got)
	}
}

func TestSession_Lifecycle(t *testing.T) {
	s := newTestSession(t)
	obs := &observerLog{}
	s.SetMembershipObserver(obs)

	feed(t, s,
		":me!u@h JOIN #a",
		":me!u@h JOIN #b",
		":alice!a@h JOIN #a",
		":alice!a@h JOIN #b",
		":bob!b@h JOIN #a",
		":op!o@h KICK #a bob :bye",
		":alice!a@h NICK alicia",
		":alicia!a@h QUIT :gone",
		":me!u@h PART #b",
	)

	if _, ok := s.Store().Channel("#b"); ok {
		t.Error("#b still tracked after we parted")
	}
	a, ok := s.Store().Channel("#a")
	if !ok {
		t.Fatal("#a not tracked")
	}
	if len(a.Members) != 1 {
		t.Errorf("#a members = %d, want only us", len(a.Members))
	}
	if _, ok := s.Store().Client("alicia"); ok {
		t.Error("alicia still known after QUIT")
	}

	wantCalls := []string{
		"join #a me", "join #b me", "join #a alice", "join #b alice", "join #a bob",
		"part #a bob", "nick alice alicia", "quit alicia", "part #b me",
	}
	if len(obs.calls) != len(wantCalls) {
		t.Fatalf("observer calls = %v, want %v", obs.calls, wantCalls)
	}
	for i := range wantCalls {
		if obs.calls[i] != wantCalls[i] {
			t.Errorf("call[%d] = %q, want %q", i, obs.calls[i], wantCalls[i])
		}
	}
}

func TestSession_SelfNickChange(t *testing.T) {
	s := newTestSession(t)
	feed(t, s, ":irc.example.net 001 guest :Welcome", ":guest!u@h NICK newme")
	if s.Nick() != "newme" {
		t.Errorf("Nick() = %q, want newme", s.Nick())
	}
}

func TestSession_ReentrancyGuard(t *testing.T) {
	s := newTestSession(t)

	var inner error
	events.On(s.Dispatcher(), "reenter", "", func(events.ChannelModeChanged) error {
		inner = s.HandleLine(":x!u@h MODE #chan +m")
		return nil
	})

	feed(t, s, ":op!u@h MODE #chan +n")

	if !errors.IsType(inner, errors.ErrorTypeReentrant) {
		t.Errorf("inner HandleLine error = %v, want Reentrant", inner)
	}

	// The guard is released once the outer call returns
	feed(t, s, ":op!u@h MODE #chan +s")
}

func TestSession_StructuralErrorReturned(t *testing.T) {
	s := newTestSession(t)
	err := s.HandleLine(":op!u@h MODE #chan +k")
	if !errors.IsType(err, errors.ErrorTypeStructural) {
		t.Errorf("HandleLine() error = %v, want StructuralParseError", err)
	}
}

func TestSession_IgnoresUnrelatedLines(t *testing.T) {
	s := newTestSession(t)
	feed(t, s, ":alice!a@h PRIVMSG #chan :hello", "PING :irc.example.net", "")
	if len(s.Store().Channels()) != 0 {
		t.Error("unrelated lines created channels")
	}
}
