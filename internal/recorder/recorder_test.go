package recorder

import (
	"testing"

	"github.com/yourusername/modewatch/internal/circuitbreaker"
	"github.com/yourusername/modewatch/internal/config"
	"github.com/yourusername/modewatch/internal/database"
	"github.com/yourusername/modewatch/internal/metrics"
	"github.com/yourusername/modewatch/internal/session"
)

func newRecordedSession(t *testing.T) (*session.Session, *database.DB, *Recorder) {
	t.Helper()
	db, cleanup := database.NewTestDB(t)
	t.Cleanup(cleanup)

	cfg := config.DefaultConfig()
	cfg.Session.Nickname = "me"
	sess, err := session.New(cfg, nil)
	if err != nil {
		t.Fatalf("session.New() error = %v", err)
	}
	r := Attach(sess, db, metrics.NewCollector(db.Conn()), nil)
	return sess, db, r
}

func feed(t *testing.T, sess *session.Session, lines ...string) {
	t.Helper()
	for _, line := range lines {
		if err := sess.HandleLine(line); err != nil {
			t.Fatalf("HandleLine(%q) error = %v", line, err)
		}
	}
}

func TestRecorder_JournalsEvents(t *testing.T) {
	sess, db, _ := newRecordedSession(t)

	feed(t, sess,
		":me!u@h JOIN #Go",
		":alice!a@h JOIN #Go",
		":op!o@h MODE #Go +o alice",
		":op!o@h MODE #Go +b *!*@spam",
		":op!o@h MODE #Go +Z",
	)

	records, err := db.ListEvents("#go", 50)
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}

	kinds := make(map[string]int)
	for _, rec := range records {
		kinds[rec.Kind]++
	}
	if kinds["ChannelPrefixModeChanged"] != 1 {
		t.Errorf("prefix records = %d, want 1", kinds["ChannelPrefixModeChanged"])
	}
	if kinds["ChannelSingleModeChanged"] != 1 {
		t.Errorf("single records = %d, want 1", kinds["ChannelSingleModeChanged"])
	}
	if kinds["ChannelModeChanged"] != 3 {
		t.Errorf("aggregate records = %d, want 3", kinds["ChannelModeChanged"])
	}
	if kinds["ParseError"] != 1 {
		t.Errorf("parse error records = %d, want 1 for +Z", kinds["ParseError"])
	}
	if kinds["ChannelNonUserModeChanged"] != 0 {
		t.Error("non-user events should not be journaled")
	}

	members, err := db.ListMembers("#go")
	if err != nil {
		t.Fatalf("ListMembers() error = %v", err)
	}
	var aliceStatus string
	for _, m := range members {
		if m.Nick == "alice" {
			aliceStatus = m.Status
		}
	}
	if aliceStatus != "@" {
		t.Errorf("alice status = %q, want @", aliceStatus)
	}

	entries, _ := db.ListEntries("#go")
	if len(entries) != 1 || entries[0].Value != "*!*@spam" || entries[0].SetBy != "op" {
		t.Errorf("list entries = %+v, want the ban set by op", entries)
	}

	stats, err := metrics.NewCollector(db.Conn()).GetStats(records[0].CreatedAt)
	if err != nil {
		t.Fatalf("GetStats() error = %v", err)
	}
	if stats.ErrorCounts["UnknownModeCharacter"] != 1 {
		t.Errorf("ErrorCounts = %v", stats.ErrorCounts)
	}
}

func TestRecorder_Membership(t *testing.T) {
	sess, db, _ := newRecordedSession(t)

	feed(t, sess,
		":me!u@h JOIN #go",
		":alice!a@h JOIN #go",
		":bob!b@h JOIN #go",
		":bob!b@h PART #go",
		":alice!a@h NICK Alicia",
	)

	members, _ := db.ListMembers("#go")
	if len(members) != 2 {
		t.Fatalf("members = %+v, want me and alicia", members)
	}
	found := false
	for _, m := range members {
		if m.Nick == "alicia" && m.DisplayNick == "Alicia" {
			found = true
		}
	}
	if !found {
		t.Errorf("members = %+v, want renamed alicia", members)
	}

	feed(t, sess, ":me!u@h PART #go")
	if members, _ := db.ListMembers("#go"); len(members) != 0 {
		t.Errorf("members after we parted = %+v, want none", members)
	}
}

func TestRecorder_SyncStore(t *testing.T) {
	sess, db, r := newRecordedSession(t)

	feed(t, sess,
		":irc.example.net 353 me = #go :@alice +bob",
		":irc.example.net 367 me #go *!*@spam op 1700000000",
	)
	if err := r.SyncStore(sess.Store()); err != nil {
		t.Fatalf("SyncStore() error = %v", err)
	}

	members, _ := db.ListMembers("#go")
	if len(members) != 2 || members[0].Status != "@" || members[1].Status != "+" {
		t.Errorf("members = %+v, want @alice +bob", members)
	}
	entries, _ := db.ListEntries("#go")
	if len(entries) != 1 || entries[0].SetAt.Unix() != 1700000000 {
		t.Errorf("entries = %+v", entries)
	}
}

func TestRecorder_BreakerOpensWhenDatabaseFails(t *testing.T) {
	sess, db, r := newRecordedSession(t)
	feed(t, sess, ":me!u@h JOIN #go")

	if err := db.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	for i := 0; i < 10; i++ {
		feed(t, sess, ":op!o@h MODE #go +m")
	}

	if got := r.Breaker().State(); got != circuitbreaker.StateOpen {
		t.Fatalf("breaker state = %v, want open", got)
	}
	if r.Breaker().Rejected() == 0 {
		t.Error("no writes were refused after the breaker opened")
	}
	if err := r.SyncStore(sess.Store()); err == nil {
		t.Error("SyncStore() should fail while the database is closed")
	}
}
