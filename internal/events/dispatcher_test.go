package events

import (
	stderrors "errors"
	"strings"
	"testing"

	"github.com/yourusername/modewatch/internal/state"
)

// recorder collects the names of subscribers as they are invoked
type recorder struct {
	calls []string
}

func (r *recorder) subscriber(name string, err error) Subscriber {
	return NewSubscriber(name, func(Event) error {
		r.calls = append(r.calls, name)
		return err
	})
}

func channelEvent(name string) ChannelModeChanged {
	return ChannelModeChanged{Channel: state.NewChannel(name), Modes: "+n"}
}

func TestPublish_RegistrationOrder(t *testing.T) {
	d := NewDispatcher(nil)
	rec := &recorder{}

	d.Subscribe(KindChannelModeChanged, rec.subscriber("first", nil), "")
	d.Subscribe(KindChannelModeChanged, rec.subscriber("second", nil), "")
	d.Subscribe(KindChannelModeChanged, rec.subscriber("third", nil), "")

	if !d.Publish(channelEvent("#go")) {
		t.Fatal("Publish() = false, want true")
	}

	want := []string{"first", "second", "third"}
	if len(rec.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", rec.calls, want)
	}
	for i := range want {
		if rec.calls[i] != want[i] {
			t.Errorf("calls[%d] = %q, want %q", i, rec.calls[i], want[i])
		}
	}
}

func TestPublish_NoSubscribers(t *testing.T) {
	d := NewDispatcher(nil)
	if d.Publish(channelEvent("#go")) {
		t.Error("Publish() = true with no subscribers, want false")
	}
}

func TestPublish_DispatchIsolation(t *testing.T) {
	d := NewDispatcher(nil)
	rec := &recorder{}

	d.Subscribe(KindChannelModeChanged, rec.subscriber("one", nil), "")
	d.Subscribe(KindChannelModeChanged, rec.subscriber("two", stderrors.New("boom")), "")
	d.Subscribe(KindChannelModeChanged, rec.subscriber("three", nil), "")

	var dispatchErrors []SubscriberDispatchError
	On(d, "errors", "", func(ev SubscriberDispatchError) error {
		dispatchErrors = append(dispatchErrors, ev)
		return nil
	})

	if !d.Publish(channelEvent("#go")) {
		t.Fatal("Publish() = false, want true")
	}

	if len(rec.calls) != 3 || rec.calls[0] != "one" || rec.calls[2] != "three" {
		t.Errorf("calls = %v, want [one two three]", rec.calls)
	}
	if len(dispatchErrors) != 1 {
		t.Fatalf("dispatch errors = %d, want exactly 1", len(dispatchErrors))
	}
	got := dispatchErrors[0]
	if got.Subscriber != "two" || got.Origin != KindChannelModeChanged || got.Channel != "#go" {
		t.Errorf("dispatch error = %+v, want from two on ChannelModeChanged #go", got)
	}
}

func TestPublish_PanicIsolated(t *testing.T) {
	d := NewDispatcher(nil)
	rec := &recorder{}

	d.Subscribe(KindUserModeChanged, NewSubscriber("panics", func(Event) error {
		panic("nil map write")
	}), "")
	d.Subscribe(KindUserModeChanged, rec.subscriber("after", nil), "")

	var caught int
	On(d, "errors", "", func(SubscriberDispatchError) error {
		caught++
		return nil
	})

	d.Publish(UserModeChanged{Client: &state.Client{Nick: "alice"}, Modes: "+i"})

	if len(rec.calls) != 1 {
		t.Errorf("subscriber after panic called %d times, want 1", len(rec.calls))
	}
	if caught != 1 {
		t.Errorf("dispatch errors = %d, want 1", caught)
	}
}

func TestPublish_FailingErrorSubscriberNotRepublished(t *testing.T) {
	d := NewDispatcher(nil)
	calls := 0

	d.Subscribe(KindChannelModeChanged, NewSubscriber("bad", func(Event) error {
		return stderrors.New("bad")
	}), "")
	d.Subscribe(KindSubscriberDispatchError, NewSubscriber("also-bad", func(Event) error {
		calls++
		return stderrors.New("worse")
	}), "")

	d.Publish(channelEvent("#go"))

	if calls != 1 {
		t.Errorf("error subscriber called %d times, want 1", calls)
	}
}

func TestSubscribe_ChannelFilter(t *testing.T) {
	d := NewDispatcher(nil)
	rec := &recorder{}

	d.Subscribe(KindChannelModeChanged, rec.subscriber("foo-only", nil), "#foo")
	d.Subscribe(KindChannelModeChanged, rec.subscriber("everything", nil), "")

	d.Publish(channelEvent("#bar"))
	if len(rec.calls) != 1 || rec.calls[0] != "everything" {
		t.Errorf("calls for #bar = %v, want [everything]", rec.calls)
	}

	rec.calls = nil
	d.Publish(channelEvent("#FOO"))
	if len(rec.calls) != 2 {
		t.Errorf("calls for #FOO = %v, want both subscribers", rec.calls)
	}
}

func TestSubscribe_FilterUsesCurrentFold(t *testing.T) {
	d := NewDispatcher(nil)
	rec := &recorder{}

	fold := strings.ToLower
	d.SetFold(func(s string) string { return fold(s) })
	d.Subscribe(KindChannelModeChanged, rec.subscriber("watch", nil), "#A_B")

	fold = strings.ToUpper
	if !d.Publish(channelEvent("#a_b")) {
		t.Error("Publish() = false after the fold changed, want the filter to match")
	}

	d.SetFold(func(s string) string { return s })
	if d.Publish(channelEvent("#a_b")) {
		t.Error("Publish() = true under an exact fold for a differently cased channel")
	}
}

func TestSubscribe_FilterOnlyNoMatch(t *testing.T) {
	d := NewDispatcher(nil)
	rec := &recorder{}
	d.Subscribe(KindChannelModeChanged, rec.subscriber("foo-only", nil), "#foo")

	if d.Publish(channelEvent("#bar")) {
		t.Error("Publish() = true when only a non-matching filtered subscriber exists")
	}
}

func TestSubscribe_Idempotent(t *testing.T) {
	d := NewDispatcher(nil)
	rec := &recorder{}
	sub := rec.subscriber("gui", nil)

	d.Subscribe(KindChannelModeChanged, sub, "#foo")
	d.Subscribe(KindChannelModeChanged, sub, "#foo")
	if got := d.Count(KindChannelModeChanged); got != 1 {
		t.Fatalf("Count() = %d, want 1", got)
	}

	// Unfiltered re-subscribe clears the filter
	d.Subscribe(KindChannelModeChanged, sub, "")
	d.Publish(channelEvent("#bar"))
	if len(rec.calls) != 1 {
		t.Errorf("calls = %v, want one call after filter was cleared", rec.calls)
	}
}

func TestUnsubscribe(t *testing.T) {
	d := NewDispatcher(nil)
	rec := &recorder{}
	sub := rec.subscriber("gui", nil)

	d.Subscribe(KindChannelModeChanged, sub, "#foo")
	if !d.Unsubscribe(KindChannelModeChanged, sub) {
		t.Fatal("Unsubscribe() = false, want true")
	}
	if d.Unsubscribe(KindChannelModeChanged, sub) {
		t.Error("second Unsubscribe() = true, want false")
	}

	// Re-subscribing starts without the old filter
	d.Subscribe(KindChannelModeChanged, sub, "")
	d.Publish(channelEvent("#bar"))
	if len(rec.calls) != 1 {
		t.Errorf("calls = %v, want one", rec.calls)
	}
}

func TestChangeStrings(t *testing.T) {
	single := ChannelSingleModeChanged{Adding: false, Mode: 'k', Param: "secret"}
	if got := single.Change(); got != "-k secret" {
		t.Errorf("Change() = %q, want %q", got, "-k secret")
	}
	prefix := ChannelPrefixModeChanged{Adding: true, Mode: 'o'}
	if got := prefix.Change(); got != "+o" {
		t.Errorf("Change() = %q, want %q", got, "+o")
	}
}
