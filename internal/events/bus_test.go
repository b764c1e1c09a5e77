package events

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestBus_HandlersRunInSubscriptionOrder(t *testing.T) {
	b := NewBus()
	var got []string
	for _, name := range []string{"a", "b", "c"} {
		b.On(TopicSelectItem, func(any) error {
			got = append(got, name)
			return nil
		})
	}

	b.Emit(TopicSelectItem, SelectItem{ID: "X"})

	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestBus_FailureIsolation(t *testing.T) {
	var hooked []string
	b := NewBus(WithFailureHook(func(topic string, err error) {
		hooked = append(hooked, topic+": "+err.Error())
	}))
	ran := 0
	b.On(TopicClearSelectedItem, func(any) error { ran++; return errors.New("boom") })
	b.On(TopicClearSelectedItem, func(any) error { ran++; panic("kaboom") })
	b.On(TopicClearSelectedItem, func(any) error { ran++; return nil })

	b.Emit(TopicClearSelectedItem, ClearSelectedItem{})

	if ran != 3 {
		t.Fatalf("ran %d handlers, want 3", ran)
	}
	if b.Failures() != 2 {
		t.Errorf("Failures = %d, want 2", b.Failures())
	}
	if len(hooked) != 2 || !strings.Contains(hooked[1], "kaboom") {
		t.Errorf("failure hook calls = %v", hooked)
	}
}

func TestBus_Cancel(t *testing.T) {
	b := NewBus()
	calls := 0
	cancel := b.On(TopicHideTooltip, func(any) error { calls++; return nil })
	b.Emit(TopicHideTooltip, HideTooltip{})
	cancel()
	cancel() // idempotent
	b.Emit(TopicHideTooltip, HideTooltip{})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestBus_NestedEmitIsDepthFirst(t *testing.T) {
	b := NewBus()
	var trace []string
	b.On(TopicToggleSelectedItem, func(p any) error {
		trace = append(trace, "toggle")
		b.Emit(TopicSelectItem, SelectItem{ID: p.(ToggleSelectedItem).ID})
		trace = append(trace, "toggle-done")
		return nil
	})
	b.On(TopicSelectItem, func(any) error {
		trace = append(trace, "select")
		return nil
	})

	b.Emit(TopicToggleSelectedItem, ToggleSelectedItem{ID: "X"})

	if want := []string{"toggle", "select", "toggle-done"}; !reflect.DeepEqual(trace, want) {
		t.Errorf("trace = %v, want %v", trace, want)
	}
}

func TestBus_OnAnyRunsAfterTopicHandlers(t *testing.T) {
	b := NewBus()
	var trace []string
	b.OnAny(func(topic string, _ any) error {
		trace = append(trace, "any:"+topic)
		return nil
	})
	b.On(TopicMoveTooltip, func(any) error {
		trace = append(trace, "topic")
		return nil
	})

	b.Emit(TopicMoveTooltip, MoveTooltip{})
	b.Emit("somethingElse", nil)

	want := []string{"topic", "any:" + TopicMoveTooltip, "any:somethingElse"}
	if !reflect.DeepEqual(trace, want) {
		t.Errorf("trace = %v, want %v", trace, want)
	}
}

func TestTyped(t *testing.T) {
	b := NewBus()
	var got string
	b.On(TopicSelectItem, Typed(func(e SelectItem) error {
		got = e.ID
		return nil
	}))

	b.Emit(TopicSelectItem, SelectItem{ID: "42"})
	if got != "42" {
		t.Errorf("got %q, want 42", got)
	}

	b.Emit(TopicSelectItem, "not a payload")
	if b.Failures() != 1 {
		t.Errorf("Failures = %d, want 1 after wrong payload type", b.Failures())
	}
}

type recordingPublisher struct {
	subjects []string
	err      error
}

func (r *recordingPublisher) Publish(_ context.Context, subject string, _ any) error {
	r.subjects = append(r.subjects, subject)
	return r.err
}

func (r *recordingPublisher) Close() error { return nil }

func TestBus_Mirror(t *testing.T) {
	b := NewBus()
	pub := &recordingPublisher{}
	cancel := b.Mirror(context.Background(), pub)

	b.Emit(TopicToggleIndustry, ToggleIndustry{Industry: "Health"})
	b.Emit(TopicClearSelectedItem, ClearSelectedItem{})
	cancel()
	b.Emit(TopicClearSelectedItem, ClearSelectedItem{})

	want := []string{"unicorns.toggleIndustry", "unicorns.clearSelectedItem"}
	if !reflect.DeepEqual(pub.subjects, want) {
		t.Errorf("subjects = %v, want %v", pub.subjects, want)
	}

	pub.err = errors.New("nats down")
	b.Mirror(context.Background(), pub)
	b.Emit(TopicHideTooltip, HideTooltip{})
	if b.Failures() != 1 {
		t.Errorf("Failures = %d, want 1 after publish error", b.Failures())
	}
}

func TestIsKnownAndSubject(t *testing.T) {
	for _, topic := range Topics {
		if !IsKnown(topic) {
			t.Errorf("IsKnown(%q) = false", topic)
		}
	}
	if IsKnown("unicorns.selectItem") {
		t.Error("IsKnown accepted a foreign topic")
	}
	if Subject(TopicSelectItem) != "unicorns.selectItem" {
		t.Errorf("Subject = %q", Subject(TopicSelectItem))
	}
	if topicFromSubject("unicorns.selectItem") != TopicSelectItem || topicFromSubject("other") != "other" {
		t.Error("topicFromSubject did not strip the prefix")
	}
}
