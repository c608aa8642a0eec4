package notify

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/slack-go/slack"

	"github.com/crewcall/crewcall/internal/timeline"
)

func testNotification() timeline.Notification {
	return timeline.Notification{
		ID:               "n1",
		TimelineItemID:   "item1",
		NotificationTime: time.Date(2026, 3, 14, 17, 30, 0, 0, time.UTC),
		NotificationType: "reminder",
		Message:          "doors in 30 minutes",
	}
}

type stubNotifier struct {
	err   error
	calls int
}

func (s *stubNotifier) Notify(context.Context, timeline.Notification) error {
	s.calls++
	return s.err
}

func TestMultiAttemptsAllTransports(t *testing.T) {
	boom := errors.New("boom")
	first := &stubNotifier{err: boom}
	second := &stubNotifier{}

	err := Multi(first, second).Notify(context.Background(), testNotification())
	if !errors.Is(err, boom) {
		t.Fatalf("Multi error = %v, want to wrap %v", err, boom)
	}
	if first.calls != 1 || second.calls != 1 {
		t.Errorf("calls = %d/%d, want every transport attempted", first.calls, second.calls)
	}
}

func TestMultiAllHealthy(t *testing.T) {
	a, b := &stubNotifier{}, &stubNotifier{}
	if err := Multi(a, b).Notify(context.Background(), testNotification()); err != nil {
		t.Fatalf("Multi with healthy transports: %v", err)
	}
}

func TestMultiEmptyIsNoop(t *testing.T) {
	if err := Multi().Notify(context.Background(), testNotification()); err != nil {
		t.Fatalf("empty Multi: %v", err)
	}
}

type fakeSlack struct {
	channel string
	options []slack.MsgOption
	err     error
}

func (f *fakeSlack) PostMessageContext(_ context.Context, channelID string, options ...slack.MsgOption) (string, string, error) {
	f.channel = channelID
	f.options = options
	return "C123", "1700000000.0001", f.err
}

func TestSlackNotifier(t *testing.T) {
	fake := &fakeSlack{}
	s := &SlackNotifier{api: fake, channel: "#ops"}

	if err := s.Notify(context.Background(), testNotification()); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if fake.channel != "#ops" {
		t.Errorf("posted to %q, want #ops", fake.channel)
	}
	if len(fake.options) != 1 {
		t.Errorf("got %d message options, want 1", len(fake.options))
	}

	fake.err = errors.New("channel_not_found")
	err := s.Notify(context.Background(), testNotification())
	if err == nil || !strings.Contains(err.Error(), "slack post") {
		t.Errorf("error = %v, want wrapped slack post error", err)
	}
}

type fakeKafkaWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeKafkaWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeKafkaWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaNotifier(t *testing.T) {
	fake := &fakeKafkaWriter{}
	k := &KafkaNotifier{writer: fake}

	n := testNotification()
	if err := k.Notify(context.Background(), n); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(fake.msgs) != 1 {
		t.Fatalf("wrote %d messages, want 1", len(fake.msgs))
	}
	msg := fake.msgs[0]
	if string(msg.Key) != n.ID {
		t.Errorf("message key = %q, want notification id %q", msg.Key, n.ID)
	}
	var decoded timeline.Notification
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if decoded.ID != n.ID || decoded.Message != n.Message {
		t.Errorf("decoded payload = %+v", decoded)
	}

	if err := k.Close(); err != nil || !fake.closed {
		t.Errorf("Close: err=%v closed=%v", err, fake.closed)
	}

	fake.err = errors.New("not leader for partition")
	if err := k.Notify(context.Background(), n); err == nil {
		t.Error("expected write error to propagate")
	}
}

func TestLogNotifierNeverFails(t *testing.T) {
	l := &LogNotifier{}
	if err := l.Notify(context.Background(), testNotification()); err != nil {
		t.Fatalf("log notifier: %v", err)
	}
}
