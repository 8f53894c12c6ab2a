package inbound

import (
	"context"
	"errors"
	"testing"
	"time"

	"notibridge/internal/eventbus"
	"notibridge/internal/history"
	"notibridge/internal/notifier"
	"notibridge/internal/storage"
	logx "notibridge/pkg/logx"
)

type captureSink struct {
	ch chan notifier.Notification
}

func (c *captureSink) Name() string { return "capture" }

func (c *captureSink) Send(ctx context.Context, n notifier.Notification) error {
	select {
	case c.ch <- n:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

type failingKV struct {
	storage.KV
}

func (f *failingKV) Put(ctx context.Context, key, value string) error {
	return errors.New("disk full")
}

func newTestService(t *testing.T, kv storage.KV, window time.Duration) (*Service, eventbus.Bus, *captureSink) {
	t.Helper()
	sink := &captureSink{ch: make(chan notifier.Notification, 8)}
	notif := notifier.New(notifier.Config{Workers: 1, RatePerSec: 1000}, []notifier.Sink{sink}, logx.Nop())
	t.Cleanup(func() { notif.Stop(context.Background()) })
	notif.Start()

	bus := eventbus.New()
	hist := history.New(kv, logx.Nop())
	svc := New(Config{RedeliveryWindow: window}, hist, notif, bus, kv, logx.Nop())
	return svc, bus, sink
}

func waitNotification(t *testing.T, sink *captureSink) notifier.Notification {
	t.Helper()
	select {
	case n := <-sink.ch:
		return n
	case <-time.After(2 * time.Second):
		t.Fatalf("no notification delivered")
		return notifier.Notification{}
	}
}

func TestHandleMessageForwardsAndRenders(t *testing.T) {
	svc, bus, sink := newTestService(t, storage.NewMemory(), 0)

	events, unsub := bus.Subscribe(8)
	defer unsub()

	svc.HandleMessage(context.Background(), Message{
		MessageID:    "m1",
		Notification: &NotificationBlock{Title: "Fee Due", Body: "Pay by 5th"},
	})

	select {
	case ev := <-events:
		if ev.Type != eventbus.EventPushReceived {
			t.Fatalf("unexpected event type %q", ev.Type)
		}
		payload, ok := ev.Data.(ForwardedPayload)
		if !ok {
			t.Fatalf("unexpected event data %T", ev.Data)
		}
		if payload.Record.Title != "Fee Due" || payload.Outcome != "stored" {
			t.Fatalf("unexpected payload: %+v", payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no event forwarded")
	}

	n := waitNotification(t, sink)
	if n.Title != "Fee Due" || n.Body != "Pay by 5th" {
		t.Fatalf("tray text must match the record: %+v", n)
	}
}

func TestHandleMessageDropsProviderRedelivery(t *testing.T) {
	svc, bus, _ := newTestService(t, storage.NewMemory(), time.Minute)

	events, unsub := bus.Subscribe(8)
	defer unsub()

	msg := Message{MessageID: "dup", Data: map[string]string{"title": "T", "body": "B"}}
	svc.HandleMessage(context.Background(), msg)
	svc.HandleMessage(context.Background(), msg)

	got := 0
	deadline := time.After(500 * time.Millisecond)
loop:
	for {
		select {
		case <-events:
			got++
		case <-deadline:
			break loop
		}
	}
	if got != 1 {
		t.Fatalf("expected 1 forwarded event, got %d", got)
	}
}

func TestStorageFailureDoesNotBlockDelivery(t *testing.T) {
	svc, bus, sink := newTestService(t, &failingKV{KV: storage.NewMemory()}, 0)

	events, unsub := bus.Subscribe(8)
	defer unsub()

	svc.HandleMessage(context.Background(), Message{
		MessageID: "m1",
		Data:      map[string]string{"title": "T", "body": "B"},
	})

	// The user still sees the event and the tray popup.
	select {
	case <-events:
	case <-time.After(2 * time.Second):
		t.Fatalf("event not forwarded despite storage failure")
	}
	n := waitNotification(t, sink)
	if n.Title != "T" || n.Body != "B" {
		t.Fatalf("unexpected notification: %+v", n)
	}
}

func TestHandleNewToken(t *testing.T) {
	kv := storage.NewMemory()
	svc, bus, _ := newTestService(t, kv, 0)

	events, unsub := bus.Subscribe(8)
	defer unsub()

	svc.HandleNewToken(context.Background(), "tok-123")

	select {
	case ev := <-events:
		if ev.Type != eventbus.EventTokenRefreshed {
			t.Fatalf("unexpected event type %q", ev.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no token event")
	}

	v, ok, err := kv.Get(context.Background(), "registration_token")
	if err != nil || !ok || v != "tok-123" {
		t.Fatalf("token not persisted: ok=%v v=%q err=%v", ok, v, err)
	}
}
