package notifier

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	logx "notibridge/pkg/logx"
)

type flakySink struct {
	failures int32
	sent     chan Notification
}

func (f *flakySink) Name() string { return "flaky" }

func (f *flakySink) Send(ctx context.Context, n Notification) error {
	if atomic.AddInt32(&f.failures, -1) >= 0 {
		return errors.New("transient")
	}
	select {
	case f.sent <- n:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func TestDeliveryRetriesTransientFailures(t *testing.T) {
	sink := &flakySink{failures: 2, sent: make(chan Notification, 1)}
	s := New(Config{
		Workers:    1,
		RatePerSec: 1000,
		RetryMax:   3,
		RetryBase:  time.Millisecond,
	}, []Sink{sink}, logx.Nop())

	s.Start()
	defer s.Stop(context.Background())

	if err := s.Notify(Notification{Title: "T", Body: "B"}); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	select {
	case n := <-sink.sent:
		if n.Title != "T" {
			t.Fatalf("unexpected notification: %+v", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("notification never delivered")
	}
}

type countingSink struct {
	delay time.Duration
	sent  chan Notification
}

func (c *countingSink) Name() string { return "counting" }

func (c *countingSink) Send(ctx context.Context, n Notification) error {
	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	select {
	case c.sent <- n:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func TestStopDrainsQueuedNotifications(t *testing.T) {
	sink := &countingSink{delay: 20 * time.Millisecond, sent: make(chan Notification, 8)}
	s := New(Config{Workers: 1, QueueSize: 8, RatePerSec: 1000}, []Sink{sink}, logx.Nop())
	s.Start()

	const total = 3
	for i := 0; i < total; i++ {
		if err := s.Notify(Notification{Title: "queued"}); err != nil {
			t.Fatalf("Notify %d: %v", i, err)
		}
	}

	// Stop with headroom must deliver everything still in the queue, even
	// though no external context keeps the workers alive.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Stop(ctx)

	if got := len(sink.sent); got != total {
		t.Fatalf("expected %d drained deliveries, got %d", total, got)
	}
}

func TestApplyDuringDeliveryIsSafe(t *testing.T) {
	sink := &countingSink{sent: make(chan Notification, 256)}
	s := New(Config{Workers: 2, QueueSize: 256, RatePerSec: 1000}, []Sink{sink}, logx.Nop())
	s.Start()
	defer s.Stop(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			s.Apply(Config{Workers: 2, QueueSize: 256, RatePerSec: 500 + i})
		}
	}()

	for i := 0; i < 100; i++ {
		if err := s.Notify(Notification{Title: "live"}); err != nil {
			t.Fatalf("Notify %d: %v", i, err)
		}
	}
	<-done

	deadline := time.After(5 * time.Second)
	for got := 0; got < 100; got++ {
		select {
		case <-sink.sent:
		case <-deadline:
			t.Fatalf("only %d of 100 deliveries arrived", got)
		}
	}
}

func TestNotifyAfterStop(t *testing.T) {
	s := New(Config{Workers: 1}, nil, logx.Nop())
	s.Start()
	s.Stop(context.Background())

	if err := s.Notify(Notification{Title: "late"}); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
}

func TestFullQueueDoesNotBlock(t *testing.T) {
	// No workers draining: queue size 1, so the second enqueue must fail fast.
	blocked := &flakySink{failures: 1 << 30, sent: make(chan Notification)}
	s := New(Config{Workers: 1, QueueSize: 1, RatePerSec: 1, RetryMax: 10, RetryBase: time.Minute}, []Sink{blocked}, logx.Nop())
	s.Start()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		s.Stop(ctx)
	}()

	// Fill the worker and the queue.
	deadline := time.Now().Add(time.Second)
	var lastErr error
	for time.Now().Before(deadline) {
		if lastErr = s.Notify(Notification{}); errors.Is(lastErr, ErrQueueFull) {
			return
		}
	}
	t.Fatalf("never observed ErrQueueFull, last err: %v", lastErr)
}
