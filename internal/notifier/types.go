package notifier

import (
	"context"
	"time"
)

// Notification is the rendered payload handed to delivery sinks. Title and
// Body are the store-resolved values: what the tray shows must match what
// the history persisted.
type Notification struct {
	Title string
	Body  string
	Data  map[string]string
}

// Sink is one delivery channel (OS tray, Telegram mirror, ...).
// Send must be safe for concurrent use.
type Sink interface {
	Name() string
	Send(ctx context.Context, n Notification) error
}

// Config controls the async delivery pipeline.
type Config struct {
	Workers    int
	QueueSize  int
	RatePerSec int

	RetryMax      int
	RetryBase     time.Duration
	RetryMaxDelay time.Duration
	SendTimeout   time.Duration
}
