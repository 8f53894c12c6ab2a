package notifier

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jpillora/backoff"
	"golang.org/x/time/rate"

	logx "notibridge/pkg/logx"
)

var (
	ErrQueueFull = errors.New("notifier queue full")
	ErrStopped   = errors.New("notifier stopped")
)

// Service implements an async delivery pipeline:
// queue + worker pool + rate limit + retry + sink fan-out.
//
// A sink failure never reaches the caller; dropped or failed deliveries are
// logged and counted, nothing more. The inbound path must stay non-blocking.
type Service struct {
	mu sync.Mutex

	log   logx.Logger
	sinks []Sink

	cfg     Config
	limiter *rate.Limiter

	accepting bool
	queue     chan Notification
	wg        sync.WaitGroup
	cancel    context.CancelFunc
}

func New(cfg Config, sinks []Sink, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{log: log, sinks: sinks}
	s.applyLocked(cfg)
	return s
}

func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	s.applyLocked(cfg)
	s.mu.Unlock()
}

func (s *Service) applyLocked(cfg Config) {
	// Defaults
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 5
	}
	if cfg.RetryMax < 0 {
		cfg.RetryMax = 0
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	if cfg.RetryMaxDelay <= 0 {
		cfg.RetryMaxDelay = 10 * time.Second
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}

	s.cfg = cfg
	// Token bucket: burst = rate per sec, so short spikes don't block too hard.
	s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
}

// Start is idempotent. Workers get their own lifetime context: they must
// outlive the caller's context so Stop can still drain queued deliveries
// after a shutdown signal.
func (s *Service) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queue != nil {
		return
	}

	wctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.queue = make(chan Notification, s.cfg.QueueSize)
	s.accepting = true

	for i := 0; i < s.cfg.Workers; i++ {
		s.wg.Add(1)
		go func(q <-chan Notification) {
			defer s.wg.Done()
			s.workerLoop(wctx, q)
		}(s.queue)
	}
}

// Stop stops intake and drains the queue best-effort until ctx deadline.
func (s *Service) Stop(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	q := s.queue
	cancel := s.cancel
	if q == nil {
		s.mu.Unlock()
		return
	}
	s.accepting = false
	s.queue = nil
	s.cancel = nil
	s.mu.Unlock()

	close(q)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		// Force workers out of in-flight sends.
		if cancel != nil {
			cancel()
		}
		<-done
	}
	if cancel != nil {
		cancel()
	}
}

// Notify enqueues a notification for delivery. Non-blocking: a full queue
// returns ErrQueueFull instead of stalling the message path.
func (s *Service) Notify(n Notification) error {
	s.mu.Lock()
	q := s.queue
	accepting := s.accepting
	s.mu.Unlock()

	if !accepting || q == nil {
		return ErrStopped
	}
	select {
	case q <- n:
		return nil
	default:
		return ErrQueueFull
	}
}

func (s *Service) workerLoop(ctx context.Context, q <-chan Notification) {
	for n := range q {
		if ctx.Err() != nil {
			return
		}
		// Snapshot under the lock; Apply swaps the limiter on hot reload.
		s.mu.Lock()
		limiter := s.limiter
		s.mu.Unlock()
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		s.deliver(ctx, n)
	}
}

// deliver fans out to every sink, retrying each independently.
func (s *Service) deliver(ctx context.Context, n Notification) {
	s.mu.Lock()
	cfg := s.cfg
	sinks := s.sinks
	s.mu.Unlock()

	for _, sink := range sinks {
		b := &backoff.Backoff{
			Min:    cfg.RetryBase,
			Max:    cfg.RetryMaxDelay,
			Jitter: true,
		}
		var err error
		for attempt := 0; attempt <= cfg.RetryMax; attempt++ {
			if attempt > 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(b.Duration()):
				}
			}
			sctx, cancel := context.WithTimeout(ctx, cfg.SendTimeout)
			err = sink.Send(sctx, n)
			cancel()
			if err == nil {
				break
			}
		}
		if err != nil {
			s.log.Warn("notification delivery failed",
				logx.String("sink", sink.Name()),
				logx.String("title", n.Title),
				logx.Err(err),
			)
		}
	}
}
