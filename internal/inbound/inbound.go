// Package inbound turns provider push payloads into history records, UI
// bridge events, and tray notifications.
package inbound

import (
	"context"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"notibridge/internal/eventbus"
	"notibridge/internal/history"
	"notibridge/internal/notifier"
	"notibridge/internal/storage"
	logx "notibridge/pkg/logx"
)

// Slot holding the last provider registration token.
const keyRegistrationToken = "registration_token"

// Message is a provider push payload as delivered to the webhook.
//
// Notification carries the provider-rendered block; Data the key-value
// payload. Either may be absent (a data-only push has no notification
// block).
type Message struct {
	MessageID    string             `json:"message_id"`
	Notification *NotificationBlock `json:"notification,omitempty"`
	Data         map[string]string  `json:"data,omitempty"`
}

type NotificationBlock struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// ForwardedPayload is what UI subscribers receive per push: the raw
// provider payload plus the resolved record the store computed for it.
type ForwardedPayload struct {
	Message Message        `json:"message"`
	Record  history.Record `json:"record"`
	Outcome string         `json:"outcome"`
}

type Config struct {
	// RedeliveryWindow suppresses repeated webhook deliveries that carry the
	// same provider message id. 0 disables the check.
	RedeliveryWindow time.Duration
}

// Service is the inbound message adapter.
type Service struct {
	cfg   Config
	log   logx.Logger
	hist  *history.Store
	bus   eventbus.Bus
	notif *notifier.Service
	kv    storage.KV

	seen *gocache.Cache
}

func New(cfg Config, hist *history.Store, notif *notifier.Service, bus eventbus.Bus, kv storage.KV, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	var seen *gocache.Cache
	if cfg.RedeliveryWindow > 0 {
		seen = gocache.New(cfg.RedeliveryWindow, 2*cfg.RedeliveryWindow)
	}
	return &Service{cfg: cfg, log: log, hist: hist, bus: bus, notif: notif, kv: kv, seen: seen}
}

// HandleMessage processes one received push.
//
// Storage failures are logged and swallowed: the user still gets the tray
// popup and the forwarded event, only the persisted history may silently
// miss the entry. Suppressed (duplicate/tombstoned) messages are forwarded
// and rendered too; suppression is a history concern, not a delivery one.
func (s *Service) HandleMessage(ctx context.Context, msg Message) {
	if s.isRedelivery(msg.MessageID) {
		s.log.Debug("provider redelivery dropped", logx.String("message_id", msg.MessageID))
		return
	}

	in := history.Incoming{Data: msg.Data}
	if msg.Notification != nil {
		in.Title = msg.Notification.Title
		in.Body = msg.Notification.Body
	}

	rec, outcome, err := s.hist.Save(ctx, in)
	if err != nil {
		s.log.Error("history save failed", logx.String("message_id", msg.MessageID), logx.Err(err))
	} else {
		s.log.Debug("push processed",
			logx.String("id", rec.ID),
			logx.String("outcome", outcome.String()),
		)
	}

	s.bus.Publish(eventbus.Event{
		Type: eventbus.EventPushReceived,
		Data: ForwardedPayload{Message: msg, Record: rec, Outcome: outcome.String()},
	})

	if err := s.notif.Notify(notifier.Notification{Title: rec.Title, Body: rec.Body, Data: rec.Data}); err != nil {
		s.log.Warn("tray enqueue failed", logx.String("id", rec.ID), logx.Err(err))
	}
}

// HandleNewToken records a refreshed provider registration token and lets
// UI subscribers know. Persistence is best-effort.
func (s *Service) HandleNewToken(ctx context.Context, token string) {
	token = strings.TrimSpace(token)
	if token == "" {
		return
	}
	if err := s.kv.Put(ctx, keyRegistrationToken, token); err != nil {
		s.log.Warn("token persist failed", logx.Err(err))
	}
	s.bus.Publish(eventbus.Event{
		Type: eventbus.EventTokenRefreshed,
		Data: map[string]string{"token": token},
	})
}

func (s *Service) isRedelivery(messageID string) bool {
	if s.seen == nil || strings.TrimSpace(messageID) == "" {
		return false
	}
	if _, dup := s.seen.Get(messageID); dup {
		return true
	}
	s.seen.SetDefault(messageID, struct{}{})
	return false
}
