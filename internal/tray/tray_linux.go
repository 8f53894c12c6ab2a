//go:build linux
// +build linux

package tray

import (
	"context"
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"

	"notibridge/internal/notifier"
	logx "notibridge/pkg/logx"
)

const (
	notifyDest   = "org.freedesktop.Notifications"
	notifyPath   = "/org/freedesktop/Notifications"
	notifyMethod = "org.freedesktop.Notifications.Notify"
)

// Renderer posts desktop notifications over the session D-Bus
// (org.freedesktop.Notifications).
//
// The bus connection is established once and reused; a failed call drops it
// so the next send redials. Replaces-id is always 0: every push gets its own
// popup, matching one tray entry per message.
type Renderer struct {
	cfg Config
	log logx.Logger

	mu   sync.Mutex
	conn *dbus.Conn
}

var _ notifier.Sink = (*Renderer)(nil)

func newRenderer(cfg Config, log logx.Logger) *Renderer {
	return &Renderer{cfg: cfg, log: log}
}

func (r *Renderer) Name() string { return "tray" }

func (r *Renderer) Send(ctx context.Context, n notifier.Notification) error {
	conn, err := r.connect()
	if err != nil {
		return fmt.Errorf("session bus: %w", err)
	}

	obj := conn.Object(notifyDest, notifyPath)
	call := obj.CallWithContext(ctx, notifyMethod, 0,
		r.cfg.AppName,
		uint32(0), // replaces_id
		r.cfg.Icon,
		n.Title,
		n.Body,
		[]string{},                  // actions
		map[string]dbus.Variant{},   // hints
		int32(r.cfg.TimeoutMS),
	)
	if call.Err != nil {
		r.drop()
		return fmt.Errorf("notify call: %w", call.Err)
	}
	return nil
}

func (r *Renderer) Close() error {
	r.mu.Lock()
	conn := r.conn
	r.conn = nil
	r.mu.Unlock()
	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (r *Renderer) connect() (*dbus.Conn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn != nil {
		return r.conn, nil
	}
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, err
	}
	r.conn = conn
	r.log.Debug("session bus connected", logx.String("dest", notifyDest))
	return conn, nil
}

func (r *Renderer) drop() {
	r.mu.Lock()
	conn := r.conn
	r.conn = nil
	r.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}
