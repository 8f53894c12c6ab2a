//go:build !linux
// +build !linux

package tray

import (
	"context"

	"notibridge/internal/notifier"
	logx "notibridge/pkg/logx"
)

// Renderer on non-Linux builds logs instead of rendering. Keeps the rest of
// the pipeline identical across platforms.
type Renderer struct {
	cfg Config
	log logx.Logger
}

var _ notifier.Sink = (*Renderer)(nil)

func newRenderer(cfg Config, log logx.Logger) *Renderer {
	return &Renderer{cfg: cfg, log: log}
}

func (r *Renderer) Name() string { return "tray" }

func (r *Renderer) Send(ctx context.Context, n notifier.Notification) error {
	_ = ctx
	r.log.Info("desktop notification (no renderer on this platform)",
		logx.String("title", n.Title),
		logx.String("body", n.Body),
	)
	return nil
}

func (r *Renderer) Close() error { return nil }
