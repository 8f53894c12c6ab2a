// Package telegram mirrors delivered notifications to a Telegram chat.
// It is an optional second delivery channel next to the OS tray.
package telegram

import (
	"context"
	"errors"
	"strings"

	tele "gopkg.in/telebot.v4"

	"notibridge/internal/notifier"
	logx "notibridge/pkg/logx"
)

type Config struct {
	Token  string
	ChatID int64
}

type Sink struct {
	cfg Config
	log logx.Logger
	bot *tele.Bot
}

var _ notifier.Sink = (*Sink)(nil)

// New builds the mirror sink. The bot is send-only; no poller is attached.
func New(cfg Config, log logx.Logger) (*Sink, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat_id is empty")
	}
	b, err := tele.NewBot(tele.Settings{Token: cfg.Token})
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Sink{cfg: cfg, log: log, bot: b}, nil
}

func (s *Sink) Name() string { return "telegram" }

func (s *Sink) Send(ctx context.Context, n notifier.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	text := n.Title
	if n.Body != "" {
		if text != "" {
			text += "\n"
		}
		text += n.Body
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}
	_, err := s.bot.Send(&tele.Chat{ID: s.cfg.ChatID}, text)
	return err
}
