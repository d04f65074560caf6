// Package telegram adapts the transport.Sender boundary onto telebot.
package telegram

import (
	"context"
	"errors"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"hellwatch/internal/guild"
	"hellwatch/internal/transport"
	logx "hellwatch/pkg/logx"
)

type Config struct {
	Token       string
	PollTimeout time.Duration
}

type Adapter struct {
	bot *tele.Bot
	log logx.Logger
}

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
	})
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Adapter{bot: b, log: log}, nil
}

func (a *Adapter) Send(ctx context.Context, to guild.ChannelRef, msg transport.Message) error {
	if ctx != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}

	chat := &tele.Chat{ID: to.ChatID}
	opt := &tele.SendOptions{
		ThreadID:              to.ThreadID,
		DisableWebPagePreview: true,
	}

	_, err := a.bot.Send(chat, msg.Content, opt)
	return err
}
