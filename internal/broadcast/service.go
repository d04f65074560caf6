// Package broadcast delivers one formatted notification to one guild's
// configured channel. Failures are contained per guild: a send error never
// affects delivery to the remaining guilds.
package broadcast

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"

	"hellwatch/internal/guild"
	"hellwatch/internal/transport"
	"hellwatch/internal/upstream"
	logx "hellwatch/pkg/logx"
)

// Scheduler is the extension point for guilds that flag an event as
// externally scheduled (a platform calendar-style entry). The default
// implementation does nothing; a platform integration can replace it.
type Scheduler interface {
	ScheduleEvent(ctx context.Context, g guild.Guild, eventKey string, st upstream.EventState) error
}

// NopScheduler ignores scheduling requests.
type NopScheduler struct{}

func (NopScheduler) ScheduleEvent(context.Context, guild.Guild, string, upstream.EventState) error {
	return nil
}

type Config struct {
	// RatePerSec caps outbound sends across all guilds (default 10).
	RatePerSec int
}

type Service struct {
	cfg     Config
	sender  transport.Sender
	sched   Scheduler
	log     logx.Logger
	limiter *rate.Limiter
	clock   clockwork.Clock
}

func New(cfg Config, sender transport.Sender, sched Scheduler, log logx.Logger) *Service {
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 10
	}
	if sched == nil {
		sched = NopScheduler{}
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:     cfg,
		sender:  sender,
		sched:   sched,
		log:     log,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		clock:   clockwork.NewRealClock(),
	}
}

// SetClock replaces the clock used for countdown rendering. Test hook.
func (s *Service) SetClock(c clockwork.Clock) { s.clock = c }

// Deliver sends one event notification to one guild.
//
// A guild can enable an event without configuring a channel; that is a no-op,
// not an error. Send failures are logged and returned so the caller can count
// them, but the caller must not let them abort sibling deliveries.
func (s *Service) Deliver(ctx context.Context, g guild.Guild, eventKey string, st upstream.EventState) error {
	setting, ok := g.Settings[eventKey]
	if !ok {
		return nil
	}
	if setting.Channel == nil {
		s.log.Debug("no channel configured; skipping guild", logx.String("guild", g.ID), logx.String("event", eventKey))
		return nil
	}

	msg := BuildMessage(eventKey, st, setting, s.clock.Now())

	if setting.Schedule {
		if err := s.sched.ScheduleEvent(ctx, g, eventKey, st); err != nil {
			s.log.Warn("external scheduling failed", logx.String("guild", g.ID), logx.String("event", eventKey), logx.Err(err))
		}
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	if err := s.sender.Send(ctx, *setting.Channel, msg); err != nil {
		s.log.Warn("delivery failed", logx.String("guild", g.ID), logx.String("event", eventKey), logx.Int64("chat_id", setting.Channel.ChatID), logx.Err(err))
		return err
	}
	s.log.Debug("delivered", logx.String("guild", g.ID), logx.String("event", eventKey))
	return nil
}

// BuildMessage renders the outbound message for one guild's settings.
// When a mention role is configured, the mention restriction set contains
// exactly that role.
func BuildMessage(eventKey string, st upstream.EventState, setting guild.EventSettings, now time.Time) transport.Message {
	msg := transport.Message{Content: Title(eventKey, st, now)}
	if setting.Role != nil && setting.Role.ID != "" {
		msg.Content += " - @" + setting.Role.ID
		msg.MentionedRoles = []string{setting.Role.ID}
	}
	return msg
}
