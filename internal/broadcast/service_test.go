package broadcast

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hellwatch/internal/guild"
	"hellwatch/internal/transport"
	"hellwatch/internal/upstream"
	logx "hellwatch/pkg/logx"
)

type sentMessage struct {
	to  guild.ChannelRef
	msg transport.Message
}

type fakeSender struct {
	sent []sentMessage
	err  error
}

func (f *fakeSender) Send(_ context.Context, to guild.ChannelRef, msg transport.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMessage{to: to, msg: msg})
	return nil
}

type recordingScheduler struct {
	calls int
	err   error
}

func (r *recordingScheduler) ScheduleEvent(context.Context, guild.Guild, string, upstream.EventState) error {
	r.calls++
	return r.err
}

func testGuild(settings map[string]guild.EventSettings) guild.Guild {
	return guild.Guild{ID: "g1", Settings: settings}
}

func newService(sender transport.Sender, sched Scheduler, now time.Time) *Service {
	s := New(Config{RatePerSec: 1000}, sender, sched, logx.Nop())
	s.SetClock(clockwork.NewFakeClockAt(now))
	return s
}

func TestDeliverMentionRestrictionIsExactlyTheConfiguredRole(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{}
	s := newService(sender, nil, time.Unix(0, 0))

	g := testGuild(map[string]guild.EventSettings{
		"boss": {
			Enabled: true,
			Channel: &guild.ChannelRef{ChatID: 42},
			Role:    &guild.RoleRef{ID: "bosshunters"},
		},
	})
	err := s.Deliver(context.Background(), g, "boss", upstream.EventState{Name: "Ashava", Zone: "Kehjistan", Timestamp: 3600})
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	got := sender.sent[0]
	assert.Equal(t, int64(42), got.to.ChatID)
	assert.Equal(t, []string{"bosshunters"}, got.msg.MentionedRoles)
	assert.Contains(t, got.msg.Content, "@bosshunters")
}

func TestDeliverWithoutRoleMentionsNobody(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{}
	s := newService(sender, nil, time.Unix(0, 0))

	g := testGuild(map[string]guild.EventSettings{
		"boss": {Enabled: true, Channel: &guild.ChannelRef{ChatID: 42}},
	})
	require.NoError(t, s.Deliver(context.Background(), g, "boss", upstream.EventState{Name: "Ashava", Timestamp: 3600}))

	require.Len(t, sender.sent, 1)
	assert.Empty(t, sender.sent[0].msg.MentionedRoles)
}

func TestDeliverWithoutChannelIsANoOp(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{}
	s := newService(sender, nil, time.Unix(0, 0))

	g := testGuild(map[string]guild.EventSettings{
		"boss": {Enabled: true}, // enabled but no channel configured
	})
	err := s.Deliver(context.Background(), g, "boss", upstream.EventState{Timestamp: 3600})
	require.NoError(t, err)
	assert.Empty(t, sender.sent)
}

func TestDeliverUnknownSettingIsANoOp(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{}
	s := newService(sender, nil, time.Unix(0, 0))

	err := s.Deliver(context.Background(), testGuild(nil), "boss", upstream.EventState{Timestamp: 3600})
	require.NoError(t, err)
	assert.Empty(t, sender.sent)
}

func TestDeliverInvokesSchedulerForFlaggedEvents(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{}
	sched := &recordingScheduler{}
	s := newService(sender, sched, time.Unix(0, 0))

	g := testGuild(map[string]guild.EventSettings{
		"helltide": {
			Enabled:  true,
			Channel:  &guild.ChannelRef{ChatID: 7},
			Schedule: true,
		},
	})
	require.NoError(t, s.Deliver(context.Background(), g, "helltide", upstream.EventState{Timestamp: 3600}))
	assert.Equal(t, 1, sched.calls)
	assert.Len(t, sender.sent, 1)
}

func TestDeliverSchedulerFailureDoesNotBlockSend(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{}
	sched := &recordingScheduler{err: errors.New("calendar api down")}
	s := newService(sender, sched, time.Unix(0, 0))

	g := testGuild(map[string]guild.EventSettings{
		"helltide": {
			Enabled:  true,
			Channel:  &guild.ChannelRef{ChatID: 7},
			Schedule: true,
		},
	})
	require.NoError(t, s.Deliver(context.Background(), g, "helltide", upstream.EventState{Timestamp: 3600}))
	assert.Len(t, sender.sent, 1)
}

func TestDeliverReturnsSendError(t *testing.T) {
	t.Parallel()
	sender := &fakeSender{err: errors.New("chat deleted")}
	s := newService(sender, nil, time.Unix(0, 0))

	g := testGuild(map[string]guild.EventSettings{
		"boss": {Enabled: true, Channel: &guild.ChannelRef{ChatID: 42}},
	})
	err := s.Deliver(context.Background(), g, "boss", upstream.EventState{Timestamp: 3600})
	assert.Error(t, err)
}
