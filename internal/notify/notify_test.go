package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/lingoleague/internal/pkg/logger"
	"github.com/example/lingoleague/internal/store/memory"
	"github.com/example/lingoleague/pkg/models"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func TestStoreSinkPersistsAndMarksRead(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	at := time.Date(2024, 5, 8, 9, 0, 0, 0, time.UTC)
	sink := NewStoreSink(st.Notifications).WithClock(func() time.Time { return at })

	require.NoError(t, sink.Notify(ctx, 7, "Level 2 reached", models.ImportanceHigh))
	require.NoError(t, sink.Notify(ctx, 7, "Award unlocked", models.ImportanceLow))
	require.NoError(t, sink.Notify(ctx, 8, "other user", models.ImportanceLow))

	all, err := sink.List(ctx, 7, false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, at, all[0].CreatedAt)
	assert.Equal(t, models.ImportanceHigh, all[0].Importance)

	require.NoError(t, sink.MarkRead(ctx, 7, all[0].ID))
	unread, err := sink.List(ctx, 7, true)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "Award unlocked", unread[0].Message)

	assert.Error(t, sink.MarkRead(ctx, 8, all[1].ID))

	require.NoError(t, sink.MarkAllRead(ctx, 7))
	unread, err = sink.List(ctx, 7, true)
	require.NoError(t, err)
	assert.Empty(t, unread)
}

func TestTelegramForwarder(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	withChat := &models.User{Username: "anna", TelegramChatID: 4242}
	withoutChat := &models.User{Username: "ivan"}
	require.NoError(t, st.Users.Create(ctx, withChat))
	require.NoError(t, st.Users.Create(ctx, withoutChat))

	sender := &fakeSender{}
	fwd := NewTelegramForwarder(NewStoreSink(st.Notifications), st.Users, sender, models.ImportanceMedium, logger.Nop())

	require.NoError(t, fwd.Notify(ctx, withChat.ID, "Level 3 reached", models.ImportanceHigh))
	require.NoError(t, fwd.Notify(ctx, withChat.ID, "minor", models.ImportanceLow))
	require.NoError(t, fwd.Notify(ctx, withoutChat.ID, "Level 2 reached", models.ImportanceHigh))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, int64(4242), sender.sent[0].ChatID)
	assert.Contains(t, sender.sent[0].Text, "Level 3 reached")

	stored, err := st.Notifications.ListByUser(ctx, withChat.ID, false)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestTelegramForwarderSwallowsSendErrors(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	u := &models.User{Username: "anna", TelegramChatID: 1}
	require.NoError(t, st.Users.Create(ctx, u))

	sender := &fakeSender{err: errors.New("telegram is down")}
	fwd := NewTelegramForwarder(NewStoreSink(st.Notifications), st.Users, sender, models.ImportanceLow, logger.Nop())

	assert.NoError(t, fwd.Notify(ctx, u.ID, "hello", models.ImportanceLow))
	stored, err := st.Notifications.ListByUser(ctx, u.ID, false)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}
