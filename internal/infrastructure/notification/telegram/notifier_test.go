package telegram

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreschagin/mission-control/internal/application/dto"
	"github.com/dreschagin/mission-control/internal/domain/valueobject"
	"github.com/dreschagin/mission-control/pkg/logger"
)

type fakeSender struct {
	failures int
	calls    []*bot.SendMessageParams
}

func (s *fakeSender) SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	s.calls = append(s.calls, params)
	if len(s.calls) <= s.failures {
		return nil, errors.New("telegram: 502 bad gateway")
	}
	return &models.Message{ID: len(s.calls)}, nil
}

func announcement() *dto.AnnouncementDTO {
	return &dto.AnnouncementDTO{
		EvaluationID: "e-1",
		Kind:         valueobject.AnnouncementDown,
		Title:        "All MS Graph APIs are down.",
		AlertState:   valueobject.AlertRed,
		ActionOwner:  valueobject.OwnerDevelopersInfrastructure,
		RaisedAt:     time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC),
	}
}

func newTestNotifier(sender Sender) *Notifier {
	return NewNotifierWithSender(sender, Config{ChatID: 42, RetryDelay: time.Millisecond}, logger.NewWithWriter("error", io.Discard))
}

func TestNotify_Sends(t *testing.T) {
	sender := &fakeSender{}
	n := newTestNotifier(sender)

	require.NoError(t, n.Notify(context.Background(), announcement()))
	require.Len(t, sender.calls, 1)
	assert.Equal(t, int64(42), sender.calls[0].ChatID)
	assert.Contains(t, sender.calls[0].Text, "All MS Graph APIs are down.")
	assert.Contains(t, sender.calls[0].Text, "Alert state: RED")
	assert.Equal(t, "telegram", n.Name())
}

func TestNotify_RetriesThenSucceeds(t *testing.T) {
	sender := &fakeSender{failures: 2}
	n := newTestNotifier(sender)

	require.NoError(t, n.Notify(context.Background(), announcement()))
	assert.Len(t, sender.calls, 3)
}

func TestNotify_GivesUp(t *testing.T) {
	sender := &fakeSender{failures: 10}
	n := newTestNotifier(sender)

	err := n.Notify(context.Background(), announcement())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Len(t, sender.calls, 3)
}

func TestNotify_NilIsNoop(t *testing.T) {
	sender := &fakeSender{}
	require.NoError(t, newTestNotifier(sender).Notify(context.Background(), nil))
	assert.Empty(t, sender.calls)
}

func TestNewNotifier_Validation(t *testing.T) {
	log := logger.NewWithWriter("error", io.Discard)

	_, err := NewNotifier(Config{ChatID: 1}, log)
	assert.Error(t, err)

	_, err = NewNotifier(Config{BotToken: "123:abc"}, log)
	assert.Error(t, err)
}

func TestFormatAnnouncement(t *testing.T) {
	text := FormatAnnouncement(announcement())
	assert.Equal(t, "🚨 All MS Graph APIs are down.\n\nAlert state: RED\nOwner: Developers + Infrastructure (PO oversight)\nRaised at: 2026-10-18T09:00:00Z", text)
}
