package adapter

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(got *[]Inbound) EventHandler {
	return func(ctx context.Context, in Inbound) error {
		*got = append(*got, in)
		return nil
	}
}

func TestTelegramAdapter_EventFlow(t *testing.T) {
	var got []Inbound
	a := NewTelegramAdapter("test-token", capture(&got), 1)

	a.handleUpdate(context.Background(), tgbotapi.Update{
		UpdateID: 99,
		Message: &tgbotapi.Message{
			MessageID: 123,
			Text:      "east village",
			Chat:      &tgbotapi.Chat{ID: 456},
			From:      &tgbotapi.User{ID: 789, UserName: "alice"},
		},
	})

	require.Len(t, got, 1)
	assert.Equal(t, Inbound{
		Source:    "telegram",
		MessageID: "99",
		UserID:    "789",
		ReplyTo:   "456",
		Text:      "east village",
		Metadata:  map[string]string{"user_name": "alice", "msg_id": "123"},
	}, got[0])
}

func TestTelegramAdapter_IgnoresNonText(t *testing.T) {
	var got []Inbound
	a := NewTelegramAdapter("test-token", capture(&got), 0)

	a.handleUpdate(context.Background(), tgbotapi.Update{UpdateID: 1})
	a.handleUpdate(context.Background(), tgbotapi.Update{
		UpdateID: 2,
		Message:  &tgbotapi.Message{MessageID: 1, Chat: &tgbotapi.Chat{ID: 1}, From: &tgbotapi.User{ID: 1}},
	})
	assert.Empty(t, got)
}

type fakeBot struct {
	sent []tgbotapi.Chattable
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	b.sent = append(b.sent, c)
	return tgbotapi.Message{}, nil
}

func (b *fakeBot) GetMe() (tgbotapi.User, error) { return tgbotapi.User{UserName: "nightowl_bot"}, nil }

func TestTelegramAdapter_Send(t *testing.T) {
	a := NewTelegramAdapter("test-token", nil, 0)
	assert.Error(t, a.Send(context.Background(), "456", "hi"), "not started")

	bot := &fakeBot{}
	a.bot = bot
	require.NoError(t, a.Send(context.Background(), "456", "Here's what's on"))
	require.Len(t, bot.sent, 1)
	msg, ok := bot.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(456), msg.ChatID)
	assert.Equal(t, "Here's what's on", msg.Text)

	assert.Error(t, a.Send(context.Background(), "not-a-number", "hi"))
	assert.NoError(t, a.Health(context.Background()))
}

func signedSlackRequest(t *testing.T, secret string, body []byte) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/slack/events", bytes.NewReader(body))

	ts := strconv.FormatInt(time.Now().Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte("v0:" + ts + ":" + string(body)))

	req.Header.Set("X-Slack-Request-Timestamp", ts)
	req.Header.Set("X-Slack-Signature", "v0="+hex.EncodeToString(mac.Sum(nil)))
	return req
}

func TestSlackAdapter_EventFlow(t *testing.T) {
	secret := "test-signing-secret"
	var got []Inbound
	a := NewSlackAdapter(0, secret, "xoxb-test", capture(&got))

	body := []byte(`{"type":"event_callback","event":{"type":"message","user":"U123","text":"free comedy","channel":"D123","ts":"1710000000.000100"}}`)
	rr := httptest.NewRecorder()
	a.handleEvents(rr, signedSlackRequest(t, secret, body))

	assert.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, got, 1)
	assert.Equal(t, Inbound{
		Source:    "slack",
		MessageID: "D123:1710000000.000100",
		UserID:    "U123",
		ReplyTo:   "D123",
		Text:      "free comedy",
		Metadata:  map[string]string{"ts": "1710000000.000100"},
	}, got[0])
}

func TestSlackAdapter_IgnoresBotsAndEdits(t *testing.T) {
	secret := "test-signing-secret"
	var got []Inbound
	a := NewSlackAdapter(0, secret, "xoxb-test", capture(&got))

	for _, body := range []string{
		`{"type":"event_callback","event":{"type":"message","bot_id":"B1","text":"echo","channel":"D1","ts":"1.0"}}`,
		`{"type":"event_callback","event":{"type":"message","subtype":"message_changed","channel":"D1","ts":"2.0"}}`,
	} {
		rr := httptest.NewRecorder()
		a.handleEvents(rr, signedSlackRequest(t, secret, []byte(body)))
		assert.Equal(t, http.StatusOK, rr.Code)
	}
	assert.Empty(t, got)
}

func TestSlackAdapter_RejectsBadSignature(t *testing.T) {
	var got []Inbound
	a := NewSlackAdapter(0, "right-secret", "xoxb-test", capture(&got))

	body := []byte(`{"type":"event_callback","event":{"type":"message","user":"U1","text":"hi","channel":"D1","ts":"1.0"}}`)
	rr := httptest.NewRecorder()
	a.handleEvents(rr, signedSlackRequest(t, "wrong-secret", body))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Empty(t, got)
}

func TestSlackAdapter_URLVerification(t *testing.T) {
	secret := "test-signing-secret"
	a := NewSlackAdapter(0, secret, "xoxb-test", nil)

	body := []byte(`{"type":"url_verification","challenge":"abc123","token":"t"}`)
	rr := httptest.NewRecorder()
	a.handleEvents(rr, signedSlackRequest(t, secret, body))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "abc123", rr.Body.String())
}
