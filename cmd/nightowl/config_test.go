package main

import (
	"bytes"
	"testing"

	"github.com/harunnryd/nightowl/internal/config"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactConfigSecrets(t *testing.T) {
	original := &config.Config{
		Sources: []config.SourceConfig{
			{Name: "skint", Headers: map[string]string{"Authorization": "Bearer abcdef"}},
			{Name: "nycparks"},
		},
		Session: config.SessionConfig{Redis: config.RedisConfig{Password: "hunter22"}},
		Models: config.ModelsConfig{
			Registry: []config.ModelRegistry{
				{Name: "m1", APIKey: "sk-secret-123456"},
				{Name: "m2", APIKey: "abcd"},
			},
		},
		Adapters: config.AdaptersConfig{
			Slack: config.SlackConfig{
				SigningSecret: "slack-signing-secret",
				BotToken:      "slack-bot-token",
			},
			Telegram: config.TelegramConfig{BotToken: "telegram-secret-token"},
		},
	}

	redacted := redactConfigSecrets(original)
	require.NotNil(t, redacted)

	assert.Equal(t, "sk************56", redacted.Models.Registry[0].APIKey)
	assert.Equal(t, "****", redacted.Models.Registry[1].APIKey)
	assert.Equal(t, "hu****22", redacted.Session.Redis.Password)
	assert.Equal(t, "Be*********ef", redacted.Sources[0].Headers["Authorization"])
	assert.Nil(t, redacted.Sources[1].Headers)
	assert.NotEqual(t, original.Adapters.Slack.SigningSecret, redacted.Adapters.Slack.SigningSecret)
	assert.NotEqual(t, original.Adapters.Slack.BotToken, redacted.Adapters.Slack.BotToken)
	assert.NotEqual(t, original.Adapters.Telegram.BotToken, redacted.Adapters.Telegram.BotToken)

	// The input is left untouched.
	assert.Equal(t, "sk-secret-123456", original.Models.Registry[0].APIKey)
	assert.Equal(t, "Bearer abcdef", original.Sources[0].Headers["Authorization"])
	assert.Equal(t, "hunter22", original.Session.Redis.Password)

	assert.Nil(t, redactConfigSecrets(nil))
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", maskSecret(""))
	assert.Equal(t, "****", maskSecret("abc"))
	assert.Equal(t, "ab*de", maskSecret("abcde"))
}

func TestConfigShowCmd(t *testing.T) {
	prev := cfg
	t.Cleanup(func() { cfg = prev })

	cfg = &config.Config{
		City:     config.CityConfig{Name: "New York"},
		Adapters: config.AdaptersConfig{Telegram: config.TelegramConfig{BotToken: "telegram-secret-token"}},
	}

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	require.NoError(t, configShowCmd.RunE(cmd, nil))

	assert.Contains(t, out.String(), "New York")
	assert.NotContains(t, out.String(), "telegram-secret-token")
}
