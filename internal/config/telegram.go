package config

import (
	"context"

	"github.com/sethvargo/go-envconfig"
)

type TelegramConfig struct {
	Token string `env:"TELEGRAM_TOKEN, required"`
	Debug bool   `env:"TELEGRAM_DEBUG"`
	// PollTimeout is the long polling timeout in seconds.
	PollTimeout int `env:"TELEGRAM_POLL_TIMEOUT, default=60"`
}

func NewTelegramConfigFromEnv() (*TelegramConfig, error) {
	return NewTelegramConfig(context.Background(), nil)
}

func NewTelegramConfig(ctx context.Context, lookuper envconfig.Lookuper) (*TelegramConfig, error) {
	var cfg TelegramConfig
	if err := process(ctx, &cfg, lookuper); err != nil {
		return nil, err
	}
	return &cfg, nil
}
