package config

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sethvargo/go-envconfig"
)

const (
	TransportDiscord  = "discord"
	TransportTelegram = "telegram"
)

type BotConfig struct {
	Transport string `env:"BOT_TRANSPORT, default=discord"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`
}

func NewBotConfigFromEnv() (*BotConfig, error) {
	return NewBotConfig(context.Background(), nil)
}

func NewBotConfig(ctx context.Context, lookuper envconfig.Lookuper) (*BotConfig, error) {
	var cfg BotConfig
	if err := process(ctx, &cfg, lookuper); err != nil {
		return nil, err
	}
	cfg.Transport = strings.ToLower(cfg.Transport)
	switch cfg.Transport {
	case TransportDiscord, TransportTelegram:
	default:
		return nil, fmt.Errorf("unknown BOT_TRANSPORT %q: expected %q or %q", cfg.Transport, TransportDiscord, TransportTelegram)
	}
	if _, err := cfg.Level(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Level parses LogLevel into a slog level.
func (c *BotConfig) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	return level, nil
}
