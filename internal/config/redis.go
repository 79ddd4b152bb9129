package config

import (
	"context"

	"github.com/sethvargo/go-envconfig"
)

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR, required"`
	Password string `env:"REDIS_PASSWORD"`
	// Stream carries fired reminders from the bot to the workers.
	Stream string `env:"REDIS_STREAM, default=reminder_jobs"`
}

func NewRedisConfigFromEnv() (*RedisConfig, error) {
	return NewRedisConfig(context.Background(), nil)
}

func NewRedisConfig(ctx context.Context, lookuper envconfig.Lookuper) (*RedisConfig, error) {
	var cfg RedisConfig
	if err := process(ctx, &cfg, lookuper); err != nil {
		return nil, err
	}
	return &cfg, nil
}
