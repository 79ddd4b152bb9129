package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const (
	// DeliveryDirect sends reminders from the bot process.
	DeliveryDirect = "direct"
	// DeliveryStream publishes reminders to a Redis stream read by cmd/worker.
	DeliveryStream = "stream"
)

// ReminderConfig tunes the reminder runtime.
type ReminderConfig struct {
	Timezone string `env:"REMINDER_TIMEZONE, default=UTC"`
	Delivery string `env:"REMINDER_DELIVERY, default=direct"`

	// ReconcileConcurrency bounds how many owners are re-attached at once.
	ReconcileConcurrency int `env:"RECONCILE_CONCURRENCY, default=8"`
	// ReconcileSchedule is a cron spec for the periodic reconciliation pass.
	// The value "off" disables it.
	ReconcileSchedule string `env:"RECONCILE_SCHEDULE, default=@every 15m"`

	NotifyTimeout    time.Duration `env:"NOTIFY_TIMEOUT, default=30s"`
	NotifyRatePerSec float64       `env:"NOTIFY_RATE_PER_SEC, default=20"`

	location *time.Location
}

func NewReminderConfigFromEnv() (*ReminderConfig, error) {
	return NewReminderConfig(context.Background(), nil)
}

func NewReminderConfig(ctx context.Context, lookuper envconfig.Lookuper) (*ReminderConfig, error) {
	var cfg ReminderConfig
	if err := process(ctx, &cfg, lookuper); err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid REMINDER_TIMEZONE %q: %w", cfg.Timezone, err)
	}
	cfg.location = loc

	cfg.Delivery = strings.ToLower(cfg.Delivery)
	if cfg.Delivery != DeliveryDirect && cfg.Delivery != DeliveryStream {
		return nil, fmt.Errorf("unknown REMINDER_DELIVERY %q: expected %q or %q", cfg.Delivery, DeliveryDirect, DeliveryStream)
	}

	if cfg.ReconcileConcurrency < 1 {
		return nil, fmt.Errorf("RECONCILE_CONCURRENCY must be at least 1, got %d", cfg.ReconcileConcurrency)
	}
	if cfg.NotifyTimeout <= 0 {
		return nil, fmt.Errorf("NOTIFY_TIMEOUT must be positive, got %s", cfg.NotifyTimeout)
	}
	if cfg.NotifyRatePerSec <= 0 {
		return nil, fmt.Errorf("NOTIFY_RATE_PER_SEC must be positive, got %v", cfg.NotifyRatePerSec)
	}
	return &cfg, nil
}

// PeriodicReconcile reports whether a reconcile schedule is configured.
func (c *ReminderConfig) PeriodicReconcile() bool {
	return c.ReconcileSchedule != "" && c.ReconcileSchedule != "off"
}

// Location is the reference timezone every rule is evaluated in.
func (c *ReminderConfig) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}
