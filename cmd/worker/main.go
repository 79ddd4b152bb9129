package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/glizzus/gymbot/internal/config"
	"github.com/glizzus/gymbot/internal/handler"
	"github.com/glizzus/gymbot/internal/notify"
	"github.com/glizzus/gymbot/internal/reminder"
	"github.com/glizzus/gymbot/internal/worker"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
)

var dryRun = flag.Bool("dry-run", false, "Do not use a chat transport, just log reminders")

// transportNotifier connects to the configured chat transport. The returned
// function disconnects it.
func transportNotifier(transport string, logger *slog.Logger) (reminder.Notifier, func(), error) {
	if *dryRun {
		logger.Info("Dry run mode: reminders are only logged")
		return notify.NewLogNotifier(logger), func() {}, nil
	}

	switch transport {
	case config.TransportTelegram:
		telegramConfig, err := config.NewTelegramConfigFromEnv()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load telegram config: %w", err)
		}
		bot, err := tgbotapi.NewBotAPI(telegramConfig.Token)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create telegram bot: %w", err)
		}
		bot.Debug = telegramConfig.Debug
		return notify.NewTelegramNotifier(bot), func() {}, nil
	default:
		discordConfig, err := config.NewDiscordConfigFromEnv()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load discord config: %w", err)
		}
		session, err := handler.NewSession(discordConfig.Token)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create discord session: %w", err)
		}
		session.AddHandler(handler.ReadyLog)
		if err := session.Open(); err != nil {
			return nil, nil, fmt.Errorf("failed to open discord session: %w", err)
		}
		return notify.NewDiscordNotifier(session), func() {
			if err := session.Close(); err != nil {
				slog.Error("failed to close discord session", "error", err)
			}
		}, nil
	}
}

func runWorkerForever() error {
	if err := config.LoadEnv(); err != nil {
		if os.IsNotExist(err) {
			slog.Warn("No .env file found, continuing without it")
		} else {
			return fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	botConfig, err := config.NewBotConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load bot config: %w", err)
	}
	level, err := botConfig.Level()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	redisConfig, err := config.NewRedisConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load redis config: %w", err)
	}
	reminderConfig, err := config.NewReminderConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load reminder config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb := redis.NewClient(&redis.Options{
		Addr:     redisConfig.Addr,
		Password: redisConfig.Password,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	consumer, err := os.Hostname()
	if err != nil {
		return fmt.Errorf("failed to get hostname: %w", err)
	}

	notifier, closeNotifier, err := transportNotifier(botConfig.Transport, logger)
	if err != nil {
		return err
	}
	defer closeNotifier()

	receiver, err := worker.NewRedisJobReceiver(ctx, rdb, redisConfig.Stream, consumer, logger)
	if err != nil {
		return err
	}

	logger.Info("Worker is ready", "consumer", consumer, "stream", redisConfig.Stream, "transport", botConfig.Transport)
	return receiver.Run(ctx, &worker.NotifierJobHandler{
		Notifier: notify.NewRateLimited(notifier, reminderConfig.NotifyRatePerSec),
		Timeout:  reminderConfig.NotifyTimeout,
	})
}

func main() {
	flag.Parse()
	if err := runWorkerForever(); err != nil {
		slog.Error("Worker encountered an error", slog.Any("error", err))
		os.Exit(1)
	}
}
