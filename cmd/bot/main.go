package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/glizzus/gymbot/internal/config"
	"github.com/glizzus/gymbot/internal/handler"
	"github.com/glizzus/gymbot/internal/notify"
	"github.com/glizzus/gymbot/internal/reminder"
	"github.com/glizzus/gymbot/internal/repository"
	"github.com/glizzus/gymbot/internal/worker"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
)

// deliveryNotifier returns direct, or a publisher to the worker stream when
// REMINDER_DELIVERY is "stream". The returned function releases the publisher.
func deliveryNotifier(ctx context.Context, direct reminder.Notifier, cfg *config.ReminderConfig) (reminder.Notifier, func(), error) {
	if cfg.Delivery != config.DeliveryStream {
		return notify.NewRateLimited(direct, cfg.NotifyRatePerSec), func() {}, nil
	}

	redisConfig, err := config.NewRedisConfigFromEnv()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load redis config: %w", err)
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     redisConfig.Addr,
		Password: redisConfig.Password,
	})
	closeRedis := func() {
		if err := rdb.Close(); err != nil {
			slog.Warn("failed to close redis client", "error", err)
		}
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		closeRedis()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	publisher, err := worker.NewRedisJobHandler(ctx, rdb, redisConfig.Stream)
	if err != nil {
		closeRedis()
		return nil, nil, err
	}
	return publisher, closeRedis, nil
}

func newRegistry(
	repo repository.EntryRepository,
	notifier reminder.Notifier,
	cfg *config.ReminderConfig,
	logger *slog.Logger,
) *reminder.Registry {
	return reminder.NewRegistry(
		repo,
		notifier,
		reminder.WithLogger(logger),
		reminder.WithLocation(cfg.Location()),
		reminder.WithNotifyTimeout(cfg.NotifyTimeout),
		reminder.WithReconcileConcurrency(cfg.ReconcileConcurrency),
	)
}

// superviseRegistry attaches every stored owner, schedules the periodic
// reconciliation pass and returns a function that stops both.
func superviseRegistry(
	ctx context.Context,
	reg *reminder.Registry,
	cfg *config.ReminderConfig,
	logger *slog.Logger,
) (func(), error) {
	if err := reg.Reconcile(ctx); err != nil {
		// Owners that failed are retried by the periodic pass.
		logger.Error("failed to reconcile every owner at startup", "error", err)
	}

	c := cron.New()
	if cfg.PeriodicReconcile() {
		_, err := c.AddFunc(cfg.ReconcileSchedule, func() {
			if err := reg.Reconcile(ctx); err != nil && !errors.Is(err, reminder.ErrClosed) {
				logger.Error("failed to reconcile reminders", "error", err)
			}
		})
		if err != nil {
			return nil, fmt.Errorf("invalid RECONCILE_SCHEDULE %q: %w", cfg.ReconcileSchedule, err)
		}
	}
	c.Start()

	return func() {
		<-c.Stop().Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.NotifyTimeout)
		defer cancel()
		if err := reg.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shut down reminders", "error", err)
		}
	}, nil
}

func runDiscord(ctx context.Context, repo repository.EntryRepository, cfg *config.ReminderConfig, logger *slog.Logger) error {
	discordConfig, err := config.NewDiscordConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load discord config: %w", err)
	}

	session, err := handler.NewSession(discordConfig.Token)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	notifier, closeNotifier, err := deliveryNotifier(ctx, notify.NewDiscordNotifier(session), cfg)
	if err != nil {
		return err
	}
	defer closeNotifier()

	reg := newRegistry(repo, notifier, cfg, logger)
	handler.Handlers{
		Ready:             handler.ReadyLog,
		InteractionCreate: handler.NewInteractionHandler(reg, logger),
	}.Register(session)

	if err := session.Open(); err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			slog.Warn("failed to close session", "error", err)
		}
	}()

	if err := handler.EstablishCommands(session, discordConfig.GuildID); err != nil {
		return err
	}

	stop, err := superviseRegistry(ctx, reg, cfg, logger)
	if err != nil {
		return err
	}
	defer stop()

	<-ctx.Done()
	return nil
}

func runTelegram(ctx context.Context, repo repository.EntryRepository, cfg *config.ReminderConfig, logger *slog.Logger) error {
	telegramConfig, err := config.NewTelegramConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load telegram config: %w", err)
	}

	bot, err := tgbotapi.NewBotAPI(telegramConfig.Token)
	if err != nil {
		return fmt.Errorf("failed to create telegram bot: %w", err)
	}
	bot.Debug = telegramConfig.Debug
	logger.Info("Bot is ready", "username", bot.Self.UserName, "userID", bot.Self.ID)

	notifier, closeNotifier, err := deliveryNotifier(ctx, notify.NewTelegramNotifier(bot), cfg)
	if err != nil {
		return err
	}
	defer closeNotifier()

	reg := newRegistry(repo, notifier, cfg, logger)
	router := handler.NewTelegramRouter(bot, reg, logger)

	stop, err := superviseRegistry(ctx, reg, cfg, logger)
	if err != nil {
		return err
	}
	defer stop()

	if err := router.Run(ctx, telegramConfig.PollTimeout); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("telegram polling stopped: %w", err)
	}
	return nil
}

func runBotForever() error {
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

	reminderConfig, err := config.NewReminderConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load reminder config: %w", err)
	}
	storageConfig, err := config.NewStorageConfigFromEnv()
	if err != nil {
		return fmt.Errorf("failed to load storage config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := repository.OpenEntryRepository(ctx, storageConfig)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer closeRepo()

	logger.Info("Starting bot", "transport", botConfig.Transport, "storage", storageConfig.Driver, "delivery", reminderConfig.Delivery, "timezone", reminderConfig.Location().String())
	switch botConfig.Transport {
	case config.TransportTelegram:
		return runTelegram(ctx, repo, reminderConfig, logger)
	default:
		return runDiscord(ctx, repo, reminderConfig, logger)
	}
}

func main() {
	if err := runBotForever(); err != nil {
		log.Fatalf("failed to run bot: %v", err)
	}
}
