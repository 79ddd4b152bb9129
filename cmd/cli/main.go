package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/glizzus/gymbot/internal/config"
	"github.com/glizzus/gymbot/internal/notify"
	"github.com/glizzus/gymbot/internal/presenters"
	"github.com/glizzus/gymbot/internal/reminder"
	"github.com/glizzus/gymbot/internal/repository"
	"github.com/glizzus/gymbot/internal/schedule"
	"github.com/urfave/cli/v2"
)

var ownerFlag = &cli.StringFlag{
	Name:     "owner",
	Usage:    "ID of the user that owns the reminders",
	Required: true,
}

var numberFlag = &cli.IntFlag{
	Name:     "number",
	Usage:    "Position of the reminder as shown by list",
	Required: true,
}

func ruleFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "day", Usage: "Day of the session, e.g. Mon or Monday", Required: true},
		&cli.StringFlag{Name: "time", Usage: "Start of the session as HH:MM", Required: true},
		&cli.StringFlag{Name: "lead", Usage: "How long before the session to remind, e.g. 15 or 1h30m", Value: "15"},
	}
}

func ruleFromFlags(c *cli.Context) (schedule.Rule, error) {
	return schedule.ParseRule(c.String("day"), c.String("time"), c.String("lead"))
}

// runtime holds what every command needs. Reminders are delivered to the log.
type runtime struct {
	cfg       *config.ReminderConfig
	registry  *reminder.Registry
	closeRepo func()
}

func (r *runtime) close() {
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.NotifyTimeout)
	defer cancel()
	if err := r.registry.Shutdown(ctx); err != nil {
		log.Printf("Failed to shut down reminders: %v", err)
	}
	r.closeRepo()
}

func openRuntime(ctx context.Context) (*runtime, error) {
	reminderConfig, err := config.NewReminderConfigFromEnv()
	if err != nil {
		return nil, err
	}
	storageConfig, err := config.NewStorageConfigFromEnv()
	if err != nil {
		return nil, err
	}
	repo, closeRepo, err := repository.OpenEntryRepository(ctx, storageConfig)
	if err != nil {
		return nil, err
	}
	logger := slog.Default()
	registry := reminder.NewRegistry(
		repo,
		notify.NewLogNotifier(logger),
		reminder.WithLogger(logger),
		reminder.WithLocation(reminderConfig.Location()),
		reminder.WithNotifyTimeout(reminderConfig.NotifyTimeout),
		reminder.WithReconcileConcurrency(reminderConfig.ReconcileConcurrency),
	)
	return &runtime{cfg: reminderConfig, registry: registry, closeRepo: closeRepo}, nil
}

// withRuntime wraps a command action with an opened runtime. Failures are
// reported as exit errors with the same text the bots show to users.
func withRuntime(action func(c *cli.Context, rt *runtime) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		rt, err := openRuntime(c.Context)
		if err != nil {
			return cli.Exit("Failed to open storage: "+err.Error(), 1)
		}
		defer rt.close()

		if err := action(c, rt); err != nil {
			var exitErr cli.ExitCoder
			if errors.As(err, &exitErr) {
				return err
			}
			return cli.Exit(userMessage(err), 1)
		}
		return nil
	}
}

func userMessage(err error) string {
	var quotaErr *reminder.QuotaExceededError
	var notFoundErr *reminder.NotFoundError
	var validationErr *schedule.ValidationError
	switch {
	case errors.As(err, &quotaErr), errors.As(err, &notFoundErr), errors.As(err, &validationErr):
		return err.Error()
	default:
		return "Command failed: " + err.Error()
	}
}

func main() {
	if err := config.LoadEnv(); err != nil {
		if os.IsNotExist(err) {
			log.Println("No .env file found, continuing without it")
		} else {
			log.Fatalf("Failed to load .env file: %v", err)
		}
	}

	app := &cli.App{
		Name:        "gymbot-cli",
		Description: "A development CLI tool for managing training reminders without a chat transport",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List the reminders of an owner",
				Flags: []cli.Flag{ownerFlag},
				Action: withRuntime(func(c *cli.Context, rt *runtime) error {
					entries, err := rt.registry.List(c.Context, c.String("owner"))
					if err != nil {
						return err
					}
					log.Println(presenters.FormatList(entries))
					return nil
				}),
			},
			{
				Name:  "add",
				Usage: "Add a reminder",
				Flags: append([]cli.Flag{ownerFlag}, ruleFlags()...),
				Action: withRuntime(func(c *cli.Context, rt *runtime) error {
					rule, err := ruleFromFlags(c)
					if err != nil {
						return err
					}
					entry, err := rt.registry.Add(c.Context, c.String("owner"), rule)
					if err != nil {
						return err
					}
					log.Println(presenters.AddedText(entry))
					return nil
				}),
			},
			{
				Name:  "replace",
				Usage: "Replace the reminder at a position",
				Flags: append([]cli.Flag{ownerFlag, numberFlag}, ruleFlags()...),
				Action: withRuntime(func(c *cli.Context, rt *runtime) error {
					rule, err := ruleFromFlags(c)
					if err != nil {
						return err
					}
					owner, position := c.String("owner"), c.Int("number")
					entry, err := rt.registry.Resolve(c.Context, owner, position)
					if err != nil {
						return err
					}
					entry, err = rt.registry.Replace(c.Context, owner, entry.ID, rule)
					if err != nil {
						return err
					}
					log.Println(presenters.ReplacedText(position, entry))
					return nil
				}),
			},
			{
				Name:  "delete",
				Usage: "Delete the reminder at a position",
				Flags: []cli.Flag{ownerFlag, numberFlag},
				Action: withRuntime(func(c *cli.Context, rt *runtime) error {
					owner := c.String("owner")
					entry, err := rt.registry.Resolve(c.Context, owner, c.Int("number"))
					if err != nil {
						return err
					}
					if err := rt.registry.Delete(c.Context, owner, entry.ID); err != nil {
						return err
					}
					log.Println(presenters.DeletedText(entry))
					return nil
				}),
			},
			{
				Name:  "next",
				Usage: "Print when a rule fires next, without touching storage",
				Flags: append([]cli.Flag{
					&cli.TimestampFlag{
						Name:   "at",
						Usage:  "Reference time in RFC 3339, defaults to now",
						Layout: time.RFC3339,
					},
				}, ruleFlags()...),
				Action: func(c *cli.Context) error {
					rule, err := ruleFromFlags(c)
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					cfg, err := config.NewReminderConfigFromEnv()
					if err != nil {
						return cli.Exit(err.Error(), 1)
					}
					now := time.Now()
					if at := c.Timestamp("at"); at != nil {
						now = *at
					}
					fire, event := schedule.NextFire(now.In(cfg.Location()), rule)
					log.Printf("Reminder fires at %s for the session at %s", fire.Format(time.RFC3339), event.Format(time.RFC3339))
					return nil
				},
			},
			{
				Name:  "run",
				Usage: "Schedule every stored reminder and log deliveries until interrupted",
				Action: withRuntime(func(c *cli.Context, rt *runtime) error {
					ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
					defer stop()

					if err := rt.registry.Reconcile(ctx); err != nil {
						return err
					}
					log.Println("Reminders scheduled, press Ctrl+C to stop")
					<-ctx.Done()
					return nil
				}),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Error running CLI: %v", err)
	}
}
