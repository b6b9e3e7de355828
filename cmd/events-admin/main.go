package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ms-events/internal/config"
	"ms-events/internal/database"
	"ms-events/internal/database/migrations"
	"ms-events/internal/events/db"
	"ms-events/internal/events/service"
	"ms-events/internal/kafka"
	"ms-events/internal/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
)

var dbPath string

var rootCmd = &cobra.Command{
	Use:   "events-admin",
	Short: "Maintenance commands for the events database",
	Long: `Maintenance commands for the events database.

Examples:
  # Apply pending migrations
  events-admin migrate up

  # Roll back every migration
  events-admin migrate down

  # Insert a few sample events
  events-admin seed --db database/events.db

  # Print change notifications as they are published
  events-admin watch --group events-admin`,
	SilenceUsage: true,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the events schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunner(cmd.Context(), func(r *migrations.Runner) error {
			version, err := r.RunMigrations()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ schema at version %d\n", version)
			return nil
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back all migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunner(cmd.Context(), func(r *migrations.Runner) error {
			if err := r.MigrateDown(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✅ schema rolled back")
			return nil
		})
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRunner(cmd.Context(), func(r *migrations.Runner) error {
			version, err := r.Version()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", version)
			return nil
		})
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert sample events",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		bunDB, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer bunDB.Close()

		if _, err := migrations.NewRunner(bunDB, migrations.DefaultOptions()).RunMigrations(); err != nil {
			return err
		}

		svc := service.NewEventService(&db.DB{Bun: bunDB}, nil, logger.NewWriterLogger(cmd.ErrOrStderr()))
		n, err := seedEvents(ctx, svc)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✅ seeded %d events\n", n)
		return nil
	},
}

var watchGroup string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print change notifications from Kafka",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load().Kafka
		log := logger.NewWriterLogger(cmd.ErrOrStderr())

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		consumer := kafka.NewConsumer(cfg.Brokers, kafka.TopicsWithPrefix(cfg.TopicPrefix), watchGroup, log)
		defer consumer.Close()

		out := cmd.OutOrStdout()
		return consumer.Start(ctx, func(msg kafka.ChangeMessage) {
			name := ""
			if msg.Event != nil {
				name = msg.Event.Name
			}
			fmt.Fprintf(out, "%s\t%s\t%d\t%s\n", msg.OccurredAt.Format("2006-01-02T15:04:05Z07:00"), msg.Action, msg.EventID, name)
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (defaults to DB_PATH)")
	watchCmd.Flags().StringVar(&watchGroup, "group", "events-admin", "Kafka consumer group")

	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd)
	rootCmd.AddCommand(migrateCmd, seedCmd, watchCmd)
}

func openDB(ctx context.Context) (*bun.DB, error) {
	cfg := config.Load().Database
	if dbPath != "" {
		cfg.Path = dbPath
	}
	return database.Open(ctx, cfg.Path, database.Options{
		MaxOpenConns: cfg.MaxOpenConns,
		MaxRetries:   1,
	})
}

func withRunner(ctx context.Context, fn func(*migrations.Runner) error) error {
	bunDB, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer bunDB.Close()
	return fn(migrations.NewRunner(bunDB, migrations.DefaultOptions()))
}

// sampleEvents is submitted through the same form mapping as the web UI.
var sampleEvents = []service.EventForm{
	{Name: "Summer Fest 2025", MinimumAge: "18", Date: "2025-07-12", Time: "16:00", PostalCode: "80331", StateCode: "BY", City: "Munich", Venue: "Olympiapark"},
	{Name: "Community Meetup", Date: "2025-03-04", Time: "19:30", City: "Berlin", Venue: "Betahaus"},
	{Name: "Open Air Cinema", MinimumAge: "12", Date: "2025-08-21", City: "Hamburg"},
}

func seedEvents(ctx context.Context, svc *service.EventService) (int, error) {
	for i, form := range sampleEvents {
		if _, err := svc.Create(ctx, form); err != nil {
			return i, fmt.Errorf("seed %q: %w", form.Name, err)
		}
	}
	return len(sampleEvents), nil
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
