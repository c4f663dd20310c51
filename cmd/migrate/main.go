// Command migrate applies the FMS schema with goose.
package main

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
	"github.com/straye-as/fms-api/internal/config"
	"github.com/straye-as/fms-api/internal/database"
	"github.com/straye-as/fms-api/migrations"
)

var createDir string

var rootCmd = &cobra.Command{
	Use:           "migrate",
	Short:         "Manage the FMS database schema",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
}

// withDB opens the configured Postgres database and points goose at the
// embedded migrations
func withDB(run func(db *sql.DB, args []string) error) func(*cobra.Command, []string) error {
	return func(_ *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		db, err := sql.Open("postgres", cfg.Database.ConnectionString())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			return fmt.Errorf("failed to reach database: %w", err)
		}

		goose.SetBaseFS(migrations.FS)
		if err := goose.SetDialect("postgres"); err != nil {
			return err
		}
		return run(db, args)
	}
}

func init() {
	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: withDB(func(db *sql.DB, _ []string) error {
				if err := goose.Up(db, "."); err != nil {
					return fmt.Errorf("up: %w", err)
				}
				fmt.Println("schema up to date")
				return nil
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the latest migration",
			RunE: withDB(func(db *sql.DB, _ []string) error {
				if err := goose.Down(db, "."); err != nil {
					return fmt.Errorf("down: %w", err)
				}
				fmt.Println("rolled back one migration")
				return nil
			}),
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show applied and pending migrations",
			RunE: withDB(func(db *sql.DB, _ []string) error {
				return goose.Status(db, ".")
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			RunE: withDB(func(db *sql.DB, _ []string) error {
				return goose.Version(db, ".")
			}),
		},
		&cobra.Command{
			Use:   "automigrate",
			Short: "Sync the schema straight from the gorm models (development only)",
			RunE: func(*cobra.Command, []string) error {
				cfg, err := config.Load()
				if err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
				db, err := database.NewDatabase(&cfg.Database)
				if err != nil {
					return fmt.Errorf("failed to open database: %w", err)
				}
				if err := database.AutoMigrate(db); err != nil {
					return fmt.Errorf("automigrate: %w", err)
				}
				fmt.Println("schema synchronised from models")
				return nil
			},
		},
	)

	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Write a new empty SQL migration",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if err := goose.Create(nil, createDir, args[0], "sql"); err != nil {
				return fmt.Errorf("create: %w", err)
			}
			return nil
		},
	}
	create.Flags().StringVar(&createDir, "dir", "./migrations", "directory to write the migration into")
	rootCmd.AddCommand(create)
}
