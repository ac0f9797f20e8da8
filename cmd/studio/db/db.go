package db

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun/migrate"

	"github.com/cozy-creator/influencer-studio/internal/config"
	"github.com/cozy-creator/influencer-studio/internal/db"
	"github.com/cozy-creator/influencer-studio/internal/db/migrations"
)

var Cmd = &cobra.Command{
	Use:   "db",
	Short: "Utility for database management",
}

func init() {
	Cmd.AddCommand(migrationCmd())
}

// withMigrator opens the configured database for the duration of fn.
func withMigrator(cmd *cobra.Command, fn func(*migrate.Migrator) error) error {
	driver, err := db.NewConnection(cmd.Context(), config.MustGetConfig())
	if err != nil {
		return err
	}
	defer driver.Close()

	return fn(migrate.NewMigrator(driver.GetDB(), migrations.Migrations))
}

func locked(cmd *cobra.Command, fn func(*migrate.Migrator) error) error {
	return withMigrator(cmd, func(m *migrate.Migrator) error {
		if err := m.Lock(cmd.Context()); err != nil {
			return err
		}
		defer m.Unlock(cmd.Context()) //nolint:errcheck

		return fn(m)
	})
}

func migrationCmd() *cobra.Command {
	migrationCmd := &cobra.Command{
		Use:   "migration",
		Short: "Utility for handling database migrations",
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "create migration tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(m *migrate.Migrator) error {
				return m.Init(cmd.Context())
			})
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "migrate database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return locked(cmd, func(m *migrate.Migrator) error {
				group, err := m.Migrate(cmd.Context())
				if err != nil {
					return err
				}
				if group.IsZero() {
					fmt.Printf("there are no new migrations to run (database is up to date)\n")
					return nil
				}
				fmt.Printf("migrated to %s\n", group)
				return nil
			})
		},
	}

	rollbackCmd := &cobra.Command{
		Use:   "rollback",
		Short: "rollback the last migration group",
		RunE: func(cmd *cobra.Command, args []string) error {
			return locked(cmd, func(m *migrate.Migrator) error {
				group, err := m.Rollback(cmd.Context())
				if err != nil {
					return err
				}
				if group.IsZero() {
					fmt.Printf("there are no groups to roll back\n")
					return nil
				}
				fmt.Printf("rolled back %s\n", group)
				return nil
			})
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Print the status of the migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(m *migrate.Migrator) error {
				status, err := m.MigrationsWithStatus(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Printf("migrations: %s\n", status)
				fmt.Printf("unapplied migrations: %s\n", status.Unapplied())
				fmt.Printf("last migration group: %s\n", status.LastGroup())
				return nil
			})
		},
	}

	migrationCmd.AddCommand(initCmd, migrateCmd, rollbackCmd, statusCmd)
	return migrationCmd
}
