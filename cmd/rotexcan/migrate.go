package main

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/nerrad567/rotex-can-core/internal/infrastructure/database"
)

func newMigrateCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the state database schema",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				db, err := openDatabase(opts)
				if err != nil {
					return err
				}
				defer db.Close()
				if err := db.Migrate(cmd.Context()); err != nil {
					return fmt.Errorf("running migrations: %w", err)
				}
				pterm.Success.WithWriter(cmd.OutOrStdout()).Println("migrations applied")
				return nil
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the latest migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				db, err := openDatabase(opts)
				if err != nil {
					return err
				}
				defer db.Close()
				if err := db.MigrateDown(cmd.Context()); err != nil {
					return fmt.Errorf("rolling back migration: %w", err)
				}
				pterm.Success.WithWriter(cmd.OutOrStdout()).Println("latest migration rolled back")
				return nil
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "List applied and pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				db, err := openDatabase(opts)
				if err != nil {
					return err
				}
				defer db.Close()
				applied, pending, err := db.GetMigrationStatus(cmd.Context())
				if err != nil {
					return fmt.Errorf("reading migration status: %w", err)
				}
				return pterm.DefaultTable.
					WithHasHeader().
					WithWriter(cmd.OutOrStdout()).
					WithData(migrationRows(applied, pending)).
					Render()
			},
		},
	)
	return cmd
}

func openDatabase(opts *options) (*database.DB, error) {
	cfg, err := loadConfig(opts.configPath, true)
	if err != nil {
		return nil, err
	}
	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

func migrationRows(applied []database.MigrationRecord, pending []database.Migration) pterm.TableData {
	rows := pterm.TableData{{"Version", "Name", "Applied"}}
	for _, r := range applied {
		rows = append(rows, []string{r.Version, "", r.AppliedAt.Format("2006-01-02 15:04:05")})
	}
	for _, m := range pending {
		rows = append(rows, []string{m.Version, m.Name, "pending"})
	}
	return rows
}
