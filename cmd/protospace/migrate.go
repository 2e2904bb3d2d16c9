package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"protospace/internal/config"
	"protospace/internal/store"
)

func newMigrateCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var readOnly bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations, or report them with --inspect",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.DBPath == "" {
				return errors.New("db path is required")
			}
			if !readOnly {
				if err := applyMigrations(cfg.DBPath); err != nil {
					return err
				}
			}
			plan, err := inspectMigrations(cfg.DBPath)
			if err != nil {
				return err
			}
			if *jsonOutput {
				return writeJSON(plan)
			}
			return writePlain("%s", renderMigrationPlan(plan))
		},
	}

	cmd.Flags().BoolVar(&readOnly, "inspect", false, "report migration status without applying")
	cmd.Flags().BoolVar(&readOnly, "dry-run", false, "alias for --inspect")
	return cmd
}

// applyMigrations opens the store, which migrates on open.
func applyMigrations(path string) error {
	st, err := store.Open(path)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return st.Close()
}

func inspectMigrations(path string) (*store.MigrationStatus, error) {
	db, err := store.OpenRaw(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	plan, err := store.MigrationPlan(db)
	if err != nil {
		return nil, fmt.Errorf("inspect migrations: %w", err)
	}
	return plan, nil
}

func renderMigrationPlan(plan *store.MigrationStatus) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Current version: %d\nAvailable version: %d\n", plan.CurrentVersion, plan.AvailableVersion)
	if len(plan.Pending) == 0 {
		b.WriteString("No pending migrations.\n")
		return b.String()
	}
	fmt.Fprintf(&b, "Pending migrations: %d\n", len(plan.Pending))
	for _, m := range plan.Pending {
		fmt.Fprintf(&b, "  %04d %s\n", m.Version, m.Description)
	}
	return b.String()
}
