package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"ticket-storefront/internal/config"
	"ticket-storefront/internal/database"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	var status bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending client state migrations",
		Long: `Connect to the configured database (DB_DRIVER, DATABASE_URL or DB_* variables)
and apply every pending migration. With --status, only report what is applied.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			db, err := database.NewConnection(database.ConfigFrom(cfg.Database))
			if err != nil {
				return err
			}
			defer db.Close()

			if !status {
				if _, err := db.RunMigrations(cmd.Context()); err != nil {
					return fmt.Errorf("failed to run migrations: %w", err)
				}
			}
			return printMigrationStatus(rootOpts, db, cmd)
		},
	}

	cmd.Flags().BoolVar(&status, "status", false, "show migration status without applying anything")
	return cmd
}

type migrationRow struct {
	Version   int        `json:"version"`
	Name      string     `json:"name"`
	Applied   bool       `json:"applied"`
	AppliedAt *time.Time `json:"applied_at,omitempty"`
	Changed   bool       `json:"changed,omitempty"`
}

func printMigrationStatus(opts *RootOptions, db *database.DB, cmd *cobra.Command) error {
	states, err := db.MigrationStatus(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read migration status: %w", err)
	}

	rows := make([]migrationRow, 0, len(states))
	for _, state := range states {
		row := migrationRow{Version: state.Version, Name: state.Name, Applied: state.Applied, Changed: state.Changed}
		if state.Applied {
			appliedAt := state.AppliedAt
			row.AppliedAt = &appliedAt
		}
		rows = append(rows, row)
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), rows)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tNAME\tSTATUS")
	for _, row := range rows {
		state := "pending"
		switch {
		case row.Changed:
			state = "changed since applied"
		case row.Applied:
			state = "applied " + row.AppliedAt.Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%03d\t%s\t%s\n", row.Version, row.Name, state)
	}
	return tw.Flush()
}
