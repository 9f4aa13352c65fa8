package cli

import (
	"fmt"
	"io"

	"github.com/draftea/order-saga/orders-service/config"
	"github.com/draftea/order-saga/orders-service/infrastructure/migrations"
	"github.com/draftea/order-saga/shared/telemetry"
	"github.com/spf13/cobra"
)

type migrateResult struct {
	Result  migrations.Result `json:"result,omitempty" yaml:"result,omitempty"`
	Version uint              `json:"version" yaml:"version"`
	Dirty   bool              `json:"dirty" yaml:"dirty"`
}

// NewMigrateCommand applies the Postgres schema
func NewMigrateCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := postgresConfig(opts)
			if err != nil {
				return err
			}
			logger := telemetry.NewLogger(cfg.Telemetry.LogLevel, cfg.ServiceName)

			result, err := migrations.Apply(cmd.Context(), cfg.GetDatabaseURL(), logger)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to migrate", err)
			}
			version, dirty, err := migrations.Version(cmd.Context(), cfg.GetDatabaseURL())
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read schema version", err)
			}
			return printMigration(cmd, opts, migrateResult{Result: result, Version: version, Dirty: dirty})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := postgresConfig(opts)
			if err != nil {
				return err
			}
			version, dirty, err := migrations.Version(cmd.Context(), cfg.GetDatabaseURL())
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read schema version", err)
			}
			return printMigration(cmd, opts, migrateResult{Version: version, Dirty: dirty})
		},
	})
	return cmd
}

func postgresConfig(opts *RootOptions) (*config.Config, error) {
	cfg, err := opts.readConfig()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if cfg.Storage != config.StoragePostgres {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("migrations need postgres storage, configured storage is %q", cfg.Storage))
	}
	return cfg, nil
}

func printMigration(cmd *cobra.Command, opts *RootOptions, res migrateResult) error {
	return render(cmd.OutOrStdout(), opts.Format, res, func(w io.Writer) {
		if res.Result != "" {
			fmt.Fprintf(w, "migrations %s\n", res.Result)
		}
		fmt.Fprintf(w, "schema version %d", res.Version)
		if res.Dirty {
			fmt.Fprint(w, " (dirty)")
		}
		fmt.Fprintln(w)
	})
}
