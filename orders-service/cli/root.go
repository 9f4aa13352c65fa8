package cli

import (
	"context"
	"fmt"

	"github.com/draftea/order-saga/orders-service/config"
	"github.com/draftea/order-saga/shared/telemetry"
	"github.com/spf13/cobra"
)

// ValidFormats defines the allowed output formats
var ValidFormats = []string{"text", "json", "yaml"}

// RootOptions holds global flags for all commands
type RootOptions struct {
	Format string

	readConfig ConfigReader
	load       DependencyLoader
}

// ConfigReader loads the service configuration
type ConfigReader func() (*config.Config, error)

// DependencyLoader builds the saga over the configured stores. The returned func releases them.
type DependencyLoader func(ctx context.Context, cfg *config.Config) (*config.Dependencies, func(), error)

// DefaultConfigReader reads the same config the service runs with
func DefaultConfigReader() (*config.Config, error) {
	cfg, err := config.ReadConfig()
	if err != nil {
		return nil, err
	}
	cfg.ServiceName = telemetry.SagaCtlConfig.ServiceName
	return cfg, nil
}

// DefaultDependencyLoader builds dependencies with logs on stderr
func DefaultDependencyLoader(ctx context.Context, cfg *config.Config) (*config.Dependencies, func(), error) {
	logger := telemetry.NewLogger(cfg.Telemetry.LogLevel, cfg.ServiceName)
	deps, err := config.BuildDependencies(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return deps, func() { _ = deps.Close(context.Background()) }, nil
}

// NewRootCommand creates the sagactl root command
func NewRootCommand(readConfig ConfigReader, load DependencyLoader) *cobra.Command {
	opts := &RootOptions{readConfig: readConfig, load: load}

	cmd := &cobra.Command{
		Use:   "sagactl",
		Short: "Operate the order saga",
		Long:  "Inspect orders, retry failed sagas and work the dead-letter queue of the orders service.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json|yaml)")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewOrderCommand(opts))
	cmd.AddCommand(NewDeadLetterCommand(opts))
	cmd.AddCommand(NewSweepCommand(opts))

	return cmd
}

// withDependencies runs fn with freshly loaded dependencies
func (o *RootOptions) withDependencies(ctx context.Context, fn func(deps *config.Dependencies) error) error {
	cfg, err := o.readConfig()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	deps, release, err := o.load(ctx, cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build dependencies", err)
	}
	defer release()
	return fn(deps)
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
