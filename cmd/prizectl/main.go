// Command prizectl runs one-shot prize operations against a SQL store.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/okian/prizeboard/internal/adapters/repository"
	"github.com/okian/prizeboard/internal/config"
	"github.com/okian/prizeboard/pkg/logger"
)

// globalOptions are shared by every subcommand.
type globalOptions struct {
	driver   string
	dsn      string
	logLevel string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "prizectl",
		Short: "Operate contest prizes from the command line",
		Long: `prizectl settles ended contests, inspects resolved prize tiers and
creates the SQL schema. Connection settings default to the same
PRIZEBOARD_* environment and config file the server reads.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.complete(cmd.Context())
		},
	}

	root.PersistentFlags().StringVar(&opts.driver, "driver", "", "store driver: sqlite or postgres")
	root.PersistentFlags().StringVar(&opts.dsn, "dsn", "", "database DSN")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(newMigrateCmd(opts), newSettleCmd(opts), newTiersCmd(opts))
	return root
}

// complete fills unset flags from configuration and initializes logging.
func (o *globalOptions) complete(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if o.driver == "" {
		o.driver = cfg.StoreDriver
	}
	if o.dsn == "" {
		o.dsn = cfg.DatabaseURL
	}
	if o.logLevel == "" {
		o.logLevel = cfg.LogLevel
	}
	return logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithLevel(o.logLevel), logger.WithOutput(os.Stderr))
}

// openStore opens the configured SQL store. The memory driver is refused
// because nothing it holds would outlive the command.
func (o *globalOptions) openStore(ctx context.Context) (*repository.SQLStore, error) {
	switch o.driver {
	case repository.DriverSQLite, repository.DriverPostgres:
	default:
		return nil, fmt.Errorf("driver %q: prizectl needs sqlite or postgres", o.driver)
	}
	if o.dsn == "" {
		return nil, fmt.Errorf("driver %s: --dsn is required", o.driver)
	}
	return repository.OpenSQL(ctx, o.driver, o.dsn)
}
