package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "embed"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/tigerroll/docschema/pkg/adapter/database"
	config "github.com/tigerroll/docschema/pkg/core/config"
	"github.com/tigerroll/docschema/pkg/migration"
	"github.com/tigerroll/docschema/pkg/support/util/logger"
)

// embeddedConfig is the default application configuration.
//
//go:embed resources/application.yaml
var embeddedConfig []byte

const stopTimeout = 30 * time.Second

type cliFlags struct {
	envFile    string
	configFile string
}

// dependencies are the components a command pulls out of the Fx graph.
type dependencies struct {
	fx.In
	Executor  *migration.Executor
	Step      migration.Step
	Provider  database.DBProvider
	Migration *config.MigrationConfig
}

// withApplication starts the Fx application, opens the configured connection and calls fn.
// The application is always stopped afterwards so connections close and metrics are pushed.
func withApplication(ctx context.Context, flags *cliFlags, fn func(ctx context.Context, deps dependencies, db database.Database) error) (err error) {
	rawConfig := embeddedConfig
	if flags.configFile != "" {
		rawConfig, err = os.ReadFile(flags.configFile)
		if err != nil {
			return fmt.Errorf("failed to read config file %s: %w", flags.configFile, err)
		}
	}

	options, err := GetApplicationOptions(flags.envFile, rawConfig)
	if err != nil {
		return err
	}
	var deps dependencies
	options = append(options, fx.Populate(&deps))

	app := fx.New(options...)
	if err := app.Err(); err != nil {
		return err
	}
	if err := app.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		if stopErr := app.Stop(stopCtx); stopErr != nil {
			logger.Warnf("Failed to stop application cleanly: %v", stopErr)
		}
	}()

	conn, err := deps.Provider.GetConnection(ctx, deps.Migration.DBRef)
	if err != nil {
		return err
	}
	return fn(ctx, deps, conn.Database())
}

func newMigrateCommand(flags *cliFlags, dir migration.Direction, short string) *cobra.Command {
	return &cobra.Command{
		Use:   dir.String(),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApplication(cmd.Context(), flags, func(ctx context.Context, deps dependencies, db database.Database) error {
				_, err := deps.Executor.Execute(ctx, deps.Step, db, dir)
				return err
			})
		},
	}
}

func newStatusCommand(flags *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the validator state and indexes of the collections the step manages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApplication(cmd.Context(), flags, func(ctx context.Context, deps dependencies, db database.Database) error {
				return writeStatus(ctx, cmd.OutOrStdout(), db, deps.Step.Collections())
			})
		},
	}
}

func newRootCommand() *cobra.Command {
	flags := &cliFlags{}
	root := &cobra.Command{
		Use:           "docschema",
		Short:         "Apply or revert the users/events document schema migration",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	envFile := os.Getenv("ENV_FILE_PATH")
	if envFile == "" {
		envFile = ".env"
	}
	root.PersistentFlags().StringVar(&flags.envFile, "env-file", envFile, "path of the .env file to load")
	root.PersistentFlags().StringVar(&flags.configFile, "config", "", "YAML configuration file replacing the embedded one")

	root.AddCommand(
		newMigrateCommand(flags, migration.DirectionUp, "Enforce the JSON schemas and create the users indexes"),
		newMigrateCommand(flags, migration.DirectionDown, "Clear the validators and restore the pre-migration users indexes"),
		newStatusCommand(flags),
	)
	return root
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Warnf("Received signal '%v'. Cancelling the running command...", sig)
		cancel()
	}()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		logger.Errorf("%v", err)
		cancel()
		os.Exit(1)
	}
}
