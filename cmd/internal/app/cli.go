package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"giftlist/cmd/internal/gift"
)

// Execute runs the giftlist CLI with SIGINT/SIGTERM bound to the command
// context. It returns an error instead of exiting so defers still run.
func Execute() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return NewRootCommand().ExecuteContext(ctx)
}

// NewRootCommand builds the command tree. Running the root without a
// subcommand serves.
func NewRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "giftlist",
		Short:        "Shared wedding gift registry server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("GIFTLIST_CONFIG"),
		"TOML config file (env GIFTLIST_CONFIG)")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Serve the HTTP API, WebSocket gateway and operational endpoints",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return serve(cmd.Context(), configPath)
			},
		},
		newSchemaCommand(&configPath),
	)
	return root
}

func serve(ctx context.Context, configPath string) error {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}
	log := NewLogger(cfg.LogLevel, cfg.LogFormat)

	a, err := New(ctx, cfg, log)
	if err != nil {
		log.Error("app.init.fail", "err", err)
		return err
	}
	return a.Run(ctx)
}

func newSchemaCommand(configPath *string) *cobra.Command {
	var (
		apply  bool
		schema string
	)

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the PostgreSQL DDL for the gifts table, or apply it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := LoadConfig(*configPath)
			if err != nil {
				return err
			}
			if schema == "" {
				schema = cfg.DBSchema
			}

			if !apply {
				ddl, err := gift.SchemaSQL(schema)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), ddl)
				return err
			}

			pool, err := NewDBPool(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := gift.ApplySchema(cmd.Context(), pool, schema); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "schema %q applied\n", schema)
			return err
		},
	}
	cmd.Flags().BoolVar(&apply, "apply", false, "apply the DDL to GIFTLIST_DATABASE_URL instead of printing it")
	cmd.Flags().StringVar(&schema, "schema", "", "target schema (default: configured db schema)")
	return cmd
}
