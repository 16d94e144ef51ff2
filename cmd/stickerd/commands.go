package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/adapters/driving/http"
	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/config"
	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/domain"
	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/ports/driving"
)

// newRootCommand builds the stickerd command tree.
func newRootCommand() *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "stickerd",
		Short:         "Drive sticker ingestion and image proxy",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Optional config file (yaml, json or toml); environment variables override it")

	load := func() (*config.Config, error) {
		return config.Load(configFile)
	}

	rootCmd.AddCommand(newServeCommand(load))
	rootCmd.AddCommand(newSyncCommand(load))
	rootCmd.AddCommand(newMigrateCommand(load))
	rootCmd.AddCommand(newVersionCommand())
	return rootCmd
}

type configLoader func() (*config.Config, error)

func newServeCommand(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, image proxy and sync scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			log.Printf("stickerd %s starting", version)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			a, err := buildApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.scheduler != nil {
				if err := a.scheduler.Start(ctx); err != nil {
					return fmt.Errorf("failed to start scheduler: %w", err)
				}
			}

			server := http.NewServer(
				http.Config{
					Host:           cfg.Host,
					Port:           cfg.Port,
					Version:        version,
					AdminTokenHash: cfg.AdminTokenHash,
					AllowedOrigins: cfg.CORSOrigins,
					Gatherer:       a.registry,
					Logger:         logger.With("component", "http"),
				},
				a.images,
				a.sync,
				a.webhooks,
				a.db,
				a.lock,
			)
			return server.Start()
		},
	}
}

func newSyncCommand(load configLoader) *cobra.Command {
	var registerWebhook bool

	cmd := &cobra.Command{
		Use:       "sync [full|incremental]",
		Short:     "Run one sync and print the result",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{string(domain.SyncKindFull), string(domain.SyncKindIncremental)},
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := ""
			if len(args) > 0 {
				raw = args[0]
			}
			kind, err := domain.ParseSyncKind(raw)
			if err != nil {
				return fmt.Errorf("unknown sync kind %q: %w", raw, err)
			}

			cfg, err := load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			result := a.sync.Trigger(ctx, kind, driving.TriggerOptions{RegisterWebhook: registerWebhook})

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				return err
			}
			if result.Status == domain.TriggerStatusError {
				return fmt.Errorf("sync failed: %s", result.Message)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&registerWebhook, "register-webhook", false, "Register the Drive push channel after the sync")
	return cmd
}

func newMigrateCommand(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			newLogger(cfg)

			db, err := connectDatabase(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			v, err := db.MigrationVersion(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "database at migration version %d\n", v)
			return nil
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "stickerd %s\n", version)
		},
	}
}
