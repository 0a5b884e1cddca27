package main

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/spf13/cobra"

	"github.com/tendant/simple-publish/pkg/simplepublish/config"
)

type commandContext struct {
	asJSON bool

	once sync.Once
	cfg  *config.ServerConfig
	rt   *config.Runtime
	err  error
}

func newCommandContext() *commandContext {
	return &commandContext{}
}

// runtime builds the core from the environment on first use.
func (c *commandContext) runtime(ctx context.Context) (*config.Runtime, error) {
	c.once.Do(func() {
		if c.rt != nil {
			return
		}
		cfg, err := c.loadConfig()
		if err != nil {
			c.err = err
			return
		}
		// Diagnostics stay off stdout so JSON output remains parseable.
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		c.rt, c.err = cfg.Build(ctx, logger)
	})
	return c.rt, c.err
}

func (c *commandContext) loadConfig() (*config.ServerConfig, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.Load(config.WithEnv())
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	return cfg, nil
}

func (c *commandContext) close() error {
	if c.rt == nil {
		return nil
	}
	return c.rt.Close()
}

func newRootCommand(ctx *commandContext) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "publishctl",
		Short:         "Administer organizations, media and content",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return ctx.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().BoolVar(&ctx.asJSON, "json", false, "Output as JSON")

	rootCmd.AddCommand(newMigrateCommand(ctx))
	rootCmd.AddCommand(newOrgCommand(ctx))
	rootCmd.AddCommand(newMediaCommand(ctx))
	rootCmd.AddCommand(newContentCommand(ctx))

	return rootCmd
}
