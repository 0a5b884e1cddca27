package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tendant/simple-publish/pkg/simplepublish/config"
	repopg "github.com/tendant/simple-publish/pkg/simplepublish/repo/postgres"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	var printOnly bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the postgres schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if printOnly {
				_, err := fmt.Fprint(cmd.OutOrStdout(), repopg.Schema())
				return err
			}
			cfg, err := ctx.loadConfig()
			if err != nil {
				return err
			}
			if cfg.Database.Type != "postgres" {
				return errors.New("migrate requires DATABASE_TYPE=postgres")
			}
			pool, err := config.NewPool(cmd.Context(), cfg.Database.URL, cfg.Database.Schema)
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := repopg.Migrate(cmd.Context(), pool); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		},
	}

	cmd.Flags().BoolVar(&printOnly, "print", false, "Print the schema instead of applying it")
	return cmd
}
