package main

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tendant/simple-publish/pkg/simplepublish"
)

func newOrgCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "org",
		Short: "Manage organizations",
	}
	cmd.AddCommand(newOrgListCommand(ctx))
	cmd.AddCommand(newOrgCreateCommand(ctx))
	cmd.AddCommand(newOrgDeleteCommand(ctx))
	return cmd
}

func newOrgListCommand(ctx *commandContext) *cobra.Command {
	var req simplepublish.ListOrganizationsRequest

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List organizations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.runtime(cmd.Context())
			if err != nil {
				return err
			}
			page, err := rt.Core.Organizations.List(cmd.Context(), req)
			if err != nil {
				return err
			}
			return ctx.emit(cmd, page, func() error {
				rows := make([][]string, 0, len(page.Items))
				for _, org := range page.Items {
					rows = append(rows, []string{org.ID.String(), org.Slug, org.Name, org.CreatedBy})
				}
				if err := writeTable(cmd, []string{"ID", "SLUG", "NAME", "CREATED BY"}, rows); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "\n%d of %d organizations\n", len(page.Items), page.Total)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&req.Search, "search", "", "Match name or description")
	cmd.Flags().StringVar(&req.SortBy, "sort-by", "", "Sort by name or created_at")
	cmd.Flags().StringVar(&req.SortOrder, "sort-order", "", "asc or desc")
	cmd.Flags().IntVar(&req.Limit, "limit", 50, "Maximum results")
	cmd.Flags().IntVar(&req.Offset, "offset", 0, "Pagination offset")
	return cmd
}

func newOrgCreateCommand(ctx *commandContext) *cobra.Command {
	var (
		actor string
		req   simplepublish.CreateOrganizationRequest
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an organization",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.runtime(cmd.Context())
			if err != nil {
				return err
			}
			org, err := rt.Core.Organizations.Create(cmd.Context(), actor, req)
			if err != nil {
				return err
			}
			return ctx.emit(cmd, org, func() error {
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "created organization %s (%s)\n", org.Slug, org.ID)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&actor, "actor", "", "Acting user id")
	cmd.Flags().StringVar(&req.Name, "name", "", "Display name")
	cmd.Flags().StringVar(&req.Slug, "slug", "", "URL slug")
	cmd.Flags().StringVar(&req.Description, "description", "", "Description")
	_ = cmd.MarkFlagRequired("actor")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("slug")
	return cmd
}

func newOrgDeleteCommand(ctx *commandContext) *cobra.Command {
	var actor string

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an organization and detach its content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			rt, err := ctx.runtime(cmd.Context())
			if err != nil {
				return err
			}
			if err := rt.Core.Organizations.Delete(cmd.Context(), actor, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted organization %s\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&actor, "actor", "", "Acting user id")
	_ = cmd.MarkFlagRequired("actor")
	return cmd
}

func parseID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, errors.New("invalid id: " + s)
	}
	return id, nil
}
