package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tendant/simple-publish/pkg/simplepublish"
)

func newContentCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "content",
		Short: "Manage content",
	}
	cmd.AddCommand(newContentListCommand(ctx))
	cmd.AddCommand(newContentTransitionCommand(ctx, "publish", "Publish content",
		func(c *simplepublish.Core) transition { return c.Content.Publish }))
	cmd.AddCommand(newContentTransitionCommand(ctx, "unpublish", "Return published content to draft",
		func(c *simplepublish.Core) transition { return c.Content.Unpublish }))
	return cmd
}

type transition func(ctx context.Context, id uuid.UUID, creatorID string) (*simplepublish.Content, error)

func newContentListCommand(ctx *commandContext) *cobra.Command {
	var (
		creator     string
		status      string
		contentType string
		orgID       string
		req         simplepublish.ListContentRequest
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a creator's content",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if orgID != "" {
				id, err := parseID(orgID)
				if err != nil {
					return err
				}
				req.OrganizationID = &id
			}
			req.Status = simplepublish.ContentStatus(status)
			req.ContentType = simplepublish.ContentType(contentType)

			rt, err := ctx.runtime(cmd.Context())
			if err != nil {
				return err
			}
			page, err := rt.Core.Content.List(cmd.Context(), creator, req)
			if err != nil {
				return err
			}
			return ctx.emit(cmd, page, func() error {
				rows := make([][]string, 0, len(page.Items))
				for _, c := range page.Items {
					org := "-"
					if c.Organization != nil {
						org = c.Organization.Slug
					}
					rows = append(rows, []string{
						c.ID.String(), c.Slug, string(c.ContentType), string(c.Status), org, formatTime(c.PublishedAt),
					})
				}
				return writeTable(cmd, []string{"ID", "SLUG", "TYPE", "STATUS", "ORG", "PUBLISHED"}, rows)
			})
		},
	}

	cmd.Flags().StringVar(&creator, "creator", "", "Creator id")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (draft, published, archived)")
	cmd.Flags().StringVar(&contentType, "type", "", "Filter by content type")
	cmd.Flags().StringVar(&orgID, "org", "", "Only content of this organization")
	cmd.Flags().BoolVar(&req.PersonalOnly, "personal", false, "Only content without an organization")
	cmd.Flags().StringVar(&req.Search, "search", "", "Match title or description")
	cmd.Flags().StringVar(&req.SortBy, "sort-by", "", "Sort column")
	cmd.Flags().StringVar(&req.SortOrder, "sort-order", "", "asc or desc")
	cmd.Flags().IntVar(&req.Limit, "limit", 50, "Maximum results")
	cmd.Flags().IntVar(&req.Offset, "offset", 0, "Pagination offset")
	_ = cmd.MarkFlagRequired("creator")
	return cmd
}

func newContentTransitionCommand(ctx *commandContext, use, short string, pick func(*simplepublish.Core) transition) *cobra.Command {
	var creator string

	cmd := &cobra.Command{
		Use:   use + " <id>",
		Short: short,
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
			c, err := pick(rt.Core)(cmd.Context(), id, creator)
			if err != nil {
				return err
			}
			return ctx.emit(cmd, c, func() error {
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "content %s is %s (version %d)\n", c.Slug, c.Status, c.Version)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&creator, "creator", "", "Creator id")
	_ = cmd.MarkFlagRequired("creator")
	return cmd
}
