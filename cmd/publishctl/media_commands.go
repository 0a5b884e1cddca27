package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/tendant/simple-publish/pkg/simplepublish"
	"github.com/tendant/simple-publish/pkg/simplepublish/reconcile"
)

// objectWriter is implemented by the memory and s3 media stores.
type objectWriter interface {
	Put(ctx context.Context, key, contentType string, reader io.Reader) error
}

func newMediaCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "media",
		Short: "Manage media items",
	}
	cmd.AddCommand(newMediaListCommand(ctx))
	cmd.AddCommand(newMediaUploadCommand(ctx))
	cmd.AddCommand(newMediaStatusCommand(ctx))
	cmd.AddCommand(newMediaReadyCommand(ctx))
	cmd.AddCommand(newMediaReconcileCommand(ctx))
	return cmd
}

func newMediaListCommand(ctx *commandContext) *cobra.Command {
	var (
		creator   string
		status    string
		mediaType string
		req       simplepublish.ListMediaItemsRequest
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a creator's media items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.runtime(cmd.Context())
			if err != nil {
				return err
			}
			req.Status = simplepublish.MediaStatus(status)
			req.MediaType = simplepublish.MediaType(mediaType)
			page, err := rt.Core.Media.List(cmd.Context(), creator, req)
			if err != nil {
				return err
			}
			return ctx.emit(cmd, page, func() error {
				rows := make([][]string, 0, len(page.Items))
				for _, m := range page.Items {
					rows = append(rows, []string{
						m.ID.String(), string(m.MediaType), string(m.Status), m.Title, formatTime(m.UploadedAt),
					})
				}
				return writeTable(cmd, []string{"ID", "TYPE", "STATUS", "TITLE", "UPLOADED"}, rows)
			})
		},
	}

	cmd.Flags().StringVar(&creator, "creator", "", "Creator id")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status")
	cmd.Flags().StringVar(&mediaType, "type", "", "Filter by media type (video, audio)")
	cmd.Flags().StringVar(&req.Search, "search", "", "Match title or description")
	cmd.Flags().IntVar(&req.Limit, "limit", 50, "Maximum results")
	cmd.Flags().IntVar(&req.Offset, "offset", 0, "Pagination offset")
	_ = cmd.MarkFlagRequired("creator")
	return cmd
}

func newMediaUploadCommand(ctx *commandContext) *cobra.Command {
	var creator string

	cmd := &cobra.Command{
		Use:   "upload <id> <file>",
		Short: "Store a local file as the media original and confirm the upload",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			rt, err := ctx.runtime(cmd.Context())
			if err != nil {
				return err
			}
			writer, ok := rt.MediaStore.(objectWriter)
			if !ok {
				return errors.New("configured storage does not accept direct uploads")
			}
			item, err := rt.Core.Media.Get(cmd.Context(), id, creator)
			if err != nil {
				return err
			}
			if item == nil {
				return fmt.Errorf("media item %s not found", id)
			}

			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()
			if err := writer.Put(cmd.Context(), item.StorageKey, item.MimeType, f); err != nil {
				return fmt.Errorf("upload %s: %w", item.StorageKey, err)
			}

			item, err = rt.Core.Media.ConfirmUpload(cmd.Context(), id, creator)
			if err != nil {
				return err
			}
			return ctx.emit(cmd, item, func() error {
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "uploaded %d bytes to %s\n", item.FileSizeBytes, item.StorageKey)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&creator, "creator", "", "Creator id")
	_ = cmd.MarkFlagRequired("creator")
	return cmd
}

func newMediaStatusCommand(ctx *commandContext) *cobra.Command {
	var creator string

	cmd := &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Move a media item to another processing status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			rt, err := ctx.runtime(cmd.Context())
			if err != nil {
				return err
			}
			item, err := rt.Core.Media.UpdateStatus(cmd.Context(), id, creator, simplepublish.MediaStatus(args[1]))
			if err != nil {
				return err
			}
			return ctx.emit(cmd, item, func() error {
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "media %s is %s\n", item.ID, item.Status)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&creator, "creator", "", "Creator id")
	_ = cmd.MarkFlagRequired("creator")
	return cmd
}

func newMediaReadyCommand(ctx *commandContext) *cobra.Command {
	var (
		creator string
		meta    simplepublish.ReadyMetadata
	)

	cmd := &cobra.Command{
		Use:   "mark-ready <id>",
		Short: "Record transcoding output and mark a media item ready",
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
			item, err := rt.Core.Media.MarkAsReady(cmd.Context(), id, creator, meta)
			if err != nil {
				return err
			}
			return ctx.emit(cmd, item, func() error {
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "media %s is %s\n", item.ID, item.Status)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&creator, "creator", "", "Creator id")
	cmd.Flags().StringVar(&meta.PlaylistKey, "playlist-key", "", "Storage key of the HLS playlist")
	cmd.Flags().StringVar(&meta.ThumbnailKey, "thumbnail-key", "", "Storage key of the thumbnail")
	cmd.Flags().IntVar(&meta.DurationSeconds, "duration", 0, "Duration in seconds")
	cmd.Flags().IntVar(&meta.Width, "width", 0, "Video width")
	cmd.Flags().IntVar(&meta.Height, "height", 0, "Video height")
	_ = cmd.MarkFlagRequired("creator")
	_ = cmd.MarkFlagRequired("playlist-key")
	return cmd
}

func newMediaReconcileCommand(ctx *commandContext) *cobra.Command {
	var opts reconcile.Options

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Confirm uploads that reached storage but were never confirmed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := ctx.runtime(cmd.Context())
			if err != nil {
				return err
			}
			if !ctx.asJSON {
				opts.OnProgress = func(processed, total int64) {
					fmt.Fprintf(cmd.ErrOrStderr(), "processed %d/%d\n", processed, total)
				}
			}
			result, err := reconcile.New(rt.Core.Media).Run(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return ctx.emit(cmd, result, func() error {
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "found %d, confirmed %d, pending %d, failed %d\n",
					result.TotalFound, result.TotalConfirmed, result.TotalPending, result.TotalFailed)
				for _, id := range result.FailedIDs {
					fmt.Fprintf(out, "failed: %s\n", id)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&opts.CreatorID, "creator", "", "Creator id")
	cmd.Flags().IntVar(&opts.BatchSize, "batch-size", 100, "Items per page")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Count candidates without confirming")
	_ = cmd.MarkFlagRequired("creator")
	return cmd
}
