package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/genostore/genostore/client/transfer"

	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type downloadArgs struct {
	objectId string
	output   string
	offset   int64
	length   int64
}

func NewDownloadCmd(c *Context) *cobra.Command {
	args := &downloadArgs{}
	ctx := context.Background()
	subc := &cobra.Command{
		Use:   "download",
		Short: "Download an object or a byte range of it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return onRunDownload(ctx, c, args)
		},
	}
	subc.PersistentFlags().StringVarP(&args.objectId, "object-id", "o", "", "object id to download")
	subc.PersistentFlags().StringVarP(&args.output, "output", "O", "", "output file path")
	subc.PersistentFlags().Int64Var(&args.offset, "offset", 0, "byte offset to start from")
	subc.PersistentFlags().Int64Var(&args.length, "length", -1, "byte count to fetch, -1 for through end")
	return subc
}

func onRunDownload(ctx context.Context, c *Context, args *downloadArgs) error {
	if len(args.objectId) == 0 {
		return fmt.Errorf("no object id found")
	}
	output := args.output
	if len(output) == 0 {
		output = args.objectId
	}
	downloader, err := transfer.NewDownloader(
		transfer.WithClient(c.Client),
		transfer.WithThreads(c.Config.Thread),
		transfer.WithRetryCount(c.Config.Retry),
	)
	if err != nil {
		return err
	}
	start := time.Now()
	if err := downloader.Download(ctx, args.objectId, output, args.offset, args.length); err != nil {
		return fmt.Errorf("download object failed, err:%w", err)
	}
	logutil.GetLogger(ctx).Info("download object succ",
		zap.String("object_id", args.objectId),
		zap.String("output", output),
		zap.Duration("cost", time.Since(start)))
	return nil
}

func init() {
	register(NewDownloadCmd)
}
