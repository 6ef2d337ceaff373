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

type uploadArgs struct {
	file     string
	objectId string
	redo     bool
}

func NewUploadCmd(c *Context) *cobra.Command {
	args := &uploadArgs{}
	ctx := context.Background()
	subc := &cobra.Command{
		Use:   "upload",
		Short: "Upload a file as an object",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return onRunUpload(ctx, c, args)
		},
	}
	subc.PersistentFlags().StringVarP(&args.file, "file", "f", "", "local file to upload")
	subc.PersistentFlags().StringVarP(&args.objectId, "object-id", "o", "", "object id to upload as")
	subc.PersistentFlags().BoolVar(&args.redo, "force", false, "restart the upload instead of resuming")
	return subc
}

func onRunUpload(ctx context.Context, c *Context, args *uploadArgs) error {
	if len(args.file) == 0 {
		return fmt.Errorf("no upload file found")
	}
	if len(args.objectId) == 0 {
		return fmt.Errorf("no object id found")
	}
	uploader, err := transfer.NewUploader(
		transfer.WithClient(c.Client),
		transfer.WithThreads(c.Config.Thread),
		transfer.WithRetryCount(c.Config.Retry),
	)
	if err != nil {
		return err
	}
	start := time.Now()
	if err := uploader.Upload(ctx, args.file, args.objectId, args.redo); err != nil {
		return fmt.Errorf("upload file failed, err:%w", err)
	}
	logutil.GetLogger(ctx).Info("upload file succ",
		zap.String("object_id", args.objectId),
		zap.Duration("cost", time.Since(start)))
	return nil
}

func init() {
	register(NewUploadCmd)
}
