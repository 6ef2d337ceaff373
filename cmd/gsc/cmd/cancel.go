package cmd

import (
	"context"
	"fmt"

	"github.com/genostore/genostore/client/transfer"

	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type cancelArgs struct {
	file     string
	objectId string
}

func NewCancelCmd(c *Context) *cobra.Command {
	args := &cancelArgs{}
	ctx := context.Background()
	subc := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel an in-progress upload and drop its local session state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return onRunCancel(ctx, c, args)
		},
	}
	subc.PersistentFlags().StringVarP(&args.file, "file", "f", "", "local file the upload was started from")
	subc.PersistentFlags().StringVarP(&args.objectId, "object-id", "o", "", "object id of the upload")
	return subc
}

func onRunCancel(ctx context.Context, c *Context, args *cancelArgs) error {
	if len(args.file) == 0 {
		return fmt.Errorf("no upload file found")
	}
	if len(args.objectId) == 0 {
		return fmt.Errorf("no object id found")
	}
	uploader, err := transfer.NewUploader(transfer.WithClient(c.Client))
	if err != nil {
		return err
	}
	if err := uploader.Cancel(ctx, args.file, args.objectId); err != nil {
		return fmt.Errorf("cancel upload failed, err:%w", err)
	}
	logutil.GetLogger(ctx).Info("upload cancelled", zap.String("object_id", args.objectId))
	return nil
}

func init() {
	register(NewCancelCmd)
}
