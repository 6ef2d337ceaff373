package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type infoArgs struct {
	objectId string
}

func NewInfoCmd(c *Context) *cobra.Command {
	args := &infoArgs{}
	ctx := context.Background()
	subc := &cobra.Command{
		Use:   "info",
		Short: "Show the stored metadata of an object",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return onRunInfo(ctx, c, args)
		},
	}
	subc.PersistentFlags().StringVarP(&args.objectId, "object-id", "o", "", "object id")
	return subc
}

func onRunInfo(ctx context.Context, c *Context, args *infoArgs) error {
	if len(args.objectId) == 0 {
		return fmt.Errorf("no object id found")
	}
	exist, err := c.Client.ObjectExists(ctx, args.objectId)
	if err != nil {
		return fmt.Errorf("check object failed, err:%w", err)
	}
	if !exist {
		return fmt.Errorf("object not registered, object_id:%s", args.objectId)
	}
	spec, err := c.Client.ObjectInfo(ctx, args.objectId)
	if err != nil {
		return fmt.Errorf("fetch object info failed, err:%w", err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(spec)
}

func init() {
	register(NewInfoCmd)
}
