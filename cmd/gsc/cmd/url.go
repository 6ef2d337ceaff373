package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

type urlArgs struct {
	objectId string
}

func NewUrlCmd(c *Context) *cobra.Command {
	args := &urlArgs{}
	ctx := context.Background()
	subc := &cobra.Command{
		Use:   "url",
		Short: "Print a pre-signed download URL for an object",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return onRunUrl(ctx, c, args)
		},
	}
	subc.PersistentFlags().StringVarP(&args.objectId, "object-id", "o", "", "object id")
	return subc
}

func onRunUrl(ctx context.Context, c *Context, args *urlArgs) error {
	if len(args.objectId) == 0 {
		return fmt.Errorf("no object id found")
	}
	link, err := c.Client.DownloadURL(ctx, args.objectId)
	if err != nil {
		return fmt.Errorf("fetch download url failed, err:%w", err)
	}
	fmt.Println(link)
	return nil
}

func init() {
	register(NewUrlCmd)
}
