package cmd

import (
	"fmt"
	"os"

	"github.com/genostore/genostore/client/remote"
	"github.com/genostore/genostore/cmd/gsc/config"

	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
)

const (
	defaultConfigFileEnv = "GSC_CONFIG"
)

var cmds []CreateFunc

type Context struct {
	Client remote.IStorageClient
	Config *config.Config
}

type CreateFunc func(ctx *Context) *cobra.Command

func register(cr CreateFunc) {
	cmds = append(cmds, cr)
}

func initContext(ctx *Context, cfgs []string) error {
	var c *config.Config
	var err error
	for _, cfg := range cfgs {
		c, err = config.Parse(cfg)
		if err != nil {
			continue
		}
	}
	if err != nil {
		return fmt.Errorf("no valid config file found, last err:%w", err)
	}
	ctx.Config = c
	logger.Init("", c.LogLevel, 0, 0, 0, true)
	cli, err := remote.New(remote.WithSchema(c.Schema), remote.WithHost(c.Host), remote.WithToken(c.Token))
	if err != nil {
		return err
	}
	ctx.Client = cli
	return nil
}

func NewRoot() *cobra.Command {
	var configFile string
	ctx := &Context{}
	var rootCmd = &cobra.Command{
		Use:   "gsc",
		Short: "Genostore transfer CLI",
	}
	for _, cr := range cmds {
		rootCmd.AddCommand(cr(ctx))
	}
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		envConfigFile, _ := os.LookupEnv(defaultConfigFileEnv)
		return initContext(ctx, []string{configFile, "/etc/gsc/gsc_config.json", envConfigFile})
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file")
	return rootCmd
}
