package transfer

import (
	"io"
	"os"

	"github.com/genostore/genostore/client/remote"
)

type config struct {
	client     remote.IStorageClient
	parts      *remote.PartTransfer
	threads    int
	retryCount int
	output     io.Writer
}

type Option func(c *config)

func WithClient(cli remote.IStorageClient) Option {
	return func(c *config) {
		c.client = cli
	}
}

func WithPartTransfer(p *remote.PartTransfer) Option {
	return func(c *config) {
		c.parts = p
	}
}

func WithThreads(n int) Option {
	return func(c *config) {
		c.threads = n
	}
}

func WithRetryCount(n int) Option {
	return func(c *config) {
		c.retryCount = n
	}
}

func WithProgressOutput(w io.Writer) Option {
	return func(c *config) {
		c.output = w
	}
}

func applyOpts(opts ...Option) *config {
	c := &config{
		parts:      remote.NewPartTransfer(),
		threads:    4,
		retryCount: 5,
		output:     os.Stdout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
