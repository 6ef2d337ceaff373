package server

import (
	"github.com/genostore/genostore/authz"
	"github.com/genostore/genostore/service/download"
	"github.com/genostore/genostore/service/upload"
)

type config struct {
	uploadSvc   upload.IUploadService
	downloadSvc download.IDownloadService
	gate        *authz.Gate
}

type Option func(c *config)

func WithUploadService(svc upload.IUploadService) Option {
	return func(c *config) {
		c.uploadSvc = svc
	}
}

func WithDownloadService(svc download.IDownloadService) Option {
	return func(c *config) {
		c.downloadSvc = svc
	}
}

func WithAuthGate(gate *authz.Gate) Option {
	return func(c *config) {
		c.gate = gate
	}
}

func applyOpts(opts ...Option) *config {
	c := &config{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
