// Package remote is the wire client of the transfer server plus the direct
// data-plane transport against pre-signed URLs. Every error leaving this
// package is tagged with its failure class.
package remote

import (
	"context"
	"fmt"

	"github.com/genostore/genostore/entity"
)

type IStorageClient interface {
	InitiateUpload(ctx context.Context, objectId string, fileSize int64, md5 string, overwrite bool) (*entity.ObjectSpecification, error)
	GetUploadProgress(ctx context.Context, objectId string, fileSize int64) (*entity.UploadProgress, error)
	FinalizeUploadPart(ctx context.Context, objectId string, partNumber int, md5 string, etag string) error
	FinalizeUpload(ctx context.Context, objectId string) error
	RecoverUpload(ctx context.Context, objectId string, fileSize int64) (*entity.ObjectSpecification, error)
	CancelUpload(ctx context.Context, objectId string) error
	DeleteUploadPart(ctx context.Context, objectId string, partNumber int) error
	ResolveDownload(ctx context.Context, objectId string, offset int64, length int64, forExternalUse bool) (*entity.ObjectSpecification, error)
	DownloadURL(ctx context.Context, objectId string) (string, error)
	ObjectExists(ctx context.Context, objectId string) (bool, error)
	ObjectInfo(ctx context.Context, objectId string) (*entity.ObjectSpecification, error)
}

type config struct {
	Schema string
	Host   string
	Token  string
}

type Option func(c *config)

func WithSchema(schema string) Option {
	return func(c *config) {
		c.Schema = schema
	}
}

func WithHost(host string) Option {
	return func(c *config) {
		c.Host = host
	}
}

func WithToken(token string) Option {
	return func(c *config) {
		c.Token = token
	}
}

func New(opts ...Option) (IStorageClient, error) {
	c := &config{
		Schema: "https",
	}
	for _, opt := range opts {
		opt(c)
	}
	if len(c.Host) == 0 {
		return nil, fmt.Errorf("no host found")
	}
	return &defaultClient{c: c}, nil
}
