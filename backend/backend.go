// Package backend abstracts the blob store a deployment runs against. The
// transfer services only do session control and URL issuance here; the actual
// object bytes always travel directly between the client and the store over
// pre-signed URLs.
package backend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"
)

var ErrDocumentNotFound = errors.New("document not found")

// AcceptedPart is one part the store has accepted for an open multipart
// session.
type AcceptedPart struct {
	PartNumber int
	Etag       string
	Size       int64
}

type IObjectBackend interface {
	Name() string
	// InitiateMultipartUpload opens a multipart session for objectKey and
	// returns the store-issued upload id.
	InitiateMultipartUpload(ctx context.Context, objectKey string) (string, error)
	// UploadPartURL returns a pre-signed PUT URL for one part of an open
	// session, valid for the expiry window.
	UploadPartURL(ctx context.Context, objectKey string, uploadId string, partNumber int, expires time.Duration) (string, error)
	// DownloadURL returns a pre-signed GET URL for the whole object, without
	// range semantics; the caller applies its own Range header if needed.
	DownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error)
	// DownloadPartURL returns a pre-signed GET URL scoped to the exact byte
	// range [offset, offset+length).
	DownloadPartURL(ctx context.Context, objectKey string, offset int64, length int64, expires time.Duration) (string, error)
	// ListParts enumerates parts the store accepted for an open session,
	// starting after partNumberMarker, at most maxParts entries.
	ListParts(ctx context.Context, objectKey string, uploadId string, partNumberMarker int, maxParts int) ([]*AcceptedPart, error)
	// CompleteMultipartUpload commits an open session from its accepted parts,
	// ordered by part number.
	CompleteMultipartUpload(ctx context.Context, objectKey string, uploadId string, parts []*AcceptedPart) error
	AbortMultipartUpload(ctx context.Context, objectKey string, uploadId string) error
	// Document operations back the metadata store ({objectId}.meta documents).
	GetDocument(ctx context.Context, key string) ([]byte, error)
	PutDocument(ctx context.Context, key string, raw []byte) error
	StatDocument(ctx context.Context, key string) (bool, error)
	DeleteDocument(ctx context.Context, key string) error
}

type CreateFunc func(args interface{}) (IObjectBackend, error)

var mp = make(map[string]CreateFunc)

func Register(name string, fn CreateFunc) {
	mp[name] = fn
}

func Create(name string, args interface{}) (IObjectBackend, error) {
	fn, ok := mp[name]
	if !ok {
		return nil, fmt.Errorf("object backend not found, name:%s", name)
	}
	return fn(args)
}

func List() []string {
	rs := make([]string, 0, len(mp))
	for name := range mp {
		rs = append(rs, name)
	}
	sort.Strings(rs)
	return rs
}
