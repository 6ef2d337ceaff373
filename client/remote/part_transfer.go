package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/genostore/genostore/errclass"
)

// partHttpClient has no overall timeout; a single part can be gigabytes and
// its deadline belongs to the caller's context.
var partHttpClient = &http.Client{
	Transport: &http.Transport{
		IdleConnTimeout:     90 * time.Second,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 16,
	},
}

// PartTransfer moves part bytes directly between the local machine and the
// object store over pre-signed URLs. The transfer server never sees the data.
type PartTransfer struct {
	cli *http.Client
}

func NewPartTransfer() *PartTransfer {
	return &PartTransfer{cli: partHttpClient}
}

func (p *PartTransfer) classify(rsp *http.Response, cause error) error {
	raw, _ := io.ReadAll(io.LimitReader(rsp.Body, 4096))
	return errclass.ClassifyStoreResponse(rsp.StatusCode, errclass.StoreCodeFromBody(raw), cause)
}

// UploadPart PUTs one part body against its pre-signed URL and returns the
// etag the store acknowledged.
func (p *PartTransfer) UploadPart(ctx context.Context, link string, r io.Reader, size int64) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, link, r)
	if err != nil {
		return "", err
	}
	req.ContentLength = size
	rsp, err := p.cli.Do(req)
	if err != nil {
		return "", errclass.Retryable(fmt.Errorf("put part failed, err:%w", err))
	}
	defer rsp.Body.Close()
	if rsp.StatusCode/100 != 2 {
		return "", p.classify(rsp, fmt.Errorf("store rejected part, status:%d", rsp.StatusCode))
	}
	etag := strings.Trim(rsp.Header.Get("ETag"), "\"")
	if len(etag) == 0 {
		return "", errclass.Retryable(fmt.Errorf("store returned no etag"))
	}
	return etag, nil
}

// DownloadPart GETs one part body from its pre-signed URL. The URL already
// carries the byte range when the resolution was ranged; the caller streams
// and closes the body.
func (p *PartTransfer) DownloadPart(ctx context.Context, link string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, err
	}
	rsp, err := p.cli.Do(req)
	if err != nil {
		return nil, errclass.Retryable(fmt.Errorf("get part failed, err:%w", err))
	}
	if rsp.StatusCode/100 != 2 {
		defer rsp.Body.Close()
		return nil, p.classify(rsp, fmt.Errorf("store refused part, status:%d", rsp.StatusCode))
	}
	return rsp.Body, nil
}
