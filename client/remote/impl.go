package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/genostore/genostore/entity"
	"github.com/genostore/genostore/errclass"
	"github.com/genostore/genostore/server/model"

	"github.com/xxxsen/common/webapi/proxyutil"
)

var (
	defaultHttpClient = &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			IdleConnTimeout:     20 * time.Second,
			MaxIdleConns:        5,
			MaxIdleConnsPerHost: 1,
		},
	}
)

type defaultClient struct {
	c *config
}

func (d *defaultClient) buildUrl(api string, query url.Values) string {
	link := fmt.Sprintf("%s://%s%s", d.c.Schema, d.c.Host, api)
	if len(query) > 0 {
		link += "?" + query.Encode()
	}
	return link
}

func (d *defaultClient) applyAuth(req *http.Request) {
	if len(d.c.Token) == 0 {
		return
	}
	req.Header.Set("Authorization", "Bearer "+d.c.Token)
}

// call performs one control-plane request and decodes the common envelope. A
// non-200 status is classified by ClassifyServiceStatus so the orchestrator
// can branch without inspecting the transport.
func (d *defaultClient) call(ctx context.Context, method string, api string, query url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, d.buildUrl(api, query), nil)
	if err != nil {
		return err
	}
	d.applyAuth(req)
	rsp, err := defaultHttpClient.Do(req)
	if err != nil {
		return errclass.Retryable(fmt.Errorf("request service failed, err:%w", err))
	}
	defer rsp.Body.Close()
	if rsp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(rsp.Body, 4096))
		return errclass.ClassifyServiceStatus(rsp.StatusCode,
			fmt.Errorf("status code not ok, code:%d, api:%s, body:%s", rsp.StatusCode, api, string(raw)))
	}
	pkgRsp := &proxyutil.CommonResponse{
		Data: out,
	}
	if err := json.NewDecoder(rsp.Body).Decode(pkgRsp); err != nil {
		return errclass.Retryable(fmt.Errorf("decode response failed, err:%w", err))
	}
	if pkgRsp.Code != 0 {
		return errclass.NotRetryable(fmt.Errorf("biz code not ok, code:%d, msg:%s", pkgRsp.Code, pkgRsp.Message))
	}
	return nil
}

func (d *defaultClient) InitiateUpload(ctx context.Context, objectId string, fileSize int64, md5 string, overwrite bool) (*entity.ObjectSpecification, error) {
	query := url.Values{}
	query.Set("file_size", fmt.Sprintf("%d", fileSize))
	query.Set("md5", md5)
	query.Set("overwrite", fmt.Sprintf("%t", overwrite))
	rsp := &entity.ObjectSpecification{}
	if err := d.call(ctx, http.MethodPost, fmt.Sprintf("/upload/%s/uploads", objectId), query, rsp); err != nil {
		return nil, err
	}
	return rsp, nil
}

func (d *defaultClient) GetUploadProgress(ctx context.Context, objectId string, fileSize int64) (*entity.UploadProgress, error) {
	query := url.Values{}
	query.Set("file_size", fmt.Sprintf("%d", fileSize))
	rsp := &entity.UploadProgress{}
	if err := d.call(ctx, http.MethodGet, fmt.Sprintf("/upload/%s/status", objectId), query, rsp); err != nil {
		return nil, err
	}
	return rsp, nil
}

func (d *defaultClient) FinalizeUploadPart(ctx context.Context, objectId string, partNumber int, md5 string, etag string) error {
	query := url.Values{}
	query.Set("part_number", fmt.Sprintf("%d", partNumber))
	query.Set("md5", md5)
	query.Set("etag", etag)
	return d.call(ctx, http.MethodPost, fmt.Sprintf("/upload/%s/parts", objectId), query, &model.FinalizePartResponse{})
}

func (d *defaultClient) FinalizeUpload(ctx context.Context, objectId string) error {
	return d.call(ctx, http.MethodPost, fmt.Sprintf("/upload/%s", objectId), nil, &model.FinalizeUploadResponse{})
}

func (d *defaultClient) RecoverUpload(ctx context.Context, objectId string, fileSize int64) (*entity.ObjectSpecification, error) {
	query := url.Values{}
	query.Set("file_size", fmt.Sprintf("%d", fileSize))
	rsp := &entity.ObjectSpecification{}
	if err := d.call(ctx, http.MethodPost, fmt.Sprintf("/upload/%s/recovery", objectId), query, rsp); err != nil {
		return nil, err
	}
	return rsp, nil
}

func (d *defaultClient) CancelUpload(ctx context.Context, objectId string) error {
	return d.call(ctx, http.MethodDelete, fmt.Sprintf("/upload/%s", objectId), nil, &model.CancelUploadResponse{})
}

func (d *defaultClient) DeleteUploadPart(ctx context.Context, objectId string, partNumber int) error {
	query := url.Values{}
	query.Set("part_number", fmt.Sprintf("%d", partNumber))
	return d.call(ctx, http.MethodDelete, fmt.Sprintf("/upload/%s/parts", objectId), query, &model.DeletePartResponse{})
}

func (d *defaultClient) ResolveDownload(ctx context.Context, objectId string, offset int64, length int64, forExternalUse bool) (*entity.ObjectSpecification, error) {
	query := url.Values{}
	query.Set("offset", fmt.Sprintf("%d", offset))
	query.Set("length", fmt.Sprintf("%d", length))
	query.Set("external", fmt.Sprintf("%t", forExternalUse))
	rsp := &entity.ObjectSpecification{}
	if err := d.call(ctx, http.MethodGet, fmt.Sprintf("/download/%s", objectId), query, rsp); err != nil {
		return nil, err
	}
	return rsp, nil
}

func (d *defaultClient) DownloadURL(ctx context.Context, objectId string) (string, error) {
	rsp := &model.DownloadURLResponse{}
	if err := d.call(ctx, http.MethodGet, fmt.Sprintf("/download/%s/url", objectId), nil, rsp); err != nil {
		return "", err
	}
	return rsp.URL, nil
}

func (d *defaultClient) ObjectExists(ctx context.Context, objectId string) (bool, error) {
	rsp := &model.ObjectExistsResponse{}
	if err := d.call(ctx, http.MethodGet, fmt.Sprintf("/download/%s/exists", objectId), nil, rsp); err != nil {
		return false, err
	}
	return rsp.Exist, nil
}

func (d *defaultClient) ObjectInfo(ctx context.Context, objectId string) (*entity.ObjectSpecification, error) {
	rsp := &model.ObjectInfoResponse{}
	if err := d.call(ctx, http.MethodGet, fmt.Sprintf("/download/%s/info", objectId), nil, rsp); err != nil {
		return nil, err
	}
	return rsp.Spec, nil
}
