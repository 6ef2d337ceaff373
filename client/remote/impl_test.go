package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/genostore/genostore/errclass"

	"github.com/stretchr/testify/assert"
	"github.com/xxxsen/common/webapi/proxyutil"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (IStorageClient, *httptest.Server) {
	svr := httptest.NewServer(handler)
	u, err := url.Parse(svr.URL)
	assert.NoError(t, err)
	cli, err := New(WithSchema("http"), WithHost(u.Host), WithToken("tok"))
	assert.NoError(t, err)
	return cli, svr
}

func writeSuccess(w http.ResponseWriter, data interface{}) {
	_ = json.NewEncoder(w).Encode(&proxyutil.CommonResponse{
		Code: 0,
		Data: data,
	})
}

func TestClientDecodesEnvelope(t *testing.T) {
	cli, svr := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "/download/obj-1/url", r.URL.Path)
		writeSuccess(w, map[string]string{"url": "https://store/presigned"})
	})
	defer svr.Close()

	link, err := cli.DownloadURL(context.Background(), "obj-1")
	assert.NoError(t, err)
	assert.Equal(t, "https://store/presigned", link)
}

func TestClientSendsQueryParams(t *testing.T) {
	cli, svr := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/upload/obj-1/uploads", r.URL.Path)
		assert.Equal(t, "1024", r.URL.Query().Get("file_size"))
		assert.Equal(t, "true", r.URL.Query().Get("overwrite"))
		writeSuccess(w, map[string]interface{}{"object_id": "obj-1", "upload_id": "upl-1"})
	})
	defer svr.Close()

	spec, err := cli.InitiateUpload(context.Background(), "obj-1", 1024, "md5", true)
	assert.NoError(t, err)
	assert.Equal(t, "upl-1", spec.UploadId)
}

func TestClientClassifiesStatuses(t *testing.T) {
	cases := []struct {
		status int
		check  func(err error) bool
	}{
		{http.StatusNotFound, errclass.IsNotRetryable},
		{http.StatusBadRequest, errclass.IsNotRetryable},
		{http.StatusInternalServerError, errclass.IsNotResumable},
		{http.StatusUnauthorized, errclass.IsNotResumable},
		{http.StatusForbidden, errclass.IsNotResumable},
		{http.StatusServiceUnavailable, errclass.IsRetryable},
	}
	for _, tc := range cases {
		status := tc.status
		cli, svr := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})
		err := cli.FinalizeUpload(context.Background(), "obj-1")
		assert.Error(t, err, "status %d", status)
		assert.True(t, tc.check(err), "status %d got class %s", status, errclass.ClassOf(err))
		svr.Close()
	}
}

func TestClientRejectsBizError(t *testing.T) {
	cli, svr := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(&proxyutil.CommonResponse{Code: 1001, Message: "broken"})
	})
	defer svr.Close()

	err := cli.FinalizeUpload(context.Background(), "obj-1")
	assert.Error(t, err)
	assert.True(t, errclass.IsNotRetryable(err))
	assert.Contains(t, err.Error(), "broken")
}

func TestPartTransferUpload(t *testing.T) {
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		w.Header().Set("ETag", `"abc123"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer svr.Close()

	pt := NewPartTransfer()
	etag, err := pt.UploadPart(context.Background(), svr.URL, strings.NewReader("payload"), 7)
	assert.NoError(t, err)
	assert.Equal(t, "abc123", etag)
}

func TestPartTransferUploadClassifiesStoreErrors(t *testing.T) {
	cases := []struct {
		status int
		body   string
		check  func(err error) bool
	}{
		{http.StatusBadRequest, `<Error><Code>RequestTimeout</Code></Error>`, errclass.IsRetryable},
		{http.StatusBadRequest, `<Error><Code>InvalidPart</Code></Error>`, errclass.IsNotRetryable},
		{http.StatusForbidden, ``, errclass.IsNotRetryable},
		{http.StatusInternalServerError, ``, errclass.IsNotResumable},
	}
	for _, tc := range cases {
		status, body := tc.status, tc.body
		svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(body))
		}))
		pt := NewPartTransfer()
		_, err := pt.UploadPart(context.Background(), svr.URL, strings.NewReader("x"), 1)
		assert.Error(t, err)
		assert.True(t, tc.check(err), "status %d body %s got class %s", status, body, errclass.ClassOf(err))
		svr.Close()
	}
}

func TestPartTransferDownload(t *testing.T) {
	svr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("part-bytes"))
	}))
	defer svr.Close()

	pt := NewPartTransfer()
	body, err := pt.DownloadPart(context.Background(), svr.URL)
	assert.NoError(t, err)
	defer body.Close()
	buf := make([]byte, 32)
	n, _ := body.Read(buf)
	assert.Equal(t, "part-bytes", string(buf[:n]))
}
