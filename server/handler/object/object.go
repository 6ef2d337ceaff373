// Package object holds the transfer protocol handlers. Handlers only decode
// the wire shape, run the authorization gate and map service errors to HTTP
// statuses; all semantics live in the services.
package object

import (
	"errors"
	"net/http"

	"github.com/genostore/genostore/authz"
	"github.com/genostore/genostore/errclass"
	"github.com/genostore/genostore/metadata"
	"github.com/genostore/genostore/metastore"
	"github.com/genostore/genostore/service/download"
	"github.com/genostore/genostore/service/upload"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/webapi/proxyutil"
)

type Handler struct {
	uploadSvc   upload.IUploadService
	downloadSvc download.IDownloadService
	gate        *authz.Gate
}

func NewHandler(uploadSvc upload.IUploadService, downloadSvc download.IDownloadService, gate *authz.Gate) *Handler {
	return &Handler{
		uploadSvc:   uploadSvc,
		downloadSvc: downloadSvc,
		gate:        gate,
	}
}

// failWithError picks the HTTP status from the failure class so the client
// taxonomy survives the wire: 4xx aborts the operation, 500 kills the session,
// 503 invites a retry.
func failWithError(c *gin.Context, err error) {
	status := http.StatusServiceUnavailable
	switch {
	case errors.Is(err, authz.ErrInvalidToken):
		status = http.StatusUnauthorized
	case errors.Is(err, authz.ErrAccessDenied):
		status = http.StatusForbidden
	case errors.Is(err, metastore.ErrObjectNotRegistered),
		errors.Is(err, metadata.ErrEntityNotFound),
		errors.Is(err, upload.ErrSessionNotFound):
		status = http.StatusNotFound
	default:
		switch errclass.ClassOf(err) {
		case errclass.ClassNotRetryable:
			status = http.StatusBadRequest
		case errclass.ClassNotResumable:
			status = http.StatusInternalServerError
		}
	}
	proxyutil.FailJson(c, status, err)
}
