package object

import (
	"fmt"
	"net/http"

	"github.com/genostore/genostore/server/middleware"
	"github.com/genostore/genostore/server/model"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/webapi/proxyutil"
)

func (h *Handler) ResolveDownload(c *gin.Context) {
	ctx := c.Request.Context()
	objectId := c.Param("object_id")
	if err := h.gate.AuthorizeDownload(ctx, middleware.GetAccessToken(c), objectId); err != nil {
		failWithError(c, err)
		return
	}
	req := &model.ResolveDownloadRequest{}
	if err := c.ShouldBindQuery(req); err != nil {
		proxyutil.FailJson(c, http.StatusBadRequest, fmt.Errorf("decode resolve request failed, err:%w", err))
		return
	}
	length := int64(-1)
	if req.Length != nil {
		length = *req.Length
	}
	spec, err := h.downloadSvc.Resolve(ctx, objectId, req.Offset, length, req.External)
	if err != nil {
		failWithError(c, err)
		return
	}
	proxyutil.SuccessJson(c, spec)
}

func (h *Handler) DownloadURL(c *gin.Context) {
	ctx := c.Request.Context()
	objectId := c.Param("object_id")
	if err := h.gate.AuthorizeDownload(ctx, middleware.GetAccessToken(c), objectId); err != nil {
		failWithError(c, err)
		return
	}
	link, err := h.downloadSvc.URL(ctx, objectId)
	if err != nil {
		failWithError(c, err)
		return
	}
	proxyutil.SuccessJson(c, &model.DownloadURLResponse{URL: link})
}

// ObjectExists needs no authorization; it leaks only whether an id is
// registered, which the metadata registry already exposes.
func (h *Handler) ObjectExists(c *gin.Context) {
	ctx := c.Request.Context()
	objectId := c.Param("object_id")
	exist, err := h.downloadSvc.Exists(ctx, objectId)
	if err != nil {
		failWithError(c, err)
		return
	}
	proxyutil.SuccessJson(c, &model.ObjectExistsResponse{Exist: exist})
}

func (h *Handler) ObjectInfo(c *gin.Context) {
	ctx := c.Request.Context()
	objectId := c.Param("object_id")
	if err := h.gate.AuthorizeDownload(ctx, middleware.GetAccessToken(c), objectId); err != nil {
		failWithError(c, err)
		return
	}
	spec, err := h.downloadSvc.Info(ctx, objectId)
	if err != nil {
		failWithError(c, err)
		return
	}
	proxyutil.SuccessJson(c, &model.ObjectInfoResponse{
		Spec:      spec,
		Relocated: spec.IsRelocated,
	})
}
