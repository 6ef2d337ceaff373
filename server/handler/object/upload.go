package object

import (
	"fmt"
	"net/http"

	"github.com/genostore/genostore/server/middleware"
	"github.com/genostore/genostore/server/model"
	"github.com/genostore/genostore/service/upload"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi/proxyutil"
	"go.uber.org/zap"
)

func (h *Handler) InitiateUpload(c *gin.Context) {
	ctx := c.Request.Context()
	objectId := c.Param("object_id")
	if err := h.gate.AuthorizeUpload(ctx, middleware.GetAccessToken(c), objectId); err != nil {
		failWithError(c, err)
		return
	}
	req := &model.InitiateUploadRequest{}
	if err := c.ShouldBindQuery(req); err != nil {
		proxyutil.FailJson(c, http.StatusBadRequest, fmt.Errorf("decode initiate request failed, err:%w", err))
		return
	}
	logutil.GetLogger(ctx).Debug("recv initiate upload request",
		zap.String("object_id", objectId),
		zap.Int64("file_size", req.FileSize),
		zap.Bool("overwrite", req.Overwrite))
	spec, err := h.uploadSvc.Initiate(ctx, &upload.InitiateRequest{
		ObjectId:  objectId,
		FileSize:  req.FileSize,
		Md5:       req.Md5,
		Overwrite: req.Overwrite,
	})
	if err != nil {
		failWithError(c, err)
		return
	}
	proxyutil.SuccessJson(c, spec)
}

func (h *Handler) GetUploadProgress(c *gin.Context) {
	ctx := c.Request.Context()
	objectId := c.Param("object_id")
	if err := h.gate.AuthorizeUpload(ctx, middleware.GetAccessToken(c), objectId); err != nil {
		failWithError(c, err)
		return
	}
	req := &model.UploadProgressRequest{}
	if err := c.ShouldBindQuery(req); err != nil {
		proxyutil.FailJson(c, http.StatusBadRequest, fmt.Errorf("decode progress request failed, err:%w", err))
		return
	}
	progress, err := h.uploadSvc.GetProgress(ctx, objectId, req.FileSize)
	if err != nil {
		failWithError(c, err)
		return
	}
	proxyutil.SuccessJson(c, progress)
}

func (h *Handler) FinalizeUploadPart(c *gin.Context) {
	ctx := c.Request.Context()
	objectId := c.Param("object_id")
	if err := h.gate.AuthorizeUpload(ctx, middleware.GetAccessToken(c), objectId); err != nil {
		failWithError(c, err)
		return
	}
	req := &model.FinalizePartRequest{}
	if err := c.ShouldBindQuery(req); err != nil {
		proxyutil.FailJson(c, http.StatusBadRequest, fmt.Errorf("decode finalize part request failed, err:%w", err))
		return
	}
	if err := h.uploadSvc.FinalizePart(ctx, objectId, *req.PartNumber, req.Md5, req.Etag); err != nil {
		failWithError(c, err)
		return
	}
	proxyutil.SuccessJson(c, &model.FinalizePartResponse{})
}

func (h *Handler) DeleteUploadPart(c *gin.Context) {
	ctx := c.Request.Context()
	objectId := c.Param("object_id")
	if err := h.gate.AuthorizeUpload(ctx, middleware.GetAccessToken(c), objectId); err != nil {
		failWithError(c, err)
		return
	}
	req := &model.DeletePartRequest{}
	if err := c.ShouldBindQuery(req); err != nil {
		proxyutil.FailJson(c, http.StatusBadRequest, fmt.Errorf("decode delete part request failed, err:%w", err))
		return
	}
	if err := h.uploadSvc.DeletePart(ctx, objectId, *req.PartNumber); err != nil {
		failWithError(c, err)
		return
	}
	proxyutil.SuccessJson(c, &model.DeletePartResponse{})
}

func (h *Handler) FinalizeUpload(c *gin.Context) {
	ctx := c.Request.Context()
	objectId := c.Param("object_id")
	if err := h.gate.AuthorizeUpload(ctx, middleware.GetAccessToken(c), objectId); err != nil {
		failWithError(c, err)
		return
	}
	if err := h.uploadSvc.Finalize(ctx, objectId); err != nil {
		failWithError(c, err)
		return
	}
	proxyutil.SuccessJson(c, &model.FinalizeUploadResponse{})
}

func (h *Handler) RecoverUpload(c *gin.Context) {
	ctx := c.Request.Context()
	objectId := c.Param("object_id")
	if err := h.gate.AuthorizeUpload(ctx, middleware.GetAccessToken(c), objectId); err != nil {
		failWithError(c, err)
		return
	}
	req := &model.RecoverUploadRequest{}
	if err := c.ShouldBindQuery(req); err != nil {
		proxyutil.FailJson(c, http.StatusBadRequest, fmt.Errorf("decode recover request failed, err:%w", err))
		return
	}
	spec, err := h.uploadSvc.Recover(ctx, objectId, req.FileSize)
	if err != nil {
		failWithError(c, err)
		return
	}
	proxyutil.SuccessJson(c, spec)
}

func (h *Handler) CancelUpload(c *gin.Context) {
	ctx := c.Request.Context()
	objectId := c.Param("object_id")
	if err := h.gate.AuthorizeUpload(ctx, middleware.GetAccessToken(c), objectId); err != nil {
		failWithError(c, err)
		return
	}
	if err := h.uploadSvc.Cancel(ctx, objectId); err != nil {
		failWithError(c, err)
		return
	}
	proxyutil.SuccessJson(c, &model.CancelUploadResponse{})
}
