package server

import (
	"github.com/genostore/genostore/server/handler/object"
	"github.com/genostore/genostore/server/middleware"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/webapi"
)

func init() {
	gin.SetMode(gin.ReleaseMode)
}

type Server struct {
	c      *config
	engine webapi.IWebEngine
}

func New(bind string, opts ...Option) (*Server, error) {
	c := applyOpts(opts...)
	svr := &Server{c: c}
	var err error
	svr.engine, err = webapi.NewEngine("/", bind, webapi.WithRegister(svr.initAPI))
	if err != nil {
		return nil, err
	}
	return svr, nil
}

func (s *Server) initAPI(router *gin.RouterGroup) {
	tokenMiddleware := middleware.AccessTokenMiddleware()

	// handler here
	objectHandler := object.NewHandler(s.c.uploadSvc, s.c.downloadSvc, s.c.gate)

	uploadRouter := router.Group("/upload", tokenMiddleware)
	{
		uploadRouter.POST("/:object_id/uploads", objectHandler.InitiateUpload)
		uploadRouter.GET("/:object_id/status", objectHandler.GetUploadProgress)
		uploadRouter.POST("/:object_id/parts", objectHandler.FinalizeUploadPart)
		uploadRouter.DELETE("/:object_id/parts", objectHandler.DeleteUploadPart)
		uploadRouter.POST("/:object_id", objectHandler.FinalizeUpload)
		uploadRouter.POST("/:object_id/recovery", objectHandler.RecoverUpload)
		uploadRouter.DELETE("/:object_id", objectHandler.CancelUpload)
	}
	downloadRouter := router.Group("/download", tokenMiddleware)
	{
		downloadRouter.GET("/:object_id", objectHandler.ResolveDownload)
		downloadRouter.GET("/:object_id/url", objectHandler.DownloadURL)
		downloadRouter.GET("/:object_id/exists", objectHandler.ObjectExists)
		downloadRouter.GET("/:object_id/info", objectHandler.ObjectInfo)
	}
}

func (s *Server) Run() error {
	return s.engine.Run()
}
