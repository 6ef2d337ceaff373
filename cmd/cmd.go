package main

import (
	"flag"
	"time"

	"github.com/genostore/genostore/authz"
	"github.com/genostore/genostore/backend"
	_ "github.com/genostore/genostore/backend/register"
	"github.com/genostore/genostore/config"
	"github.com/genostore/genostore/dao"
	daocache "github.com/genostore/genostore/dao/cache"
	"github.com/genostore/genostore/db"
	"github.com/genostore/genostore/metadata"
	"github.com/genostore/genostore/metastore"
	"github.com/genostore/genostore/server"
	"github.com/genostore/genostore/service/download"
	"github.com/genostore/genostore/service/upload"

	"github.com/xxxsen/common/logger"
	"go.uber.org/zap"
)

var file = flag.String("config", "./config.json", "config file path")

func main() {
	flag.Parse()

	c, err := config.Parse(*file)
	if err != nil {
		panic(err)
	}
	logitem := c.LogInfo
	logger := logger.Init(logitem.File, logitem.Level, int(logitem.FileCount), int(logitem.FileSize), int(logitem.KeepDays), logitem.Console)
	logger.Info("recv config", zap.Any("config", c))
	logger.Info("current available backend", zap.Strings("list", backend.List()))
	logger.Info("current use backend impl", zap.String("name", c.BackendKind))
	if err := db.InitDB(c.DBFile); err != nil {
		logger.Fatal("init session db fail", zap.Error(err))
	}
	bk, err := backend.Create(c.BackendKind, c.BackendInfo)
	if err != nil {
		logger.Fatal("init object backend fail", zap.Error(err))
	}
	meta := metastore.New(bk, c.Transfer.DataDir)
	sessionDao := daocache.NewUploadSessionDao(dao.NewUploadSessionDao(db.GetClient()))
	partDao := dao.NewUploadPartDao(db.GetClient())
	urlExpiry := time.Duration(c.Transfer.URLExpirySec) * time.Second
	uploadSvc := upload.New(&upload.Config{
		PartSize:  c.Transfer.UploadPartSize,
		URLExpiry: urlExpiry,
	}, bk, meta, sessionDao, partDao)
	downloadSvc := download.New(&download.Config{
		PartSize:  c.Transfer.DownloadPartSize,
		URLExpiry: urlExpiry,
	}, bk, meta)
	metaCli, err := metadata.New(c.Metadata.Endpoint)
	if err != nil {
		logger.Fatal("init metadata client fail", zap.Error(err))
	}
	gate := authz.NewGate(&c.Auth, metaCli)
	svr, err := server.New(c.Bind,
		server.WithUploadService(uploadSvc),
		server.WithDownloadService(downloadSvc),
		server.WithAuthGate(gate),
	)
	if err != nil {
		logger.Fatal("init server fail", zap.Error(err))
	}
	logger.Info("init server succ, start it...")
	if err := svr.Run(); err != nil {
		logger.Fatal("run server fail", zap.Error(err))
	}
}
