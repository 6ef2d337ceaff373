package cache

import (
	"context"
	"time"

	"github.com/genostore/genostore/dao"
	"github.com/genostore/genostore/entity"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	defaultMaxSessionCacheSize    = 10000
	defaultSessionCacheExpireTime = 1 * time.Hour
)

// uploadSessionDao caches session lookups in front of the sqlite dao. The
// progress poll of every active client hits GetUploadSession on each part, so
// the read path dominates. Only positive hits are cached; mutation paths
// invalidate by object id.
type uploadSessionDao struct {
	dao.IUploadSessionDao
	cache *lru.LRU[string, *entity.UploadSessionItem]
}

func NewUploadSessionDao(impl dao.IUploadSessionDao) dao.IUploadSessionDao {
	cc := lru.NewLRU[string, *entity.UploadSessionItem](defaultMaxSessionCacheSize, nil, defaultSessionCacheExpireTime)
	return &uploadSessionDao{
		IUploadSessionDao: impl,
		cache:             cc,
	}
}

func (d *uploadSessionDao) CreateUploadSession(ctx context.Context, req *entity.CreateUploadSessionRequest) (*entity.CreateUploadSessionResponse, error) {
	defer d.cache.Remove(req.ObjectId)
	return d.IUploadSessionDao.CreateUploadSession(ctx, req)
}

func (d *uploadSessionDao) GetUploadSession(ctx context.Context, req *entity.GetUploadSessionRequest) (*entity.GetUploadSessionResponse, error) {
	if item, ok := d.cache.Get(req.ObjectId); ok {
		return &entity.GetUploadSessionResponse{Item: item}, nil
	}
	rsp, err := d.IUploadSessionDao.GetUploadSession(ctx, req)
	if err != nil {
		return nil, err
	}
	if rsp.Item != nil {
		d.cache.Add(req.ObjectId, rsp.Item)
	}
	return rsp, nil
}

func (d *uploadSessionDao) DeleteUploadSession(ctx context.Context, req *entity.DeleteUploadSessionRequest) (*entity.DeleteUploadSessionResponse, error) {
	defer d.cache.Remove(req.ObjectId)
	return d.IUploadSessionDao.DeleteUploadSession(ctx, req)
}
