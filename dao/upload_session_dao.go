package dao

import (
	"context"
	"fmt"
	"time"

	"github.com/genostore/genostore/entity"

	"github.com/didi/gendry/builder"
	"github.com/xxxsen/common/database"
	"github.com/xxxsen/common/database/dbkit"
)

type IUploadSessionDao interface {
	CreateUploadSession(ctx context.Context, req *entity.CreateUploadSessionRequest) (*entity.CreateUploadSessionResponse, error)
	GetUploadSession(ctx context.Context, req *entity.GetUploadSessionRequest) (*entity.GetUploadSessionResponse, error)
	DeleteUploadSession(ctx context.Context, req *entity.DeleteUploadSessionRequest) (*entity.DeleteUploadSessionResponse, error)
}

type uploadSessionDaoImpl struct {
	dbc database.IDatabase
}

func NewUploadSessionDao(dbc database.IDatabase) IUploadSessionDao {
	return &uploadSessionDaoImpl{
		dbc: dbc,
	}
}

func (d *uploadSessionDaoImpl) table() string {
	return "upload_session_tab"
}

// CreateUploadSession records a new open session for an object id. An existing
// record is overwritten; a freshly initiated session always supersedes the one
// it replaces.
func (d *uploadSessionDaoImpl) CreateUploadSession(ctx context.Context, req *entity.CreateUploadSessionRequest) (*entity.CreateUploadSessionResponse, error) {
	now := time.Now().UnixMilli()
	data := []map[string]interface{}{
		{
			"object_id":  req.ObjectId,
			"upload_id":  req.UploadId,
			"object_key": req.ObjectKey,
			"file_size":  req.FileSize,
			"part_count": req.PartCount,
			"object_md5": req.ObjectMd5,
			"ctime":      now,
			"mtime":      now,
		},
	}
	sql, args, err := builder.BuildInsert(d.table(), data)
	if err != nil {
		return nil, err
	}
	_, insertErr := d.dbc.ExecContext(ctx, sql, args...)
	if insertErr == nil {
		return &entity.CreateUploadSessionResponse{}, nil
	}
	where := map[string]interface{}{
		"object_id": req.ObjectId,
	}
	update := map[string]interface{}{
		"upload_id":  req.UploadId,
		"object_key": req.ObjectKey,
		"file_size":  req.FileSize,
		"part_count": req.PartCount,
		"object_md5": req.ObjectMd5,
		"mtime":      now,
	}
	sql, args, err = builder.BuildUpdate(d.table(), where, update)
	if err != nil {
		return nil, err
	}
	rs, err := d.dbc.ExecContext(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	affect, err := rs.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affect == 0 {
		return nil, fmt.Errorf("insert on duplicate key update no affect rows, insert err:%w", insertErr)
	}
	return &entity.CreateUploadSessionResponse{}, nil
}

func (d *uploadSessionDaoImpl) GetUploadSession(ctx context.Context, req *entity.GetUploadSessionRequest) (*entity.GetUploadSessionResponse, error) {
	where := map[string]interface{}{
		"object_id": req.ObjectId,
	}
	rs := make([]*entity.UploadSessionItem, 0, 1)
	if err := dbkit.SimpleQuery(ctx, d.dbc, d.table(), where, &rs, dbkit.ScanWithTagName("json")); err != nil {
		return nil, err
	}
	rsp := &entity.GetUploadSessionResponse{}
	if len(rs) > 0 {
		rsp.Item = rs[0]
	}
	return rsp, nil
}

func (d *uploadSessionDaoImpl) DeleteUploadSession(ctx context.Context, req *entity.DeleteUploadSessionRequest) (*entity.DeleteUploadSessionResponse, error) {
	where := map[string]interface{}{
		"object_id": req.ObjectId,
	}
	sql, args, err := builder.BuildDelete(d.table(), where)
	if err != nil {
		return nil, err
	}
	if _, err := d.dbc.ExecContext(ctx, sql, args...); err != nil {
		return nil, err
	}
	return &entity.DeleteUploadSessionResponse{}, nil
}
