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

type IUploadPartDao interface {
	SaveUploadPart(ctx context.Context, req *entity.SaveUploadPartRequest) (*entity.SaveUploadPartResponse, error)
	GetUploadPart(ctx context.Context, req *entity.GetUploadPartRequest) (*entity.GetUploadPartResponse, error)
	ListUploadPart(ctx context.Context, req *entity.ListUploadPartRequest) (*entity.ListUploadPartResponse, error)
	DeleteUploadPart(ctx context.Context, req *entity.DeleteUploadPartRequest) (*entity.DeleteUploadPartResponse, error)
}

type uploadPartDaoImpl struct {
	dbc database.IDatabase
}

func NewUploadPartDao(dbc database.IDatabase) IUploadPartDao {
	return &uploadPartDaoImpl{
		dbc: dbc,
	}
}

func (d *uploadPartDaoImpl) table() string {
	return "upload_part_tab"
}

// SaveUploadPart upserts the finalize record of one part. Re-finalizing a part
// after a retried transfer replaces the previous checksum and etag.
func (d *uploadPartDaoImpl) SaveUploadPart(ctx context.Context, req *entity.SaveUploadPartRequest) (*entity.SaveUploadPartResponse, error) {
	now := time.Now().UnixMilli()
	data := []map[string]interface{}{
		{
			"object_id":   req.ObjectId,
			"upload_id":   req.UploadId,
			"part_number": req.PartNumber,
			"source_md5":  req.SourceMd5,
			"etag":        req.Etag,
			"ctime":       now,
			"mtime":       now,
		},
	}
	sql, args, err := builder.BuildInsert(d.table(), data)
	if err != nil {
		return nil, err
	}
	_, insertErr := d.dbc.ExecContext(ctx, sql, args...)
	if insertErr == nil {
		return &entity.SaveUploadPartResponse{}, nil
	}
	where := map[string]interface{}{
		"object_id":   req.ObjectId,
		"upload_id":   req.UploadId,
		"part_number": req.PartNumber,
	}
	update := map[string]interface{}{
		"source_md5": req.SourceMd5,
		"etag":       req.Etag,
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
	return &entity.SaveUploadPartResponse{}, nil
}

func (d *uploadPartDaoImpl) GetUploadPart(ctx context.Context, req *entity.GetUploadPartRequest) (*entity.GetUploadPartResponse, error) {
	where := map[string]interface{}{
		"object_id":      req.ObjectId,
		"upload_id":      req.UploadId,
		"part_number in": req.PartNumber,
	}
	rs := make([]*entity.UploadPartItem, 0, len(req.PartNumber))
	if err := dbkit.SimpleQuery(ctx, d.dbc, d.table(), where, &rs, dbkit.ScanWithTagName("json")); err != nil {
		return nil, err
	}
	return &entity.GetUploadPartResponse{List: rs}, nil
}

func (d *uploadPartDaoImpl) ListUploadPart(ctx context.Context, req *entity.ListUploadPartRequest) (*entity.ListUploadPartResponse, error) {
	where := map[string]interface{}{
		"object_id": req.ObjectId,
		"upload_id": req.UploadId,
		"_orderby":  "part_number asc",
	}
	rs := make([]*entity.UploadPartItem, 0, 16)
	if err := dbkit.SimpleQuery(ctx, d.dbc, d.table(), where, &rs, dbkit.ScanWithTagName("json")); err != nil {
		return nil, err
	}
	return &entity.ListUploadPartResponse{List: rs}, nil
}

func (d *uploadPartDaoImpl) DeleteUploadPart(ctx context.Context, req *entity.DeleteUploadPartRequest) (*entity.DeleteUploadPartResponse, error) {
	where := map[string]interface{}{
		"object_id": req.ObjectId,
		"upload_id": req.UploadId,
	}
	if len(req.PartNumber) > 0 {
		where["part_number in"] = req.PartNumber
	}
	sql, args, err := builder.BuildDelete(d.table(), where)
	if err != nil {
		return nil, err
	}
	if _, err := d.dbc.ExecContext(ctx, sql, args...); err != nil {
		return nil, err
	}
	return &entity.DeleteUploadPartResponse{}, nil
}
