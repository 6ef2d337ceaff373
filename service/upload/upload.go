// Package upload implements the server side of the multipart upload protocol:
// session initiation, per-part acknowledgement, and finalization into a
// registered object.
package upload

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/genostore/genostore/backend"
	"github.com/genostore/genostore/dao"
	"github.com/genostore/genostore/entity"
	"github.com/genostore/genostore/errclass"
	"github.com/genostore/genostore/metastore"
	"github.com/genostore/genostore/partition"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

var ErrSessionNotFound = errors.New("upload session not found")

type Config struct {
	// PartSize is the preferred upload part size in bytes; the calculator may
	// grow it to respect the store's part-count ceiling.
	PartSize int64 `json:"part_size"`
	// URLExpiry bounds the validity of issued pre-signed URLs.
	URLExpiry time.Duration `json:"-"`
}

type InitiateRequest struct {
	ObjectId  string
	FileSize  int64
	Md5       string
	Overwrite bool
}

type IUploadService interface {
	// Initiate opens a new upload session and returns the part layout with
	// pre-signed URLs. An existing open session for the same object id is
	// superseded.
	Initiate(ctx context.Context, req *InitiateRequest) (*entity.ObjectSpecification, error)
	// GetProgress reports which parts of an open session the server has
	// acknowledged, so a restarted client can skip them.
	GetProgress(ctx context.Context, objectId string, fileSize int64) (*entity.UploadProgress, error)
	// FinalizePart records a transferred part after verifying the store
	// actually accepted it with the claimed etag.
	FinalizePart(ctx context.Context, objectId string, partNumber int, md5 string, etag string) error
	// Finalize commits the session. Every part must be acknowledged first.
	Finalize(ctx context.Context, objectId string) error
	// Recover re-issues the specification of an open session with fresh URLs.
	Recover(ctx context.Context, objectId string, fileSize int64) (*entity.ObjectSpecification, error)
	// Cancel aborts the session on the store and drops all server-side state.
	Cancel(ctx context.Context, objectId string) error
	// DeletePart discards the acknowledgement of one part so the client can
	// transfer it again.
	DeletePart(ctx context.Context, objectId string, partNumber int) error
}

type uploadServiceImpl struct {
	c          *Config
	bk         backend.IObjectBackend
	meta       *metastore.Store
	sessionDao dao.IUploadSessionDao
	partDao    dao.IUploadPartDao
	calc       *partition.Calculator
}

func New(c *Config, bk backend.IObjectBackend, meta *metastore.Store,
	sessionDao dao.IUploadSessionDao, partDao dao.IUploadPartDao) IUploadService {

	return &uploadServiceImpl{
		c:          c,
		bk:         bk,
		meta:       meta,
		sessionDao: sessionDao,
		partDao:    partDao,
		calc:       partition.NewCalculator(c.PartSize),
	}
}

func (s *uploadServiceImpl) Initiate(ctx context.Context, req *InitiateRequest) (*entity.ObjectSpecification, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("object_id", req.ObjectId))
	if req.FileSize <= 0 {
		return nil, errclass.NotRetryable(fmt.Errorf("refuse zero-size upload, object_id:%s", req.ObjectId))
	}
	exist, err := s.meta.Exists(ctx, req.ObjectId)
	if err != nil {
		return nil, err
	}
	if exist && !req.Overwrite {
		return nil, errclass.NotResumable(fmt.Errorf("object already registered, object_id:%s", req.ObjectId))
	}
	if err := s.supersedeSession(ctx, req.ObjectId); err != nil {
		return nil, err
	}
	objectKey := s.meta.ObjectKey(req.ObjectId)
	uploadId, err := s.bk.InitiateMultipartUpload(ctx, objectKey)
	if err != nil {
		return nil, fmt.Errorf("initiate multipart session failed, err:%w", err)
	}
	parts := s.calc.Divide(0, req.FileSize)
	if len(parts) == 0 {
		return nil, errclass.NotRetryable(fmt.Errorf("empty part layout, object_id:%s", req.ObjectId))
	}
	if err := s.fillUploadURLs(ctx, objectKey, uploadId, parts); err != nil {
		return nil, err
	}
	if _, err := s.sessionDao.CreateUploadSession(ctx, &entity.CreateUploadSessionRequest{
		ObjectId:  req.ObjectId,
		UploadId:  uploadId,
		ObjectKey: objectKey,
		FileSize:  req.FileSize,
		PartCount: int32(len(parts)),
		ObjectMd5: req.Md5,
	}); err != nil {
		return nil, fmt.Errorf("save upload session failed, err:%w", err)
	}
	logger.Info("upload session initiated",
		zap.String("upload_id", uploadId),
		zap.Int64("file_size", req.FileSize),
		zap.Int("part_count", len(parts)))
	return &entity.ObjectSpecification{
		ObjectKey:  objectKey,
		ObjectId:   req.ObjectId,
		UploadId:   uploadId,
		Parts:      parts,
		ObjectSize: req.FileSize,
		ObjectMd5:  req.Md5,
	}, nil
}

// supersedeSession aborts and forgets any session previously opened for the
// object id. The abort is best effort; the store reaps orphaned sessions on
// its own schedule.
func (s *uploadServiceImpl) supersedeSession(ctx context.Context, objectId string) error {
	rsp, err := s.sessionDao.GetUploadSession(ctx, &entity.GetUploadSessionRequest{ObjectId: objectId})
	if err != nil {
		return fmt.Errorf("query previous session failed, err:%w", err)
	}
	if rsp.Item == nil {
		return nil
	}
	if err := s.bk.AbortMultipartUpload(ctx, rsp.Item.ObjectKey, rsp.Item.UploadId); err != nil {
		logutil.GetLogger(ctx).Warn("abort superseded session failed",
			zap.String("object_id", objectId),
			zap.String("upload_id", rsp.Item.UploadId),
			zap.Error(err))
	}
	if _, err := s.partDao.DeleteUploadPart(ctx, &entity.DeleteUploadPartRequest{
		ObjectId: objectId,
		UploadId: rsp.Item.UploadId,
	}); err != nil {
		return fmt.Errorf("clear superseded part records failed, err:%w", err)
	}
	return nil
}

func (s *uploadServiceImpl) fillUploadURLs(ctx context.Context, objectKey string, uploadId string, parts []*entity.Part) error {
	for _, p := range parts {
		link, err := s.bk.UploadPartURL(ctx, objectKey, uploadId, p.PartNumber, s.c.URLExpiry)
		if err != nil {
			return fmt.Errorf("sign part url failed, part_number:%d, err:%w", p.PartNumber, err)
		}
		p.URL = link
	}
	return nil
}

func (s *uploadServiceImpl) mustGetSession(ctx context.Context, objectId string) (*entity.UploadSessionItem, error) {
	rsp, err := s.sessionDao.GetUploadSession(ctx, &entity.GetUploadSessionRequest{ObjectId: objectId})
	if err != nil {
		return nil, fmt.Errorf("query upload session failed, err:%w", err)
	}
	if rsp.Item == nil {
		return nil, errclass.NotRetryable(fmt.Errorf("%w, object_id:%s", ErrSessionNotFound, objectId))
	}
	return rsp.Item, nil
}

func (s *uploadServiceImpl) GetProgress(ctx context.Context, objectId string, fileSize int64) (*entity.UploadProgress, error) {
	sess, err := s.mustGetSession(ctx, objectId)
	if err != nil {
		return nil, err
	}
	if sess.FileSize != fileSize {
		return nil, errclass.NotRetryable(fmt.Errorf("file size changed since initiate, object_id:%s, was:%d, now:%d",
			objectId, sess.FileSize, fileSize))
	}
	parts := s.calc.Divide(0, sess.FileSize)
	records, err := s.partDao.ListUploadPart(ctx, &entity.ListUploadPartRequest{
		ObjectId: objectId,
		UploadId: sess.UploadId,
	})
	if err != nil {
		return nil, fmt.Errorf("list part records failed, err:%w", err)
	}
	byNumber := make(map[int]*entity.UploadPartItem, len(records.List))
	for _, rec := range records.List {
		byNumber[int(rec.PartNumber)] = rec
	}
	for _, p := range parts {
		rec, ok := byNumber[p.PartNumber]
		if !ok {
			continue
		}
		p.Md5 = rec.Etag
		p.Etag = rec.Etag
		p.SourceMd5 = rec.SourceMd5
	}
	return &entity.UploadProgress{
		ObjectId: objectId,
		UploadId: sess.UploadId,
		Parts:    parts,
	}, nil
}

func (s *uploadServiceImpl) FinalizePart(ctx context.Context, objectId string, partNumber int, md5 string, etag string) error {
	if len(md5) == 0 || len(etag) == 0 {
		return errclass.NotRetryable(fmt.Errorf("part checksum and etag are required, object_id:%s, part_number:%d", objectId, partNumber))
	}
	sess, err := s.mustGetSession(ctx, objectId)
	if err != nil {
		return err
	}
	accepted, err := s.bk.ListParts(ctx, sess.ObjectKey, sess.UploadId, partNumber-1, 1)
	if err != nil {
		return fmt.Errorf("verify part on store failed, err:%w", err)
	}
	if len(accepted) == 0 || accepted[0].PartNumber != partNumber || accepted[0].Etag != etag {
		return errclass.NotRetryable(fmt.Errorf("store has no matching part, object_id:%s, part_number:%d, etag:%s",
			objectId, partNumber, etag))
	}
	if _, err := s.partDao.SaveUploadPart(ctx, &entity.SaveUploadPartRequest{
		ObjectId:   objectId,
		UploadId:   sess.UploadId,
		PartNumber: int32(partNumber),
		SourceMd5:  md5,
		Etag:       etag,
	}); err != nil {
		return fmt.Errorf("save part record failed, err:%w", err)
	}
	return nil
}

func (s *uploadServiceImpl) Finalize(ctx context.Context, objectId string) error {
	logger := logutil.GetLogger(ctx).With(zap.String("object_id", objectId))
	sess, err := s.mustGetSession(ctx, objectId)
	if err != nil {
		return err
	}
	records, err := s.partDao.ListUploadPart(ctx, &entity.ListUploadPartRequest{
		ObjectId: objectId,
		UploadId: sess.UploadId,
	})
	if err != nil {
		return fmt.Errorf("list part records failed, err:%w", err)
	}
	if len(records.List) < int(sess.PartCount) {
		return errclass.Retryable(fmt.Errorf("session incomplete, object_id:%s, acknowledged:%d, want:%d",
			objectId, len(records.List), sess.PartCount))
	}
	parts := s.calc.Divide(0, sess.FileSize)
	accepted := make([]*backend.AcceptedPart, 0, len(records.List))
	byNumber := make(map[int]*entity.UploadPartItem, len(records.List))
	for _, rec := range records.List {
		byNumber[int(rec.PartNumber)] = rec
		accepted = append(accepted, &backend.AcceptedPart{
			PartNumber: int(rec.PartNumber),
			Etag:       rec.Etag,
		})
	}
	for _, p := range parts {
		rec, ok := byNumber[p.PartNumber]
		if !ok {
			return errclass.Retryable(fmt.Errorf("part not acknowledged, object_id:%s, part_number:%d", objectId, p.PartNumber))
		}
		p.Md5 = rec.Etag
		p.Etag = rec.Etag
		p.SourceMd5 = rec.SourceMd5
	}
	if err := s.bk.CompleteMultipartUpload(ctx, sess.ObjectKey, sess.UploadId, accepted); err != nil {
		return fmt.Errorf("complete multipart session failed, err:%w", err)
	}
	if err := s.meta.Save(ctx, &entity.ObjectSpecification{
		ObjectKey:  sess.ObjectKey,
		ObjectId:   objectId,
		Parts:      parts,
		ObjectSize: sess.FileSize,
		ObjectMd5:  sess.ObjectMd5,
	}); err != nil {
		return err
	}
	if err := s.dropSession(ctx, objectId, sess.UploadId); err != nil {
		logger.Warn("drop finalized session state failed", zap.Error(err))
	}
	logger.Info("upload finalized",
		zap.String("upload_id", sess.UploadId),
		zap.Int64("file_size", sess.FileSize),
		zap.Int32("part_count", sess.PartCount))
	return nil
}

func (s *uploadServiceImpl) dropSession(ctx context.Context, objectId string, uploadId string) error {
	if _, err := s.partDao.DeleteUploadPart(ctx, &entity.DeleteUploadPartRequest{
		ObjectId: objectId,
		UploadId: uploadId,
	}); err != nil {
		return fmt.Errorf("delete part records failed, err:%w", err)
	}
	if _, err := s.sessionDao.DeleteUploadSession(ctx, &entity.DeleteUploadSessionRequest{ObjectId: objectId}); err != nil {
		return fmt.Errorf("delete session record failed, err:%w", err)
	}
	return nil
}

func (s *uploadServiceImpl) Recover(ctx context.Context, objectId string, fileSize int64) (*entity.ObjectSpecification, error) {
	sess, err := s.mustGetSession(ctx, objectId)
	if err != nil {
		return nil, err
	}
	if sess.FileSize != fileSize {
		return nil, errclass.NotResumable(fmt.Errorf("file size changed since initiate, object_id:%s, was:%d, now:%d",
			objectId, sess.FileSize, fileSize))
	}
	parts := s.calc.Divide(0, sess.FileSize)
	if err := s.fillUploadURLs(ctx, sess.ObjectKey, sess.UploadId, parts); err != nil {
		return nil, err
	}
	return &entity.ObjectSpecification{
		ObjectKey:  sess.ObjectKey,
		ObjectId:   objectId,
		UploadId:   sess.UploadId,
		Parts:      parts,
		ObjectSize: sess.FileSize,
		ObjectMd5:  sess.ObjectMd5,
	}, nil
}

func (s *uploadServiceImpl) Cancel(ctx context.Context, objectId string) error {
	sess, err := s.mustGetSession(ctx, objectId)
	if err != nil {
		return err
	}
	if err := s.bk.AbortMultipartUpload(ctx, sess.ObjectKey, sess.UploadId); err != nil {
		return fmt.Errorf("abort multipart session failed, err:%w", err)
	}
	if err := s.dropSession(ctx, objectId, sess.UploadId); err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("upload cancelled",
		zap.String("object_id", objectId),
		zap.String("upload_id", sess.UploadId))
	return nil
}

func (s *uploadServiceImpl) DeletePart(ctx context.Context, objectId string, partNumber int) error {
	sess, err := s.mustGetSession(ctx, objectId)
	if err != nil {
		return err
	}
	if _, err := s.partDao.DeleteUploadPart(ctx, &entity.DeleteUploadPartRequest{
		ObjectId:   objectId,
		UploadId:   sess.UploadId,
		PartNumber: []int32{int32(partNumber)},
	}); err != nil {
		return fmt.Errorf("delete part record failed, err:%w", err)
	}
	return nil
}
