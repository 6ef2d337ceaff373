// Package download resolves registered objects into part layouts with
// pre-signed GET URLs. Resolution is read-only; the object bytes never pass
// through the server.
package download

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/genostore/genostore/backend"
	"github.com/genostore/genostore/entity"
	"github.com/genostore/genostore/errclass"
	"github.com/genostore/genostore/metastore"
	"github.com/genostore/genostore/partition"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type Config struct {
	// PartSize is the preferred download part size for ranged resolutions.
	PartSize int64 `json:"part_size"`
	// URLExpiry bounds the validity of issued pre-signed URLs.
	URLExpiry time.Duration `json:"-"`
}

type IDownloadService interface {
	// Resolve returns the part layout for downloading [offset, offset+length)
	// of an object. length < 0 means through end of object. forExternalUse
	// yields URLs usable outside this client, without range semantics.
	Resolve(ctx context.Context, objectId string, offset int64, length int64, forExternalUse bool) (*entity.ObjectSpecification, error)
	// URL returns one pre-signed whole-object URL, for handing to tools that
	// cannot speak the part protocol.
	URL(ctx context.Context, objectId string) (string, error)
	// Exists reports whether the object is registered, and whether its
	// metadata lives at the legacy key layout.
	Exists(ctx context.Context, objectId string) (bool, error)
	// Info returns the stored metadata document without issuing URLs.
	Info(ctx context.Context, objectId string) (*entity.ObjectSpecification, error)
}

type downloadServiceImpl struct {
	c    *Config
	bk   backend.IObjectBackend
	meta *metastore.Store
	calc *partition.Calculator
}

func New(c *Config, bk backend.IObjectBackend, meta *metastore.Store) IDownloadService {
	return &downloadServiceImpl{
		c:    c,
		bk:   bk,
		meta: meta,
		calc: partition.NewCalculator(c.PartSize),
	}
}

func (s *downloadServiceImpl) loadSpec(ctx context.Context, objectId string) (*entity.ObjectSpecification, error) {
	spec, err := s.meta.Load(ctx, objectId)
	if errors.Is(err, metastore.ErrObjectNotRegistered) {
		return nil, errclass.NotRetryable(err)
	}
	if err != nil {
		return nil, err
	}
	// Relocated metadata means the object data also lives at the legacy key.
	if spec.IsRelocated {
		spec.ObjectKey = objectId
	}
	return spec, nil
}

func (s *downloadServiceImpl) Resolve(ctx context.Context, objectId string, offset int64, length int64, forExternalUse bool) (*entity.ObjectSpecification, error) {
	spec, err := s.loadSpec(ctx, objectId)
	if err != nil {
		return nil, err
	}
	if length < 0 {
		length = spec.ObjectSize - offset
	}
	if offset < 0 || length < 0 || offset+length > spec.ObjectSize {
		return nil, errclass.NotRetryable(fmt.Errorf("requested range exceeds object, object_id:%s, offset:%d, length:%d, object_size:%d",
			objectId, offset, length, spec.ObjectSize))
	}
	logutil.GetLogger(ctx).Debug("resolve download",
		zap.String("object_id", objectId),
		zap.Int64("offset", offset),
		zap.Int64("length", length),
		zap.Bool("external", forExternalUse),
		zap.Bool("relocated", spec.IsRelocated))
	wholeObject := offset == 0 && length == spec.ObjectSize
	switch {
	case forExternalUse:
		// External consumers get one un-ranged URL; they cannot be trusted to
		// carry custom headers.
		return s.resolveExternal(ctx, spec, offset, length)
	case wholeObject:
		// The stored layout already tiles the whole object and carries the
		// per-part checksums; only the URLs need re-issuing.
		return s.resolveStoredLayout(ctx, spec)
	default:
		return s.resolveRange(ctx, spec, offset, length)
	}
}

func (s *downloadServiceImpl) resolveExternal(ctx context.Context, spec *entity.ObjectSpecification, offset int64, length int64) (*entity.ObjectSpecification, error) {
	parts := s.calc.Specify(offset, length)
	link, err := s.bk.DownloadURL(ctx, spec.ObjectKey, s.c.URLExpiry)
	if err != nil {
		return nil, fmt.Errorf("sign download url failed, err:%w", err)
	}
	parts[0].URL = link
	return &entity.ObjectSpecification{
		ObjectKey:  spec.ObjectKey,
		ObjectId:   spec.ObjectId,
		Parts:      parts,
		ObjectSize: spec.ObjectSize,
		ObjectMd5:  spec.ObjectMd5,
	}, nil
}

func (s *downloadServiceImpl) resolveStoredLayout(ctx context.Context, spec *entity.ObjectSpecification) (*entity.ObjectSpecification, error) {
	entity.SortPartsByNumber(spec.Parts)
	for _, p := range spec.Parts {
		link, err := s.bk.DownloadPartURL(ctx, spec.ObjectKey, p.Offset, p.PartSize, s.c.URLExpiry)
		if err != nil {
			return nil, fmt.Errorf("sign part url failed, part_number:%d, err:%w", p.PartNumber, err)
		}
		p.URL = link
	}
	return spec, nil
}

func (s *downloadServiceImpl) resolveRange(ctx context.Context, spec *entity.ObjectSpecification, offset int64, length int64) (*entity.ObjectSpecification, error) {
	parts := s.calc.Divide(offset, length)
	for _, p := range parts {
		link, err := s.bk.DownloadPartURL(ctx, spec.ObjectKey, p.Offset, p.PartSize, s.c.URLExpiry)
		if err != nil {
			return nil, fmt.Errorf("sign part url failed, part_number:%d, err:%w", p.PartNumber, err)
		}
		p.URL = link
	}
	return &entity.ObjectSpecification{
		ObjectKey:  spec.ObjectKey,
		ObjectId:   spec.ObjectId,
		Parts:      parts,
		ObjectSize: spec.ObjectSize,
		ObjectMd5:  spec.ObjectMd5,
	}, nil
}

func (s *downloadServiceImpl) URL(ctx context.Context, objectId string) (string, error) {
	spec, err := s.loadSpec(ctx, objectId)
	if err != nil {
		return "", err
	}
	link, err := s.bk.DownloadURL(ctx, spec.ObjectKey, s.c.URLExpiry)
	if err != nil {
		return "", fmt.Errorf("sign download url failed, err:%w", err)
	}
	return link, nil
}

func (s *downloadServiceImpl) Exists(ctx context.Context, objectId string) (bool, error) {
	return s.meta.Exists(ctx, objectId)
}

func (s *downloadServiceImpl) Info(ctx context.Context, objectId string) (*entity.ObjectSpecification, error) {
	return s.loadSpec(ctx, objectId)
}
