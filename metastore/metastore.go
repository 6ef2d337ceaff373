// Package metastore persists finalized object metadata as small json documents
// in the backend's state area. The document is the durable record of an
// object: its part layout and checksums, stripped of live URLs.
package metastore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/genostore/genostore/backend"
	"github.com/genostore/genostore/entity"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

var ErrObjectNotRegistered = errors.New("object metadata not found")

const metaSuffix = ".meta"

type Store struct {
	bk      backend.IObjectBackend
	dataDir string
}

// New builds a metadata store writing under dataDir. Loads also fall back to
// the root layout used before dataDir partitioning existed, so old deployments
// keep resolving without a migration.
func New(bk backend.IObjectBackend, dataDir string) *Store {
	return &Store{bk: bk, dataDir: dataDir}
}

// ObjectKey is the backend key of the object data for objectId.
func (s *Store) ObjectKey(objectId string) string {
	if len(s.dataDir) == 0 {
		return objectId
	}
	return s.dataDir + "/" + objectId
}

func (s *Store) metaKey(objectId string) string {
	return s.ObjectKey(objectId) + metaSuffix
}

func (s *Store) legacyMetaKey(objectId string) string {
	return objectId + metaSuffix
}

// Save writes the metadata document at the primary key.
func (s *Store) Save(ctx context.Context, spec *entity.ObjectSpecification) error {
	raw, err := json.Marshal(spec)
	if err != nil {
		return fmt.Errorf("encode object meta failed, err:%w", err)
	}
	if err := s.bk.PutDocument(ctx, s.metaKey(spec.ObjectId), raw); err != nil {
		return fmt.Errorf("save object meta failed, object_id:%s, err:%w", spec.ObjectId, err)
	}
	return nil
}

// Load reads the metadata document for objectId, trying the primary key first
// and the legacy key second. A hit on the legacy key sets IsRelocated so the
// caller can issue URLs against the legacy object location.
func (s *Store) Load(ctx context.Context, objectId string) (*entity.ObjectSpecification, error) {
	raw, err := s.bk.GetDocument(ctx, s.metaKey(objectId))
	relocated := false
	if errors.Is(err, backend.ErrDocumentNotFound) && len(s.dataDir) != 0 {
		raw, err = s.bk.GetDocument(ctx, s.legacyMetaKey(objectId))
		relocated = true
	}
	if errors.Is(err, backend.ErrDocumentNotFound) {
		return nil, ErrObjectNotRegistered
	}
	if err != nil {
		return nil, fmt.Errorf("load object meta failed, object_id:%s, err:%w", objectId, err)
	}
	spec := &entity.ObjectSpecification{}
	if err := json.Unmarshal(raw, spec); err != nil {
		return nil, fmt.Errorf("decode object meta failed, object_id:%s, err:%w", objectId, err)
	}
	spec.IsRelocated = relocated
	if spec.HasMixedChecksums() {
		logutil.GetLogger(ctx).Warn("object meta carries partial part checksums",
			zap.String("object_id", objectId))
	}
	return spec, nil
}

// Exists reports whether a metadata document is registered for objectId under
// either key layout.
func (s *Store) Exists(ctx context.Context, objectId string) (bool, error) {
	ok, err := s.bk.StatDocument(ctx, s.metaKey(objectId))
	if err != nil {
		return false, fmt.Errorf("stat object meta failed, object_id:%s, err:%w", objectId, err)
	}
	if ok || len(s.dataDir) == 0 {
		return ok, nil
	}
	ok, err = s.bk.StatDocument(ctx, s.legacyMetaKey(objectId))
	if err != nil {
		return false, fmt.Errorf("stat legacy object meta failed, object_id:%s, err:%w", objectId, err)
	}
	return ok, nil
}

// Delete removes the metadata document at the primary key.
func (s *Store) Delete(ctx context.Context, objectId string) error {
	if err := s.bk.DeleteDocument(ctx, s.metaKey(objectId)); err != nil {
		return fmt.Errorf("delete object meta failed, object_id:%s, err:%w", objectId, err)
	}
	return nil
}
