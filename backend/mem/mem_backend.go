package mem

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/genostore/genostore/backend"
	"github.com/genostore/genostore/errclass"

	"github.com/google/uuid"
)

type session struct {
	objectKey string
	parts     map[int]*backend.AcceptedPart
}

// Backend is an in-memory object backend used by tests and local runs. URLs it
// issues are opaque mem:// strings; no bytes ever travel through them.
type Backend struct {
	lck       sync.Mutex
	sessions  map[string]*session
	documents map[string][]byte
	objects   map[string]int64
}

func New() *Backend {
	return &Backend{
		sessions:  make(map[string]*session),
		documents: make(map[string][]byte),
		objects:   make(map[string]int64),
	}
}

func (m *Backend) Name() string {
	return "mem"
}

func (m *Backend) InitiateMultipartUpload(ctx context.Context, objectKey string) (string, error) {
	m.lck.Lock()
	defer m.lck.Unlock()
	uploadId := uuid.NewString()
	m.sessions[uploadId] = &session{
		objectKey: objectKey,
		parts:     make(map[int]*backend.AcceptedPart),
	}
	return uploadId, nil
}

func (m *Backend) UploadPartURL(ctx context.Context, objectKey string, uploadId string, partNumber int, expires time.Duration) (string, error) {
	return fmt.Sprintf("mem://%s/%s/%d", objectKey, uploadId, partNumber), nil
}

func (m *Backend) DownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error) {
	return fmt.Sprintf("mem://%s", objectKey), nil
}

func (m *Backend) DownloadPartURL(ctx context.Context, objectKey string, offset int64, length int64, expires time.Duration) (string, error) {
	return fmt.Sprintf("mem://%s?offset=%d&length=%d", objectKey, offset, length), nil
}

func (m *Backend) ListParts(ctx context.Context, objectKey string, uploadId string, partNumberMarker int, maxParts int) ([]*backend.AcceptedPart, error) {
	m.lck.Lock()
	defer m.lck.Unlock()
	sess, ok := m.sessions[uploadId]
	if !ok {
		return nil, errclass.NotRetryable(fmt.Errorf("upload session not found, upload_id:%s", uploadId))
	}
	rs := make([]*backend.AcceptedPart, 0, len(sess.parts))
	for _, p := range sess.parts {
		if p.PartNumber <= partNumberMarker {
			continue
		}
		rs = append(rs, p)
	}
	sort.Slice(rs, func(i, j int) bool {
		return rs[i].PartNumber < rs[j].PartNumber
	})
	if maxParts > 0 && len(rs) > maxParts {
		rs = rs[:maxParts]
	}
	return rs, nil
}

func (m *Backend) CompleteMultipartUpload(ctx context.Context, objectKey string, uploadId string, parts []*backend.AcceptedPart) error {
	m.lck.Lock()
	defer m.lck.Unlock()
	sess, ok := m.sessions[uploadId]
	if !ok {
		return errclass.NotRetryable(fmt.Errorf("upload session not found, upload_id:%s", uploadId))
	}
	var total int64
	for _, p := range parts {
		accepted, ok := sess.parts[p.PartNumber]
		if !ok || accepted.Etag != p.Etag {
			return errclass.NotRetryable(fmt.Errorf("invalid part, part_number:%d", p.PartNumber))
		}
		total += accepted.Size
	}
	m.objects[sess.objectKey] = total
	delete(m.sessions, uploadId)
	return nil
}

func (m *Backend) AbortMultipartUpload(ctx context.Context, objectKey string, uploadId string) error {
	m.lck.Lock()
	defer m.lck.Unlock()
	delete(m.sessions, uploadId)
	return nil
}

func (m *Backend) GetDocument(ctx context.Context, key string) ([]byte, error) {
	m.lck.Lock()
	defer m.lck.Unlock()
	raw, ok := m.documents[key]
	if !ok {
		return nil, backend.ErrDocumentNotFound
	}
	cp := make([]byte, len(raw))
	copy(cp, raw)
	return cp, nil
}

func (m *Backend) PutDocument(ctx context.Context, key string, raw []byte) error {
	m.lck.Lock()
	defer m.lck.Unlock()
	cp := make([]byte, len(raw))
	copy(cp, raw)
	m.documents[key] = cp
	return nil
}

func (m *Backend) StatDocument(ctx context.Context, key string) (bool, error) {
	m.lck.Lock()
	defer m.lck.Unlock()
	_, ok := m.documents[key]
	return ok, nil
}

func (m *Backend) DeleteDocument(ctx context.Context, key string) error {
	m.lck.Lock()
	defer m.lck.Unlock()
	delete(m.documents, key)
	return nil
}

// PutPart records a part as accepted by the store, standing in for the data
// upload a real client performs against the pre-signed URL.
func (m *Backend) PutPart(uploadId string, partNumber int, etag string, size int64) error {
	m.lck.Lock()
	defer m.lck.Unlock()
	sess, ok := m.sessions[uploadId]
	if !ok {
		return fmt.Errorf("upload session not found, upload_id:%s", uploadId)
	}
	sess.parts[partNumber] = &backend.AcceptedPart{
		PartNumber: partNumber,
		Etag:       etag,
		Size:       size,
	}
	return nil
}

// HasObject reports whether a committed object exists for objectKey.
func (m *Backend) HasObject(objectKey string) bool {
	m.lck.Lock()
	defer m.lck.Unlock()
	_, ok := m.objects[objectKey]
	return ok
}

// HasSession reports whether a multipart session is still open.
func (m *Backend) HasSession(uploadId string) bool {
	m.lck.Lock()
	defer m.lck.Unlock()
	_, ok := m.sessions[uploadId]
	return ok
}

func create(args interface{}) (backend.IObjectBackend, error) {
	return New(), nil
}

func init() {
	backend.Register("mem", create)
}
