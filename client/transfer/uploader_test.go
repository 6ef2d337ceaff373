package transfer

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/genostore/genostore/client/remote"
	"github.com/genostore/genostore/entity"
	"github.com/genostore/genostore/errclass"
	"github.com/genostore/genostore/uploadstate"

	"github.com/stretchr/testify/assert"
)

func md5hex(b []byte) string {
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:])
}

// fakeUploadServer is both the control plane (remote.IStorageClient) and the
// data plane (an http server accepting part PUTs) for one object.
type fakeUploadServer struct {
	mu           sync.Mutex
	srv          *httptest.Server
	fileSize     int64
	partSize     int64
	uploadId     string
	sessionSeq   int
	records      map[int]string
	data         map[int][]byte
	puts         map[int]int
	deletedParts []int
	finalized    bool
	cancelled    bool
	corruptEtag  bool
	progressErr  error
}

func newFakeUploadServer(fileSize int64, partSize int64) *fakeUploadServer {
	f := &fakeUploadServer{
		fileSize: fileSize,
		partSize: partSize,
		records:  map[int]string{},
		data:     map[int][]byte{},
		puts:     map[int]int{},
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handlePut))
	return f
}

func (f *fakeUploadServer) Close() {
	f.srv.Close()
}

func (f *fakeUploadServer) handlePut(w http.ResponseWriter, r *http.Request) {
	partNumber, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/parts/"))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	f.mu.Lock()
	f.data[partNumber] = raw
	f.puts[partNumber]++
	corrupt := f.corruptEtag
	f.mu.Unlock()
	etag := md5hex(raw)
	if corrupt {
		etag = "feedfacefeedfacefeedfacefeedface"
	}
	w.Header().Set("ETag", `"`+etag+`"`)
	w.WriteHeader(http.StatusOK)
}

func (f *fakeUploadServer) layout() []*entity.Part {
	var parts []*entity.Part
	number := 1
	for off := int64(0); off < f.fileSize; off += f.partSize {
		size := f.partSize
		if off+size > f.fileSize {
			size = f.fileSize - off
		}
		parts = append(parts, &entity.Part{
			PartNumber: number,
			PartSize:   size,
			Offset:     off,
			URL:        fmt.Sprintf("%s/parts/%d", f.srv.URL, number),
		})
		number++
	}
	return parts
}

// openSession seeds an existing multipart session.
func (f *fakeUploadServer) openSession(uploadId string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploadId = uploadId
}

// completePart marks a part as acknowledged by the server with the given etag.
func (f *fakeUploadServer) completePart(partNumber int, etag string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[partNumber] = etag
}

func (f *fakeUploadServer) InitiateUpload(ctx context.Context, objectId string, fileSize int64, md5sum string, overwrite bool) (*entity.ObjectSpecification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessionSeq++
	f.uploadId = "upl-" + strconv.Itoa(f.sessionSeq)
	f.records = map[int]string{}
	return &entity.ObjectSpecification{
		ObjectId:   objectId,
		UploadId:   f.uploadId,
		ObjectSize: f.fileSize,
		Parts:      f.layout(),
	}, nil
}

func (f *fakeUploadServer) GetUploadProgress(ctx context.Context, objectId string, fileSize int64) (*entity.UploadProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.progressErr != nil {
		return nil, f.progressErr
	}
	parts := f.layout()
	for _, p := range parts {
		p.URL = ""
		if etag, ok := f.records[p.PartNumber]; ok {
			p.Md5 = etag
			p.Etag = etag
		}
	}
	return &entity.UploadProgress{ObjectId: objectId, UploadId: f.uploadId, Parts: parts}, nil
}

func (f *fakeUploadServer) FinalizeUploadPart(ctx context.Context, objectId string, partNumber int, md5sum string, etag string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[partNumber] = etag
	return nil
}

func (f *fakeUploadServer) FinalizeUpload(ctx context.Context, objectId string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.records) < len(f.layout()) {
		return errclass.Retryable(fmt.Errorf("missing parts, got:%d", len(f.records)))
	}
	f.finalized = true
	return nil
}

func (f *fakeUploadServer) RecoverUpload(ctx context.Context, objectId string, fileSize int64) (*entity.ObjectSpecification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &entity.ObjectSpecification{
		ObjectId:   objectId,
		UploadId:   f.uploadId,
		ObjectSize: f.fileSize,
		Parts:      f.layout(),
	}, nil
}

func (f *fakeUploadServer) CancelUpload(ctx context.Context, objectId string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.uploadId) == 0 {
		return errclass.NotRetryable(fmt.Errorf("upload session not found, object_id:%s", objectId))
	}
	f.uploadId = ""
	f.records = map[int]string{}
	f.cancelled = true
	return nil
}

func (f *fakeUploadServer) DeleteUploadPart(ctx context.Context, objectId string, partNumber int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.records, partNumber)
	f.deletedParts = append(f.deletedParts, partNumber)
	return nil
}

func (f *fakeUploadServer) ResolveDownload(ctx context.Context, objectId string, offset int64, length int64, forExternalUse bool) (*entity.ObjectSpecification, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeUploadServer) DownloadURL(ctx context.Context, objectId string) (string, error) {
	return "", fmt.Errorf("not implemented")
}

func (f *fakeUploadServer) ObjectExists(ctx context.Context, objectId string) (bool, error) {
	return false, fmt.Errorf("not implemented")
}

func (f *fakeUploadServer) ObjectInfo(ctx context.Context, objectId string) (*entity.ObjectSpecification, error) {
	return nil, fmt.Errorf("not implemented")
}

var _ remote.IStorageClient = (*fakeUploadServer)(nil)

func writeSourceFile(t *testing.T, size int) string {
	content := make([]byte, size)
	for i := range content {
		content[i] = byte('a' + i%26)
	}
	src := filepath.Join(t.TempDir(), "sample.bam")
	assert.NoError(t, os.WriteFile(src, content, 0644))
	return src
}

func newTestUploader(t *testing.T, fake *fakeUploadServer) *Uploader {
	u, err := NewUploader(
		WithClient(fake),
		WithThreads(2),
		WithRetryCount(1),
		WithProgressOutput(io.Discard))
	assert.NoError(t, err)
	return u
}

func TestUploadRoundTrip(t *testing.T) {
	fake := newFakeUploadServer(100, 40)
	defer fake.Close()
	src := writeSourceFile(t, 100)

	u := newTestUploader(t, fake)
	assert.NoError(t, u.Upload(context.Background(), src, "obj-1", false))

	assert.True(t, fake.finalized)
	content, _ := os.ReadFile(src)
	assert.Equal(t, content[:40], fake.data[1])
	assert.Equal(t, content[40:80], fake.data[2])
	assert.Equal(t, content[80:], fake.data[3])

	// the session record is dropped after a successful finalize
	_, ok, err := uploadstate.NewStore(src).Fetch("obj-1")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestUploadRefusesEmptyFile(t *testing.T) {
	fake := newFakeUploadServer(0, 40)
	defer fake.Close()
	src := filepath.Join(t.TempDir(), "empty.bam")
	assert.NoError(t, os.WriteFile(src, nil, 0644))

	u := newTestUploader(t, fake)
	assert.Error(t, u.Upload(context.Background(), src, "obj-empty", false))
}

func TestUploadResumeSkipsCompletedParts(t *testing.T) {
	fake := newFakeUploadServer(100, 40)
	defer fake.Close()
	src := writeSourceFile(t, 100)

	// a previous run recorded the session and finished part 1
	content, _ := os.ReadFile(src)
	fake.openSession("upl-resume")
	fake.completePart(1, md5hex(content[:40]))
	assert.NoError(t, uploadstate.NewStore(src).Create("obj-2", "upl-resume"))

	u := newTestUploader(t, fake)
	assert.NoError(t, u.Upload(context.Background(), src, "obj-2", false))

	assert.True(t, fake.finalized)
	assert.Equal(t, 0, fake.puts[1])
	assert.Equal(t, 1, fake.puts[2])
	assert.Equal(t, 1, fake.puts[3])
}

func TestUploadDeadSessionDropsState(t *testing.T) {
	fake := newFakeUploadServer(100, 40)
	defer fake.Close()
	src := writeSourceFile(t, 100)

	fake.openSession("upl-dead")
	fake.progressErr = errclass.NotResumable(fmt.Errorf("session corrupted"))
	store := uploadstate.NewStore(src)
	assert.NoError(t, store.Create("obj-3", "upl-dead"))

	u := newTestUploader(t, fake)
	err := u.Upload(context.Background(), src, "obj-3", false)
	assert.True(t, errclass.IsNotResumable(err))

	// the poisoned session record must not survive for the next run
	_, ok, ferr := store.Fetch("obj-3")
	assert.NoError(t, ferr)
	assert.False(t, ok)
}

func TestUploadRejectsCorruptedStoreEtag(t *testing.T) {
	fake := newFakeUploadServer(100, 40)
	defer fake.Close()
	fake.corruptEtag = true
	src := writeSourceFile(t, 100)

	u, err := NewUploader(
		WithClient(fake),
		WithThreads(2),
		WithRetryCount(2),
		WithProgressOutput(io.Discard))
	assert.NoError(t, err)

	// every pass must compare the local checksum to the store's etag; a store
	// that acknowledges wrong bytes can never finalize, however often we retry
	err = u.Upload(context.Background(), src, "obj-corrupt", false)
	assert.Error(t, err)
	assert.True(t, errclass.IsNotRetryable(err))
	assert.False(t, fake.finalized)
}

func TestUploadResumeReplacesChangedPart(t *testing.T) {
	fake := newFakeUploadServer(100, 40)
	defer fake.Close()
	src := writeSourceFile(t, 100)
	content, _ := os.ReadFile(src)

	// part 1 was acknowledged against bytes the source no longer contains,
	// part 2 still matches
	fake.openSession("upl-changed")
	fake.completePart(1, "0123456789abcdef0123456789abcdef")
	fake.completePart(2, md5hex(content[40:80]))
	assert.NoError(t, uploadstate.NewStore(src).Create("obj-5", "upl-changed"))

	u := newTestUploader(t, fake)
	assert.NoError(t, u.Upload(context.Background(), src, "obj-5", false))

	assert.True(t, fake.finalized)
	assert.Equal(t, []int{1}, fake.deletedParts)
	assert.Equal(t, 1, fake.puts[1])
	assert.Equal(t, 0, fake.puts[2])
	assert.Equal(t, 1, fake.puts[3])
	assert.Equal(t, content[:40], fake.data[1])
}

func TestCancelDropsLocalState(t *testing.T) {
	fake := newFakeUploadServer(100, 40)
	defer fake.Close()
	src := writeSourceFile(t, 100)

	fake.openSession("upl-cancel")
	store := uploadstate.NewStore(src)
	assert.NoError(t, store.Create("obj-6", "upl-cancel"))

	u := newTestUploader(t, fake)
	assert.NoError(t, u.Cancel(context.Background(), src, "obj-6"))
	assert.True(t, fake.cancelled)
	_, ok, err := store.Fetch("obj-6")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestCancelDropsLocalStateOnServerError(t *testing.T) {
	fake := newFakeUploadServer(100, 40)
	defer fake.Close()
	src := writeSourceFile(t, 100)

	// no open session on the server side
	store := uploadstate.NewStore(src)
	assert.NoError(t, store.Create("obj-7", "upl-gone"))

	u := newTestUploader(t, fake)
	assert.Error(t, u.Cancel(context.Background(), src, "obj-7"))
	_, ok, err := store.Fetch("obj-7")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestUploadRedoIgnoresRecordedSession(t *testing.T) {
	fake := newFakeUploadServer(100, 40)
	defer fake.Close()
	src := writeSourceFile(t, 100)

	fake.openSession("upl-old")
	for n := 1; n <= 3; n++ {
		fake.completePart(n, "etag-"+strconv.Itoa(n))
	}
	assert.NoError(t, uploadstate.NewStore(src).Create("obj-4", "upl-old"))

	u := newTestUploader(t, fake)
	assert.NoError(t, u.Upload(context.Background(), src, "obj-4", true))

	// redo rebuilt the session and re-sent every part
	assert.NotEqual(t, "upl-old", fake.uploadId)
	assert.Equal(t, 1, fake.puts[1])
	assert.Equal(t, 1, fake.puts[2])
	assert.Equal(t, 1, fake.puts[3])
}
