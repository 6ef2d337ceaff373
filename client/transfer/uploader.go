// Package transfer holds the client-side orchestrators that move whole
// objects part by part: resumable uploads and ranged downloads.
package transfer

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/genostore/genostore/entity"
	"github.com/genostore/genostore/errclass"
	"github.com/genostore/genostore/progress"
	"github.com/genostore/genostore/uploadstate"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	partRetryCount    = 3
	partRetryInterval = 2 * time.Second
	redoRetryInterval = 5 * time.Second
)

type Uploader struct {
	c *config
}

func NewUploader(opts ...Option) (*Uploader, error) {
	c := applyOpts(opts...)
	if c.client == nil {
		return nil, fmt.Errorf("no storage client found")
	}
	return &Uploader{c: c}, nil
}

// Upload transfers src as objectId, resuming a previous attempt when session
// state for the object exists next to the source file. redo forces a fresh
// session that overwrites whatever the previous attempt left behind.
func (u *Uploader) Upload(ctx context.Context, src string, objectId string, redo bool) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source file failed, err:%w", err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("refuse to upload empty file, src:%s", src)
	}
	store := uploadstate.NewStore(src)
	attempts := u.c.retryCount
	verifyCompleted := true
	for {
		err := u.uploadOnce(ctx, store, src, objectId, info.Size(), redo, verifyCompleted)
		if err == nil {
			return nil
		}
		attempts--
		class := errclass.ClassOf(err)
		logutil.GetLogger(ctx).Error("upload attempt failed",
			zap.String("object_id", objectId),
			zap.String("class", class.String()),
			zap.Int("attempts_left", attempts),
			zap.Error(err))
		switch class {
		case errclass.ClassNotResumable:
			// The session is dead; keeping its state would poison the next run.
			_ = store.Close(objectId)
			return err
		case errclass.ClassNotRetryable:
			if attempts <= 0 {
				return err
			}
			// The request shape will not succeed as is; rebuild the session.
			redo = true
		default:
			if attempts <= 0 {
				return err
			}
		}
		// Previously completed parts were checked against the source on the
		// first pass; later passes skip that re-read. Newly transferred parts
		// are always compared against the store's etag.
		verifyCompleted = false
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(redoRetryInterval):
		}
	}
}

func (u *Uploader) uploadOnce(ctx context.Context, store *uploadstate.Store, src string, objectId string, size int64, redo bool, verifyCompleted bool) error {
	spec, completed, err := u.prepareSession(ctx, store, src, objectId, size, redo, verifyCompleted)
	if err != nil {
		return err
	}
	entity.SortPartsByNumber(spec.Parts)
	tracker := progress.NewTracker(len(spec.Parts), len(completed), progress.WithOutput(u.c.output))
	tracker.Start()
	defer tracker.Stop()
	eg, subctx := errgroup.WithContext(ctx)
	eg.SetLimit(u.c.threads)
	for _, p := range spec.Parts {
		if _, ok := completed[p.PartNumber]; ok {
			continue
		}
		part := p
		eg.Go(func() error {
			return u.uploadPart(subctx, src, objectId, part, tracker)
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	if err := u.c.client.FinalizeUpload(ctx, objectId); err != nil {
		return err
	}
	if err := store.Close(objectId); err != nil {
		logutil.GetLogger(ctx).Warn("drop upload state failed", zap.Error(err))
	}
	logutil.GetLogger(ctx).Info("upload finished",
		zap.String("object_id", objectId),
		zap.Int64("file_size", size),
		zap.Int("part_count", len(spec.Parts)))
	return nil
}

// prepareSession resumes the recorded session when possible, otherwise opens a
// fresh one. It returns the part layout plus the set of parts the server has
// already acknowledged.
func (u *Uploader) prepareSession(ctx context.Context, store *uploadstate.Store, src string, objectId string, size int64, redo bool, verifyCompleted bool) (*entity.ObjectSpecification, map[int]*entity.Part, error) {
	if !redo {
		uploadId, ok, err := store.Fetch(objectId)
		if err != nil {
			return nil, nil, err
		}
		if ok {
			return u.resumeSession(ctx, src, objectId, uploadId, size, verifyCompleted)
		}
	}
	spec, err := u.c.client.InitiateUpload(ctx, objectId, size, "", redo)
	if err != nil {
		return nil, nil, err
	}
	if err := store.Create(objectId, spec.UploadId); err != nil {
		return nil, nil, err
	}
	return spec, map[int]*entity.Part{}, nil
}

func (u *Uploader) resumeSession(ctx context.Context, src string, objectId string, uploadId string, size int64, verifyCompleted bool) (*entity.ObjectSpecification, map[int]*entity.Part, error) {
	prog, err := u.c.client.GetUploadProgress(ctx, objectId, size)
	if err != nil {
		return nil, nil, err
	}
	if prog.UploadId != uploadId {
		return nil, nil, errclass.NotRetryable(fmt.Errorf("recorded session superseded, object_id:%s", objectId))
	}
	spec, err := u.c.client.RecoverUpload(ctx, objectId, size)
	if err != nil {
		return nil, nil, err
	}
	completed := make(map[int]*entity.Part)
	for _, p := range prog.Parts {
		if !p.IsCompleted() {
			continue
		}
		if verifyCompleted {
			match, err := u.matchesLocalPart(src, p)
			if err != nil {
				return nil, nil, err
			}
			if !match {
				// The source changed since this part was acknowledged; drop the
				// stale record so the part transfers again.
				logutil.GetLogger(ctx).Warn("acknowledged part no longer matches source, re-uploading",
					zap.String("object_id", objectId),
					zap.Int("part_number", p.PartNumber))
				if err := u.c.client.DeleteUploadPart(ctx, objectId, p.PartNumber); err != nil {
					return nil, nil, err
				}
				continue
			}
		}
		completed[p.PartNumber] = p
	}
	logutil.GetLogger(ctx).Info("resuming upload session",
		zap.String("object_id", objectId),
		zap.String("upload_id", uploadId),
		zap.Int("completed_parts", len(completed)),
		zap.Int("total_parts", len(spec.Parts)))
	return spec, completed, nil
}

func (u *Uploader) uploadPart(ctx context.Context, src string, objectId string, part *entity.Part, tracker *progress.Tracker) error {
	var lastErr error
	mismatch := false
	for i := 0; i < partRetryCount; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(partRetryInterval * time.Duration(i)):
			}
		}
		etag, srcMd5, err := u.transferPart(ctx, src, part, tracker)
		if err != nil {
			if !errclass.IsRetryable(err) {
				return err
			}
			lastErr = err
			continue
		}
		// A part is never reported complete before the store's etag matched
		// the checksum computed from the source bytes.
		if srcMd5 != etag {
			mismatch = true
			lastErr = fmt.Errorf("part checksum mismatch, part_number:%d, local:%s, store:%s", part.PartNumber, srcMd5, etag)
			logutil.GetLogger(ctx).Warn("part checksum mismatch, re-reading source",
				zap.String("object_id", objectId),
				zap.Int("part_number", part.PartNumber))
			continue
		}
		mismatch = false
		tracker.IncChecksumParts()
		if err := u.c.client.FinalizeUploadPart(ctx, objectId, part.PartNumber, srcMd5, etag); err != nil {
			if !errclass.IsRetryable(err) {
				return err
			}
			lastErr = err
			continue
		}
		tracker.IncPartsDone()
		return nil
	}
	if mismatch {
		// Repeated mismatches mean the source changed or the store corrupts;
		// more blind retries cannot fix either.
		return errclass.NotRetryable(lastErr)
	}
	return lastErr
}

// matchesLocalPart re-reads the part's byte range from the source file and
// compares it to the checksum the server recorded for the part.
func (u *Uploader) matchesLocalPart(src string, part *entity.Part) (bool, error) {
	f, err := os.Open(src)
	if err != nil {
		return false, err
	}
	defer f.Close()
	if _, err := f.Seek(part.Offset, io.SeekStart); err != nil {
		return false, err
	}
	h := md5.New()
	if _, err := io.Copy(h, io.LimitReader(f, part.PartSize)); err != nil {
		return false, err
	}
	return hex.EncodeToString(h.Sum(nil)) == part.ExpectedMd5(), nil
}

// Cancel aborts the open upload session of objectId and drops the local
// session record. The record is dropped even when the server call fails; a
// cancelled transfer must never resume from leftover state.
func (u *Uploader) Cancel(ctx context.Context, src string, objectId string) error {
	store := uploadstate.NewStore(src)
	err := u.c.client.CancelUpload(ctx, objectId)
	if cerr := store.Close(objectId); cerr != nil {
		logutil.GetLogger(ctx).Warn("drop upload state failed", zap.Error(cerr))
	}
	if err != nil {
		return fmt.Errorf("cancel upload failed, err:%w", err)
	}
	logutil.GetLogger(ctx).Info("upload cancelled", zap.String("object_id", objectId))
	return nil
}

// transferPart streams one part from the source file to the pre-signed URL,
// computing the source checksum on the same pass.
func (u *Uploader) transferPart(ctx context.Context, src string, part *entity.Part, tracker *progress.Tracker) (string, string, error) {
	f, err := os.Open(src)
	if err != nil {
		return "", "", err
	}
	defer f.Close()
	if _, err := f.Seek(part.Offset, io.SeekStart); err != nil {
		return "", "", err
	}
	h := md5.New()
	r := io.TeeReader(io.LimitReader(f, part.PartSize), h)
	etag, err := u.c.parts.UploadPart(ctx, part.URL, progress.NewReader(r, tracker), part.PartSize)
	if err != nil {
		return "", "", err
	}
	return etag, hex.EncodeToString(h.Sum(nil)), nil
}
