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

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Downloader struct {
	c *config
}

func NewDownloader(opts ...Option) (*Downloader, error) {
	c := applyOpts(opts...)
	if c.client == nil {
		return nil, fmt.Errorf("no storage client found")
	}
	return &Downloader{c: c}, nil
}

// offsetWriter writes sequentially at a fixed position of the output file, so
// parallel part workers can fill disjoint regions of the same file.
type offsetWriter struct {
	f   *os.File
	off int64
}

func (w *offsetWriter) Write(p []byte) (int, error) {
	n, err := w.f.WriteAt(p, w.off)
	w.off += int64(n)
	return n, err
}

// Download fetches [offset, offset+length) of objectId into dst. length < 0
// means through end of object. The output file is pre-sized and parts land at
// their final position, so no reassembly pass is needed.
func (d *Downloader) Download(ctx context.Context, objectId string, dst string, offset int64, length int64) error {
	spec, err := d.c.client.ResolveDownload(ctx, objectId, offset, length, false)
	if err != nil {
		return err
	}
	entity.SortPartsByNumber(spec.Parts)
	var total int64
	for _, p := range spec.Parts {
		total += p.PartSize
	}
	out, err := os.OpenFile(dst, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("open output file failed, err:%w", err)
	}
	defer out.Close()
	if err := out.Truncate(total); err != nil {
		return fmt.Errorf("presize output file failed, err:%w", err)
	}
	tracker := progress.NewTracker(len(spec.Parts), 0, progress.WithOutput(d.c.output))
	tracker.Start()
	defer tracker.Stop()
	eg, subctx := errgroup.WithContext(ctx)
	eg.SetLimit(d.c.threads)
	for _, p := range spec.Parts {
		part := p
		eg.Go(func() error {
			return d.downloadPart(subctx, out, part, offset, tracker)
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("download finished",
		zap.String("object_id", objectId),
		zap.String("dst", dst),
		zap.Int64("bytes", total),
		zap.Int("part_count", len(spec.Parts)))
	return nil
}

func (d *Downloader) downloadPart(ctx context.Context, out *os.File, part *entity.Part, baseOffset int64, tracker *progress.Tracker) error {
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
		sum, err := d.transferPart(ctx, out, part, baseOffset, tracker)
		if err != nil {
			if !errclass.IsRetryable(err) {
				return err
			}
			lastErr = err
			continue
		}
		if want := part.ExpectedMd5(); len(want) != 0 && sum != want {
			mismatch = true
			lastErr = fmt.Errorf("part checksum mismatch, part_number:%d, got:%s, want:%s", part.PartNumber, sum, want)
			logutil.GetLogger(ctx).Warn("downloaded part checksum mismatch, refetching",
				zap.Int("part_number", part.PartNumber))
			continue
		}
		mismatch = false
		if len(part.ExpectedMd5()) != 0 {
			tracker.IncChecksumParts()
		}
		tracker.IncPartsDone()
		return nil
	}
	if mismatch {
		return errclass.NotRetryable(lastErr)
	}
	return lastErr
}

func (d *Downloader) transferPart(ctx context.Context, out *os.File, part *entity.Part, baseOffset int64, tracker *progress.Tracker) (string, error) {
	body, err := d.c.parts.DownloadPart(ctx, part.URL)
	if err != nil {
		return "", err
	}
	defer body.Close()
	h := md5.New()
	w := io.MultiWriter(&offsetWriter{f: out, off: part.Offset - baseOffset}, h)
	n, err := io.Copy(progress.NewWriter(w, tracker), body)
	if err != nil {
		return "", errclass.Retryable(fmt.Errorf("stream part failed, err:%w", err))
	}
	if n != part.PartSize {
		return "", errclass.Retryable(fmt.Errorf("short part body, part_number:%d, got:%d, want:%d", part.PartNumber, n, part.PartSize))
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
