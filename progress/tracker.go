// Package progress provides the concurrency-safe accounting shared by the
// part workers of one transfer. Each transfer owns its own Tracker instance;
// there is deliberately no process-wide singleton so concurrent transfers do
// not interfere.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
)

const defaultDisplayInterval = time.Second

type Snapshot struct {
	TotalParts    int
	PartsDone     int
	ChecksumParts int
	BytesRead     int64
	BytesWritten  int64
	ReadPerSec    int64
	WritePerSec   int64
	Elapsed       time.Duration
}

// Tracker counts parts and bytes across N workers. Rates are derived from the
// cumulative counters divided by elapsed wall-clock time, recomputed on each
// display tick, which keeps them free of instantaneous noise.
type Tracker struct {
	totalParts int

	partsDone     atomic.Int32
	checksumParts atomic.Int32
	bytesRead     atomic.Int64
	bytesWritten  atomic.Int64

	out      io.Writer
	interval time.Duration

	start    time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

type Option func(t *Tracker)

func WithOutput(w io.Writer) Option {
	return func(t *Tracker) {
		t.out = w
	}
}

func WithDisplayInterval(d time.Duration) Option {
	return func(t *Tracker) {
		t.interval = d
	}
}

// NewTracker creates a tracker for a transfer of totalParts parts of which
// alreadyDone were completed by a previous run.
func NewTracker(totalParts int, alreadyDone int, opts ...Option) *Tracker {
	t := &Tracker{
		totalParts: totalParts,
		out:        os.Stdout,
		interval:   defaultDisplayInterval,
		stopCh:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.partsDone.Store(int32(alreadyDone))
	return t
}

// Start begins the periodic display tick. The tick runs independently of the
// transfer workers and only ever reads the counters.
func (t *Tracker) Start() {
	t.start = time.Now()
	t.wg.Add(1)
	go t.displayLoop()
}

// Stop ends the display tick and prints a final line. Safe to call more than
// once.
func (t *Tracker) Stop() {
	t.stopOnce.Do(func() {
		close(t.stopCh)
	})
	t.wg.Wait()
}

func (t *Tracker) IncPartsDone() {
	t.partsDone.Add(1)
}

func (t *Tracker) IncChecksumParts() {
	t.checksumParts.Add(1)
}

func (t *Tracker) AddBytesRead(n int64) {
	t.bytesRead.Add(n)
}

func (t *Tracker) AddBytesWritten(n int64) {
	t.bytesWritten.Add(n)
}

// Snapshot returns a consistent-enough view for display purposes; counters are
// read individually but each one is atomically loaded.
func (t *Tracker) Snapshot() Snapshot {
	elapsed := time.Since(t.start)
	millis := elapsed.Milliseconds()
	if millis <= 0 {
		millis = 1
	}
	read := t.bytesRead.Load()
	written := t.bytesWritten.Load()
	return Snapshot{
		TotalParts:    t.totalParts,
		PartsDone:     int(t.partsDone.Load()),
		ChecksumParts: int(t.checksumParts.Load()),
		BytesRead:     read,
		BytesWritten:  written,
		ReadPerSec:    read * 1000 / millis,
		WritePerSec:   written * 1000 / millis,
		Elapsed:       elapsed,
	}
}

func (t *Tracker) displayLoop() {
	defer t.wg.Done()
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-t.stopCh:
			t.display()
			fmt.Fprintln(t.out)
			return
		case <-ticker.C:
			t.display()
		}
	}
}

func (t *Tracker) display() {
	s := t.Snapshot()
	percent := 0
	if s.TotalParts > 0 {
		percent = s.PartsDone * 100 / s.TotalParts
	}
	fmt.Fprintf(t.out, "\r%3d%% | parts: %d/%d | checksum: %d | read: %s/s | write: %s/s    ",
		percent,
		s.PartsDone,
		s.TotalParts,
		s.ChecksumParts,
		humanize.IBytes(uint64(s.ReadPerSec)),
		humanize.IBytes(uint64(s.WritePerSec)),
	)
}
