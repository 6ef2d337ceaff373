package progress

import "io"

type countingReader struct {
	r io.Reader
	t *Tracker
}

// NewReader wraps r so every byte read is accounted against the tracker.
func NewReader(r io.Reader, t *Tracker) io.Reader {
	return &countingReader{r: r, t: t}
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.t.AddBytesRead(int64(n))
	}
	return n, err
}

type countingWriter struct {
	w io.Writer
	t *Tracker
}

// NewWriter wraps w so every byte written is accounted against the tracker.
func NewWriter(w io.Writer, t *Tracker) io.Writer {
	return &countingWriter{w: w, t: t}
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	if n > 0 {
		c.t.AddBytesWritten(int64(n))
	}
	return n, err
}
