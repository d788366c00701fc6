// Package progress decorates byte streams so that transfers report how many
// bytes have moved so far.
//
// Uploads wrap the request body with a [Reader], which reports after every
// read made by the transport. Downloads wrap the destination with a [Writer],
// which reports once up front, then at most once per interval, then once more
// when [Writer.Finish] is called.
package progress

import (
	"io"
	"time"

	"github.com/benbjohnson/clock"
)

// Unknown is reported as the total when the length of a transfer is not known.
const Unknown int64 = -1

// DefaultInterval is the minimum time between two throttled [Writer] reports.
const DefaultInterval = 250 * time.Millisecond

// Func receives progress notifications.
type Func func(transferred, total int64)

// Reader is an io.ReadCloser reporting every successful read.
// It never alters the bytes or the length of the stream it wraps.
type Reader struct {
	r           io.Reader
	fn          Func
	total       int64
	transferred int64
}

// NewReader wraps r. A nil fn makes the Reader a plain pass-through.
func NewReader(r io.Reader, total int64, fn Func) *Reader {
	return &Reader{r: r, fn: fn, total: total}
}

func (pr *Reader) Read(p []byte) (int, error) {
	n, err := pr.r.Read(p)
	if n > 0 {
		pr.transferred += int64(n)
		if pr.fn != nil {
			pr.fn(pr.transferred, pr.total)
		}
	}

	return n, err
}

// Close closes the wrapped reader if it is an io.Closer.
func (pr *Reader) Close() error {
	if c, ok := pr.r.(io.Closer); ok {
		return c.Close()
	}

	return nil
}

// Transferred returns the number of bytes read so far.
func (pr *Reader) Transferred() int64 { return pr.transferred }

// Option configures a [Writer].
type Option func(*Writer)

// WithInterval overrides [DefaultInterval]. Non-positive values report on every write.
func WithInterval(d time.Duration) Option {
	return func(w *Writer) {
		w.interval = d
	}
}

// WithClock replaces the wall clock, mostly for tests.
func WithClock(c clock.Clock) Option {
	return func(w *Writer) {
		if c != nil {
			w.clock = c
		}
	}
}

// Writer is an io.Writer reporting throttled download progress.
type Writer struct {
	w           io.Writer
	fn          Func
	total       int64
	transferred int64
	interval    time.Duration
	clock       clock.Clock
	last        time.Time
	finished    bool
}

// NewWriter wraps w and immediately reports (0, total).
func NewWriter(w io.Writer, total int64, fn Func, opts ...Option) *Writer {
	pw := &Writer{
		w:        w,
		fn:       fn,
		total:    total,
		interval: DefaultInterval,
		clock:    clock.New(),
	}
	for _, opt := range opts {
		opt(pw)
	}

	pw.last = pw.clock.Now()
	pw.report()

	return pw
}

func (pw *Writer) Write(p []byte) (int, error) {
	n, err := pw.w.Write(p)
	pw.transferred += int64(n)

	if now := pw.clock.Now(); now.Sub(pw.last) >= pw.interval {
		pw.last = now
		pw.report()
	}

	return n, err
}

// Finish emits the final report. Calls after the first are no-ops.
func (pw *Writer) Finish() {
	if pw.finished {
		return
	}
	pw.finished = true
	pw.report()
}

// Transferred returns the number of bytes written so far.
func (pw *Writer) Transferred() int64 { return pw.transferred }

func (pw *Writer) report() {
	if pw.fn != nil {
		pw.fn(pw.transferred, pw.total)
	}
}
