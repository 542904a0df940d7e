package resource

import (
	"context"
	"io"
)

// ThrottleWriter wraps w so every write first waits for IO budget. It
// returns w unchanged when no IO limit is configured.
func (c *Controller) ThrottleWriter(ctx context.Context, w io.Writer) io.Writer {
	if c == nil || c.ioLimiter == nil {
		return w
	}
	return &throttledWriter{ctx: ctx, ctl: c, w: w}
}

// ThrottleReader wraps r so consumed bytes are charged against the IO
// budget after each read. It returns r unchanged when no IO limit is
// configured.
func (c *Controller) ThrottleReader(ctx context.Context, r io.Reader) io.Reader {
	if c == nil || c.ioLimiter == nil {
		return r
	}
	return &throttledReader{ctx: ctx, ctl: c, r: r}
}

type throttledWriter struct {
	ctx context.Context
	ctl *Controller
	w   io.Writer
}

func (t *throttledWriter) Write(p []byte) (int, error) {
	if err := t.ctl.WaitIO(t.ctx, len(p)); err != nil {
		return 0, err
	}
	return t.w.Write(p)
}

type throttledReader struct {
	ctx context.Context
	ctl *Controller
	r   io.Reader
}

// Read charges the bytes actually read rather than the buffer size, so a
// large buffer over a small stream never over-debits the budget.
func (t *throttledReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if n > 0 {
		if werr := t.ctl.WaitIO(t.ctx, n); werr != nil {
			return n, werr
		}
	}
	return n, err
}
