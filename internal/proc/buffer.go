package proc

import "sync"

// DefaultCaptureLimit bounds how much service output is kept in memory.
const DefaultCaptureLimit = 64 * 1024

// CaptureBuffer is a bounded in-memory writer that keeps the most recent
// bytes written to it. Safe for concurrent use; the process writes while
// the launcher or coordinator reads.
type CaptureBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func NewCaptureBuffer(limit int) *CaptureBuffer {
	if limit <= 0 {
		limit = DefaultCaptureLimit
	}
	return &CaptureBuffer{limit: limit}
}

func (b *CaptureBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.limit; over > 0 {
		b.buf = b.buf[over:]
	}
	return len(p), nil
}

// String returns a copy of the captured output.
func (b *CaptureBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}

func (b *CaptureBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buf)
}
