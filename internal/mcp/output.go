package mcp

import (
	"bytes"
	"sync"
)

// maxBuildOutput is how much build output a tool result carries.
const maxBuildOutput = 64 * 1024

// OutputBuffer collects build output for a tool result. It keeps the last
// limit bytes written.
type OutputBuffer struct {
	mu        sync.Mutex
	buf       bytes.Buffer
	limit     int
	truncated bool
}

// NewOutputBuffer creates a buffer keeping at most limit bytes.
func NewOutputBuffer(limit int) *OutputBuffer {
	return &OutputBuffer{limit: limit}
}

// Write implements io.Writer.
func (b *OutputBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(p)
	if n >= b.limit {
		b.buf.Reset()
		b.buf.Write(p[n-b.limit:])
		b.truncated = true
		return n, nil
	}
	if over := b.buf.Len() + n - b.limit; over > 0 {
		b.buf.Next(over)
		b.truncated = true
	}
	b.buf.Write(p)
	return n, nil
}

// String returns the kept output, prefixed with a marker when older output
// was dropped.
func (b *OutputBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.truncated {
		return "[earlier output truncated]\n" + b.buf.String()
	}
	return b.buf.String()
}
