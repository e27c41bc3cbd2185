package testhelpers

import (
	"io"
	"strings"
	"sync/atomic"
	"testing"
)

// Writer implements io.Writer on top of t.Log, so logs only show for failed tests.
type Writer struct {
	t    testing.TB
	done atomic.Bool
}

// NewWriter creates a Writer bound to t. Writes after the test finished are dropped.
func NewWriter(t testing.TB) io.Writer {
	w := &Writer{t: t}
	t.Cleanup(func() { w.done.Store(true) })
	return w
}

func (w *Writer) Write(p []byte) (int, error) {
	if w.done.Load() {
		return len(p), nil
	}
	if output := strings.TrimSuffix(string(p), "\n"); output != "" {
		w.t.Log(output)
	}
	return len(p), nil
}
