package utils

import (
	"io"
	"sync"
	"time"
)

func CurrentTimeInMS() int64 {
	return time.Now().UnixNano() / int64(time.Millisecond)
}

func NsToMs(timeNs int64) int64 {
	return timeNs / int64(time.Millisecond)
}

// LockedWriter serializes writes so that one Write call is never interleaved with another
type LockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func NewLockedWriter(w io.Writer) *LockedWriter {
	return &LockedWriter{w: w}
}

func (l *LockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
