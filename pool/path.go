// Package pool provides sync.Pool wrappers for reducing GC pressure
// during validation walks.
package pool

import (
	"strconv"
	"sync"
)

// PathBuilder builds dotted instance paths with minimal allocation.
// The walker pushes segments as it descends and truncates back to a
// saved mark as it returns, so one builder serves the whole walk.
type PathBuilder struct {
	buf []byte
}

var pathBuilderPool = sync.Pool{
	New: func() any {
		return &PathBuilder{buf: make([]byte, 0, 256)}
	},
}

// AcquirePathBuilder gets a PathBuilder from the pool.
// Call Release when done to return it.
func AcquirePathBuilder() *PathBuilder {
	pb := pathBuilderPool.Get().(*PathBuilder)
	pb.Reset()
	return pb
}

// Release returns the PathBuilder to the pool.
func (b *PathBuilder) Release() {
	if b == nil {
		return
	}
	// Don't return oversized buffers to the pool.
	if cap(b.buf) <= 4096 {
		pathBuilderPool.Put(b)
	}
}

// Reset clears the buffer without deallocating.
func (b *PathBuilder) Reset() {
	b.buf = b.buf[:0]
}

// Mark returns the current length, for a later Truncate.
func (b *PathBuilder) Mark() int {
	return len(b.buf)
}

// Truncate cuts the path back to a previously saved mark.
func (b *PathBuilder) Truncate(mark int) {
	b.buf = b.buf[:mark]
}

// PushSegment appends a field segment with a leading dot when the path
// is non-empty.
func (b *PathBuilder) PushSegment(name string) {
	if len(b.buf) > 0 {
		b.buf = append(b.buf, '.')
	}
	b.buf = append(b.buf, name...)
}

// PushIndex appends an array index in brackets.
func (b *PathBuilder) PushIndex(index int) {
	b.buf = append(b.buf, '[')
	b.buf = strconv.AppendInt(b.buf, int64(index), 10)
	b.buf = append(b.buf, ']')
}

// String returns the built path. This is the one allocation per use.
func (b *PathBuilder) String() string {
	return string(b.buf)
}

// JoinPath joins path segments with dots.
func JoinPath(segments ...string) string {
	if len(segments) == 0 {
		return ""
	}
	if len(segments) == 1 {
		return segments[0]
	}

	pb := AcquirePathBuilder()
	defer pb.Release()
	for _, s := range segments {
		pb.PushSegment(s)
	}
	return pb.String()
}

// IndexedPath appends an array index to a base path.
func IndexedPath(base string, index int) string {
	pb := AcquirePathBuilder()
	defer pb.Release()
	pb.buf = append(pb.buf, base...)
	pb.PushIndex(index)
	return pb.String()
}
