package mmap

import (
	"errors"
	"io"
	"math"
	"os"
	"sync/atomic"
)

var (
	// ErrClosed is returned by reads after Close.
	ErrClosed = errors.New("mmap: file is closed")
	// ErrInvalidSize is returned when the file does not fit the address space.
	ErrInvalidSize = errors.New("mmap: invalid file size")
	// ErrInvalidOffset is returned for a negative offset or length.
	ErrInvalidOffset = errors.New("mmap: invalid offset")
)

// File is a read-only view of a whole file in memory.
type File struct {
	data   []byte
	closed atomic.Bool
	unmap  func([]byte) error
}

// Open maps path read-only and asks the kernel for read-ahead, since blobs
// are decoded front to back. An empty file needs no system mapping.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	// The mapping outlives the descriptor.
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}

	size := fi.Size()
	if size == 0 {
		return &File{}, nil
	}
	if size > math.MaxInt {
		return nil, ErrInvalidSize
	}

	data, unmap, err := osMap(f, int(size))
	if err != nil {
		return nil, err
	}
	osReadAhead(data)

	return &File{data: data, unmap: unmap}, nil
}

// Len returns the file size in bytes.
func (m *File) Len() int { return len(m.data) }

// View returns up to length bytes starting at off, shortened at the end of
// the file. The slice aliases the mapping and is invalid after Close.
func (m *File) View(off, length int64) ([]byte, error) {
	if m.closed.Load() {
		return nil, ErrClosed
	}
	if off < 0 || length < 0 {
		return nil, ErrInvalidOffset
	}
	size := int64(len(m.data))
	if off >= size {
		return nil, nil
	}
	return m.data[off:min(off+length, size):min(off+length, size)], nil
}

// ReadAt implements io.ReaderAt.
func (m *File) ReadAt(p []byte, off int64) (int, error) {
	view, err := m.View(off, int64(len(p)))
	if err != nil {
		return 0, err
	}
	n := copy(p, view)
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Close unmaps the file. Further calls are no-ops.
func (m *File) Close() error {
	if m.closed.Swap(true) || m.data == nil {
		return nil
	}
	return m.unmap(m.data)
}
