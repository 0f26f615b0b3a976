// Package avio narrows libav's sprawling C API, via
// github.com/asticode/go-astiav, down to the handful of capabilities the
// transcode pipeline and LLR codec actually need: opening and reading a
// container, opening and writing one, decoding, encoding, pixel-format
// conversion and introspection, and incremental hashing. The refs and llr
// packages never import astiav at all; only avio and transcode (which
// drives astiav.Frame/astiav.Packet values through avio's encoder,
// decoder, and scaler wrappers) touch it, and the transcode package's
// Encoder/Decoder interfaces let its pipeline tests substitute fakes for
// the real astiav-backed implementations.
package avio

import (
	"fmt"
	"io"
	"os"

	"github.com/fdurso/rawcompr-go/rcerrors"
)

// wrapAdapterErr turns a raw astiav/libav error into a typed adapter
// error, giving every fatal failure in this package the same shape the
// rest of the module expects.
func wrapAdapterErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return rcerrors.ErrAdapterFailed.WithMessage(fmt.Sprintf("%s: %s", op, err.Error()))
}

// File provides positioned I/O: seek, bounded read, write. It is a thin
// wrapper around *os.File so the LLR writer's single backward seek (to
// backfill the reserved hash slot) and the decompression pass's
// seek-and-write-reconstructed-bytes step have a name in this package
// rather than reaching for os directly.
type File struct {
	f    *os.File
	size int64
}

// OpenFileForReading opens path read-only and reports its size, which
// callers need up front (e.g. the LLR writer, which must know
// originalFileSize before it can reserve the header).
func OpenFileForReading(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, wrapAdapterErr("open "+path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, wrapAdapterErr("stat "+path, err)
	}
	return &File{f: f, size: info.Size()}, nil
}

// CreateFile creates or truncates path for writing.
func CreateFile(path string) (*File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, wrapAdapterErr("create "+path, err)
	}
	return &File{f: f}, nil
}

// CreateSparseFile creates path and preallocates it to size bytes,
// leaving it seek-writable at any offset up to size without requiring
// writes to be sequential. Used by the decompression pass, which
// reconstructs the original file in arbitrary offset order as packets
// arrive from the compressed container.
func CreateSparseFile(path string, size int64) (*File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, wrapAdapterErr("create "+path, err)
	}
	if err := f.Truncate(size); err != nil {
		f.Close()
		return nil, wrapAdapterErr("truncate "+path, err)
	}
	return &File{f: f, size: size}, nil
}

// Size reports the file's size in bytes as of when it was opened or
// created.
func (fl *File) Size() int64 { return fl.size }

func (fl *File) Read(p []byte) (int, error)  { return fl.f.Read(p) }
func (fl *File) Write(p []byte) (int, error) { return fl.f.Write(p) }

func (fl *File) Seek(offset int64, whence int) (int64, error) {
	return fl.f.Seek(offset, whence)
}

// Close closes the underlying file.
func (fl *File) Close() error {
	return fl.f.Close()
}

var (
	_ io.ReadWriteSeeker = (*File)(nil)
)
