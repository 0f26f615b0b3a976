// Package rctesting provides in-memory file fixtures for tests that need
// an io.ReadWriteSeeker without touching disk: LLR files, reconstructed
// output files, and small synthetic "original container" byte buffers.
package rctesting

import (
	"io"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"
)

// MemFile wraps a fixed-capacity byte slice as an io.ReadWriteSeeker.
//
//   - Its size is fixed at creation; writing past the end of Backing
//     returns an error rather than growing the buffer, so a test that
//     writes out of bounds fails loudly instead of passing by accident.
//   - Backing gives direct access to the bytes actually written, so
//     tests can assert on file contents without relying on any
//     bytesextra accessor beyond the io.ReadWriteSeeker it returns.
type MemFile struct {
	Backing []byte
	io.ReadWriteSeeker
}

// NewMemFile allocates a zero-filled MemFile of the given capacity.
func NewMemFile(capacity int) *MemFile {
	backing := make([]byte, capacity)
	return &MemFile{
		Backing:         backing,
		ReadWriteSeeker: bytesextra.NewReadWriteSeeker(backing),
	}
}

// NewMemFileFromBytes wraps an existing byte slice, e.g. a small
// synthetic container built by a test.
func NewMemFileFromBytes(data []byte) *MemFile {
	return &MemFile{
		Backing:         data,
		ReadWriteSeeker: bytesextra.NewReadWriteSeeker(data),
	}
}

// RandomBytes returns n pseudo-random bytes seeded by seed, for tests
// that need filler payload without caring about its exact content (e.g.
// a fake rawvideo frame's pixel data).
func RandomBytes(t *testing.T, n int, seed int64) []byte {
	t.Helper()
	buf := make([]byte, n)
	_, err := rand.New(rand.NewSource(seed)).Read(buf)
	require.NoError(t, err)
	return buf
}
