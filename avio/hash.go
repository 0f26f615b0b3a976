package avio

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"hash"
	"hash/crc32"
	"sort"

	"github.com/fdurso/rawcompr-go/llr"
	"github.com/fdurso/rawcompr-go/rcerrors"
)

// Hash computes a digest incrementally. It satisfies llr.Hash so a Hash
// built here can be handed straight to an llr.Writer.
type Hash interface {
	llr.Hash
}

type stdHash struct {
	h hash.Hash
}

func (s *stdHash) Update(p []byte) { s.h.Write(p) }
func (s *stdHash) Final() []byte   { return s.h.Sum(nil) }
func (s *stdHash) Size() int       { return s.h.Size() }

// hashConstructors lists every algorithm this adapter advertises.
// go-astiav does not wrap libavutil's AVHash family, so this corner of
// the adapter is backed by the Go standard library's crypto packages
// instead, keeping libav's algorithm name spellings. The CLI's --hash
// flag is validated against HashAlgorithms(), so swapping this backing
// implementation out later costs nothing upstream of this file.
var hashConstructors = map[string]func() hash.Hash{
	"MD5":    md5.New,
	"SHA1":   sha1.New,
	"SHA256": sha256.New,
	"SHA512": sha512.New,
	"CRC32":  func() hash.Hash { return crc32.NewIEEE() },
}

// HashAlgorithms returns the names of every hash algorithm this adapter
// can construct, in a stable (sorted) order.
func HashAlgorithms() []string {
	names := make([]string, 0, len(hashConstructors))
	for name := range hashConstructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewHash allocates a Hash by algorithm name. The name must be one of
// HashAlgorithms(); anything else returns rcerrors.ErrUnsupportedHash, a
// corruption-kind error, since at this point the name came from an LLR
// file or was already validated. The CLI checks its --hash flag against
// HashAlgorithms() itself and reports a mismatch as an argument error.
func NewHash(name string) (Hash, error) {
	ctor, ok := hashConstructors[name]
	if !ok {
		return nil, rcerrors.ErrUnsupportedHash.WithMessage(name)
	}
	return &stdHash{h: ctor()}, nil
}

// LLRHashFactory adapts NewHash to llr.HashFactory.
func LLRHashFactory(name string) (llr.Hash, error) {
	h, err := NewHash(name)
	if err != nil {
		return nil, err
	}
	return h, nil
}
