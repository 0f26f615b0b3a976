// Package llr implements the binary reader and writer for the sidecar
// reconstruction map (the ".llr" file): the content-preserving,
// verifiable bijection between an original container's bytes and the
// (compressed container, LLR) pair produced by a compress pass.
//
// The layout, all integers big-endian: a magic number, originalFileSize,
// hash name/size/buffer, the stream and reference tables (via
// refs.PacketReferences), and finally the original file's "gap" bytes
// (the ranges no reference row covers) concatenated in ascending offset
// order.
package llr

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/fdurso/rawcompr-go/diag"
	"github.com/fdurso/rawcompr-go/internal/rclog"
	"github.com/fdurso/rawcompr-go/rcerrors"
	"github.com/fdurso/rawcompr-go/refs"
	"github.com/noxer/bytewriter"
)

const (
	magic      uint32 = 0x4C4C5200 // 'L', 'L', 'R', 0x00
	bufferSize        = 4096
)

// Hash is the incremental hash capability the LLR writer and the
// orchestrator's final verification step need. It is satisfied by
// avio.Hash; llr itself never talks to the media adapter directly, so it
// can be tested without cgo or a real FFmpeg build.
type Hash interface {
	Update(p []byte)
	Final() []byte
	Size() int
}

// HashFactory allocates a Hash by algorithm name ("MD5", "SHA256", ...).
// It returns an error if the name is not recognized.
type HashFactory func(name string) (Hash, error)

// Info holds the header fields read back from an LLR file.
type Info struct {
	OriginalFileSize uint64
	HashName         string
	HashBuffer       []byte
}

// Writer writes LLR files. NewHash is called once per Write to allocate
// the incremental hash context for that run.
type Writer struct {
	NewHash HashFactory
}

// NewWriter returns a Writer that allocates hashes via newHash.
func NewWriter(newHash HashFactory) *Writer {
	return &Writer{NewHash: newHash}
}

// Write streams input (positioned at its start) into llrFile, alongside
// pr's serialized stream and reference tables, embedding every byte range
// pr's table does not cover and feeding every byte — embedded or
// referenced — to a hash of the named algorithm in ascending offset
// order. The finished hash is backfilled into the slot reserved for it
// earlier in the file, which requires llrFile to support seeking
// backwards.
func (wr *Writer) Write(input io.ReadSeeker, pr *refs.PacketReferences, llrFile io.WriteSeeker, hashName string) error {
	inputSize, err := input.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}
	if _, err := input.Seek(0, io.SeekStart); err != nil {
		return err
	}

	header := make([]byte, 12)
	bw := bytewriter.New(header)
	if err := binary.Write(bw, binary.BigEndian, magic); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.BigEndian, uint64(inputSize)); err != nil {
		return err
	}
	if _, err := llrFile.Write(header); err != nil {
		return err
	}

	hash, err := wr.NewHash(hashName)
	if err != nil {
		return err
	}
	hashSize := hash.Size()

	if err := refs.PutString(llrFile, hashName); err != nil {
		return err
	}
	if err := binary.Write(llrFile, binary.BigEndian, uint16(hashSize)); err != nil {
		return err
	}

	hashPos, err := llrFile.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	if _, err := llrFile.Seek(int64(hashSize), io.SeekCurrent); err != nil {
		return err
	}

	if err := pr.Serialize(llrFile); err != nil {
		return err
	}

	if rclog.DebugEnabled() {
		if err := diag.CheckCoverage(uint64(inputSize), pr); err != nil {
			return rcerrors.ErrCoverageGap.Wrap(err)
		}
	}

	buffer := make([]byte, bufferSize)

	embedChunk := func(start, end int64) error {
		for start != end {
			n := end - start
			if n > bufferSize {
				n = bufferSize
			}
			r, err := io.ReadFull(input, buffer[:n])
			if err != nil {
				return err
			}
			if _, err := llrFile.Write(buffer[:r]); err != nil {
				return err
			}
			hash.Update(buffer[:r])
			start += int64(r)
		}
		return nil
	}

	hashChunk := func(start, end int64) error {
		for start != end {
			n := end - start
			if n > bufferSize {
				n = bufferSize
			}
			r, err := io.ReadFull(input, buffer[:n])
			if err != nil {
				return err
			}
			hash.Update(buffer[:r])
			start += int64(r)
		}
		return nil
	}

	var prevOffset int64
	for _, e := range pr.Table() {
		origPos := int64(e.OrigPos)
		if origPos != prevOffset {
			if err := embedChunk(prevOffset, origPos); err != nil {
				return err
			}
			prevOffset = origPos
		}

		prevOffset += int64(e.OrigSize)
		if err := hashChunk(origPos, prevOffset); err != nil {
			return err
		}
	}

	if prevOffset != inputSize {
		if err := embedChunk(prevOffset, inputSize); err != nil {
			return err
		}
	}

	hashBuffer := hash.Final()

	if _, err := llrFile.Seek(hashPos, io.SeekStart); err != nil {
		return err
	}
	if _, err := llrFile.Write(hashBuffer); err != nil {
		return err
	}

	return nil
}

// Reader reads LLR files.
type Reader struct{}

// NewReader returns a ready-to-use Reader.
func NewReader() *Reader {
	return &Reader{}
}

// ReadInfo reads just the header (magic, originalFileSize, the
// zero-terminated hash name, hash size, hash buffer), leaving llrFile
// positioned immediately before the stream table. The decompression pass
// calls it on its own to learn originalFileSize before allocating the
// output file, without paying for the full table deserialization.
func (*Reader) ReadInfo(llrFile io.Reader) (Info, error) {
	var gotMagic uint32
	if err := binary.Read(llrFile, binary.BigEndian, &gotMagic); err != nil {
		return Info{}, err
	}
	if gotMagic != magic {
		return Info{}, rcerrors.ErrBadMagic.WithMessage(
			fmt.Sprintf("got %#08x, want %#08x", gotMagic, magic))
	}

	var info Info
	if err := binary.Read(llrFile, binary.BigEndian, &info.OriginalFileSize); err != nil {
		return Info{}, err
	}

	hashName, err := refs.GetString(llrFile)
	if err != nil {
		return Info{}, err
	}
	info.HashName = hashName

	var hashSize uint16
	if err := binary.Read(llrFile, binary.BigEndian, &hashSize); err != nil {
		return Info{}, err
	}

	info.HashBuffer = make([]byte, hashSize)
	if _, err := io.ReadFull(llrFile, info.HashBuffer); err != nil {
		return Info{}, err
	}

	return info, nil
}

// Read reads a full LLR file: the header, the stream/reference tables
// (into outPacketRefs), and the gap region, which it writes into output
// at the original offsets. output must support seeking because gap
// ranges are not necessarily contiguous or in order relative to any
// prior write.
func (r *Reader) Read(llrFile io.Reader, outPacketRefs *refs.PacketReferences, output io.WriteSeeker) (Info, error) {
	info, err := r.ReadInfo(llrFile)
	if err != nil {
		return Info{}, err
	}

	if err := outPacketRefs.Deserialize(llrFile); err != nil {
		return Info{}, err
	}

	buffer := make([]byte, bufferSize)

	loadChunk := func(start, end int64) error {
		if _, err := output.Seek(start, io.SeekStart); err != nil {
			return err
		}
		for start != end {
			n := end - start
			if n > bufferSize {
				n = bufferSize
			}
			r, err := io.ReadFull(llrFile, buffer[:n])
			if err != nil {
				return err
			}
			if _, err := output.Write(buffer[:r]); err != nil {
				return err
			}
			start += int64(r)
		}
		return nil
	}

	var prevOffset int64
	for _, e := range outPacketRefs.Table() {
		origPos := int64(e.OrigPos)
		if origPos != prevOffset {
			if err := loadChunk(prevOffset, origPos); err != nil {
				return Info{}, err
			}
			prevOffset = origPos
		}
		prevOffset += int64(e.OrigSize)
	}

	if uint64(prevOffset) != info.OriginalFileSize {
		if err := loadChunk(prevOffset, int64(info.OriginalFileSize)); err != nil {
			return Info{}, err
		}
	}

	return info, nil
}
