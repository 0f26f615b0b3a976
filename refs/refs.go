// Package refs models PacketReferences: the mapping from original-container
// byte ranges to packets in the compressed container. Encoders append to it
// during compression; the LLR codec serializes it to and deserializes it
// from the sidecar file; decoders and the orchestrator read it back during
// decompression.
package refs

import (
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/fdurso/rawcompr-go/rcerrors"
)

// CodecType tags a stream as either a verbatim copy or a re-encoded video
// stream. The numeric values are part of the LLR wire format and must not
// change.
type CodecType uint8

const (
	CodecCopy  CodecType = 1
	CodecVideo CodecType = 2
)

func (t CodecType) String() string {
	switch t {
	case CodecCopy:
		return "copy"
	case CodecVideo:
		return "video"
	default:
		return fmt.Sprintf("CodecType(%d)", uint8(t))
	}
}

// StreamInfo is one row of the LLR stream table.
type StreamInfo struct {
	Type CodecType
	// PixelFormat is the canonical name of the original pixel format the
	// stream carried (e.g. "yuv422p10le"). Only meaningful when Type is
	// CodecVideo.
	PixelFormat string
}

// ReferenceInfo describes the compressed-container packet that replaces one
// range of the original container.
type ReferenceInfo struct {
	OrigSize    uint32
	StreamIndex uint32
	PacketIndex uint64
	PTS         int64
}

// TableEntry pairs a ReferenceInfo with the original-file offset it covers.
type TableEntry struct {
	OrigPos uint64
	ReferenceInfo
}

// PacketReferences is the in-memory form of the reconstruction map. The
// zero value is ready to use.
type PacketReferences struct {
	streams []StreamInfo
	// table is kept sorted by OrigPos at all times; AddPacketReference
	// maintains the invariant so iteration order is always ascending,
	// which both serialization determinism and the LLR writer's linear
	// sweep depend on.
	table []TableEntry
}

// AddVideoStream appends a video stream row. Order matters: it must match
// the order streams appear in the compressed container.
func (pr *PacketReferences) AddVideoStream(pixelFormat string) {
	pr.streams = append(pr.streams, StreamInfo{Type: CodecVideo, PixelFormat: pixelFormat})
}

// AddCopyStream appends a copy stream row.
func (pr *PacketReferences) AddCopyStream() {
	pr.streams = append(pr.streams, StreamInfo{Type: CodecCopy})
}

// Streams returns a read-only view of the stream table.
func (pr *PacketReferences) Streams() []StreamInfo {
	return pr.streams
}

// Table returns a read-only view of the reference table, in ascending
// OrigPos order.
func (pr *PacketReferences) Table() []TableEntry {
	return pr.table
}

// AddPacketReference inserts one reference row. It fails with
// rcerrors.ErrOverlappingRange if origPos collides with an existing entry,
// or if the new range overlaps the entry that would follow it.
func (pr *PacketReferences) AddPacketReference(streamIndex uint32, packetIndex uint64, pts int64, origPos uint64, origSize uint32) error {
	i := sort.Search(len(pr.table), func(i int) bool { return pr.table[i].OrigPos >= origPos })

	if i < len(pr.table) && pr.table[i].OrigPos == origPos {
		return rcerrors.ErrOverlappingRange.WithMessage(
			fmt.Sprintf("duplicate origPos %d", origPos))
	}
	if i < len(pr.table) && origPos+uint64(origSize) > pr.table[i].OrigPos {
		return rcerrors.ErrOverlappingRange.WithMessage(
			fmt.Sprintf("range [%d, %d) overlaps following entry at %d", origPos, origPos+uint64(origSize), pr.table[i].OrigPos))
	}

	entry := TableEntry{
		OrigPos: origPos,
		ReferenceInfo: ReferenceInfo{
			OrigSize:    origSize,
			StreamIndex: streamIndex,
			PacketIndex: packetIndex,
			PTS:         pts,
		},
	}

	pr.table = append(pr.table, TableEntry{})
	copy(pr.table[i+1:], pr.table[i:])
	pr.table[i] = entry

	return nil
}

// Dump writes a human-readable listing of the stream and reference
// tables, for debug logging and manual inspection.
func (pr *PacketReferences) Dump(w io.Writer) {
	fmt.Fprintf(w, "Streams (total %d):\n", len(pr.streams))
	for i, s := range pr.streams {
		switch s.Type {
		case CodecVideo:
			fmt.Fprintf(w, "  Stream #0:%d: video %s\n", i, s.PixelFormat)
		case CodecCopy:
			fmt.Fprintf(w, "  Stream #0:%d: copy\n", i)
		}
	}

	fmt.Fprintf(w, "Packet references (total %d):\n", len(pr.table))
	for _, e := range pr.table {
		fmt.Fprintf(w, "  %d-%d: Stream #0:%d (index %d) - pts %d size %d\n",
			e.OrigPos, e.OrigPos+uint64(e.OrigSize), e.StreamIndex, e.PacketIndex, e.PTS, e.OrigSize)
	}
}

// Serialize writes the stream table and reference table in the binary
// layout described by the LLR file format (the portion following the
// header: magic, originalFileSize, hash name/size/buffer are owned by the
// llr package, not by PacketReferences itself).
func (pr *PacketReferences) Serialize(w io.Writer) error {
	if err := binary.Write(w, binary.BigEndian, uint32(len(pr.streams))); err != nil {
		return err
	}
	for _, s := range pr.streams {
		if err := binary.Write(w, binary.BigEndian, uint8(s.Type)); err != nil {
			return err
		}
		if s.Type == CodecVideo {
			if err := PutString(w, s.PixelFormat); err != nil {
				return err
			}
		}
	}

	if err := binary.Write(w, binary.BigEndian, uint64(len(pr.table))); err != nil {
		return err
	}
	for _, e := range pr.table {
		if err := binary.Write(w, binary.BigEndian, e.OrigPos); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, e.OrigSize); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, e.StreamIndex); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, e.PacketIndex); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, e.PTS); err != nil {
			return err
		}
	}

	return nil
}

// Deserialize replaces the receiver's contents by reading the layout
// Serialize produces. Table rows are expected in ascending OrigPos order,
// as Serialize always writes them; Deserialize does not re-sort, so a
// malformed file with out-of-order rows will silently violate the
// ascending-order invariant downstream consumers rely on. Validate with
// Table()'s ordering if the input is untrusted.
func (pr *PacketReferences) Deserialize(r io.Reader) error {
	var streamCount uint32
	if err := binary.Read(r, binary.BigEndian, &streamCount); err != nil {
		return err
	}

	streams := make([]StreamInfo, 0, streamCount)
	for i := uint32(0); i < streamCount; i++ {
		var typeByte uint8
		if err := binary.Read(r, binary.BigEndian, &typeByte); err != nil {
			return err
		}

		info := StreamInfo{Type: CodecType(typeByte)}
		switch info.Type {
		case CodecVideo:
			pixFmt, err := GetString(r)
			if err != nil {
				return err
			}
			info.PixelFormat = pixFmt
		case CodecCopy:
			// no additional fields
		default:
			return rcerrors.ErrBadMagic.WithMessage(fmt.Sprintf("unknown stream type byte %d", typeByte))
		}
		streams = append(streams, info)
	}

	var tableCount uint64
	if err := binary.Read(r, binary.BigEndian, &tableCount); err != nil {
		return err
	}

	table := make([]TableEntry, 0, tableCount)
	for i := uint64(0); i < tableCount; i++ {
		var entry TableEntry
		if err := binary.Read(r, binary.BigEndian, &entry.OrigPos); err != nil {
			return err
		}
		if err := binary.Read(r, binary.BigEndian, &entry.OrigSize); err != nil {
			return err
		}
		if err := binary.Read(r, binary.BigEndian, &entry.StreamIndex); err != nil {
			return err
		}
		if err := binary.Read(r, binary.BigEndian, &entry.PacketIndex); err != nil {
			return err
		}
		if err := binary.Read(r, binary.BigEndian, &entry.PTS); err != nil {
			return err
		}
		table = append(table, entry)
	}

	pr.streams = streams
	pr.table = table
	return nil
}

// PutString writes a zero-terminated byte string, the "put string"
// primitive the LLR format uses for stream-table pixel format names and
// for the hash algorithm name. Exported so the llr package can reuse it
// for the fields it owns (hash name) without a second implementation of
// the same wire primitive.
func PutString(w io.Writer, s string) error {
	if _, err := io.WriteString(w, s); err != nil {
		return err
	}
	_, err := w.Write([]byte{0})
	return err
}

// GetString reads a zero-terminated byte string, one byte at a time. The
// LLR format never declares an upper bound on string length up front, so
// callers that want a bound should wrap r accordingly before calling.
func GetString(r io.Reader) (string, error) {
	var buf []byte
	var b [1]byte
	for {
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return "", err
		}
		if b[0] == 0 {
			return string(buf), nil
		}
		buf = append(buf, b[0])
	}
}
