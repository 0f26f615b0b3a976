package transcode

import (
	"github.com/asticode/go-astiav"
	"github.com/fdurso/rawcompr-go/avio"
	"github.com/fdurso/rawcompr-go/refs"
)

// CopyEncoder passes packets through verbatim: the output stream inherits
// the input codec parameters and no decode/encode work happens.
type CopyEncoder struct {
	encoderBase
}

// NewCopyEncoder creates the output stream for in and registers a Copy row
// in table.
func NewCopyEncoder(writer *avio.ContainerWriter, in avio.StreamParams, table *refs.PacketReferences) (*CopyEncoder, error) {
	outStream := writer.NewStream()
	if err := in.CodecParameters().Copy(outStream.CodecParameters()); err != nil {
		return nil, err
	}
	outStream.CodecParameters().SetCodecTag(0)
	outStream.SetTimeBase(in.TimeBase)

	table.AddCopyStream()

	return &CopyEncoder{
		encoderBase: encoderBase{
			writer:      writer,
			table:       table,
			outStream:   outStream,
			outTimeBase: in.TimeBase,
		},
	}, nil
}

// ProcessPacket re-stamps and writes the packet through unchanged.
func (e *CopyEncoder) ProcessPacket(in *avio.Packet) error {
	pkt := astiav.AllocPacket()
	defer pkt.Free()

	if err := pkt.FromData(in.Data); err != nil {
		return err
	}
	pkt.SetPts(in.PTS)
	pkt.SetDts(in.DTS)
	pkt.SetDuration(in.Duration)
	if in.KeyFrame {
		pkt.SetFlags(pkt.Flags().Add(astiav.PacketFlagKey))
	}

	return e.finalizeAndWrite(pkt, e.outTimeBase, in.Pos, in.Size)
}

// Close is a no-op: copy streams never buffer.
func (e *CopyEncoder) Close() error { return nil }
