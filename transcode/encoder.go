// Package transcode drives the per-stream encoders and decoders over a
// demuxed/muxed container and orchestrates a full compress or decompress
// pass, tying together avio, refs, and llr.
package transcode

import (
	"github.com/asticode/go-astiav"
	"github.com/fdurso/rawcompr-go/avio"
	"github.com/fdurso/rawcompr-go/refs"
)

// Encoder wraps one input stream during compression. ProcessPacket is
// called once per demuxed input packet belonging to this encoder's
// stream and yields zero or one output packets; Close flushes any
// buffered output and fails if the flush yields a residual packet, since
// such a packet has no original byte range to be registered against.
type Encoder interface {
	ProcessPacket(in *avio.Packet) error
	Close() error
}

// rescale maps a timestamp from srcTB to dstTB with nearest-integer
// rounding, passing astiav.NoPtsValue through unchanged.
func rescale(ts int64, srcTB, dstTB astiav.Rational) int64 {
	if ts == astiav.NoPtsValue {
		return astiav.NoPtsValue
	}
	return astiav.RescaleQRnd(ts, srcTB, dstTB, astiav.RoundingNearInf|astiav.RoundingPassMinmax)
}

// encoderBase implements the shared finalize-and-write sequence every
// encoder kind follows: rescale timestamps, stamp the output stream
// index, register the reference row before the muxer ever sees the
// packet, write, count.
type encoderBase struct {
	writer      *avio.ContainerWriter
	table       *refs.PacketReferences
	outStream   *astiav.Stream
	outTimeBase astiav.Rational
	packetCount uint64
}

func (b *encoderBase) finalizeAndWrite(pkt *astiav.Packet, inTimeBase astiav.Rational, origPos int64, origSize int) error {
	// The muxer may replace the stream's time base in WriteHeader, so read
	// it from the stream at write time.
	outTimeBase := b.outStream.TimeBase()
	pkt.SetPts(rescale(pkt.Pts(), inTimeBase, outTimeBase))
	pkt.SetDts(rescale(pkt.Dts(), inTimeBase, outTimeBase))
	pkt.SetDuration(rescale(pkt.Duration(), inTimeBase, outTimeBase))
	pkt.SetStreamIndex(b.outStream.Index())

	if err := b.table.AddPacketReference(
		uint32(b.outStream.Index()), b.packetCount, pkt.Pts(), uint64(origPos), uint32(origSize),
	); err != nil {
		return err
	}

	if err := b.writer.WritePacket(pkt); err != nil {
		return err
	}

	b.packetCount++
	return nil
}
