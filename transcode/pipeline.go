package transcode

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/asticode/go-astiav"
	"github.com/fdurso/rawcompr-go/avio"
	"github.com/fdurso/rawcompr-go/diag"
	"github.com/fdurso/rawcompr-go/internal/rclog"
	"github.com/fdurso/rawcompr-go/llr"
	"github.com/fdurso/rawcompr-go/rcerrors"
	"github.com/fdurso/rawcompr-go/refs"
)

const hashBufferSize = 4096

// CompressOptions configures one compression pass. VideoCodec selects the
// lossless codec raw-video streams are re-encoded with; only FFV1 and
// HuffYUV are supported, since byte-exact reconstruction depends on the
// codec round-tripping every frame bit.
type CompressOptions struct {
	InputPath         string
	OutputPath        string
	LLRPath           string
	VideoCodec        astiav.CodecID
	VideoCodecOptions map[string]string
	HashName          string
	// DumpTablePath, if non-empty, writes the finished reference table as
	// CSV to this path before the LLR file is written.
	DumpTablePath string
}

// DecompressOptions configures one decompression pass.
type DecompressOptions struct {
	InputPath  string // compressed container
	LLRPath    string
	OutputPath string // reconstructed original
}

// Pipeline drives a single compress or decompress pass over a container
// and its sidecar LLR file. The zero value is ready to use.
type Pipeline struct{}

// NewPipeline returns a ready-to-use Pipeline.
func NewPipeline() *Pipeline { return &Pipeline{} }

// Compress re-encodes every rawvideo stream of the input container into
// the configured lossless codec, copies every other stream through, and
// writes the sidecar reconstruction file. ctx carries no deadline of its
// own; the CLI derives it from os/signal so a pass can be aborted
// between packets without leaving the output half-written mid-packet.
func (p *Pipeline) Compress(ctx context.Context, opts CompressOptions) error {
	reader, err := avio.OpenContainerReader(opts.InputPath)
	if err != nil {
		return err
	}
	defer reader.Close()

	writer, err := avio.OpenContainerWriter(opts.OutputPath)
	if err != nil {
		return err
	}
	defer writer.Close()

	table := &refs.PacketReferences{}

	streams := reader.Streams()
	encoders := make([]Encoder, len(streams))
	for i, s := range streams {
		if s.CodecID == astiav.CodecIDRawvideo {
			enc, err := NewVideoEncoder(writer, s, VideoEncoderConfig{
				CodecID: opts.VideoCodec,
				Options: opts.VideoCodecOptions,
			}, table)
			if err != nil {
				return err
			}
			encoders[i] = enc
		} else {
			enc, err := NewCopyEncoder(writer, s, table)
			if err != nil {
				return err
			}
			encoders[i] = enc
		}
	}

	if err := writer.WriteHeader(); err != nil {
		return err
	}

	if err := runCompressionLoop(ctx, reader, encoders); err != nil {
		return err
	}

	var closeErrs []error
	for _, enc := range encoders {
		closeErrs = append(closeErrs, enc.Close())
	}
	if err := rcerrors.Join(closeErrs...); err != nil {
		return err
	}

	if rclog.DebugEnabled() {
		table.Dump(os.Stderr)
	}

	if opts.DumpTablePath != "" {
		if err := p.dumpTable(opts.DumpTablePath, table); err != nil {
			return err
		}
	}

	if err := p.writeLLR(opts, table); err != nil {
		return err
	}

	return writer.WriteTrailer()
}

// runCompressionLoop reads input packets in demux order and dispatches
// each to its stream's encoder. ctx is checked once per iteration, not
// inside any single encoder call.
func runCompressionLoop(ctx context.Context, source packetSource, encoders []Encoder) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		pkt, err := source.ReadPacket()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		rclog.Debug("compress: packet", "stream", pkt.StreamIndex, "pos", pkt.Pos, "size", pkt.Size)

		if err := encoders[pkt.StreamIndex].ProcessPacket(pkt); err != nil {
			return err
		}
	}
}

func (p *Pipeline) dumpTable(path string, table *refs.PacketReferences) error {
	f, err := avio.CreateFile(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return diag.DumpTable(f, table)
}

func (p *Pipeline) writeLLR(opts CompressOptions, table *refs.PacketReferences) error {
	input, err := avio.OpenFileForReading(opts.InputPath)
	if err != nil {
		return err
	}
	defer input.Close()

	llrFile, err := avio.CreateFile(opts.LLRPath)
	if err != nil {
		return err
	}
	defer llrFile.Close()

	w := llr.NewWriter(avio.LLRHashFactory)
	return w.Write(input, table, llrFile, opts.HashName)
}

// refKey identifies one reference row uniquely, by
// (streamIndex, packetIndex, pts).
type refKey struct {
	streamIndex uint32
	packetIndex uint64
	pts         int64
}

// packetSource is the read side of a demuxed container. avio.ContainerReader
// satisfies it; pipeline_test.go substitutes a fake so the reverse-index
// bookkeeping and error propagation in runDecompressionLoop can be
// exercised without a real FFmpeg build.
type packetSource interface {
	ReadPacket() (*avio.Packet, error)
}

// Decompress rebuilds the original container byte-for-byte from a
// compressed container and its sidecar file, then verifies the recorded
// hash over the result.
func (p *Pipeline) Decompress(ctx context.Context, opts DecompressOptions) error {
	llrHeaderFile, err := avio.OpenFileForReading(opts.LLRPath)
	if err != nil {
		return err
	}
	headerReader := llr.NewReader()
	info, err := headerReader.ReadInfo(llrHeaderFile)
	llrHeaderFile.Close()
	if err != nil {
		return err
	}

	outputFile, err := avio.CreateSparseFile(opts.OutputPath, int64(info.OriginalFileSize))
	if err != nil {
		return err
	}
	defer outputFile.Close()

	llrFile, err := avio.OpenFileForReading(opts.LLRPath)
	if err != nil {
		return err
	}
	defer llrFile.Close()

	table := &refs.PacketReferences{}
	reader := llr.NewReader()
	info, err = reader.Read(llrFile, table, outputFile)
	if err != nil {
		return err
	}

	compReader, err := avio.OpenContainerReader(opts.InputPath)
	if err != nil {
		return err
	}
	defer compReader.Close()

	compStreams := compReader.Streams()
	if len(table.Streams()) != len(compStreams) {
		return rcerrors.ErrStreamCountMismatch.WithMessage(
			fmt.Sprintf("llr declares %d streams, compressed container has %d", len(table.Streams()), len(compStreams)))
	}

	decoders := make([]Decoder, len(compStreams))
	for i, s := range compStreams {
		si := table.Streams()[i]
		if si.Type == refs.CodecVideo {
			dec, err := NewVideoDecoder(s, si.PixelFormat)
			if err != nil {
				return err
			}
			decoders[i] = dec
		} else {
			decoders[i] = NewCopyDecoder()
		}
	}

	if err := runDecompressionLoop(ctx, compReader, decoders, table, outputFile); err != nil {
		return err
	}

	return p.verifyHash(outputFile, info)
}

// runDecompressionLoop builds the reverse index, reads packets in demux
// order decoding each into its original byte range, erases the matched
// entry, and fails if the index isn't empty once the source is
// exhausted.
func runDecompressionLoop(ctx context.Context, source packetSource, decoders []Decoder, table *refs.PacketReferences, output io.WriteSeeker) error {
	reverseIndex := make(map[refKey]refs.TableEntry, len(table.Table()))
	for _, e := range table.Table() {
		reverseIndex[refKey{e.StreamIndex, e.PacketIndex, e.PTS}] = e
	}

	packetCounters := make([]uint64, len(decoders))

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		pkt, err := source.ReadPacket()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		idx := uint32(pkt.StreamIndex)
		key := refKey{streamIndex: idx, packetIndex: packetCounters[idx], pts: pkt.PTS}
		entry, ok := reverseIndex[key]
		if !ok {
			return rcerrors.ErrDestinationNotFound.WithMessage(
				fmt.Sprintf("stream %d packet %d pts %d", idx, packetCounters[idx], pkt.PTS))
		}

		data, err := decoders[idx].DecodePacket(pkt)
		if err != nil {
			return err
		}
		if uint32(len(data)) != entry.OrigSize {
			return rcerrors.ErrDecodedSizeMismatch.WithMessage(
				fmt.Sprintf("stream %d packet %d: got %d bytes, want %d", idx, packetCounters[idx], len(data), entry.OrigSize))
		}

		if _, err := output.Seek(int64(entry.OrigPos), io.SeekStart); err != nil {
			return err
		}
		if _, err := output.Write(data); err != nil {
			return err
		}

		delete(reverseIndex, key)
		packetCounters[idx]++
	}

	var closeErrs []error
	for _, dec := range decoders {
		closeErrs = append(closeErrs, dec.Close())
	}
	if err := rcerrors.Join(closeErrs...); err != nil {
		return err
	}

	if len(reverseIndex) != 0 {
		return rcerrors.ErrMissingSourcePackets.WithMessage(
			fmt.Sprintf("%d reference rows were never matched to a compressed packet", len(reverseIndex)))
	}

	return nil
}

func (p *Pipeline) verifyHash(outputFile *avio.File, info llr.Info) error {
	hash, err := avio.NewHash(info.HashName)
	if err != nil {
		return err
	}

	if _, err := outputFile.Seek(0, io.SeekStart); err != nil {
		return err
	}

	buffer := make([]byte, hashBufferSize)
	var remaining = int64(info.OriginalFileSize)
	for remaining > 0 {
		n := int64(hashBufferSize)
		if n > remaining {
			n = remaining
		}
		r, err := io.ReadFull(outputFile, buffer[:n])
		if err != nil {
			return err
		}
		hash.Update(buffer[:r])
		remaining -= int64(r)
	}

	got := hash.Final()
	if !bytes.Equal(got, info.HashBuffer) {
		return rcerrors.ErrHashMismatch.WithMessage(
			fmt.Sprintf("algorithm %s", info.HashName))
	}

	return nil
}
