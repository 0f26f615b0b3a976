package transcode

import (
	"errors"
	"fmt"

	"github.com/asticode/go-astiav"
	"github.com/fdurso/rawcompr-go/avio"
	"github.com/fdurso/rawcompr-go/rcerrors"
	"github.com/fdurso/rawcompr-go/refs"
)

const maxDrainIterations = 64

// VideoEncoder decodes a rawvideo stream, converts each frame into a
// round-trip-lossless pixel format the target codec supports, and
// re-encodes it with that codec.
type VideoEncoder struct {
	encoderBase

	decoder  *avio.Decoder
	encoder  *avio.Encoder
	scaler   *avio.Scaler
	outFrame *astiav.Frame
	inTB     astiav.Rational
}

// VideoEncoderConfig bundles the caller-supplied encoding choices:
// which codec to encode with and its option dictionary.
type VideoEncoderConfig struct {
	CodecID astiav.CodecID
	Options map[string]string
}

// NewVideoEncoder opens the decode/convert/encode chain for a rawvideo
// input stream and registers its video row in table, using the stream's
// original pixel format so decompression can restore it exactly.
func NewVideoEncoder(writer *avio.ContainerWriter, in avio.StreamParams, cfg VideoEncoderConfig, table *refs.PacketReferences) (*VideoEncoder, error) {
	outStream := writer.NewStream()
	if err := in.CodecParameters().Copy(outStream.CodecParameters()); err != nil {
		return nil, err
	}
	outStream.CodecParameters().SetCodecID(cfg.CodecID)
	outStream.CodecParameters().SetCodecTag(0)
	outStream.SetTimeBase(in.TimeBase)
	outStream.SetAvgFrameRate(in.FrameRate)
	outStream.SetDuration(in.Duration)

	decoder, err := avio.OpenDecoder(in)
	if err != nil {
		return nil, err
	}

	candidates, err := avio.AvailableEncoderPixelFormats(cfg.CodecID)
	if err != nil {
		decoder.Close()
		return nil, err
	}

	chosenFormat, err := avio.SelectLosslessPixelFormat(in.PixelFormat, candidates)
	if err != nil {
		decoder.Close()
		return nil, err
	}

	encoder, err := avio.OpenEncoder(avio.EncoderConfig{
		CodecID:      cfg.CodecID,
		Width:        in.Width,
		Height:       in.Height,
		PixelFormat:  chosenFormat,
		TimeBase:     in.TimeBase,
		Options:      cfg.Options,
		GlobalHeader: true,
	})
	if err != nil {
		decoder.Close()
		return nil, err
	}

	// The encoder's opened context carries the chosen pixel format and any
	// extradata (e.g. FFV1's global header); the muxer needs both in the
	// output stream's parameters before WriteHeader.
	if err := encoder.Context().ToCodecParameters(outStream.CodecParameters()); err != nil {
		decoder.Close()
		encoder.Close()
		return nil, err
	}

	scaler, err := avio.NewScaler(in.Width, in.Height, in.PixelFormat, in.Width, in.Height, chosenFormat)
	if err != nil {
		decoder.Close()
		encoder.Close()
		return nil, err
	}

	outFrame := astiav.AllocFrame()
	outFrame.SetWidth(in.Width)
	outFrame.SetHeight(in.Height)
	outFrame.SetPixelFormat(chosenFormat)
	if err := outFrame.AllocBuffer(0); err != nil {
		decoder.Close()
		encoder.Close()
		scaler.Close()
		outFrame.Free()
		return nil, rcerrors.ErrAdapterFailed.Wrap(err)
	}

	table.AddVideoStream(in.PixelFormat.Name())

	return &VideoEncoder{
		encoderBase: encoderBase{
			writer:      writer,
			table:       table,
			outStream:   outStream,
			outTimeBase: in.TimeBase,
		},
		decoder:  decoder,
		encoder:  encoder,
		scaler:   scaler,
		outFrame: outFrame,
		inTB:     in.TimeBase,
	}, nil
}

// ProcessPacket decodes in, converts the resulting frame into the
// encoder's pixel format, and writes the re-encoded packet, registered
// against in's byte range. A second packet received in the same call
// would repeat that range's origPos and is rejected by the reference
// table with rcerrors.ErrOverlappingRange.
func (e *VideoEncoder) ProcessPacket(in *avio.Packet) error {
	pkt := astiav.AllocPacket()
	defer pkt.Free()
	if err := pkt.FromData(in.Data); err != nil {
		return err
	}
	pkt.SetPts(in.PTS)
	pkt.SetDts(in.DTS)
	pkt.SetDuration(in.Duration)

	if err := e.decoder.SendPacket(pkt); err != nil {
		return err
	}

	frame := astiav.AllocFrame()
	defer frame.Free()
	if err := e.decoder.ReceiveFrame(frame); err != nil {
		return rcerrors.ErrPrematureEOF.WithMessage(
			fmt.Sprintf("rawvideo decoder produced no frame for packet at pos %d: %s", in.Pos, err))
	}

	if err := e.scaler.Convert(frame, e.outFrame); err != nil {
		return err
	}
	e.outFrame.SetPts(frame.Pts())
	e.outFrame.SetFlags(e.outFrame.Flags().Del(astiav.FrameFlagKey))

	if err := e.encoder.SendFrame(e.outFrame); err != nil {
		return err
	}

	return e.drainAndWrite(in.Pos, in.Size)
}

func (e *VideoEncoder) drainAndWrite(origPos int64, origSize int) error {
	for {
		outPkt := astiav.AllocPacket()
		err := e.encoder.ReceivePacket(outPkt)
		if err != nil {
			outPkt.Free()
			if errors.Is(err, astiav.ErrEagain) || errors.Is(err, astiav.ErrEof) {
				return nil
			}
			return err
		}
		writeErr := e.finalizeAndWrite(outPkt, e.inTB, origPos, origSize)
		outPkt.Free()
		if writeErr != nil {
			return writeErr
		}
	}
}

// Close flushes the encoder and verifies nothing was still buffered. A
// residual packet surfacing only now has no original byte range left to
// cover, so it cannot be registered in the reference table; its
// appearance means the codec delayed output past the packet that carried
// its source bytes, and the compressed file would not be reconstructible.
func (e *VideoEncoder) Close() error {
	defer e.decoder.Close()
	defer e.encoder.Close()
	defer e.scaler.Close()
	defer e.outFrame.Free()

	if err := e.encoder.SendFrame(nil); err != nil {
		return err
	}

	for i := 0; i < maxDrainIterations; i++ {
		outPkt := astiav.AllocPacket()
		err := e.encoder.ReceivePacket(outPkt)
		outPkt.Free()
		if errors.Is(err, astiav.ErrEof) {
			return nil
		}
		if errors.Is(err, astiav.ErrEagain) {
			continue
		}
		if err != nil {
			return err
		}
		return rcerrors.ErrResidualPackets.WithMessage(fmt.Sprintf("stream %d", e.outStream.Index()))
	}

	return rcerrors.ErrEncoderDrainStalled.WithMessage(fmt.Sprintf("stream %d", e.outStream.Index()))
}
