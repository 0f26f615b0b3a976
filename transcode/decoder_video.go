package transcode

import (
	"errors"
	"fmt"

	"github.com/asticode/go-astiav"
	"github.com/fdurso/rawcompr-go/avio"
	"github.com/fdurso/rawcompr-go/rcerrors"
)

// VideoDecoder mirrors VideoEncoder in reverse: it decodes a compressed
// video packet, converts the frame back into the stream's original pixel
// format, and re-encodes it as rawvideo so the resulting packet's payload
// is exactly the bytes the original container carried.
type VideoDecoder struct {
	decoder     *avio.Decoder
	encoder     *avio.Encoder
	scaler      *avio.Scaler
	outFrame    *astiav.Frame
	pixelFormat astiav.PixelFormat
	width       int
	height      int
}

// NewVideoDecoder opens the decode/convert/re-encode chain for a
// compressed video stream, targeting originalPixelFormat (the name
// recorded in the LLR stream table).
func NewVideoDecoder(params avio.StreamParams, originalPixelFormat string) (*VideoDecoder, error) {
	pixelFormat, err := avio.ParsePixelFormat(originalPixelFormat)
	if err != nil {
		return nil, err
	}

	decoder, err := avio.OpenDecoder(params)
	if err != nil {
		return nil, err
	}

	width, height := params.Width, params.Height

	encoder, err := avio.OpenEncoder(avio.EncoderConfig{
		CodecID:     astiav.CodecIDRawvideo,
		Width:       width,
		Height:      height,
		PixelFormat: pixelFormat,
		TimeBase:    params.TimeBase,
	})
	if err != nil {
		decoder.Close()
		return nil, err
	}

	scaler, err := avio.NewScaler(width, height, params.PixelFormat, width, height, pixelFormat)
	if err != nil {
		decoder.Close()
		encoder.Close()
		return nil, err
	}

	outFrame := astiav.AllocFrame()
	outFrame.SetWidth(width)
	outFrame.SetHeight(height)
	outFrame.SetPixelFormat(pixelFormat)
	if err := outFrame.AllocBuffer(0); err != nil {
		decoder.Close()
		encoder.Close()
		scaler.Close()
		outFrame.Free()
		return nil, rcerrors.ErrAdapterFailed.Wrap(err)
	}

	return &VideoDecoder{
		decoder:     decoder,
		encoder:     encoder,
		scaler:      scaler,
		outFrame:    outFrame,
		pixelFormat: pixelFormat,
		width:       width,
		height:      height,
	}, nil
}

// DecodePacket decodes in, converts the frame into the stream's original
// pixel format, and re-encodes it as rawvideo, returning the resulting
// packet's payload.
func (d *VideoDecoder) DecodePacket(in *avio.Packet) ([]byte, error) {
	pkt := astiav.AllocPacket()
	defer pkt.Free()
	if err := pkt.FromData(in.Data); err != nil {
		return nil, err
	}
	pkt.SetPts(in.PTS)
	pkt.SetDts(in.DTS)
	pkt.SetDuration(in.Duration)

	if err := d.decoder.SendPacket(pkt); err != nil {
		return nil, err
	}

	frame := astiav.AllocFrame()
	defer frame.Free()
	if err := d.decoder.ReceiveFrame(frame); err != nil {
		return nil, rcerrors.ErrPrematureEOF.WithMessage(
			fmt.Sprintf("compressed video decoder produced no frame for packet at pos %d: %s", in.Pos, err))
	}

	if err := d.scaler.Convert(frame, d.outFrame); err != nil {
		return nil, err
	}

	if err := d.encoder.SendFrame(d.outFrame); err != nil {
		return nil, err
	}

	outPkt := astiav.AllocPacket()
	defer outPkt.Free()
	if err := d.encoder.ReceivePacket(outPkt); err != nil {
		return nil, rcerrors.ErrPrematureEOF.WithMessage(
			fmt.Sprintf("rawvideo re-encoder produced no packet for packet at pos %d: %s", in.Pos, err))
	}

	return append([]byte(nil), outPkt.Data()...), nil
}

// Close flushes the rawvideo re-encoder, expecting zero residual packets
// since rawvideo has no internal delay; any that do appear are a fatal
// ErrResidualPackets, same as VideoEncoder.Close.
func (d *VideoDecoder) Close() error {
	defer d.decoder.Close()
	defer d.encoder.Close()
	defer d.scaler.Close()
	defer d.outFrame.Free()

	if err := d.encoder.SendFrame(nil); err != nil {
		return err
	}

	for i := 0; i < maxDrainIterations; i++ {
		outPkt := astiav.AllocPacket()
		err := d.encoder.ReceivePacket(outPkt)
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
		return rcerrors.ErrResidualPackets.WithMessage("rawvideo re-encoder")
	}

	return rcerrors.ErrEncoderDrainStalled.WithMessage("rawvideo re-encoder")
}
