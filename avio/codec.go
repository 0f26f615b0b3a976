package avio

import (
	"errors"

	"github.com/asticode/go-astiav"
)

// Decoder wraps a codec context opened for decoding.
type Decoder struct {
	cc *astiav.CodecContext
}

// OpenDecoder opens a decoder for the given stream parameters.
func OpenDecoder(params StreamParams) (*Decoder, error) {
	codec := astiav.FindDecoder(params.CodecID)
	if codec == nil {
		return nil, wrapAdapterErr("FindDecoder", errors.New("no decoder for codec "+params.CodecName))
	}

	cc := astiav.AllocCodecContext(codec)
	if cc == nil {
		return nil, wrapAdapterErr("AllocCodecContext", errors.New("allocation failed"))
	}
	if err := cc.FromCodecParameters(params.codecParameters); err != nil {
		cc.Free()
		return nil, wrapAdapterErr("FromCodecParameters", err)
	}
	if err := cc.Open(codec, nil); err != nil {
		cc.Free()
		return nil, wrapAdapterErr("Open decoder", err)
	}

	return &Decoder{cc: cc}, nil
}

// Context exposes the underlying codec context for callers (the video
// encoder/decoder) that need its pixel format, width, and height.
func (d *Decoder) Context() *astiav.CodecContext { return d.cc }

// SendPacket feeds one packet to the decoder.
func (d *Decoder) SendPacket(pkt *astiav.Packet) error {
	if err := d.cc.SendPacket(pkt); err != nil {
		return wrapAdapterErr("SendPacket", err)
	}
	return nil
}

// ReceiveFrame retrieves one decoded frame. Returns astiav.ErrEagain when
// no frame is ready yet without more input, or astiav.ErrEof once the
// decoder has been fully drained.
func (d *Decoder) ReceiveFrame(f *astiav.Frame) error {
	if err := d.cc.ReceiveFrame(f); err != nil {
		if errors.Is(err, astiav.ErrEagain) || errors.Is(err, astiav.ErrEof) {
			return err
		}
		return wrapAdapterErr("ReceiveFrame", err)
	}
	return nil
}

// Close releases the decoder's codec context.
func (d *Decoder) Close() error {
	d.cc.Free()
	return nil
}

// Encoder wraps a codec context opened for encoding.
type Encoder struct {
	cc *astiav.CodecContext
}

// EncoderConfig describes how to configure a newly allocated encoder
// context before it is opened.
type EncoderConfig struct {
	CodecID     astiav.CodecID
	Width       int
	Height      int
	PixelFormat astiav.PixelFormat
	TimeBase    astiav.Rational
	Options     map[string]string
	GlobalHeader bool
}

// OpenEncoder opens an encoder for the given codec with the caller's
// options map applied (string keys/values passed straight through to the
// underlying AVDictionary, matching how the CLI's --video-opt flags are
// collected).
func OpenEncoder(cfg EncoderConfig) (*Encoder, error) {
	codec := astiav.FindEncoder(cfg.CodecID)
	if codec == nil {
		return nil, wrapAdapterErr("FindEncoder", errors.New("no encoder for codec id"))
	}

	cc := astiav.AllocCodecContext(codec)
	if cc == nil {
		return nil, wrapAdapterErr("AllocCodecContext", errors.New("allocation failed"))
	}

	cc.SetWidth(cfg.Width)
	cc.SetHeight(cfg.Height)
	cc.SetPixelFormat(cfg.PixelFormat)
	cc.SetTimeBase(cfg.TimeBase)
	if cfg.GlobalHeader {
		cc.SetFlags(cc.Flags().Add(astiav.CodecContextFlagGlobalHeader))
	}

	dict := astiav.NewDictionary()
	defer dict.Free()
	for k, v := range cfg.Options {
		if err := dict.Set(k, v, 0); err != nil {
			cc.Free()
			return nil, wrapAdapterErr("Dictionary.Set "+k, err)
		}
	}

	if err := cc.Open(codec, dict); err != nil {
		cc.Free()
		return nil, wrapAdapterErr("Open encoder", err)
	}

	return &Encoder{cc: cc}, nil
}

// AvailableEncoderPixelFormats looks up the pixel formats a codec
// advertises support for without opening a context, so a caller (the
// video encoder, choosing a lossless target format) can query this
// before it has decided every other encoder parameter.
func AvailableEncoderPixelFormats(codecID astiav.CodecID) ([]astiav.PixelFormat, error) {
	codec := astiav.FindEncoder(codecID)
	if codec == nil {
		return nil, wrapAdapterErr("FindEncoder", errors.New("no encoder for codec id"))
	}
	return codec.PixelFormats(), nil
}

// Context exposes the underlying codec context.
func (e *Encoder) Context() *astiav.CodecContext { return e.cc }

// SendFrame feeds one frame to the encoder. A nil frame signals end of
// stream and begins the flush sequence: subsequent ReceivePacket calls
// drain buffered packets until astiav.ErrEof.
func (e *Encoder) SendFrame(f *astiav.Frame) error {
	if err := e.cc.SendFrame(f); err != nil {
		return wrapAdapterErr("SendFrame", err)
	}
	return nil
}

// ReceivePacket retrieves one encoded packet. Returns astiav.ErrEagain if
// none is ready yet, or astiav.ErrEof once a flush has fully drained.
func (e *Encoder) ReceivePacket(pkt *astiav.Packet) error {
	if err := e.cc.ReceivePacket(pkt); err != nil {
		if errors.Is(err, astiav.ErrEagain) || errors.Is(err, astiav.ErrEof) {
			return err
		}
		return wrapAdapterErr("ReceivePacket", err)
	}
	return nil
}

// Close releases the encoder's codec context.
func (e *Encoder) Close() error {
	e.cc.Free()
	return nil
}
