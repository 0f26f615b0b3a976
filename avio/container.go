package avio

import (
	"errors"
	"fmt"
	"io"

	"github.com/asticode/go-astiav"
)

// StreamParams describes one stream of an opened container, narrowed down
// to the fields the transcode pipeline consults.
type StreamParams struct {
	Index       int
	CodecID     astiav.CodecID
	CodecName   string
	TimeBase    astiav.Rational
	FrameRate   astiav.Rational
	Duration    int64
	PixelFormat astiav.PixelFormat // only meaningful for video streams
	Width       int                // only meaningful for video streams
	Height      int                // only meaningful for video streams

	codecParameters *astiav.CodecParameters
}

// CodecParameters exposes the underlying codec parameters handle for
// callers (the copy and video encoders) that need to copy or mutate it
// directly when building an output stream.
func (p StreamParams) CodecParameters() *astiav.CodecParameters { return p.codecParameters }

// Packet is one demuxed unit of codec-level data, with the byte-extent
// fields (Pos, Size) the LLR reference table depends on.
type Packet struct {
	StreamIndex int
	PTS         int64
	DTS         int64
	Duration    int64
	Pos         int64
	Size        int
	KeyFrame    bool
	Data        []byte
}

// ContainerReader demuxes a container, handing back packets in demux
// order with their original byte-extent metadata intact.
type ContainerReader struct {
	fc      *astiav.FormatContext
	packet  *astiav.Packet
	streams []StreamParams
}

// OpenContainerReader opens path, probes its streams, and returns a
// ContainerReader positioned at the start of the packet stream.
func OpenContainerReader(path string) (*ContainerReader, error) {
	fc := astiav.AllocFormatContext()
	if fc == nil {
		return nil, wrapAdapterErr("AllocFormatContext", errors.New("allocation failed"))
	}

	if err := fc.OpenInput(path, nil, nil); err != nil {
		fc.Free()
		return nil, wrapAdapterErr("OpenInput "+path, err)
	}
	if err := fc.FindStreamInfo(nil); err != nil {
		fc.CloseInput()
		return nil, wrapAdapterErr("FindStreamInfo", err)
	}

	cr := &ContainerReader{fc: fc, packet: astiav.AllocPacket()}
	for _, s := range fc.Streams() {
		cp := s.CodecParameters()
		params := StreamParams{
			Index:           s.Index(),
			CodecID:         cp.CodecID(),
			CodecName:       cp.CodecID().Name(),
			TimeBase:        s.TimeBase(),
			FrameRate:       s.AvgFrameRate(),
			Duration:        s.Duration(),
			codecParameters: cp,
		}
		if cp.MediaType() == astiav.MediaTypeVideo {
			params.PixelFormat = cp.PixelFormat()
			params.Width = cp.Width()
			params.Height = cp.Height()
		}
		cr.streams = append(cr.streams, params)
	}

	return cr, nil
}

// Streams returns the container's streams in their original order.
func (cr *ContainerReader) Streams() []StreamParams { return cr.streams }

// ReadPacket returns the next demuxed packet, or io.EOF once the
// container is exhausted.
func (cr *ContainerReader) ReadPacket() (*Packet, error) {
	if err := cr.fc.ReadFrame(cr.packet); err != nil {
		if errors.Is(err, astiav.ErrEof) {
			return nil, io.EOF
		}
		return nil, wrapAdapterErr("ReadFrame", err)
	}

	pkt := &Packet{
		StreamIndex: cr.packet.StreamIndex(),
		PTS:         cr.packet.Pts(),
		DTS:         cr.packet.Dts(),
		Duration:    cr.packet.Duration(),
		Pos:         cr.packet.Pos(),
		Size:        cr.packet.Size(),
		KeyFrame:    cr.packet.Flags().Has(astiav.PacketFlagKey),
		Data:        append([]byte(nil), cr.packet.Data()...),
	}
	cr.packet.Unref()
	return pkt, nil
}

// Close releases the reader's resources.
func (cr *ContainerReader) Close() error {
	cr.packet.Free()
	cr.fc.CloseInput()
	cr.fc.Free()
	return nil
}

// ContainerWriter muxes a Matroska output container.
type ContainerWriter struct {
	fc            *astiav.FormatContext
	path          string
	headerWritten bool
}

// OpenContainerWriter allocates a Matroska output context for path.
// WriteHeader must be called once every stream has been added with
// NewStream, before the first WritePacket.
func OpenContainerWriter(path string) (*ContainerWriter, error) {
	fc, err := astiav.AllocOutputFormatContext(nil, "matroska", path)
	if err != nil || fc == nil {
		return nil, wrapAdapterErr("AllocOutputFormatContext "+path, err)
	}

	if !fc.OutputFormat().Flags().Has(astiav.IOFormatFlagNofile) {
		ioCtx, err := astiav.OpenIOContext(path, astiav.NewIOContextFlags(astiav.IOContextFlagWrite), nil, nil)
		if err != nil {
			fc.Free()
			return nil, wrapAdapterErr("OpenIOContext "+path, err)
		}
		fc.SetPb(ioCtx)
	}

	return &ContainerWriter{fc: fc, path: path}, nil
}

// NewStream creates an output stream whose codec parameters callers fill
// in via the returned handle before WriteHeader is called.
func (cw *ContainerWriter) NewStream() *astiav.Stream {
	return cw.fc.NewStream(nil)
}

// WriteHeader writes the container header. Must be called exactly once,
// after every output stream has been created and configured.
func (cw *ContainerWriter) WriteHeader() error {
	if err := cw.fc.WriteHeader(nil); err != nil {
		return wrapAdapterErr("WriteHeader", err)
	}
	cw.headerWritten = true
	return nil
}

// WritePacket writes one packet through the muxer's interleaving layer,
// which reorders across streams as needed while preserving per-stream
// pts order.
func (cw *ContainerWriter) WritePacket(pkt *astiav.Packet) error {
	if !cw.headerWritten {
		return fmt.Errorf("avio: WritePacket called before WriteHeader")
	}
	if err := cw.fc.WriteInterleavedFrame(pkt); err != nil {
		return wrapAdapterErr("WriteInterleavedFrame", err)
	}
	return nil
}

// WriteTrailer finalizes the container.
func (cw *ContainerWriter) WriteTrailer() error {
	if err := cw.fc.WriteTrailer(); err != nil {
		return wrapAdapterErr("WriteTrailer", err)
	}
	return nil
}

// Close releases the writer's resources, closing the underlying IO
// context if one was opened.
func (cw *ContainerWriter) Close() error {
	if pb := cw.fc.Pb(); pb != nil {
		pb.Close()
	}
	cw.fc.Free()
	return nil
}
