package transcode

import "github.com/fdurso/rawcompr-go/avio"

// CopyDecoder returns a copy-stream packet's payload verbatim.
type CopyDecoder struct{}

// NewCopyDecoder returns a ready-to-use CopyDecoder.
func NewCopyDecoder() *CopyDecoder { return &CopyDecoder{} }

// DecodePacket returns in's payload unchanged.
func (d *CopyDecoder) DecodePacket(in *avio.Packet) ([]byte, error) {
	return in.Data, nil
}

// Close is a no-op.
func (d *CopyDecoder) Close() error { return nil }
