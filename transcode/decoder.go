package transcode

import "github.com/fdurso/rawcompr-go/avio"

// Decoder wraps one output stream during decompression, turning a
// compressed-container packet back into the original byte range it
// replaced.
type Decoder interface {
	DecodePacket(in *avio.Packet) ([]byte, error)
	Close() error
}
