package avio

import (
	"github.com/asticode/go-astiav"
	"github.com/fdurso/rawcompr-go/rcerrors"
)

// SupportedVideoCodecs lists the lossless video codecs the CLI's
// --video-codec flag accepts. H.264 is deliberately excluded: it is not
// reliably lossless, and the tool this module reworks only ever listed
// it experimentally.
var SupportedVideoCodecs = map[string]astiav.CodecID{
	"ffv1":    astiav.CodecIDFfv1,
	"huffyuv": astiav.CodecIDHuffyuv,
}

// ParseVideoCodec resolves a --video-codec flag value to its astiav
// codec ID.
func ParseVideoCodec(name string) (astiav.CodecID, error) {
	id, ok := SupportedVideoCodecs[name]
	if !ok {
		return astiav.CodecIDNone, rcerrors.ErrInvalidArgument.WithMessage(
			"unsupported --video-codec " + name + " (want ffv1 or huffyuv)")
	}
	return id, nil
}
