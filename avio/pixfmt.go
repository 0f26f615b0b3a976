package avio

import (
	"github.com/asticode/go-astiav"
	"github.com/fdurso/rawcompr-go/internal/rclog"
	"github.com/fdurso/rawcompr-go/rcerrors"
)

// ParsePixelFormat resolves the canonical pixel format name stored in an
// LLR stream row (e.g. "yuv422p10le") back to the astiav.PixelFormat the
// raw-video re-encoder on the decompression side needs to target.
func ParsePixelFormat(name string) (astiav.PixelFormat, error) {
	pf := astiav.FindPixelFormatByName(name)
	if pf == astiav.PixelFormatNone {
		return astiav.PixelFormatNone, rcerrors.New(rcerrors.KindCorruption).WithMessage(
			"unknown pixel format name " + name)
	}
	return pf, nil
}

// pixelFormatLoss reports the conversion loss score from src to dst, zero
// meaning the conversion preserves every pixel bit. Kept as a variable so
// the selection logic below can be unit tested against a synthetic loss
// table instead of libswscale's real one.
var pixelFormatLoss = func(dst, src astiav.PixelFormat, hasAlpha bool) int {
	return int(astiav.PixelFormatLoss(dst, src, hasAlpha))
}

// SelectLosslessPixelFormat returns the first candidate pixel format that
// is lossless in both directions relative to src: converting src to the
// candidate and back must reproduce src exactly. A candidate qualifies
// only if both the forward loss score (src -> candidate) and the inverse
// loss score (candidate -> src, alpha included) are zero, the same pair
// of checks libswscale's own format negotiation consults.
func SelectLosslessPixelFormat(src astiav.PixelFormat, candidates []astiav.PixelFormat) (astiav.PixelFormat, error) {
	for _, candidate := range candidates {
		forwardLoss := pixelFormatLoss(candidate, src, false)
		inverseLoss := pixelFormatLoss(src, candidate, true)
		rclog.Debug("pixel format candidate",
			"src", src.Name(), "candidate", candidate.Name(),
			"loss", forwardLoss, "lossInv", inverseLoss)
		if forwardLoss == 0 && inverseLoss == 0 {
			return candidate, nil
		}
	}
	return astiav.PixelFormatNone, rcerrors.New(rcerrors.KindAdapter).WithMessage(
		"no round-trip-lossless pixel format among encoder's candidates")
}
