package avio

import (
	"github.com/asticode/go-astiav"
)

// Scaler converts frames between pixel formats (and, incidentally,
// resolutions, though this module always scales at a fixed resolution).
type Scaler struct {
	sws *astiav.SoftwareScaleContext
}

// NewScaler builds a converter from (srcW, srcH, srcFmt) to
// (dstW, dstH, dstFmt). No scaling-algorithm flag is set: the converter
// only ever runs at identical source and destination resolutions, where
// the algorithm choice cannot affect the output.
func NewScaler(srcW, srcH int, srcFmt astiav.PixelFormat, dstW, dstH int, dstFmt astiav.PixelFormat) (*Scaler, error) {
	sws, err := astiav.CreateSoftwareScaleContext(srcW, srcH, srcFmt, dstW, dstH, dstFmt, astiav.NewSoftwareScaleContextFlags())
	if err != nil {
		return nil, wrapAdapterErr("CreateSoftwareScaleContext", err)
	}
	return &Scaler{sws: sws}, nil
}

// Convert scales src into dst in place.
func (s *Scaler) Convert(src, dst *astiav.Frame) error {
	if err := s.sws.ScaleFrame(src, dst); err != nil {
		return wrapAdapterErr("ScaleFrame", err)
	}
	return nil
}

// Close releases the scale context.
func (s *Scaler) Close() error {
	s.sws.Free()
	return nil
}
