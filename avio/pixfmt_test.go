package avio

import (
	"testing"

	"github.com/asticode/go-astiav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubPixelFormatLoss replaces the libswscale-backed loss lookup with a
// synthetic table for the duration of a test. Unlisted (dst, src) pairs
// score zero, so tests only need to spell out the lossy directions.
func stubPixelFormatLoss(t *testing.T, lossy map[[2]astiav.PixelFormat]int) {
	t.Helper()
	prev := pixelFormatLoss
	pixelFormatLoss = func(dst, src astiav.PixelFormat, hasAlpha bool) int {
		return lossy[[2]astiav.PixelFormat{dst, src}]
	}
	t.Cleanup(func() { pixelFormatLoss = prev })
}

func TestSelectLosslessPixelFormatPicksFirstRoundTripLossless(t *testing.T) {
	src := astiav.PixelFormatYuv422P
	stubPixelFormatLoss(t, map[[2]astiav.PixelFormat]int{
		{astiav.PixelFormatYuv420P, src}: 4, // forward loss: chroma dropped
	})

	got, err := SelectLosslessPixelFormat(src, []astiav.PixelFormat{
		astiav.PixelFormatYuv420P,
		astiav.PixelFormatYuv444P,
		astiav.PixelFormatRgb24,
	})
	require.NoError(t, err)

	// yuv420p is lossy forward, so the first fully clean candidate wins
	// even though rgb24 would also score zero in the stub table.
	assert.Equal(t, astiav.PixelFormatYuv444P, got)
}

func TestSelectLosslessPixelFormatRejectsOneWayLossless(t *testing.T) {
	src := astiav.PixelFormatYuv422P
	stubPixelFormatLoss(t, map[[2]astiav.PixelFormat]int{
		// Forward is clean, but converting back loses depth: a candidate
		// that only round-trips one way must not qualify.
		{src, astiav.PixelFormatYuv420P}: 2,
	})

	_, err := SelectLosslessPixelFormat(src, []astiav.PixelFormat{astiav.PixelFormatYuv420P})
	assert.Error(t, err)
}

func TestSelectLosslessPixelFormatFailsWithNoCandidates(t *testing.T) {
	stubPixelFormatLoss(t, nil)

	_, err := SelectLosslessPixelFormat(astiav.PixelFormatYuv422P, nil)
	assert.Error(t, err)
}
