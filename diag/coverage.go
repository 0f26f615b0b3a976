// Package diag provides optional, debug-only inspection tooling over a
// PacketReferences table: a block-granular coverage check and a CSV dump
// of the reference table for spreadsheet inspection.
package diag

import (
	"fmt"

	"github.com/boljen/go-bitmap"
	"github.com/fdurso/rawcompr-go/refs"
)

const coverageBlockSize = 4096

// CheckCoverage verifies at block granularity that gap ranges plus
// referenced ranges partition [0, originalSize): every 4096-byte block
// must be touched by a reference row or by the gap that surrounds it.
// One bit is kept per block; any block left unset after walking the
// table and its complementary gaps is a coverage hole, surfaced before
// the LLR writer backfills the hash slot.
func CheckCoverage(originalSize uint64, pr *refs.PacketReferences) error {
	totalBlocks := int((originalSize + coverageBlockSize - 1) / coverageBlockSize)
	if totalBlocks == 0 {
		return nil
	}

	covered := bitmap.New(totalBlocks)

	markRange := func(start, end uint64) {
		startBlock := int(start / coverageBlockSize)
		endBlock := int((end + coverageBlockSize - 1) / coverageBlockSize)
		for b := startBlock; b < endBlock && b < totalBlocks; b++ {
			covered.Set(b, true)
		}
	}

	var prevEnd uint64
	for _, e := range pr.Table() {
		if e.OrigPos+uint64(e.OrigSize) > originalSize {
			return fmt.Errorf("diag: reference at %d size %d exceeds original size %d", e.OrigPos, e.OrigSize, originalSize)
		}
		markRange(prevEnd, e.OrigPos) // gap before this reference
		markRange(e.OrigPos, e.OrigPos+uint64(e.OrigSize))
		prevEnd = e.OrigPos + uint64(e.OrigSize)
	}
	markRange(prevEnd, originalSize)

	for b := 0; b < totalBlocks; b++ {
		if !covered.Get(b) {
			return fmt.Errorf("diag: block %d ([%d, %d)) is not covered by any gap or reference range",
				b, b*coverageBlockSize, (b+1)*coverageBlockSize)
		}
	}

	return nil
}
