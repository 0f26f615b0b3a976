package diag

import (
	"strings"
	"testing"

	"github.com/fdurso/rawcompr-go/refs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTable(t *testing.T, entries ...[3]uint64) *refs.PacketReferences {
	t.Helper()
	pr := &refs.PacketReferences{}
	for i, e := range entries {
		origPos, origSize := e[0], e[1]
		require.NoError(t, pr.AddPacketReference(0, uint64(i), int64(i), origPos, uint32(origSize)))
	}
	return pr
}

func TestCheckCoverageFullyCovered(t *testing.T) {
	pr := buildTable(t, [3]uint64{0, 4096}, [3]uint64{4096, 4096})
	assert.NoError(t, CheckCoverage(8192, pr))
}

func TestCheckCoverageWithGaps(t *testing.T) {
	pr := buildTable(t, [3]uint64{100, 50})
	assert.NoError(t, CheckCoverage(1000, pr))
}

func TestCheckCoverageRejectsOutOfBoundsReference(t *testing.T) {
	pr := buildTable(t, [3]uint64{900, 200})
	err := CheckCoverage(1000, pr)
	assert.Error(t, err)
}

func TestCheckCoverageEmptyTableIsAllGap(t *testing.T) {
	pr := &refs.PacketReferences{}
	assert.NoError(t, CheckCoverage(10000, pr))
}

func TestDumpTableWritesCSVHeaderAndRows(t *testing.T) {
	pr := &refs.PacketReferences{}
	require.NoError(t, pr.AddPacketReference(0, 0, 10, 0, 100))
	require.NoError(t, pr.AddPacketReference(1, 0, 20, 200, 50))

	var buf strings.Builder
	require.NoError(t, DumpTable(&buf, pr))

	out := buf.String()
	assert.Contains(t, out, "origPos")
	assert.Contains(t, out, "100")
	assert.Contains(t, out, "50")
}
