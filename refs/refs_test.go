package refs_test

import (
	"bytes"
	"testing"

	"github.com/fdurso/rawcompr-go/refs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddPacketReferenceKeepsAscendingOrder(t *testing.T) {
	var pr refs.PacketReferences
	pr.AddVideoStream("yuv420p")

	require.NoError(t, pr.AddPacketReference(0, 2, 200, 200, 50))
	require.NoError(t, pr.AddPacketReference(0, 0, 0, 0, 50))
	require.NoError(t, pr.AddPacketReference(0, 1, 100, 100, 50))

	table := pr.Table()
	require.Len(t, table, 3)
	assert.Equal(t, []uint64{0, 100, 200}, []uint64{table[0].OrigPos, table[1].OrigPos, table[2].OrigPos})
}

func TestAddPacketReferenceRejectsDuplicateOrigPos(t *testing.T) {
	var pr refs.PacketReferences
	require.NoError(t, pr.AddPacketReference(0, 0, 0, 100, 50))

	err := pr.AddPacketReference(0, 1, 0, 100, 10)
	assert.Error(t, err)
}

func TestAddPacketReferenceRejectsOverlapWithSuccessor(t *testing.T) {
	var pr refs.PacketReferences
	require.NoError(t, pr.AddPacketReference(0, 0, 0, 100, 50))

	// [80, 130) overlaps the existing [100, 150).
	err := pr.AddPacketReference(0, 1, 0, 80, 50)
	assert.Error(t, err)
}

func TestAddPacketReferenceAllowsAdjacentRanges(t *testing.T) {
	var pr refs.PacketReferences
	require.NoError(t, pr.AddPacketReference(0, 0, 0, 0, 50))
	require.NoError(t, pr.AddPacketReference(0, 1, 0, 50, 50))
	assert.Len(t, pr.Table(), 2)
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	var pr refs.PacketReferences
	pr.AddVideoStream("yuv422p")
	pr.AddCopyStream()
	require.NoError(t, pr.AddPacketReference(0, 0, 1000, 0, 4096))
	require.NoError(t, pr.AddPacketReference(1, 0, 0, 4096, 128))

	var buf bytes.Buffer
	require.NoError(t, pr.Serialize(&buf))

	var decoded refs.PacketReferences
	require.NoError(t, decoded.Deserialize(&buf))

	assert.Equal(t, pr.Streams(), decoded.Streams())
	assert.Equal(t, pr.Table(), decoded.Table())
}

func TestSerializeIsDeterministic(t *testing.T) {
	var pr refs.PacketReferences
	pr.AddVideoStream("rgb24")
	require.NoError(t, pr.AddPacketReference(0, 1, 10, 10, 5))
	require.NoError(t, pr.AddPacketReference(0, 0, 0, 0, 10))

	var buf1, buf2 bytes.Buffer
	require.NoError(t, pr.Serialize(&buf1))
	require.NoError(t, pr.Serialize(&buf2))

	assert.Equal(t, buf1.Bytes(), buf2.Bytes())
}

func TestDumpListsStreamsAndTable(t *testing.T) {
	var pr refs.PacketReferences
	pr.AddVideoStream("yuv420p")
	require.NoError(t, pr.AddPacketReference(0, 0, 0, 0, 64))

	var buf bytes.Buffer
	pr.Dump(&buf)

	out := buf.String()
	assert.Contains(t, out, "video yuv420p")
	assert.Contains(t, out, "0-64")
}
