package transcode

import (
	"context"
	"io"
	"testing"

	"github.com/fdurso/rawcompr-go/avio"
	"github.com/fdurso/rawcompr-go/refs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePacketSource replays a fixed slice of packets, the way a real
// avio.ContainerReader replays a container's demuxed packets in order.
type fakePacketSource struct {
	packets []*avio.Packet
	pos     int
}

func (s *fakePacketSource) ReadPacket() (*avio.Packet, error) {
	if s.pos >= len(s.packets) {
		return nil, io.EOF
	}
	pkt := s.packets[s.pos]
	s.pos++
	return pkt, nil
}

// fakeEncoder records every packet it is asked to process, standing in
// for CopyEncoder/VideoEncoder without needing astiav.
type fakeEncoder struct {
	processed []*avio.Packet
	closed    bool
	failOn    int // ProcessPacket call index (0-based) to fail on, or -1
}

func (e *fakeEncoder) ProcessPacket(in *avio.Packet) error {
	if e.failOn == len(e.processed) {
		return assertErr
	}
	e.processed = append(e.processed, in)
	return nil
}

func (e *fakeEncoder) Close() error {
	e.closed = true
	return nil
}

// fakeDecoder returns payloads from a fixed table keyed by call order, or
// forces a length mismatch/error for boundary-case tests.
type fakeDecoder struct {
	payloads [][]byte
	calls    int
	closed   bool
	errOn    int
}

func (d *fakeDecoder) DecodePacket(in *avio.Packet) ([]byte, error) {
	defer func() { d.calls++ }()
	if d.errOn == d.calls {
		return nil, assertErr
	}
	return d.payloads[d.calls], nil
}

func (d *fakeDecoder) Close() error {
	d.closed = true
	return nil
}

var assertErr = errFake{}

type errFake struct{}

func (errFake) Error() string { return "fake failure" }

type memOutput struct {
	buf []byte
	pos int64
}

func newMemOutput(size int) *memOutput { return &memOutput{buf: make([]byte, size)} }

func (m *memOutput) Write(p []byte) (int, error) {
	n := copy(m.buf[m.pos:], p)
	m.pos += int64(n)
	return n, nil
}

func (m *memOutput) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		m.pos = offset
	case io.SeekCurrent:
		m.pos += offset
	case io.SeekEnd:
		m.pos = int64(len(m.buf)) + offset
	}
	return m.pos, nil
}

func TestRunCompressionLoopDispatchesByStreamIndex(t *testing.T) {
	source := &fakePacketSource{packets: []*avio.Packet{
		{StreamIndex: 0, Pos: 0, Size: 10},
		{StreamIndex: 1, Pos: 10, Size: 5},
		{StreamIndex: 0, Pos: 15, Size: 10},
	}}
	enc0 := &fakeEncoder{failOn: -1}
	enc1 := &fakeEncoder{failOn: -1}

	require.NoError(t, runCompressionLoop(context.Background(), source, []Encoder{enc0, enc1}))

	assert.Len(t, enc0.processed, 2)
	assert.Len(t, enc1.processed, 1)
}

func TestRunCompressionLoopPropagatesEncoderError(t *testing.T) {
	source := &fakePacketSource{packets: []*avio.Packet{
		{StreamIndex: 0, Pos: 0, Size: 10},
	}}
	enc0 := &fakeEncoder{failOn: 0}

	err := runCompressionLoop(context.Background(), source, []Encoder{enc0})
	assert.ErrorIs(t, err, assertErr)
}

func buildRefTable(t *testing.T, entries ...refs.TableEntry) *refs.PacketReferences {
	t.Helper()
	pr := &refs.PacketReferences{}
	pr.AddCopyStream()
	for _, e := range entries {
		require.NoError(t, pr.AddPacketReference(e.StreamIndex, e.PacketIndex, e.PTS, e.OrigPos, e.OrigSize))
	}
	return pr
}

func TestRunDecompressionLoopRestoresBytesAtOrigPos(t *testing.T) {
	table := buildRefTable(t,
		refs.TableEntry{OrigPos: 0, ReferenceInfo: refs.ReferenceInfo{OrigSize: 4, StreamIndex: 0, PacketIndex: 0, PTS: 0}},
		refs.TableEntry{OrigPos: 4, ReferenceInfo: refs.ReferenceInfo{OrigSize: 3, StreamIndex: 0, PacketIndex: 1, PTS: 1}},
	)

	source := &fakePacketSource{packets: []*avio.Packet{
		{StreamIndex: 0, PTS: 0},
		{StreamIndex: 0, PTS: 1},
	}}
	dec := &fakeDecoder{payloads: [][]byte{[]byte("abcd"), []byte("xyz")}, errOn: -1}

	output := newMemOutput(7)
	require.NoError(t, runDecompressionLoop(context.Background(), source, []Decoder{dec}, table, output))

	assert.Equal(t, []byte("abcdxyz"), output.buf)
	assert.True(t, dec.closed)
}

func TestRunDecompressionLoopFailsOnUnmatchedPacket(t *testing.T) {
	table := buildRefTable(t,
		refs.TableEntry{OrigPos: 0, ReferenceInfo: refs.ReferenceInfo{OrigSize: 4, StreamIndex: 0, PacketIndex: 0, PTS: 0}},
	)

	source := &fakePacketSource{packets: []*avio.Packet{
		{StreamIndex: 0, PTS: 99}, // pts doesn't match any reference row
	}}
	dec := &fakeDecoder{errOn: -1}

	err := runDecompressionLoop(context.Background(), source, []Decoder{dec}, table, newMemOutput(4))
	assert.Error(t, err)
}

func TestRunDecompressionLoopFailsOnSizeMismatch(t *testing.T) {
	table := buildRefTable(t,
		refs.TableEntry{OrigPos: 0, ReferenceInfo: refs.ReferenceInfo{OrigSize: 4, StreamIndex: 0, PacketIndex: 0, PTS: 0}},
	)

	source := &fakePacketSource{packets: []*avio.Packet{{StreamIndex: 0, PTS: 0}}}
	dec := &fakeDecoder{payloads: [][]byte{[]byte("xyz")}, errOn: -1} // 3 bytes, want 4

	err := runDecompressionLoop(context.Background(), source, []Decoder{dec}, table, newMemOutput(4))
	assert.Error(t, err)
}

func TestRunDecompressionLoopFailsWhenReferenceRowNeverMatched(t *testing.T) {
	table := buildRefTable(t,
		refs.TableEntry{OrigPos: 0, ReferenceInfo: refs.ReferenceInfo{OrigSize: 4, StreamIndex: 0, PacketIndex: 0, PTS: 0}},
		refs.TableEntry{OrigPos: 4, ReferenceInfo: refs.ReferenceInfo{OrigSize: 3, StreamIndex: 0, PacketIndex: 1, PTS: 1}},
	)

	// Only one of the two expected packets ever arrives.
	source := &fakePacketSource{packets: []*avio.Packet{{StreamIndex: 0, PTS: 0}}}
	dec := &fakeDecoder{payloads: [][]byte{[]byte("abcd")}, errOn: -1}

	err := runDecompressionLoop(context.Background(), source, []Decoder{dec}, table, newMemOutput(7))
	assert.Error(t, err)
}
