package diag

import (
	"io"

	"github.com/fdurso/rawcompr-go/refs"
	"github.com/gocarina/gocsv"
)

// tableRow is the CSV projection of one refs.TableEntry, tagged for
// gocsv's struct-tag based marshalling.
type tableRow struct {
	OrigPos     uint64 `csv:"origPos"`
	OrigSize    uint32 `csv:"origSize"`
	StreamIndex uint32 `csv:"streamIndex"`
	PacketIndex uint64 `csv:"packetIndex"`
	PTS         int64  `csv:"pts"`
}

// DumpTable writes pr's reference table to w as CSV, letting an operator
// inspect a compression run's reference table outside the process (e.g.
// in a spreadsheet). Wired behind the CLI's --dump-table flag.
func DumpTable(w io.Writer, pr *refs.PacketReferences) error {
	rows := make([]tableRow, 0, len(pr.Table()))
	for _, e := range pr.Table() {
		rows = append(rows, tableRow{
			OrigPos:     e.OrigPos,
			OrigSize:    e.OrigSize,
			StreamIndex: e.StreamIndex,
			PacketIndex: e.PacketIndex,
			PTS:         e.PTS,
		})
	}
	return gocsv.Marshal(&rows, w)
}
