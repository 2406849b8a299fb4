package telemetry

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// WriteCSV writes one row per tick. Columns wider than one are flattened
// to name[0], name[1], ...; columns shorter than the log are padded.
func (l *Log) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	var header []string
	rows := 0
	for _, c := range l.cols {
		if c.Width == 1 {
			header = append(header, c.Name)
		} else {
			for i := 0; i < c.Width; i++ {
				header = append(header, fmt.Sprintf("%s[%d]", c.Name, i))
			}
		}
		if r := c.Rows(); r > rows {
			rows = r
		}
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	record := make([]string, len(header))
	for r := 0; r < rows; r++ {
		k := 0
		for _, c := range l.cols {
			for j := 0; j < c.Width; j++ {
				if r < c.Rows() {
					record[k] = strconv.FormatFloat(c.Data[r*c.Width+j], 'g', -1, 64)
				} else {
					record[k] = ""
				}
				k++
			}
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
