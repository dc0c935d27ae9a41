package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/verte-zerg/clickpace/internal/model"
)

var csvHeader = []string{"click_number", "timestamp", "relative_time_ms", "delay_ms", "button", "click_type"}

// WriteCSV writes one row per event. Timestamps are Unix seconds with
// microsecond precision.
func WriteCSV(w io.Writer, rows []model.EventRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, row := range rows {
		ts := float64(row.Timestamp.UnixMicro()) / 1e6
		record := []string{
			strconv.Itoa(row.Index),
			strconv.FormatFloat(ts, 'f', 6, 64),
			strconv.FormatFloat(row.RelativeMs, 'f', 3, 64),
			strconv.FormatFloat(row.DelayMs, 'f', 3, 64),
			row.Label,
			row.Classification,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
