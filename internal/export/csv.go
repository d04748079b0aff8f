package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/sadopc/hookscope/internal/capture"
)

// CSVHeader lists the exported columns in order.
var CSVHeader = []string{
	"id", "method", "path", "request_time", "response_time_ms",
	"headers", "query_params", "body", "response",
}

// WriteCSV writes records with the same columns the capture service uses
// for its own CSV export. Times are UTC; unknown times are left empty.
func WriteCSV(w io.Writer, records []capture.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}

	for _, rec := range records {
		if err := cw.Write(csvRow(rec)); err != nil {
			return fmt.Errorf("write CSV row %s: %w", rec.ID, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush CSV: %w", err)
	}
	return nil
}

func csvRow(rec capture.Record) []string {
	var when string
	if !rec.RequestTime.IsZero() {
		when = rec.RequestTime.UTC().Format("2006-01-02 15:04:05")
	}
	headers, _ := json.Marshal(rec.Headers)
	query, _ := json.Marshal(rec.QueryParams)
	return []string{
		rec.ID,
		string(rec.Method),
		rec.Path,
		when,
		strconv.FormatInt(rec.ResponseTimeMs, 10),
		string(headers),
		string(query),
		payloadCell(rec.Body),
		payloadCell(rec.Response),
	}
}

func payloadCell(p capture.Payload) string {
	if p.IsEmpty() {
		return ""
	}
	return string(p)
}
