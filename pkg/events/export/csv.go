package export

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"bulwark-hq/ceres/pkg/events"
)

// CSVExporter exports admission events to CSV format.
type CSVExporter struct {
	// IncludeHeader includes a header row with column names.
	IncludeHeader bool
}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{IncludeHeader: includeHeader}
}

// Export writes events to the provided writer in CSV format.
func (e *CSVExporter) Export(ctx context.Context, evts []*events.Event, w io.Writer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if e.IncludeHeader {
		if err := writer.Write(headerRow()); err != nil {
			return events.NewExportError("csv", len(evts), err)
		}
	}

	for _, event := range evts {
		if err := writer.Write(eventToRow(event)); err != nil {
			return events.NewExportError("csv", len(evts), err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return events.NewExportError("csv", len(evts), err)
	}

	return nil
}

// headerRow returns the CSV column names.
func headerRow() []string {
	return []string{
		"id",
		"identifier",
		"endpoint",
		"limit_class",
		"action",
		"request_count",
		"max_requests",
		"created_at",
	}
}

// eventToRow flattens one event into a CSV row.
func eventToRow(event *events.Event) []string {
	return []string{
		event.ID,
		event.Identifier,
		event.Endpoint,
		event.LimitClass,
		string(event.Action),
		strconv.FormatUint(event.RequestCount, 10),
		strconv.FormatUint(event.MaxRequests, 10),
		event.CreatedAt.Format(time.RFC3339),
	}
}
