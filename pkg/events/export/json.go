// Package export provides exporters for admission events.
package export

import (
	"context"
	"encoding/json"
	"io"

	"bulwark-hq/ceres/pkg/events"
)

// JSONExporter exports admission events to JSON format.
type JSONExporter struct {
	// Pretty enables pretty-printing with indentation.
	Pretty bool
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(pretty bool) *JSONExporter {
	return &JSONExporter{Pretty: pretty}
}

// Export writes events to the provided writer as a JSON array.
func (e *JSONExporter) Export(ctx context.Context, evts []*events.Event, w io.Writer) error {
	if len(evts) == 0 {
		_, err := w.Write([]byte("[]"))
		return err
	}

	var (
		data []byte
		err  error
	)
	if e.Pretty {
		data, err = json.MarshalIndent(evts, "", "  ")
	} else {
		data, err = json.Marshal(evts)
	}
	if err != nil {
		return events.NewExportError("json", len(evts), err)
	}

	if _, err := w.Write(data); err != nil {
		return events.NewExportError("json", len(evts), err)
	}

	return nil
}
