package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"bulwark-hq/ceres/pkg/events"
)

func sampleEvents() []*events.Event {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	return []*events.Event{
		{
			ID:           "11111111-1111-1111-1111-111111111111",
			Identifier:   "user:1",
			Endpoint:     "/v1/orders",
			LimitClass:   "api",
			Action:       events.ActionAllowed,
			RequestCount: 5,
			MaxRequests:  100,
			CreatedAt:    base,
		},
		{
			ID:           "22222222-2222-2222-2222-222222222222",
			Identifier:   "addr:203.0.113.7",
			Endpoint:     "/v1/ai/generate",
			LimitClass:   "ai",
			Action:       events.ActionBlocked,
			RequestCount: 6,
			MaxRequests:  5,
			CreatedAt:    base.Add(time.Minute),
		},
	}
}

func TestJSONExport(t *testing.T) {
	var buf bytes.Buffer
	exporter := NewJSONExporter(false)

	if err := exporter.Export(context.Background(), sampleEvents(), &buf); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	var decoded []*events.Event
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("expected 2 events, got %d", len(decoded))
	}
	if decoded[1].Action != events.ActionBlocked {
		t.Errorf("expected blocked action, got %q", decoded[1].Action)
	}
	if decoded[0].Identifier != "user:1" {
		t.Errorf("expected identifier user:1, got %q", decoded[0].Identifier)
	}
}

func TestJSONExportPretty(t *testing.T) {
	var buf bytes.Buffer
	exporter := NewJSONExporter(true)

	if err := exporter.Export(context.Background(), sampleEvents(), &buf); err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if !strings.Contains(buf.String(), "\n  ") {
		t.Error("expected indented output")
	}
}

func TestJSONExportEmpty(t *testing.T) {
	var buf bytes.Buffer
	exporter := NewJSONExporter(false)

	if err := exporter.Export(context.Background(), nil, &buf); err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if buf.String() != "[]" {
		t.Errorf("expected empty array, got %q", buf.String())
	}
}

func TestCSVExportWithHeader(t *testing.T) {
	var buf bytes.Buffer
	exporter := NewCSVExporter(true)

	if err := exporter.Export(context.Background(), sampleEvents(), &buf); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d records", len(records))
	}
	if records[0][0] != "id" || records[0][4] != "action" {
		t.Errorf("unexpected header: %v", records[0])
	}

	row := records[2]
	if row[1] != "addr:203.0.113.7" {
		t.Errorf("expected identifier in column 2, got %q", row[1])
	}
	if row[4] != "blocked" {
		t.Errorf("expected action blocked, got %q", row[4])
	}
	if row[5] != "6" || row[6] != "5" {
		t.Errorf("expected counts 6/5, got %q/%q", row[5], row[6])
	}
	if _, err := time.Parse(time.RFC3339, row[7]); err != nil {
		t.Errorf("created_at not RFC3339: %q", row[7])
	}
}

func TestCSVExportWithoutHeader(t *testing.T) {
	var buf bytes.Buffer
	exporter := NewCSVExporter(false)

	if err := exporter.Export(context.Background(), sampleEvents(), &buf); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 rows without header, got %d", len(records))
	}
}

func TestCSVExportEmpty(t *testing.T) {
	var buf bytes.Buffer
	exporter := NewCSVExporter(true)

	if err := exporter.Export(context.Background(), nil, &buf); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("expected only the header row, got %d records", len(records))
	}
}
