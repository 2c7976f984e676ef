package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"bulwark-hq/ceres/pkg/cli"
	"bulwark-hq/ceres/pkg/config"
	"bulwark-hq/ceres/pkg/events"
	"bulwark-hq/ceres/pkg/events/export"
	"bulwark-hq/ceres/pkg/events/retention"
)

var eventsFlags struct {
	backend    string
	timeRange  string
	identifier string
	endpoint   string
	class      string
	action     string
	limit      int
	offset     int
	format     string
	output     string
	dryRun     bool
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Query the admission event log",
	Long: `Query, export, and prune the admission event log.

The event log is an append-only record of every admission decision:
who asked, for what, under which limit class, and whether the request
was allowed or blocked.

Subcommands:
  query   - Query events with filters
  export  - Export events to JSON or CSV
  prune   - Apply the retention policy immediately

Examples:
  # Query the last day
  ceres events query --time-range "2026-08-29T00:00:00Z/2026-08-30T00:00:00Z"

  # Blocked requests for one caller
  ceres events query --identifier "user:42" --action blocked

  # Export everything to CSV
  ceres events export --format csv --output events.csv`,
}

var eventsQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query admission events",
	Long: `Query admission events with various filters.

Time Range Format:
  RFC3339 interval format: "start/end"
  Example: "2026-08-29T00:00:00Z/2026-08-30T00:00:00Z"

Examples:
  # Query a specific time range
  ceres events query --time-range "2026-08-29T00:00:00Z/2026-08-30T00:00:00Z"

  # Filter by identifier and class
  ceres events query --identifier "user:42" --class sensitive

  # Only blocked requests
  ceres events query --action blocked`,
	RunE: queryEvents,
}

var eventsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export admission events",
	Long:  `Export admission events to JSON or CSV, optionally filtered.`,
	RunE:  exportEvents,
}

var eventsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Apply the retention policy now",
	Long: `Delete events past the configured retention immediately instead of
waiting for the next scheduled run.`,
	RunE: pruneEvents,
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsQueryCmd, eventsExportCmd, eventsPruneCmd)

	for _, cmd := range []*cobra.Command{eventsQueryCmd, eventsExportCmd} {
		cmd.Flags().StringVar(&eventsFlags.backend, "backend", "", "backend: sqlite, memory (uses config if not specified)")
		cmd.Flags().StringVar(&eventsFlags.timeRange, "time-range", "", "time range (RFC3339 interval: start/end)")
		cmd.Flags().StringVar(&eventsFlags.identifier, "identifier", "", "filter by caller identifier")
		cmd.Flags().StringVar(&eventsFlags.endpoint, "endpoint", "", "filter by endpoint path")
		cmd.Flags().StringVar(&eventsFlags.class, "class", "", "filter by limit class")
		cmd.Flags().StringVar(&eventsFlags.action, "action", "", "filter by action (allowed, blocked)")
		cmd.Flags().IntVar(&eventsFlags.limit, "limit", 100, "max results")
		cmd.Flags().IntVar(&eventsFlags.offset, "offset", 0, "pagination offset")
		cmd.Flags().StringVarP(&eventsFlags.output, "output", "o", "", "output file (default: stdout)")
	}
	eventsQueryCmd.Flags().StringVar(&eventsFlags.format, "format", "text", "output format: text, json")
	eventsExportCmd.Flags().StringVar(&eventsFlags.format, "format", "json", "export format: json, csv")

	eventsPruneCmd.Flags().BoolVar(&eventsFlags.dryRun, "dry-run", false, "report what would be deleted without deleting")
}

// openEventStorage loads config and opens the event log backend selected
// by flag or config.
func openEventStorage() (*config.Config, events.Storage, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, nil, cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	if eventsFlags.backend != "" {
		cfg.EventLog.Backend = eventsFlags.backend
	}

	st, err := buildEventStorage(cfg)
	if err != nil {
		return nil, nil, cli.NewCommandError("events", err)
	}
	return cfg, st, nil
}

// buildEventQuery translates the command flags into a storage query.
func buildEventQuery() (*events.Query, error) {
	query := &events.Query{
		Identifier: eventsFlags.identifier,
		Endpoint:   eventsFlags.endpoint,
		LimitClass: eventsFlags.class,
		Limit:      eventsFlags.limit,
		Offset:     eventsFlags.offset,
	}

	switch eventsFlags.action {
	case "":
	case string(events.ActionAllowed), string(events.ActionBlocked):
		query.Action = events.Action(eventsFlags.action)
	default:
		return nil, fmt.Errorf("invalid action %q (must be allowed or blocked)", eventsFlags.action)
	}

	if eventsFlags.timeRange != "" {
		parts := strings.Split(eventsFlags.timeRange, "/")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid time range format (expected: start/end)")
		}

		startTime, err := time.Parse(time.RFC3339, parts[0])
		if err != nil {
			return nil, fmt.Errorf("invalid start time: %w", err)
		}
		query.StartTime = &startTime

		endTime, err := time.Parse(time.RFC3339, parts[1])
		if err != nil {
			return nil, fmt.Errorf("invalid end time: %w", err)
		}
		query.EndTime = &endTime
	}

	return query, nil
}

// openOutput returns the writer for command output.
func openOutput() (*os.File, func(), error) {
	if eventsFlags.output == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(eventsFlags.output)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func queryEvents(cmd *cobra.Command, args []string) error {
	_, st, err := openEventStorage()
	if err != nil {
		return err
	}
	defer st.Close()

	query, err := buildEventQuery()
	if err != nil {
		return err
	}

	ctx := context.Background()
	evts, err := st.Query(ctx, query)
	if err != nil {
		return cli.NewCommandError("events", fmt.Errorf("query failed: %w", err))
	}

	output, closeOutput, err := openOutput()
	if err != nil {
		return err
	}
	defer closeOutput()

	if eventsFlags.format == "json" {
		encoder := json.NewEncoder(output)
		encoder.SetIndent("", "  ")
		return encoder.Encode(map[string]interface{}{
			"total_events": len(evts),
			"events":       evts,
		})
	}

	return outputEventsText(output, evts, query)
}

func outputEventsText(output *os.File, evts []*events.Event, query *events.Query) error {
	if query.StartTime != nil && query.EndTime != nil {
		fmt.Fprintf(output, "Time range: %s to %s\n",
			query.StartTime.Format(time.RFC3339),
			query.EndTime.Format(time.RFC3339))
	}
	fmt.Fprintf(output, "Total events: %d\n", len(evts))
	fmt.Fprintln(output)

	if len(evts) == 0 {
		fmt.Fprintln(output, "No events found.")
		return nil
	}

	for i, event := range evts {
		if i > 0 {
			fmt.Fprintln(output)
		}

		fmt.Fprintf(output, "Event ID: %s\n", event.ID)
		fmt.Fprintf(output, "Timestamp: %s\n", event.CreatedAt.Format(time.RFC3339))
		fmt.Fprintf(output, "Identifier: %s\n", event.Identifier)
		fmt.Fprintf(output, "Endpoint: %s\n", event.Endpoint)
		fmt.Fprintf(output, "Class: %s\n", event.LimitClass)
		fmt.Fprintf(output, "Action: %s\n", event.Action)
		fmt.Fprintf(output, "Count: %d/%d\n", event.RequestCount, event.MaxRequests)

		// Show limited output for large result sets
		if i >= 9 && len(evts) > 10 {
			remaining := len(evts) - 10
			fmt.Fprintln(output)
			fmt.Fprintf(output, "... and %d more events\n", remaining)
			fmt.Fprintf(output, "Use --limit and --offset for pagination.\n")
			break
		}
	}

	return nil
}

func exportEvents(cmd *cobra.Command, args []string) error {
	cfg, st, err := openEventStorage()
	if err != nil {
		return err
	}
	defer st.Close()

	query, err := buildEventQuery()
	if err != nil {
		return err
	}

	ctx := context.Background()

	// Progress only makes sense when the export goes to a file; writing
	// it to stdout would interleave with the exported data.
	var reporter cli.ProgressReporter
	if eventsFlags.output != "" {
		reporter = cli.NewProgressReporter(os.Stderr)
	}

	evts, err := fetchEvents(ctx, st, query, reporter)
	if err != nil {
		return cli.NewCommandError("events", fmt.Errorf("query failed: %w", err))
	}

	output, closeOutput, err := openOutput()
	if err != nil {
		return err
	}
	defer closeOutput()

	var exporter events.Exporter
	switch eventsFlags.format {
	case "json":
		exporter = export.NewJSONExporter(cfg.EventLog.Export.JSONPretty)
	case "csv":
		exporter = export.NewCSVExporter(cfg.EventLog.Export.CSVIncludeHeader)
	default:
		return fmt.Errorf("unsupported export format: %s (supported: json, csv)", eventsFlags.format)
	}

	if err := exporter.Export(ctx, evts, output); err != nil {
		return cli.NewCommandError("events", err)
	}

	if eventsFlags.output != "" {
		fmt.Printf("✓ Exported %d events to %s\n", len(evts), eventsFlags.output)
	}
	return nil
}

// fetchEvents retrieves matching events in pages so large exports can
// report progress. The reporter may be nil.
func fetchEvents(ctx context.Context, st events.Storage, query *events.Query, reporter cli.ProgressReporter) ([]*events.Event, error) {
	const pageSize = 500

	want := query.Limit
	if want <= 0 {
		want = 100
	}

	if reporter != nil {
		total, err := st.Count(ctx, query)
		if err != nil {
			return nil, err
		}
		if total > int64(want) {
			total = int64(want)
		}
		reporter.Start(total)
	}

	var collected []*events.Event
	for len(collected) < want {
		size := pageSize
		if remaining := want - len(collected); remaining < size {
			size = remaining
		}

		page, err := st.Query(ctx, &events.Query{
			StartTime:  query.StartTime,
			EndTime:    query.EndTime,
			Identifier: query.Identifier,
			Endpoint:   query.Endpoint,
			LimitClass: query.LimitClass,
			Action:     query.Action,
			Limit:      size,
			Offset:     query.Offset + len(collected),
		})
		if err != nil {
			if reporter != nil {
				reporter.Error(err)
			}
			return nil, err
		}

		collected = append(collected, page...)
		if reporter != nil {
			reporter.Update(int64(len(collected)))
		}
		if len(page) < size {
			break
		}
	}

	if reporter != nil {
		reporter.Finish()
	}
	return collected, nil
}

func pruneEvents(cmd *cobra.Command, args []string) error {
	cfg, st, err := openEventStorage()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()

	if eventsFlags.dryRun {
		cutoff := time.Now().AddDate(0, 0, -cfg.EventLog.Retention.Days)
		count, err := st.Count(ctx, &events.Query{EndTime: &cutoff})
		if err != nil {
			return cli.NewCommandError("events", fmt.Errorf("count failed: %w", err))
		}
		fmt.Printf("Would delete %d events older than %s\n", count, cutoff.Format(time.RFC3339))
		return nil
	}

	pruner := retention.NewPruner(st, &retention.Config{
		RetentionDays: cfg.EventLog.Retention.Days,
		PruneSchedule: cfg.EventLog.Retention.PruneSchedule,
		MaxEvents:     cfg.EventLog.Retention.MaxEvents,
	})

	deleted, err := pruner.Prune(ctx)
	if err != nil {
		return cli.NewCommandError("events", err)
	}

	fmt.Printf("✓ Deleted %d events\n", deleted)
	return nil
}
