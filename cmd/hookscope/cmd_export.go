package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/sadopc/hookscope/internal/capture"
	"github.com/sadopc/hookscope/internal/export"
	"github.com/sadopc/hookscope/internal/export/har"
)

func exportCmd() {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	conn := addConnFlags(fs)
	formatFlag := fs.String("format", "csv", "Export format: csv, json (server) or har (local)")
	localFlag := fs.Bool("local", false, "Build the export from fetched captures instead of the server export")
	limitFlag := fs.Int("limit", 1000, "Captures to include in a local export")
	outputFlag := fs.String("output", "", "Output file path (default: stdout)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: hookscope export [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Export captured requests. csv and json are downloaded from the\n")
		fmt.Fprintf(os.Stderr, "server; har, and csv with --local, are built from fetched captures.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  hookscope export --format json --output captures.json\n")
		fmt.Fprintf(os.Stderr, "  hookscope export --format har --output captures.har\n")
		fmt.Fprintf(os.Stderr, "  hookscope export --format csv --local --limit 50\n")
	}

	if err := fs.Parse(os.Args[2:]); err != nil {
		os.Exit(2)
	}

	format := strings.ToLower(*formatFlag)
	switch format {
	case "csv", "json", "har":
	default:
		fmt.Fprintf(os.Stderr, "Error: unsupported format %q (use csv, json, or har)\n", *formatFlag)
		os.Exit(2)
	}
	local := *localFlag || format == "har"
	if local && format == "json" {
		fmt.Fprintf(os.Stderr, "Error: json export is only available from the server\n")
		os.Exit(2)
	}

	cfg := conn.loadConfig(true)
	client := mustClient(cfg, stderrLogger(cfg))

	var w io.Writer = os.Stdout
	if *outputFlag != "" {
		f, err := os.Create(*outputFlag)
		if err != nil {
			fatalf("creating output file: %v", err)
		}
		defer f.Close()
		w = f
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if !local {
		apiFormat, _ := apiExportFormat(format)
		n, err := client.Export(ctx, apiFormat, w)
		if err != nil {
			fatalf("%v", err)
		}
		if *outputFlag != "" {
			fmt.Fprintf(os.Stderr, "Wrote %s to %s\n", humanize.Bytes(uint64(n)), *outputFlag)
		}
		return
	}

	records, err := client.List(ctx, *limitFlag, 0)
	if err != nil {
		fatalf("%v", err)
	}
	if err := writeLocalExport(w, format, records, client.WebhookURL()); err != nil {
		fatalf("%v", err)
	}
	if *outputFlag != "" {
		fmt.Fprintf(os.Stderr, "Exported %s requests to %s\n", humanize.Comma(int64(len(records))), *outputFlag)
	}
}

// writeLocalExport encodes records as har or csv.
func writeLocalExport(w io.Writer, format string, records []capture.Record, baseURL string) error {
	switch format {
	case "har":
		data, err := har.Export(records, baseURL)
		if err != nil {
			return fmt.Errorf("building HAR: %w", err)
		}
		_, err = w.Write(append(data, '\n'))
		return err
	case "csv":
		return export.WriteCSV(w, records)
	}
	return fmt.Errorf("unsupported local format %q", format)
}
