package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/sadopc/hookscope/internal/api"
	"github.com/sadopc/hookscope/internal/capture"
	"github.com/sadopc/hookscope/internal/scripting"
)

func listCmd() {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	conn := addConnFlags(fs)
	limitFlag := fs.Int("limit", 0, "Number of captures to fetch (default page_size)")
	skipFlag := fs.Int("skip", 0, "Number of newest captures to skip")
	filterFlag := fs.String("filter", "", "JavaScript filter expression")
	jsonFlag := fs.Bool("json", false, "Print the captures as a JSON array")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: hookscope list [flags]\n\n")
		fmt.Fprintf(os.Stderr, "List captured requests, newest first.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  hookscope list --limit 20\n")
		fmt.Fprintf(os.Stderr, "  hookscope list --filter 'req.headers[\"X-Event\"] == \"push\"' --json\n")
	}

	if err := fs.Parse(os.Args[2:]); err != nil {
		os.Exit(2)
	}
	cfg := conn.loadConfig(true)
	limit := *limitFlag
	if limit <= 0 {
		limit = cfg.PageSize
	}

	var filter *scripting.Filter
	if *filterFlag != "" {
		f, err := scripting.NewEngine(0).Compile(*filterFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(2)
		}
		filter = f
	}

	client := mustClient(cfg, stderrLogger(cfg))
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	records, err := client.List(ctx, limit, *skipFlag)
	if err != nil {
		fatalf("%v", err)
	}
	if filter != nil {
		records = filterRecords(records, filter)
	}
	if *jsonFlag {
		err = printJSON(os.Stdout, records)
	} else {
		err = printRecords(os.Stdout, records)
	}
	if err != nil {
		fatalf("%v", err)
	}
}

func filterRecords(records []capture.Record, filter *scripting.Filter) []capture.Record {
	out := records[:0:0]
	for _, rec := range records {
		if filter.Match(rec) {
			out = append(out, rec)
		}
	}
	return out
}

// printRecords writes records as an aligned table.
func printRecords(w io.Writer, records []capture.Record) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No requests captured.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTIME\tMETHOD\tPATH\tDURATION\tBODY")
	for _, rec := range records {
		size := "-"
		if !rec.Body.IsEmpty() {
			size = humanize.Bytes(uint64(len(rec.Body)))
		}
		when := "unknown"
		if !rec.RequestTime.IsZero() {
			when = humanize.Time(rec.RequestTime)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d ms\t%s\n",
			rec.ID, when, rec.Method, rec.DisplayPath(), rec.ResponseTimeMs, size)
	}
	return tw.Flush()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func countCmd() {
	fs := flag.NewFlagSet("count", flag.ExitOnError)
	conn := addConnFlags(fs)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: hookscope count [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Print the number of requests captured for the account.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(os.Args[2:]); err != nil {
		os.Exit(2)
	}
	cfg := conn.loadConfig(true)
	client := mustClient(cfg, stderrLogger(cfg))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	n, err := client.Count(ctx)
	if err != nil {
		fatalf("%v", err)
	}
	fmt.Println(n)
}

func deleteCmd() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	conn := addConnFlags(fs)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: hookscope delete <id> [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Delete one captured request.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(os.Args[2:]); err != nil {
		os.Exit(2)
	}
	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: request id is required\n\n")
		fs.Usage()
		os.Exit(2)
	}
	id := fs.Arg(0)
	cfg := conn.loadConfig(true)
	client := mustClient(cfg, stderrLogger(cfg))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	if err := client.Delete(ctx, id); err != nil {
		fatalf("%v", err)
	}
	fmt.Fprintf(os.Stderr, "Deleted %s\n", id)
}

func clearCmd() {
	fs := flag.NewFlagSet("clear", flag.ExitOnError)
	conn := addConnFlags(fs)
	yesFlag := fs.Bool("yes", false, "Do not ask for confirmation")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: hookscope clear [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Delete every captured request of the account.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(os.Args[2:]); err != nil {
		os.Exit(2)
	}
	cfg := conn.loadConfig(true)

	if !*yesFlag && !confirm(os.Stdin, os.Stderr, fmt.Sprintf("Delete all requests of @%s?", cfg.Account)) {
		fmt.Fprintln(os.Stderr, "Aborted.")
		os.Exit(1)
	}

	client := mustClient(cfg, stderrLogger(cfg))
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	n, err := client.DeleteAll(ctx)
	if err != nil {
		fatalf("%v", err)
	}
	fmt.Fprintf(os.Stderr, "Deleted %s requests.\n", humanize.Comma(int64(n)))
}

// confirm asks a yes/no question; anything but y or yes is no.
func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N] ", question)
	line, _ := bufio.NewReader(in).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

// apiExportFormat maps a flag value to a server-side export format.
func apiExportFormat(s string) (api.ExportFormat, bool) {
	switch strings.ToLower(s) {
	case "csv":
		return api.ExportCSV, true
	case "json":
		return api.ExportJSON, true
	}
	return "", false
}
