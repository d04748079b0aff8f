package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/sadopc/hookscope/internal/capture"
	"github.com/sadopc/hookscope/internal/core/history"
)

func historyCmd() {
	if len(os.Args) < 3 {
		historyUsage()
		os.Exit(2)
	}
	sub, args := os.Args[2], os.Args[3:]
	switch sub {
	case "list", "search", "show", "clear":
	case "-h", "--help", "help":
		historyUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown history command %q\n\n", sub)
		historyUsage()
		os.Exit(2)
	}

	fs := flag.NewFlagSet("history "+sub, flag.ExitOnError)
	conn := addConnFlags(fs)
	allFlag := fs.Bool("all", false, "Include every account")
	limitFlag := fs.Int("limit", 50, "Maximum entries to print")
	methodFlag := fs.String("method", "", "Only this HTTP method")
	sinceFlag := fs.Duration("since", 0, "Only captures newer than this (e.g. 1h)")
	jsonFlag := fs.Bool("json", false, "Print JSON")
	if err := fs.Parse(args); err != nil {
		os.Exit(2)
	}

	cfg := conn.loadConfig(!*allFlag)
	store, err := history.NewStore(cfg.HistoryFile())
	if err != nil {
		fatalf("%v", err)
	}
	defer store.Close()

	account := cfg.Account
	if *allFlag {
		account = ""
	}

	var entries []history.Entry
	switch sub {
	case "list":
		f := history.Filter{Account: account, Limit: *limitFlag}
		if *methodFlag != "" {
			f.Method = capture.ParseMethod(*methodFlag)
		}
		if *sinceFlag > 0 {
			f.Since = time.Now().Add(-*sinceFlag)
		}
		entries, err = store.ListFiltered(f)
	case "search":
		if fs.NArg() < 1 {
			fmt.Fprintf(os.Stderr, "Error: search text is required\n")
			os.Exit(2)
		}
		entries, err = store.Search(cfg.Account, fs.Arg(0))
	case "show":
		if fs.NArg() < 1 {
			fmt.Fprintf(os.Stderr, "Error: request id is required\n")
			os.Exit(2)
		}
		e, ok, gerr := store.Get(cfg.Account, fs.Arg(0))
		if gerr != nil {
			fatalf("%v", gerr)
		}
		if !ok {
			fatalf("request %s not found in history", fs.Arg(0))
		}
		if err := printJSON(os.Stdout, e.Record); err != nil {
			fatalf("%v", err)
		}
		return
	case "clear":
		if err := store.Clear(account); err != nil {
			fatalf("%v", err)
		}
		fmt.Fprintln(os.Stderr, "History cleared.")
		return
	}
	if err != nil {
		fatalf("%v", err)
	}

	records := make([]capture.Record, len(entries))
	for i, e := range entries {
		records[i] = e.Record
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

func historyUsage() {
	fmt.Fprintf(os.Stderr, "Usage: hookscope history <list|search|show|clear> [args] [flags]\n\n")
	fmt.Fprintf(os.Stderr, "Browse captures this client has fetched before, including ones the\n")
	fmt.Fprintf(os.Stderr, "server has since deleted.\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  list            Recent captures (--method, --since, --limit, --all)\n")
	fmt.Fprintf(os.Stderr, "  search <text>   Captures whose path or body contains text\n")
	fmt.Fprintf(os.Stderr, "  show <id>       One capture as JSON\n")
	fmt.Fprintf(os.Stderr, "  clear           Remove the account's history (--all for everything)\n")
}
