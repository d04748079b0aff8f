package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/sadopc/hookscope/internal/capture"
	"github.com/sadopc/hookscope/internal/feed"
	"github.com/sadopc/hookscope/internal/push"
	"github.com/sadopc/hookscope/internal/scripting"
)

func tailCmd() {
	fs := flag.NewFlagSet("tail", flag.ExitOnError)
	conn := addConnFlags(fs)
	lastFlag := fs.Int("last", 10, "Print this many existing captures before streaming")
	filterFlag := fs.String("filter", "", "JavaScript filter expression (default from config)")
	jsonFlag := fs.Bool("json", false, "Print one JSON object per line")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: hookscope tail [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Stream captured requests to stdout as they arrive. The push\n")
		fmt.Fprintf(os.Stderr, "connection reconnects on its own until interrupted.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nFilter expressions see a `req` object with method, path, headers,\n")
		fmt.Fprintf(os.Stderr, "query, body, response, time and responseTimeMs.\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  hookscope tail --account alice\n")
		fmt.Fprintf(os.Stderr, "  hookscope tail --filter 'req.method == \"POST\"'\n")
		fmt.Fprintf(os.Stderr, "  hookscope tail --json --last 0 | jq .path\n")
	}

	if err := fs.Parse(os.Args[2:]); err != nil {
		os.Exit(2)
	}
	cfg := conn.loadConfig(true)
	logger := stderrLogger(cfg)

	src := *filterFlag
	if src == "" {
		src = cfg.Filter
	}
	var filter *scripting.Filter
	if src != "" {
		f, err := scripting.NewEngine(time.Second).Compile(src)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(2)
		}
		filter = f
	}

	client := mustClient(cfg, logger)
	printer := newTailPrinter(os.Stdout, *lastFlag, *jsonFlag, filter)

	opts := []feed.ControllerOption{
		feed.WithPageSize(cfg.PageSize),
		feed.WithPresenter(printer),
		feed.WithNotifier(feed.NotifierFunc(func(n feed.Notice) {
			if n.Kind == feed.NoticeError {
				logger.Warn(n.Text, "error", n.Err)
			}
		})),
		feed.WithLogger(logger),
		feed.WithFetchTimeout(cfg.RequestTimeout),
	}
	if store := openHistory(cfg, logger); store != nil {
		defer store.Close()
		opts = append(opts, feed.WithRecorder(store.ForAccount(cfg.Account)))
	}
	ctrl := feed.NewController(client, opts...)

	manager := push.New(client.PushURL(),
		push.WithReconnect(cfg.ReconnectDelay, cfg.ReconnectJitter),
		push.WithHTTPClient(client.HTTPClient()),
		push.WithLogger(logger),
	)
	manager.OnEvent(ctrl.HandleEvent)
	manager.OnStatus(func(s push.State) {
		logger.Info("push", "state", s.Label())
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	fmt.Fprintf(os.Stderr, "Watching %s\n", client.WebhookURL())
	ctrl.LoadInitial()
	go ctrl.Run(ctx)
	if err := manager.Run(ctx); err != nil && ctx.Err() == nil {
		fatalf("%v", err)
	}
}

// tailPrinter renders every capture once, oldest first. It implements
// feed.Presenter.
type tailPrinter struct {
	mu      sync.Mutex
	w       io.Writer
	last    int
	asJSON  bool
	filter  *scripting.Filter
	printed map[string]bool
	primed  bool
}

func newTailPrinter(w io.Writer, last int, asJSON bool, filter *scripting.Filter) *tailPrinter {
	return &tailPrinter{
		w:       w,
		last:    last,
		asJSON:  asJSON,
		filter:  filter,
		printed: make(map[string]bool),
	}
}

// Render prints the records of v not printed yet. The first populated
// view only contributes its newest last records.
func (p *tailPrinter) Render(v feed.View) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if v.Loading && len(v.Records) == 0 {
		return
	}

	var fresh []capture.Record
	for _, rec := range v.Records {
		if !p.printed[rec.ID] {
			fresh = append(fresh, rec)
		}
	}
	if !p.primed {
		p.primed = true
		if len(fresh) > p.last {
			for _, rec := range fresh[max(p.last, 0):] {
				p.printed[rec.ID] = true
			}
			fresh = fresh[:max(p.last, 0)]
		}
	}

	// Views are newest first.
	for i := len(fresh) - 1; i >= 0; i-- {
		rec := fresh[i]
		p.printed[rec.ID] = true
		if p.filter != nil && !p.filter.Match(rec) {
			continue
		}
		p.print(rec)
	}
}

func (p *tailPrinter) print(rec capture.Record) {
	if p.asJSON {
		data, err := json.Marshal(rec)
		if err != nil {
			slog.Warn("tail: encoding capture", "id", rec.ID, "error", err)
			return
		}
		fmt.Fprintln(p.w, string(data))
		return
	}
	fmt.Fprintln(p.w, formatLine(rec))
}

// formatLine renders one capture as a single human-readable line.
func formatLine(rec capture.Record) string {
	size := "-"
	if !rec.Body.IsEmpty() {
		size = humanize.Bytes(uint64(len(rec.Body)))
	}
	return fmt.Sprintf("%s  %-7s %s  %d ms  %s",
		rec.DisplayTime(), rec.Method, rec.DisplayPath(), rec.ResponseTimeMs, size)
}
