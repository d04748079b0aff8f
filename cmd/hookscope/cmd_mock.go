package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"golang.org/x/time/rate"

	"github.com/sadopc/hookscope/internal/logging"
	"github.com/sadopc/hookscope/internal/mock"
)

func mockCmd() {
	fs := flag.NewFlagSet("mock", flag.ExitOnError)
	portFlag := fs.Int("port", 8080, "Port to listen on")
	latencyFlag := fs.Duration("latency", 0, "Artificial REST latency (e.g., 200ms, 1s)")
	errorRateFlag := fs.Float64("error-rate", 0, "Random REST error rate (0.0-1.0)")
	corsOriginFlag := fs.String("cors-origin", "*", "Access-Control-Allow-Origin header value")
	pingFlag := fs.Duration("ping", 30*time.Second, "Push ping interval (0 disables)")
	generateFlag := fs.Float64("generate", 0, "Synthetic captures per second")
	accountFlag := fs.String("account", "demo", "Account that receives synthetic captures")
	maxFlag := fs.Int("max-captures", 0, "Captures kept per account (default 100000)")
	levelFlag := fs.String("log-level", "info", "Log level: debug, info, warn, error")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: hookscope mock [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Start a local fake capture server. Any request to /api/@<account>\n")
		fmt.Fprintf(os.Stderr, "is captured and pushed to clients watching that account.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  hookscope mock\n")
		fmt.Fprintf(os.Stderr, "  hookscope mock --port 3000 --generate 0.5 --account alice\n")
		fmt.Fprintf(os.Stderr, "  hookscope mock --latency 200ms --error-rate 0.1\n")
		fmt.Fprintf(os.Stderr, "\nThen, in another terminal:\n")
		fmt.Fprintf(os.Stderr, "  hookscope --server http://localhost:8080 --account demo\n")
		fmt.Fprintf(os.Stderr, "  curl -X POST -d '{\"hello\":1}' http://localhost:8080/api/@demo\n")
	}

	if err := fs.Parse(os.Args[2:]); err != nil {
		os.Exit(2)
	}

	if *errorRateFlag < 0 || *errorRateFlag > 1 {
		fmt.Fprintf(os.Stderr, "Error: error-rate must be between 0.0 and 1.0\n")
		os.Exit(2)
	}
	if *portFlag < 0 || *portFlag > 65535 {
		fmt.Fprintf(os.Stderr, "Error: port must be between 0 and 65535\n")
		os.Exit(2)
	}
	if *generateFlag < 0 {
		fmt.Fprintf(os.Stderr, "Error: generate must not be negative\n")
		os.Exit(2)
	}

	logger := logging.New(*levelFlag, os.Stderr)
	opts := []mock.Option{
		mock.WithPort(*portFlag),
		mock.WithPingInterval(*pingFlag),
		mock.WithLogger(logger),
	}
	if *latencyFlag > 0 {
		opts = append(opts, mock.WithLatency(*latencyFlag))
	}
	if *errorRateFlag > 0 {
		opts = append(opts, mock.WithErrorRate(*errorRateFlag))
	}
	if *corsOriginFlag != "*" {
		opts = append(opts, mock.WithCORSOrigin(*corsOriginFlag))
	}
	if *generateFlag > 0 {
		opts = append(opts, mock.WithGenerator(rate.Limit(*generateFlag), *accountFlag))
	}
	if *maxFlag > 0 {
		opts = append(opts, mock.WithMaxCaptures(*maxFlag))
	}

	srv := mock.New(opts...)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if *latencyFlag > 0 {
		fmt.Fprintf(os.Stderr, "Artificial latency: %s\n", latencyFlag.String())
	}
	if *errorRateFlag > 0 {
		fmt.Fprintf(os.Stderr, "Error rate: %.0f%%\n", *errorRateFlag*100)
	}

	err := srv.Start(ctx, func(addr string) {
		fmt.Fprintf(os.Stderr, "Mock capture server on %s\n", addr)
		if *generateFlag > 0 {
			fmt.Fprintf(os.Stderr, "Generating %.2f captures/s for @%s\n", *generateFlag, *accountFlag)
		}
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
