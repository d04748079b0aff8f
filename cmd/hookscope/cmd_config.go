package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"gopkg.in/yaml.v3"

	"github.com/sadopc/hookscope/internal/api"
	"github.com/sadopc/hookscope/internal/config"
)

func configCmd() {
	if len(os.Args) < 3 {
		configUsage()
		os.Exit(2)
	}
	switch os.Args[2] {
	case "show":
		configShowCmd(os.Args[3:])
	case "set":
		configSetCmd(os.Args[3:])
	case "path":
		fmt.Println(config.Path())
	case "-h", "--help", "help":
		configUsage()
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown config command %q\n\n", os.Args[2])
		configUsage()
		os.Exit(2)
	}
}

func configUsage() {
	fmt.Fprintf(os.Stderr, "Usage: hookscope config <show|set|path> [flags]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  show   Print the effective local configuration\n")
	fmt.Fprintf(os.Stderr, "  set    Update how the account's capture endpoint responds\n")
	fmt.Fprintf(os.Stderr, "  path   Print the config file location\n")
}

func configShowCmd(args []string) {
	fs := flag.NewFlagSet("config show", flag.ExitOnError)
	conn := addConnFlags(fs)
	if err := fs.Parse(args); err != nil {
		os.Exit(2)
	}
	cfg := conn.loadConfig(false)
	if err := writeConfigYAML(os.Stdout, cfg); err != nil {
		fatalf("%v", err)
	}
}

func writeConfigYAML(w io.Writer, cfg config.Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return enc.Close()
}

func configSetCmd(args []string) {
	fs := flag.NewFlagSet("config set", flag.ExitOnError)
	conn := addConnFlags(fs)
	responseFlag := fs.String("response", `{"status":"success"}`, "JSON body returned to webhook senders")
	minFlag := fs.Int("min", 0, "Minimum simulated response time in ms")
	maxFlag := fs.Int("max", 0, "Maximum simulated response time in ms")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: hookscope config set [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Update the response the capture endpoint sends back and its\n")
		fmt.Fprintf(os.Stderr, "simulated latency range.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  hookscope config set --response '{\"ok\":true}' --min 100 --max 500\n")
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(2)
	}

	cfg := conn.loadConfig(true)
	update := api.AccountConfig{
		DefaultResponse: json.RawMessage(*responseFlag),
		ResponseTimeMin: *minFlag,
		ResponseTimeMax: *maxFlag,
	}
	if err := update.Validate(); err != nil {
		var verr *api.ValidationError
		if errors.As(err, &verr) {
			for _, f := range verr.Fields {
				fmt.Fprintf(os.Stderr, "Error: %s: %s\n", f.Field, f.Message)
			}
			os.Exit(2)
		}
		fatalf("%v", err)
	}

	client := mustClient(cfg, stderrLogger(cfg))
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	got, err := client.UpdateConfig(ctx, update)
	if err != nil {
		fatalf("%v", err)
	}
	if err := printJSON(os.Stdout, got); err != nil {
		fatalf("%v", err)
	}
}
