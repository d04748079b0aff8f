package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/hookscope/internal/api"
	"github.com/sadopc/hookscope/internal/app"
	"github.com/sadopc/hookscope/internal/config"
	"github.com/sadopc/hookscope/internal/core/history"
	"github.com/sadopc/hookscope/internal/feed"
	"github.com/sadopc/hookscope/internal/logging"
	"github.com/sadopc/hookscope/internal/push"
	"github.com/sadopc/hookscope/pkg/version"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "tail":
			tailCmd()
			return
		case "list":
			listCmd()
			return
		case "count":
			countCmd()
			return
		case "delete":
			deleteCmd()
			return
		case "clear":
			clearCmd()
			return
		case "export":
			exportCmd()
			return
		case "config":
			configCmd()
			return
		case "history":
			historyCmd()
			return
		case "mock":
			mockCmd()
			return
		case "completion":
			completionCmd()
			return
		case "version":
			printVersion()
			return
		case "help":
			printHelp()
			return
		}
	}
	tuiCmd()
}

func printVersion() {
	fmt.Printf("hookscope %s (%s) built %s\n", version.Version, version.Commit, version.Date)
}

func printHelp() {
	fmt.Fprintf(os.Stderr, `hookscope - watch webhook captures live from the terminal

Usage:
  hookscope [flags]                    Launch TUI (interactive mode)
  hookscope <command> [args] [flags]   Run a subcommand

Commands:
  tail        Stream captures to stdout as they arrive
  list        List captured requests
  count       Print the number of captured requests
  delete      Delete one captured request
  clear       Delete every captured request of the account
  export      Download captures as CSV/JSON, or export them as HAR/CSV locally
  config      Show the local config or update the account's capture endpoint
  history     Browse captures kept in the local history database
  mock        Start a local fake capture server
  completion  Generate shell completion scripts (bash, zsh, fish)
  version     Print version information
  help        Show this help message

TUI Flags:
  --server <url>     Capture server (default from config)
  --account <name>   Account to watch
  --theme <name>     Color theme
  --version          Print version and exit

Configuration is read from %s,
a .env file in the working directory and HOOKSCOPE_* variables.

Run 'hookscope <command> --help' for more information about a command.
`, config.Path())
}

// connFlags are the flags every command talking to the server accepts.
type connFlags struct {
	server  *string
	account *string
	level   *string
}

func addConnFlags(fs *flag.FlagSet) connFlags {
	return connFlags{
		server:  fs.String("server", "", "Capture server URL (overrides config)"),
		account: fs.String("account", "", "Account name (overrides config)"),
		level:   fs.String("log-level", "", "Log level: debug, info, warn, error"),
	}
}

// loadConfig merges the flags over the loaded config and validates the
// result. Invalid configuration is a usage error.
func (f connFlags) loadConfig(needAccount bool) config.Config {
	cfg := config.Load()
	if *f.server != "" {
		cfg.Server = *f.server
	}
	if *f.account != "" {
		cfg.Account = *f.account
	}
	if *f.level != "" {
		cfg.LogLevel = *f.level
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	if needAccount {
		if err := cfg.RequireAccount(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(2)
		}
	}
	return cfg
}

// newClient builds the REST client from cfg.
func newClient(cfg config.Config, logger *slog.Logger) (*api.Client, error) {
	tlsCfg, err := cfg.TLS.Build()
	if err != nil {
		return nil, err
	}
	opts := []api.Option{
		api.WithTimeout(cfg.RequestTimeout),
		api.WithLogger(logger),
		api.WithUserAgent("hookscope/" + version.Version),
	}
	if cfg.Proxy != "" {
		opts = append(opts, api.WithProxy(cfg.Proxy, cfg.NoProxy))
	}
	if tlsCfg != nil {
		opts = append(opts, api.WithTLS(tlsCfg))
	}
	return api.New(cfg.Server, cfg.Account, opts...)
}

// mustClient is newClient for commands; failures exit 1.
func mustClient(cfg config.Config, logger *slog.Logger) *api.Client {
	client, err := newClient(cfg, logger)
	if err != nil {
		fatalf("%v", err)
	}
	return client
}

// openHistory opens the history database when enabled. A nil store means
// history is off or unavailable.
func openHistory(cfg config.Config, logger *slog.Logger) *history.Store {
	if !cfg.History {
		return nil
	}
	path := cfg.HistoryFile()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		logger.Warn("history disabled", "error", err)
		return nil
	}
	store, err := history.NewStore(path)
	if err != nil {
		logger.Warn("history disabled", "path", path, "error", err)
		return nil
	}
	return store
}

func stderrLogger(cfg config.Config) *slog.Logger {
	return logging.New(cfg.LogLevel, os.Stderr)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func tuiCmd() {
	versionFlag := flag.Bool("version", false, "Print version and exit")
	themeFlag := flag.String("theme", "", "Color theme (overrides config)")
	conn := addConnFlags(flag.CommandLine)
	flag.Parse()

	if *versionFlag {
		printVersion()
		os.Exit(0)
	}

	cfg := conn.loadConfig(true)
	if *themeFlag != "" {
		cfg.Theme = *themeFlag
	}

	logger, closeLog, err := logging.OpenFile(cfg.LogPath(), cfg.LogLevel)
	if err != nil {
		logger, closeLog = logging.Discard(), func() {}
	}
	defer closeLog()

	client := mustClient(cfg, logger)

	bridge := app.NewBridge()
	opts := []feed.ControllerOption{
		feed.WithPageSize(cfg.PageSize),
		feed.WithPresenter(bridge),
		feed.WithNotifier(bridge),
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
	manager.OnStatus(bridge.Status)

	model := app.New(app.Options{
		Feed:       ctrl,
		Account:    cfg.Account,
		WebhookURL: client.WebhookURL(),
		Theme:      cfg.Theme,
		ThemeDir:   filepath.Join(config.Dir(), "themes"),
		Logger:     logger,
	})
	p := tea.NewProgram(model, tea.WithAltScreen())
	bridge.Attach(p.Send)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	go func() {
		if err := ctrl.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("feed controller stopped", "error", err)
		}
	}()
	go func() {
		if err := manager.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("push manager stopped", "error", err)
		}
	}()

	logger.Info("tui started", "account", cfg.Account, "server", cfg.Server)
	_, err = p.Run()
	cancel()
	manager.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
