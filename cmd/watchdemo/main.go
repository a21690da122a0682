// Package main is the entry point for the watchable terminal demo.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dshills/watchable/config"
	"github.com/dshills/watchable/loop"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	cfg := config.Default()
	if opts.ConfigPath != "" {
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
			return 1
		}
		cfg = loaded
	}

	// The screen owns the terminal, so logs go to a file or nowhere.
	var logOut io.Writer = io.Discard
	if opts.LogPath != "" {
		f, err := os.OpenFile(opts.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to open log file: %v\n", err)
			return 1
		}
		defer f.Close()
		logOut = f
	}
	logger := config.NewLoggerTo(logOut, cfg.Logging)
	slog.SetDefault(logger)

	lp := loop.New(
		loop.WithQueueSize(cfg.Loop.QueueSize),
		loop.WithLogger(logger),
	)

	dispatcher, stopDispatch, err := cfg.Dispatch.BuildDispatcher(lp)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to build dispatcher: %v\n", err)
		return 1
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := stopDispatch(ctx); err != nil {
			logger.Warn("dispatcher shutdown", slog.String("error", err.Error()))
		}
	}()

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create screen: %v\n", err)
		return 1
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to init screen: %v\n", err)
		return 1
	}
	defer screen.Fini()

	app := newDemoApp(screen, lp, dispatcher, logger, opts.MetricsAddr)

	if opts.MetricsAddr != "" {
		prometheus.MustRegister(app.metrics)
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(opts.MetricsAddr, mux); err != nil {
				logger.Error("metrics server stopped", slog.String("error", err.Error()))
			}
		}()
	}

	// Handle signals for graceful shutdown
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signals
		app.quit()
	}()

	// Registration is guarded by loop affinity, so the model is wired
	// from the first task the loop drains.
	if err := lp.Post(app.setup); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to queue setup: %v\n", err)
		return 1
	}
	go app.poll()
	go app.tick(opts.Interval)

	// The main goroutine is the coordination thread.
	if err := lp.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	stats := lp.Stats()
	logger.Info("loop drained",
		slog.Uint64("posted", stats.Posted),
		slog.Uint64("executed", stats.Executed),
		slog.Uint64("dropped", stats.Dropped),
	)
	return 0
}

type options struct {
	ConfigPath  string
	LogPath     string
	MetricsAddr string
	Interval    time.Duration
}

func parseFlags() options {
	var opts options
	var showVersion bool
	var showHelp bool

	flag.StringVar(&opts.ConfigPath, "config", "", "Path to configuration file (.toml, .yaml)")
	flag.StringVar(&opts.ConfigPath, "c", "", "Path to configuration file (shorthand)")
	flag.StringVar(&opts.LogPath, "log", "", "Append structured logs to this file")
	flag.StringVar(&opts.MetricsAddr, "metrics-addr", ":2112", "Prometheus listen address (empty to disable)")
	flag.DurationVar(&opts.Interval, "interval", 500*time.Millisecond, "Sensor update interval")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Watchdemo - observable sensors on a terminal dashboard\n\n")
		fmt.Fprintf(os.Stderr, "Usage: watchdemo [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nKeys:\n")
		fmt.Fprintf(os.Stderr, "  q, ESC      Quit\n")
		fmt.Fprintf(os.Stderr, "  a           Add a sensor\n")
		fmt.Fprintf(os.Stderr, "  x           Drop the last sensor\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  watchdemo                         Run with defaults\n")
		fmt.Fprintf(os.Stderr, "  watchdemo -c watchdemo.toml       Run with a config file\n")
		fmt.Fprintf(os.Stderr, "  watchdemo -metrics-addr \"\"        Run without the metrics server\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("Watchdemo %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	if opts.Interval <= 0 {
		fmt.Fprintf(os.Stderr, "Error: interval must be positive, got %s\n", opts.Interval)
		os.Exit(1)
	}

	return opts
}
