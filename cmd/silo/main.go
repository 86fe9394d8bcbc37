package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"github.com/mattn/go-isatty"

	"github.com/tailored-agentic-units/silo/observability"
	"github.com/tailored-agentic-units/silo/rpc"
	"github.com/tailored-agentic-units/silo/store"
)

func main() {
	var (
		configFile = flag.String("config", "", "Path to silo config file (.json, .yaml, .yml or .toml)")
		seedPath   = flag.String("seed", "", "Path to seed directory (overrides config)")
		addr       = flag.String("addr", "", "Listen address (overrides config)")
		watchRoot  = flag.Bool("watch", false, "Print a diff of the root state after every update")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging to stderr")
	)
	flag.Parse()

	cfg := store.DefaultConfig()
	if *configFile != "" {
		loaded, err := store.LoadConfig(*configFile)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = *loaded
	}

	if *seedPath != "" {
		cfg.Seed.Path = *seedPath
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *watchRoot {
		// slot updates only reach the root's subscribers by bubbling
		cfg.Silo.Bubble = true
	}

	logger := newLogger(*verbose)
	slog.SetDefault(logger)
	observability.RegisterObserver("slog", observability.NewSlogObserver(logger))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	st, err := store.New(ctx, &cfg, store.WithLogger(logger))
	if err != nil {
		log.Fatalf("Failed to create store: %v", err)
	}
	defer st.Close()

	if *watchRoot {
		w, err := st.Watch("")
		if err != nil {
			log.Fatalf("Failed to watch root: %v", err)
		}

		printer := newPrinter(os.Stdout)
		if err := printer.Print(w.Node().Value()); err != nil {
			log.Fatalf("Failed to print state: %v", err)
		}

		go func() {
			for {
				update, err := w.Receive(ctx)
				if err != nil {
					return
				}
				if err := printer.PrintUpdate(update); err != nil {
					fmt.Fprintf(os.Stderr, "watch: %v\n", err)
				}
			}
		}()
	}

	server := rpc.NewServer(st, cfg.Server, logger)
	if err := server.ListenAndServe(ctx); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// newLogger writes human-readable text to a terminal and JSON otherwise.
func newLogger(verbose bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if verbose {
		opts.Level = slog.LevelDebug
	}

	fd := os.Stderr.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
