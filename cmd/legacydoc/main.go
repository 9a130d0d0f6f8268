// Command legacydoc extracts text and properties from legacy Word, RTF and
// HTML documents.
//
// Usage:
//
//	legacydoc extract <file>   # plain text on stdout
//	legacydoc html <file>      # <style> block and HTML rendering
//	legacydoc meta <file>      # format, title and properties as JSON
//	legacydoc sniff <file>     # detected format
//	legacydoc serve            # HTTP API on $PORT
//	legacydoc mcp              # MCP server on stdio
//
// Environment: LOG_LEVEL (debug, info, warn, error), LEGACYDOC_CONFIG
// (YAML config path), PORT (serve, default 8086), LEGACYDOC_ROUTES
// (serve, SQLite routes database).
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/legacydoc/connectivity"
	"github.com/hazyhaar/legacydoc/docpipe"
)

const version = "0.3.0"

const usage = `usage: legacydoc <command> [file]

commands:
  extract <file>   print the document text
  html <file>      print the style block and HTML rendering
  meta <file>      print format, title and properties as JSON
  sniff <file>     print the detected format
  serve            run the HTTP API
  mcp              run the MCP server on stdio
`

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel(env("LOG_LEVEL", "info"))}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, os.Args[1], os.Args[2:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		logger.Error("legacydoc: fatal", "error", err)
		os.Exit(1)
	}
}

var errUsage = errors.New("usage")

func run(ctx context.Context, logger *slog.Logger, cmd string, args []string, out io.Writer) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Logger = logger

	switch cmd {
	case "extract", "html", "meta", "sniff":
		if len(args) != 1 {
			return errUsage
		}
		return runFile(ctx, cfg, cmd, args[0], out)
	case "serve":
		return runServe(ctx, cfg, logger)
	case "mcp":
		return runMCP(ctx, cfg)
	}
	return errUsage
}

func runFile(ctx context.Context, cfg docpipe.Config, cmd, path string, out io.Writer) error {
	if cmd == "html" {
		cfg.HTML = true
	}
	pipe := docpipe.New(cfg)
	defer pipe.Close()

	if cmd == "sniff" {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		format := pipe.Sniff(data)
		if format == "" {
			if format, err = pipe.Detect(path); err != nil {
				return err
			}
		}
		_, err = fmt.Fprintln(out, format)
		return err
	}

	doc, err := pipe.Extract(ctx, path)
	if err != nil {
		return err
	}
	switch cmd {
	case "extract":
		_, err = io.WriteString(out, doc.RawText)
	case "html":
		if doc.HTML == "" {
			return fmt.Errorf("%s: no HTML rendering for %s input", path, doc.Format)
		}
		_, err = fmt.Fprintf(out, "<style>\n%s\n</style>\n%s", doc.Style, doc.HTML)
	case "meta":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		err = enc.Encode(map[string]any{"format": doc.Format, "title": doc.Title, "metadata": doc.Metadata})
	}
	return err
}

func runServe(ctx context.Context, cfg docpipe.Config, logger *slog.Logger) error {
	pipe := docpipe.New(cfg)
	defer pipe.Close()

	router := connectivity.New(connectivity.WithLogger(logger))
	router.Use(connectivity.Logging(logger), connectivity.Recovery(logger), connectivity.Timeout(2*time.Minute))
	router.RegisterTransport("http", connectivity.HTTPFactory())
	pipe.RegisterConnectivity(router)
	defer router.Close()

	if path := env("LEGACYDOC_ROUTES", ""); path != "" {
		db, err := connectivity.OpenDB(path)
		if err != nil {
			return fmt.Errorf("routes db: %w", err)
		}
		defer db.Close()
		go router.Watch(ctx, db, time.Second)
	}

	port := env("PORT", "8086")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           newServer(router, cfg.MaxFileSize, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("legacydoc: serving", "port", port, "version", version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("legacydoc: server stopped")
	return nil
}

func runMCP(ctx context.Context, cfg docpipe.Config) error {
	pipe := docpipe.New(cfg)
	defer pipe.Close()

	srv := mcp.NewServer(&mcp.Implementation{Name: "legacydoc", Version: version}, nil)
	pipe.RegisterMCP(srv)
	return srv.Run(ctx, &mcp.StdioTransport{})
}

func loadConfig() (docpipe.Config, error) {
	path := env("LEGACYDOC_CONFIG", "")
	if path == "" {
		return docpipe.DefaultConfig(), nil
	}
	return docpipe.LoadConfig(path)
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
