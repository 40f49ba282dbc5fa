package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joseph-ayodele/doctext/internal/app"
	"github.com/joseph-ayodele/doctext/internal/common"
	"github.com/joseph-ayodele/doctext/internal/core/extract"
	"github.com/joseph-ayodele/doctext/internal/pipeline"
	repo "github.com/joseph-ayodele/doctext/internal/repository"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		password = flag.String("password", "", "password for encrypted PDFs")
		record   = flag.Bool("record", false, "record the extraction in the database (DB_URL)")
		inmem    = flag.Bool("inmem", false, "record into an in-memory SQLite database")
		progress = flag.Bool("progress", false, "print progress percentages to stderr")
		verbose  = flag.Bool("v", false, "debug logging")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: docextract [flags] <file>\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if flag.NArg() != 1 {
		flag.Usage()
		return 2
	}
	path := flag.Arg(0)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		return common.ExitCode(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var history repo.ExtractionRepository
	if *record || *inmem {
		dbres, err := common.InitDatabase(ctx, cfg, *inmem, logger)
		if err != nil {
			logger.Error("failed to initialize database", "error", err)
			return 1
		}
		defer dbres.Cleanup()
		history = repo.NewExtractionRepository(dbres.DB, logger)
	}

	stack, err := app.Build(cfg, history, logger)
	if err != nil {
		logger.Error("failed to build extractor", "error", err)
		return common.ExitCode(err)
	}

	req := pipeline.Request{Path: path, Password: *password}
	if *progress {
		req.OnProgress = func(p int) { fmt.Fprintf(os.Stderr, "progress %d%%\n", p) }
	}

	out, err := stack.Pipeline.Run(ctx, req)
	if err != nil {
		if extract.IsPasswordError(err) {
			fmt.Fprintln(os.Stderr, "document is encrypted: pass the password with -password")
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return common.ExitCode(err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out.Result); err != nil {
		logger.Error("failed to write result", "error", err)
		return 1
	}
	return 0
}
