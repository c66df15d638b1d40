package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/CJHwong/gems.sh/internal/cli"
	"github.com/CJHwong/gems.sh/internal/config"
	"github.com/CJHwong/gems.sh/internal/db"
	"github.com/CJHwong/gems.sh/internal/llm"
	"github.com/CJHwong/gems.sh/internal/logging"
	"github.com/CJHwong/gems.sh/internal/notify"
	"github.com/CJHwong/gems.sh/internal/prompt"
	"github.com/CJHwong/gems.sh/internal/service"
	"github.com/CJHwong/gems.sh/internal/template"
	"go.uber.org/zap"
)

func main() {
	err := run()
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(cli.ExitCode(err))
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.App{
		Setup:         setup,
		IsInteractive: cli.StdinIsTerminal,
	}
	return cli.NewRootCmd(app).ExecuteContext(ctx)
}

// setup loads the configuration and wires every service the root command
// may need.
func setup(_ context.Context, opts cli.Options) (*cli.Runtime, error) {
	path := opts.ConfigPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	logger := logging.New(opts.Verbose, os.Stderr)
	closers := []func() error{func() error { _ = logger.Sync(); return nil }}
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	registry, err := template.Load(cfg, logger)
	if err != nil {
		return nil, err
	}
	logger.Debug("configuration loaded",
		zap.String("path", path),
		zap.Int("templates", registry.Len()),
		zap.String("api_base_url", cfg.Settings.APIBaseURL))

	client := llm.NewClient(llm.ConfigFromSettings(cfg.Settings), llm.NewLogObserver(logger))
	composer := prompt.NewComposer(client, cfg.Settings.LanguageDetectionModel, logger)

	transcript, err := cfg.TranscriptPath()
	if err != nil {
		return nil, err
	}

	var history service.HistoryService
	if dbPath, ok := cfg.HistoryPath(); ok {
		database, err := db.OpenDB(dbPath)
		if err != nil {
			// History is optional; a broken database must not block a run.
			logger.Warn("history disabled", zap.String("path", dbPath), zap.Error(err))
		} else {
			closers = append(closers, database.Close)
			history = service.NewHistoryService(database, service.DefaultHistoryKeep, service.NewLogUseCaseObserver(logger))
		}
	}

	ask := service.NewAskService(service.AskDeps{
		Settings:       cfg.Settings,
		Registry:       registry,
		Client:         client,
		Composer:       composer,
		OpenSink:       service.NewSinkOpener(cfg.Settings.OutputViewer, transcript, opts.Stdout, logger),
		TranscriptPath: transcript,
		History:        history,
		Clipboard:      notify.SystemClipboard{},
		Notifier:       notify.DesktopNotifier{},
		Logger:         logger,
	}, service.NewLogUseCaseObserver(logger))

	return &cli.Runtime{
		Settings: cfg.Settings,
		Registry: registry,
		Ask:      ask,
		History:  history,
		Models:   client,
		Close:    closeAll,
	}, nil
}
