package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/DaanHessen/agency-gm/internal/api"
	"github.com/DaanHessen/agency-gm/internal/engine"
	"github.com/DaanHessen/agency-gm/internal/store"
	"github.com/DaanHessen/agency-gm/internal/text"
	"github.com/DaanHessen/agency-gm/internal/ui"
	"github.com/DaanHessen/agency-gm/internal/util"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists (ignore error if file doesn't exist)
	_ = godotenv.Load()

	cfg, err := util.FromEnv()
	if err != nil {
		log.Fatal(err)
	}
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "Listen address")
	flag.StringVar(&cfg.DataDir, "data", cfg.DataDir, "Data directory holding the JSON documents")
	flag.StringVar(&cfg.NotesDir, "notes", cfg.NotesDir, "Mission notes directory (default: first existing missionNotes)")
	flag.StringVar(&cfg.PublicDir, "public", cfg.PublicDir, "Static files directory")
	flag.StringVar(&cfg.Backend, "backend", cfg.Backend, "Document backend: file|postgres")
	flag.StringVar(&cfg.DSN, "dsn", cfg.DSN, "PostgreSQL DSN")
	flag.StringVar(&cfg.RulesPath, "rules", cfg.RulesPath, "YAML rules override (optional)")
	flag.BoolVar(&cfg.Debug, "debug", cfg.Debug, "Development logging")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "gmeditor [flags] serve | tui | migrate up|down | version\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	cmd := "serve"
	if len(args) > 0 {
		cmd = args[0]
	}
	switch cmd {
	case "version":
		fmt.Println("gmeditor", version)
		return
	case "migrate":
		if len(args) < 2 {
			log.Fatal("migrate requires 'up' or 'down'")
		}
		if err := migrate(cfg.DSN, args[1]); err != nil {
			log.Fatal(err)
		}
		return
	case "serve", "tui":
	default:
		flag.Usage()
		os.Exit(2)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	cwd, _ := os.Getwd()
	cfg.NotesDir = store.ResolveNotesDir(cfg.NotesDir, util.NoteCandidates(util.ExeDir(), cwd))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Backend == util.BackendPostgres {
		// Ensure migrations are applied before any document is read
		if err := migrate(cfg.DSN, "up"); err != nil {
			log.Fatalf("migrations failed: %v", err)
		}
	}

	if cmd == "tui" {
		err = runTUI(ctx, cfg)
	} else {
		err = serve(ctx, cfg)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func migrate(dsn, action string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	migrator, err := store.NewMigrator(dsn)
	if err != nil {
		return err
	}
	switch action {
	case "up":
		if err := migrator.Up(ctx); err != nil && !errors.Is(err, store.ErrNoChange) {
			return err
		}
		fmt.Println("Migrations applied")
	case "down":
		if err := migrator.Down(ctx); err != nil && !errors.Is(err, store.ErrNoChange) {
			return err
		}
		fmt.Println("Migrations rolled back")
	default:
		return errors.New("unknown migrate action; use up|down")
	}
	return nil
}

func serve(ctx context.Context, cfg util.Config) error {
	logger, err := util.NewLogger(cfg.Debug)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	backend, err := store.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	// The hub and watcher stop on any return, including a failed listen.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	srv := api.New(backend, store.NewNotes(cfg.NotesDir), cfg.PublicDir, logger)
	go srv.Hub.Run(ctx)

	if cfg.Backend == util.BackendFile {
		w, err := store.NewWatcher(cfg.DataDir, cfg.NotesDir, logger, srv.Hub.Announce)
		if err != nil {
			return err
		}
		w.Start(ctx)
		defer w.Wait()
		defer cancel()
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.String("addr", cfg.Addr),
			zap.String("data", cfg.DataDir),
			zap.String("notes", cfg.NotesDir),
			zap.String("backend", cfg.Backend))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	return httpServer.Shutdown(shutdownCtx)
}

func runTUI(ctx context.Context, cfg util.Config) error {
	logger, err := util.NewFileLogger(filepath.Join(os.TempDir(), "gmeditor.log"), cfg.Debug)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	rules, err := engine.LoadRules(cfg.RulesPath)
	if err != nil {
		return err
	}
	backend, err := store.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	opts := ui.Options{
		Repos:    ui.NewRepos(backend, store.NewNotes(cfg.NotesDir)),
		Rules:    rules,
		Renderer: text.WithFallback(text.NewGlamour(""), text.NewPlain()),
		Log:      logger,
	}
	if cfg.Backend == util.BackendFile {
		changes := make(chan store.Doc, 8)
		w, err := store.NewWatcher(cfg.DataDir, cfg.NotesDir, logger, func(doc store.Doc) {
			select {
			case changes <- doc:
			default:
			}
		})
		if err != nil {
			return err
		}
		w.Start(ctx)
		opts.Changes = changes
	}
	return ui.Run(ctx, opts)
}
