package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/org-press/org-press-sub001/internal/annotation"
	"github.com/org-press/org-press-sub001/internal/blockcache"
	"github.com/org-press/org-press-sub001/internal/build"
	"github.com/org-press/org-press-sub001/internal/config"
	"github.com/org-press/org-press-sub001/internal/doctree"
	"github.com/org-press/org-press-sub001/internal/exporter"
	"github.com/org-press/org-press-sub001/internal/hydrate"
	"github.com/org-press/org-press-sub001/internal/logfields"
	"github.com/org-press/org-press-sub001/internal/plugin"
	"github.com/org-press/org-press-sub001/internal/registry"
	"github.com/org-press/org-press-sub001/internal/sandbox"
	"github.com/org-press/org-press-sub001/internal/storage"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"orgpress.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Build struct {
	} `cmd:"" help:"Process the content tree: execute and transform blocks, emit markup, loaders and manifest"`

	Watch struct {
	} `cmd:"" help:"Build once, then watch the content tree and rebuild documents as they change"`

	Cache struct {
		Clean struct {
			Doc string `help:"Invalidate a single document's entries instead of the whole cache"`
		} `cmd:"" help:"Remove cached block artifacts"`
	} `cmd:"" help:"Cache maintenance"`
}

func main() {
	_ = godotenv.Load()
	kctx := kong.Parse(&CLI)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		logger.Error("failed to load configuration", logfields.Error(err))
		os.Exit(1)
	}

	ctx := context.Background()
	switch kctx.Command() {
	case "build":
		if err := runBuild(ctx, cfg, logger); err != nil {
			logger.Error("build failed", logfields.Error(err))
			os.Exit(1)
		}
	case "watch":
		if err := runWatch(ctx, cfg, logger); err != nil {
			logger.Error("watch failed", logfields.Error(err))
			os.Exit(1)
		}
	case "cache clean":
		if err := runCacheClean(ctx, cfg, CLI.Cache.Clean.Doc); err != nil {
			logger.Error("cache clean failed", logfields.Error(err))
			os.Exit(1)
		}
	default:
		logger.Error("unknown command", slog.String("command", kctx.Command()))
		os.Exit(1)
	}
}

func openStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.CacheBackend {
	case "sqlite":
		return storage.NewSQLiteStore(filepath.Join(cfg.CacheDir, "cache.db"))
	case "memory":
		return storage.NewMemStore(), nil
	default:
		return storage.NewFSStore(cfg.CacheDir)
	}
}

// site bundles the wiring shared by the build and watch commands.
type site struct {
	store      storage.Store
	cache      *blockcache.Cache
	hydrateReg *hydrate.Registry
	exporter   *exporter.Exporter
}

func newSite(cfg *config.Config, logger *slog.Logger) (*site, error) {
	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	cache := blockcache.New(store).WithLogger(logger)
	hydrateReg := hydrate.NewRegistry()
	sb := sandbox.New(build.NewContentHelpers(cfg.ContentDir, cfg.Development), sandbox.WithLogger(logger))

	exp, err := exporter.New(exporter.Config{
		Registry:    registry.NewWithBuiltins(),
		Plugins:     plugin.NewResolver(plugin.NewScriptPlugin(), plugin.NewCSSPlugin()),
		Sandbox:     sb,
		Cache:       cache,
		Hydrate:     hydrateReg,
		Logger:      logger,
		Development: cfg.Development,
	})
	if err != nil {
		store.Close()
		return nil, err
	}
	return &site{store: store, cache: cache, hydrateReg: hydrateReg, exporter: exp}, nil
}

func (s *site) buildAll(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*build.Report, error) {
	docs, err := loadDocuments(cfg.ContentDir)
	if err != nil {
		return nil, err
	}
	logger.Info("processing documents", slog.Int("count", len(docs)))

	runner, err := build.NewRunner(s.exporter, s.hydrateReg, s.store, cfg.EffectiveWorkers())
	if err != nil {
		return nil, err
	}
	report, err := runner.WithLogger(logger).Run(ctx, docs)
	if err != nil {
		return nil, err
	}
	if err := writeOutputs(cfg.OutputDir, docs, report); err != nil {
		return nil, err
	}
	logger.Info("build finished",
		slog.Int("built", report.Built),
		slog.Int("failed", report.Failed))
	return report, nil
}

func runBuild(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	s, err := newSite(cfg, logger)
	if err != nil {
		return err
	}
	defer s.store.Close()

	report, err := s.buildAll(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if report.Failed > 0 {
		return fmt.Errorf("%d of %d documents failed", report.Failed, len(report.Results))
	}
	return nil
}

func runWatch(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := newSite(cfg, logger)
	if err != nil {
		return err
	}
	defer s.store.Close()

	// Initial full pass; individual document failures are already logged and
	// must not keep the watcher from starting.
	if _, err := s.buildAll(ctx, cfg, logger); err != nil {
		return err
	}

	rebuild := func(ctx context.Context, docPath string) {
		src, err := os.ReadFile(filepath.Join(cfg.ContentDir, filepath.FromSlash(docPath))) // #nosec G304 - content-tree path
		if err != nil {
			if os.IsNotExist(err) {
				logger.Info("document removed, cache dropped", logfields.Document(docPath))
				return
			}
			logger.Warn("rebuild read failed", logfields.Document(docPath), logfields.Error(err))
			return
		}
		doc := doctree.Parse(docPath, src)
		if err := s.exporter.ExportDocument(ctx, doc); err != nil {
			logger.Error("rebuild failed", logfields.Document(docPath), logfields.Error(err))
			return
		}
		if _, err := hydrate.Flush(ctx, s.hydrateReg, s.store); err != nil {
			logger.Warn("hydration flush failed", logfields.Document(docPath), logfields.Error(err))
		}
		if err := writeDocumentHTML(cfg.OutputDir, doc); err != nil {
			logger.Warn("output write failed", logfields.Document(docPath), logfields.Error(err))
			return
		}
		logger.Info("document rebuilt", logfields.Document(docPath))
	}

	logger.Info("watching content tree", slog.String("dir", cfg.ContentDir))
	err = blockcache.NewWatcher(s.cache, cfg.ContentDir).
		WithLogger(logger).
		WithOnInvalidate(rebuild).
		Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func loadDocuments(contentDir string) ([]*doctree.Document, error) {
	var docs []*doctree.Document
	err := filepath.WalkDir(contentDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, annotation.NativeExtension) {
			return nil
		}
		src, readErr := os.ReadFile(p) // #nosec G304 - content-tree path
		if readErr != nil {
			return readErr
		}
		rel, relErr := filepath.Rel(contentDir, p)
		if relErr != nil {
			return relErr
		}
		docs = append(docs, doctree.Parse(filepath.ToSlash(rel), src))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan content tree %s: %w", contentDir, err)
	}
	return docs, nil
}

func writeOutputs(outputDir string, docs []*doctree.Document, report *build.Report) error {
	failed := map[string]bool{}
	for _, r := range report.Results {
		if r.Err != nil {
			failed[r.Document] = true
		}
	}
	for _, doc := range docs {
		if failed[doc.Path] {
			continue
		}
		if err := writeDocumentHTML(outputDir, doc); err != nil {
			return err
		}
	}
	return nil
}

func writeDocumentHTML(outputDir string, doc *doctree.Document) error {
	html, err := doc.RenderHTML()
	if err != nil {
		return fmt.Errorf("render %s: %w", doc.Path, err)
	}
	out := filepath.Join(outputDir, filepath.FromSlash(strings.TrimSuffix(doc.Path, annotation.NativeExtension)+".html"))
	if err := os.MkdirAll(filepath.Dir(out), 0o750); err != nil {
		return err
	}
	return os.WriteFile(out, []byte(html), 0o600)
}

func runCacheClean(ctx context.Context, cfg *config.Config, doc string) error {
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	cache := blockcache.New(store)
	if doc != "" {
		return cache.InvalidateDocument(ctx, doc)
	}
	return cache.Clear(ctx)
}
