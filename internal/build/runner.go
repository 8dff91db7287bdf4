// Package build processes document batches. One document is sequential;
// documents run concurrently under a bounded worker limit. The block cache
// and the hydration registry are the only cross-document shared state, and
// both are safe by construction: the cache through independently addressed
// paths, the registry through a per-document key.
package build

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/org-press/org-press-sub001/internal/doctree"
	"github.com/org-press/org-press-sub001/internal/exporter"
	"github.com/org-press/org-press-sub001/internal/hydrate"
	"github.com/org-press/org-press-sub001/internal/logfields"
	"github.com/org-press/org-press-sub001/internal/metrics"
	"github.com/org-press/org-press-sub001/internal/storage"
)

// DocumentResult records one document's outcome.
type DocumentResult struct {
	Document string
	Err      error
	Duration time.Duration
}

// Report summarizes a batch run.
type Report struct {
	Built    int
	Failed   int
	Results  []DocumentResult
	Manifest *hydrate.Manifest
}

// Runner drives exporter passes over many documents.
type Runner struct {
	exporter *exporter.Exporter
	hydrate  *hydrate.Registry
	store    storage.Store
	workers  int
	logger   *slog.Logger
	recorder metrics.Recorder
}

// NewRunner creates a batch runner. workers bounds concurrency and must be
// at least 1.
func NewRunner(exp *exporter.Exporter, reg *hydrate.Registry, store storage.Store, workers int) (*Runner, error) {
	if exp == nil || reg == nil || store == nil {
		return nil, fmt.Errorf("runner requires an exporter, a hydrate registry and a store")
	}
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		exporter: exp,
		hydrate:  reg,
		store:    store,
		workers:  workers,
		logger:   slog.Default(),
		recorder: metrics.Noop{},
	}, nil
}

// WithLogger sets a custom logger.
func (r *Runner) WithLogger(l *slog.Logger) *Runner {
	r.logger = l
	return r
}

// WithRecorder sets a metrics recorder.
func (r *Runner) WithRecorder(rec metrics.Recorder) *Runner {
	r.recorder = rec
	return r
}

// Run processes every document and then flushes loaders and the hydration
// manifest. A failing document is logged and recorded; the batch always
// continues to the end.
func (r *Runner) Run(ctx context.Context, docs []*doctree.Document) (*Report, error) {
	report := &Report{}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for _, doc := range docs {
		doc := doc
		g.Go(func() error {
			start := time.Now()
			err := r.exportOne(gctx, doc)
			elapsed := time.Since(start)
			r.recorder.DocumentProcessed(err == nil)

			mu.Lock()
			defer mu.Unlock()
			report.Results = append(report.Results, DocumentResult{
				Document: doc.Path,
				Err:      err,
				Duration: elapsed,
			})
			if err != nil {
				report.Failed++
				r.logger.Error("document failed", logfields.Document(doc.Path), logfields.Error(err))
				return nil // one bad document never fails the batch
			}
			report.Built++
			r.logger.Info("document processed",
				logfields.Document(doc.Path),
				logfields.DurationMS(float64(elapsed.Nanoseconds())/1e6))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	sort.Slice(report.Results, func(i, j int) bool {
		return report.Results[i].Document < report.Results[j].Document
	})

	manifest, err := hydrate.Flush(ctx, r.hydrate, r.store)
	if err != nil {
		return report, fmt.Errorf("flush hydration outputs: %w", err)
	}
	report.Manifest = manifest
	return report, nil
}

// exportOne isolates panics from a single document the same way errors are
// isolated.
func (r *Runner) exportOne(ctx context.Context, doc *doctree.Document) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic processing %s: %v", doc.Path, rec)
		}
	}()
	return r.exporter.ExportDocument(ctx, doc)
}
