// Package watcher evaluates results files dropped into a watched directory.
package watcher

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/avtr-nvivas/check-jtl/internal/gate"
)

const (
	evalsPerSecond = 1
	evalBurst      = 2
	minTick        = 50 * time.Millisecond
)

// Evaluator runs the gate for one results source.
type Evaluator interface {
	Run(ctx context.Context, source string) (*gate.Result, error)
}

// Watcher debounces file events and evaluates settled results files.
// JMeter appends to the JTL for the whole run, so a file only counts as
// complete once no write has arrived for the settle delay.
type Watcher struct {
	dir      string
	settle   time.Duration
	gate     Evaluator
	logger   *zap.Logger
	limiter  *rate.Limiter
	onResult func(*gate.Result)

	mu      sync.Mutex
	pending map[string]time.Time
}

// New creates a watcher for dir. Files are evaluated once quiet for settle.
func New(dir string, settle time.Duration, g Evaluator, logger *zap.Logger) *Watcher {
	return &Watcher{
		dir:     dir,
		settle:  settle,
		gate:    g,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(evalsPerSecond), evalBurst),
		pending: make(map[string]time.Time),
	}
}

// OnResult registers a callback invoked after each successful evaluation.
func (w *Watcher) OnResult(fn func(*gate.Result)) {
	w.onResult = fn
}

// IsResultsFile reports whether name looks like a JTL results log.
func IsResultsFile(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".jtl") || strings.HasSuffix(lower, ".jtl.gz")
}

// Watch blocks processing events until ctx is cancelled or the underlying
// watcher fails.
func (w *Watcher) Watch(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = fsw.Close() }()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.logger.Info("watching for results",
		zap.String("dir", w.dir),
		zap.Duration("settle", w.settle))

	tick := w.settle / 2
	if tick < minTick {
		tick = minTick
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.observe(event, time.Now())
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))
		case now := <-ticker.C:
			w.evaluateSettled(ctx, now)
		}
	}
}

// observe marks a results file pending on create or write.
func (w *Watcher) observe(event fsnotify.Event, now time.Time) {
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
		return
	}
	if !IsResultsFile(event.Name) {
		return
	}
	w.mu.Lock()
	w.pending[event.Name] = now
	w.mu.Unlock()
}

// evaluateSettled runs the gate for every pending file whose last write is
// at least the settle delay old.
func (w *Watcher) evaluateSettled(ctx context.Context, now time.Time) {
	var due []string
	w.mu.Lock()
	for path, last := range w.pending {
		if now.Sub(last) >= w.settle {
			due = append(due, path)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	sort.Strings(due)
	for _, path := range due {
		if err := w.limiter.Wait(ctx); err != nil {
			return
		}
		w.evaluate(ctx, path)
	}
}

func (w *Watcher) evaluate(ctx context.Context, path string) {
	result, err := w.gate.Run(ctx, path)
	if err != nil {
		w.logger.Error("evaluation failed", zap.String("path", path), zap.Error(err))
		return
	}
	w.logger.Info("evaluation complete",
		zap.String("path", path),
		zap.String("run_id", result.RunID),
		zap.Bool("sla_passed", result.Summary.SLAPassed))
	if w.onResult != nil {
		w.onResult(result)
	}
}
