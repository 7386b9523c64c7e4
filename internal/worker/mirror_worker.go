package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"socios/internal/amqp"
	"socios/internal/core"
	"socios/internal/debounce"
	applog "socios/internal/log"
	"socios/internal/metrics"
	"socios/internal/services"
	"socios/internal/sheets"
)

// RosterSource is the part of the member service the worker reads.
type RosterSource interface {
	Roster(ctx context.Context) (services.Roster, error)
	Invalidate()
}

// InconsistencyReporter finds Approved requests whose document survived.
type InconsistencyReporter interface {
	Inconsistent(ctx context.Context) ([]core.DeletionRequestView, error)
}

// MirrorWorkerConfig holds configuration for the mirror worker
type MirrorWorkerConfig struct {
	// Debounce is the quiet period before a burst of events becomes one mirror pass (default: 5s)
	Debounce time.Duration

	// ReconcileInterval is how often inconsistent requests are reported and
	// the sheet is rewritten in full (default: 15m)
	ReconcileInterval time.Duration

	// MirrorTimeout bounds a single mirror pass (default: 1m)
	MirrorTimeout time.Duration
}

// DefaultMirrorWorkerConfig returns sensible defaults
func DefaultMirrorWorkerConfig() MirrorWorkerConfig {
	return MirrorWorkerConfig{
		Debounce:          5 * time.Second,
		ReconcileInterval: 15 * time.Minute,
		MirrorTimeout:     time.Minute,
	}
}

// MirrorWorker keeps the roster sheet in step with the store and watches the
// deletion workflow for approved requests that left their document behind.
type MirrorWorker struct {
	roster   RosterSource
	mirror   sheets.RosterMirror
	requests InconsistencyReporter
	config   MirrorWorkerConfig

	debouncer *debounce.Debouncer[amqp.EventKind]

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopped bool // debouncer was stopped; Start replaces it
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewMirrorWorker creates a worker. mirror may be nil, in which case only the
// reconcile report runs.
func NewMirrorWorker(roster RosterSource, mirror sheets.RosterMirror, requests InconsistencyReporter, config MirrorWorkerConfig) *MirrorWorker {
	def := DefaultMirrorWorkerConfig()
	if config.Debounce <= 0 {
		config.Debounce = def.Debounce
	}
	if config.ReconcileInterval <= 0 {
		config.ReconcileInterval = def.ReconcileInterval
	}
	if config.MirrorTimeout <= 0 {
		config.MirrorTimeout = def.MirrorTimeout
	}
	w := &MirrorWorker{
		roster:   roster,
		mirror:   mirror,
		requests: requests,
		config:   config,
	}
	w.debouncer = debounce.New(config.Debounce, w.debouncedMirror)
	return w
}

// HandleEvent processes a single roster event from AMQP. Errors are never
// returned for mirror failures: the pass is retried on the next event or
// on the reconcile tick, so requeueing the message would only spin.
func (w *MirrorWorker) HandleEvent(ctx context.Context, ev *amqp.RosterEvent) error {
	slog.InfoContext(ctx, "Processing roster event",
		applog.FieldComponent, applog.ComponentWorker,
		"kind", ev.Kind,
		applog.FieldMemberID, ev.MemberID,
		applog.FieldDocumentID, ev.DocumentID)

	switch ev.Kind {
	case amqp.MemberChanged, amqp.MemberDeleted, amqp.IncomeRecorded:
		w.roster.Invalidate()
		w.events().Trigger(ev.Kind)
	case amqp.DeletionPartialFailure:
		slog.ErrorContext(ctx, "Deletion request approved but its document still exists",
			applog.FieldComponent, applog.ComponentWorker,
			applog.FieldDeletionID, ev.RequestID,
			applog.FieldDocumentID, ev.DocumentID,
			applog.FieldActorID, ev.ActorID)
		w.ReportInconsistent(ctx)
	default:
		// Document and request events do not change the mirrored columns.
	}
	return nil
}

// MirrorNow rewrites the sheet from the current roster. A degraded roster
// (incomes failed to load) is not mirrored.
func (w *MirrorWorker) MirrorNow(ctx context.Context) error {
	if w.mirror == nil {
		return nil
	}
	r, err := w.roster.Roster(ctx)
	if err != nil {
		metrics.MirrorRuns.WithLabelValues("error").Inc()
		return fmt.Errorf("load roster: %w", err)
	}
	if r.IncomeErr != nil {
		metrics.MirrorRuns.WithLabelValues("skipped").Inc()
		return fmt.Errorf("roster without incomes: %w", r.IncomeErr)
	}
	if err := w.mirror.MirrorRoster(ctx, r.Entries); err != nil {
		metrics.MirrorRuns.WithLabelValues("error").Inc()
		return fmt.Errorf("mirror roster: %w", err)
	}
	metrics.MirrorRuns.WithLabelValues("ok").Inc()
	return nil
}

// ReportInconsistent logs every Approved request whose document still exists.
func (w *MirrorWorker) ReportInconsistent(ctx context.Context) {
	if w.requests == nil {
		return
	}
	reqs, err := w.requests.Inconsistent(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to check deletion requests",
			applog.FieldComponent, applog.ComponentWorker,
			applog.FieldError, err)
		return
	}
	for _, r := range reqs {
		slog.WarnContext(ctx, "Approved deletion request awaiting reconcile",
			applog.FieldComponent, applog.ComponentWorker,
			applog.FieldDeletionID, r.ID,
			applog.FieldDocumentID, r.DocumentID,
			applog.FieldDNI, r.MemberDNI,
			"approved_by", r.ApprovedBy,
			"approved_at", r.ApprovedAt)
	}
}

func (w *MirrorWorker) events() *debounce.Debouncer[amqp.EventKind] {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.debouncer
}

func (w *MirrorWorker) debouncedMirror(kind amqp.EventKind) {
	ctx, cancel := context.WithTimeout(context.Background(), w.config.MirrorTimeout)
	defer cancel()
	if err := w.MirrorNow(ctx); err != nil {
		slog.ErrorContext(ctx, "Sheet mirror failed",
			applog.FieldComponent, applog.ComponentSheets,
			applog.FieldOperation, applog.OpMirror,
			"trigger", kind,
			applog.FieldError, err)
	}
}

// Start begins the reconcile loop. Returns an error if already running.
func (w *MirrorWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("mirror worker is already running")
	}
	w.running = true
	if w.stopped {
		w.debouncer = debounce.New(w.config.Debounce, w.debouncedMirror)
		w.stopped = false
	}
	stopCh := make(chan struct{})
	doneCh := make(chan struct{})
	w.stopCh, w.doneCh = stopCh, doneCh
	w.mu.Unlock()

	go w.runLoop(ctx, stopCh, doneCh)

	slog.InfoContext(ctx, "Mirror worker started",
		"debounce", w.config.Debounce,
		"reconcile_interval", w.config.ReconcileInterval,
		"mirror_enabled", w.mirror != nil)
	return nil
}

// Stop runs any pending mirror pass, then stops the loop and waits for it.
// Events handled after Stop are dropped. Only the first of concurrent Stop
// calls does the work; the others return at once.
func (w *MirrorWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	w.stopped = true
	stopCh, doneCh, debouncer := w.stopCh, w.doneCh, w.debouncer
	w.mu.Unlock()

	debouncer.Flush()
	debouncer.Stop()
	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Mirror worker stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Mirror worker stop timed out")
		return ctx.Err()
	}
}

// IsRunning returns whether the worker loop is currently running
func (w *MirrorWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *MirrorWorker) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(w.config.ReconcileInterval)
	defer ticker.Stop()

	// Full pass on startup
	w.tick(ctx)

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *MirrorWorker) tick(ctx context.Context) {
	w.ReportInconsistent(ctx)
	w.roster.Invalidate()
	mctx, cancel := context.WithTimeout(ctx, w.config.MirrorTimeout)
	defer cancel()
	if err := w.MirrorNow(mctx); err != nil {
		slog.ErrorContext(ctx, "Periodic sheet mirror failed",
			applog.FieldComponent, applog.ComponentSheets,
			applog.FieldError, err)
	}
}
