package processor

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hivelab/hive/internal/breakdown"
	"github.com/hivelab/hive/internal/coordinator"
	"github.com/hivelab/hive/internal/errors"
	"github.com/hivelab/hive/internal/event"
	"github.com/hivelab/hive/internal/ledger"
	"github.com/hivelab/hive/internal/logging"
	"github.com/hivelab/hive/internal/queue"
	"github.com/hivelab/hive/internal/task"
	"github.com/hivelab/hive/internal/worker"
)

// Defaults for the orchestration loop.
const (
	defaultScanInterval   = 5 * time.Second
	defaultTaskTimeout    = 10 * time.Minute
	defaultAdapterRetries = 3
	defaultClaimHolder    = "processor"

	// findWorkerRetryDelay paces assignment retries while every
	// qualified worker is at capacity.
	findWorkerRetryDelay = 50 * time.Millisecond

	// recentFailureLimit bounds the failure history kept for status.
	recentFailureLimit = 10
)

// Option configures a Processor.
type Option func(*Processor)

// WithScanInterval sets how long the loop sleeps when the ledger has no
// admissible work.
func WithScanInterval(d time.Duration) Option {
	return func(p *Processor) { p.scanInterval = d }
}

// WithTaskTimeout sets the per-microtask execution budget.
func WithTaskTimeout(d time.Duration) Option {
	return func(p *Processor) { p.taskTimeout = d }
}

// WithAdapterRetries sets how many attempts a ledger write gets before
// the failure is downgraded to a warning.
func WithAdapterRetries(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.adapterRetries = n
		}
	}
}

// WithDataDir enables queue state checkpointing into the directory.
func WithDataDir(dir string) Option {
	return func(p *Processor) { p.dataDir = dir }
}

// WithBus sets the event bus for lifecycle events.
func WithBus(bus *event.Bus) Option {
	return func(p *Processor) { p.bus = bus }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *logging.Logger) Option {
	return func(p *Processor) { p.logger = logger }
}

// WithWake sets a channel that cuts the idle sleep short, typically a
// ledger watcher's change channel.
func WithWake(ch <-chan struct{}) Option {
	return func(p *Processor) { p.wake = ch }
}

// WithClaimHolder sets the identity this processor claims items under.
// Embedders running several processors over one coordinator give each a
// distinct holder so the conflict detector can tell them apart.
func WithClaimHolder(holder string) Option {
	return func(p *Processor) {
		if holder != "" {
			p.holder = holder
		}
	}
}

// Processor drives the orchestration cycle over the engine's parts.
type Processor struct {
	queue   *queue.Manager
	engine  *breakdown.Engine
	coord   *coordinator.Coordinator
	adapter ledger.Adapter
	pool    *worker.Pool

	bus    *event.Bus
	logger *logging.Logger

	scanInterval   time.Duration
	taskTimeout    time.Duration
	adapterRetries int
	dataDir        string
	holder         string
	wake           <-chan struct{}

	mu             sync.Mutex
	phase          Phase
	active         map[string]*itemRun            // itemID -> current run
	waiters        map[string]chan worker.Outcome // microtaskID -> dispatch waiter
	recentFailures []string
	readFailures   int
}

// itemRun is the in-flight state of one admitted item for the duration
// of a cycle.
type itemRun struct {
	item       task.WorkItem
	complexity task.Complexity
	microtasks []*task.MicroTask

	mu        sync.Mutex
	cancelled bool
}

func (r *itemRun) cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelled = true
}

func (r *itemRun) isCancelled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancelled
}

// New creates a Processor over the given parts.
func New(q *queue.Manager, engine *breakdown.Engine, coord *coordinator.Coordinator, adapter ledger.Adapter, pool *worker.Pool, opts ...Option) *Processor {
	p := &Processor{
		queue:          q,
		engine:         engine,
		coord:          coord,
		adapter:        adapter,
		pool:           pool,
		logger:         logging.NopLogger(),
		scanInterval:   defaultScanInterval,
		taskTimeout:    defaultTaskTimeout,
		adapterRetries: defaultAdapterRetries,
		holder:         defaultClaimHolder,
		phase:          PhaseIdle,
		active:         make(map[string]*itemRun),
		waiters:        make(map[string]chan worker.Outcome),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run drives the orchestration loop until ctx is cancelled or the
// ledger becomes persistently unreadable. A clean shutdown returns nil.
func (p *Processor) Run(ctx context.Context) error {
	p.logger.Info("processor starting",
		"scan_interval", p.scanInterval.String(),
		"task_timeout", p.taskTimeout.String())

	p.pool.Start(ctx)
	go p.collect(ctx)
	defer p.pool.Wait()

	p.releaseStale(ctx)

	for {
		if ctx.Err() != nil {
			p.setPhase(PhaseIdle)
			p.logger.Info("processor stopped")
			return nil
		}

		progressed, err := p.runCycle(ctx)
		if err != nil {
			p.setPhase(PhaseIdle)
			p.logger.Error("processor halting", "error", err)
			return err
		}
		if progressed {
			continue
		}

		p.setPhase(PhaseIdle)
		select {
		case <-ctx.Done():
			p.logger.Info("processor stopped")
			return nil
		case <-p.wake:
			p.logger.Debug("rescanning early on ledger change")
		case <-time.After(p.scanInterval):
		}
	}
}

// runCycle runs one full pass of the phase machine. It reports whether
// any work was admitted, and an error only when the loop must halt.
func (p *Processor) runCycle(ctx context.Context) (bool, error) {
	p.setPhase(PhaseScanning)

	if released := p.coord.SweepFailed(); len(released) > 0 {
		p.logger.Warn("heartbeat sweep released assignments", "count", len(released))
	}
	p.resolveConflicts(ctx)

	candidates, err := p.adapter.ListPending(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return false, nil
		}
		p.mu.Lock()
		p.readFailures++
		failures := p.readFailures
		p.mu.Unlock()
		if failures >= p.adapterRetries {
			return false, err
		}
		p.logger.Warn("ledger scan failed", "error", err, "consecutive", failures)
		return false, nil
	}
	p.mu.Lock()
	p.readFailures = 0
	p.mu.Unlock()

	if len(candidates) == 0 {
		return false, nil
	}

	p.setPhase(PhaseAdmitting)
	admitted, err := p.queue.Admit(candidates)
	if err != nil {
		switch {
		case errors.Is(err, errors.ErrAdmissionWait):
			p.logger.Debug("waiting for admission threshold",
				"candidates", len(candidates))
		case errors.Is(err, errors.ErrQueueFull):
			p.logger.Warn("queue full, deferring admission",
				"candidates", len(candidates))
		default:
			p.logger.Error("admission failed", "error", err)
		}
		return false, nil
	}
	if len(admitted) == 0 {
		return false, nil
	}

	runs := make([]*itemRun, 0, len(admitted))
	for _, item := range admitted {
		item := item
		p.coord.RecordClaim(item.ID, p.holder, item.Priority)
		p.writeWithRetry(ctx, "mark in_progress", item.ID, func(wctx context.Context) error {
			return p.adapter.MarkInProgress(wctx, item.ID)
		})
		p.publish(event.NewItemAdmittedEvent(item.ID, item.Priority.String()))
	}

	state := p.queue.Status()
	p.publish(event.NewQueueDepthChangedEvent(
		state.ActiveCount, len(candidates)-len(admitted), state.Completed, state.Failed))

	p.setPhase(PhaseBreakingDown)
	backlog := make(map[task.Complexity]int)
	for i := range admitted {
		item := admitted[i]
		complexity := p.engine.Classify(&item)
		item.Complexity = complexity
		mts := p.engine.Breakdown(&item)

		run := &itemRun{item: item, complexity: complexity}
		run.microtasks = make([]*task.MicroTask, len(mts))
		for j := range mts {
			mt := mts[j]
			run.microtasks[j] = &mt
		}
		runs = append(runs, run)
		backlog[complexity] += len(mts)

		p.logger.WithItem(item.ID).Info("item decomposed",
			"complexity", complexity.String(), "microtasks", len(mts))
	}

	p.coord.Rebalance(backlog)

	p.mu.Lock()
	for _, run := range runs {
		p.active[run.item.ID] = run
	}
	p.mu.Unlock()

	p.setPhase(PhaseAssigning)
	p.setPhase(PhaseExecuting)

	var g errgroup.Group
	for _, run := range runs {
		run := run
		g.Go(func() error {
			p.executeItem(ctx, run)
			return nil
		})
	}
	_ = g.Wait()

	p.setPhase(PhaseReconciling)
	for _, run := range runs {
		p.reconcile(ctx, run)
	}

	p.mu.Lock()
	for _, run := range runs {
		delete(p.active, run.item.ID)
	}
	p.mu.Unlock()

	if p.dataDir != "" {
		if err := p.queue.SaveState(p.dataDir); err != nil {
			p.logger.Warn("queue checkpoint failed", "error", err)
		}
	}
	return true, nil
}

// releaseStale returns items admitted by a previous process to the
// pending state, in memory and in the ledger. Runs once before the
// first scan: a checkpoint restored after a crash carries the dead
// run's active set, and nothing in this process will ever complete or
// release those items.
func (p *Processor) releaseStale(ctx context.Context) {
	stale := p.queue.ReleaseStale()
	for _, item := range stale {
		itemID := item.ID
		p.writeWithRetry(ctx, "mark pending", itemID, func(wctx context.Context) error {
			return p.adapter.MarkPending(wctx, itemID)
		})
		p.logger.WithItem(itemID).Info("released stale admission from previous run")
	}
	if len(stale) > 0 {
		p.logger.Info("stale admissions released", "count", len(stale))
	}
}

// resolveConflicts settles double claims before admission. When this
// processor's claim loses, the item leaves the active set and returns
// to pending so only the winning holder keeps it.
func (p *Processor) resolveConflicts(ctx context.Context) {
	for _, res := range p.coord.DetectConflicts() {
		for _, loser := range res.Losers {
			if loser != p.holder {
				continue
			}
			itemID := res.ItemID
			if err := p.queue.Requeue(itemID); err == nil {
				p.writeWithRetry(ctx, "mark pending", itemID, func(wctx context.Context) error {
					return p.adapter.MarkPending(wctx, itemID)
				})
			}
			p.logger.WithItem(itemID).Warn("claim lost, item requeued",
				"winner", res.Winner)
		}
	}
}

// Cancel cancels an in-flight item: unstarted microtasks are marked
// cancelled and in-flight results are discarded at reconciliation.
func (p *Processor) Cancel(itemID string) error {
	p.mu.Lock()
	run, ok := p.active[itemID]
	p.mu.Unlock()
	if !ok {
		return errors.ErrItemNotFound
	}

	run.cancel()
	p.publish(event.NewItemCancelledEvent(itemID))
	p.logger.WithItem(itemID).Info("item cancelled")
	return nil
}

func (p *Processor) setPhase(phase Phase) {
	p.mu.Lock()
	prev := p.phase
	p.phase = phase
	p.mu.Unlock()

	if prev != phase {
		p.publish(event.NewPhaseChangedEvent(prev.String(), phase.String()))
		p.logger.WithPhase(phase.String()).Debug("phase changed", "from", prev.String())
	}
}

func (p *Processor) publish(ev event.Event) {
	if p.bus != nil {
		p.bus.Publish(ev)
	}
}
