package processor

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hivelab/hive/internal/event"
	"github.com/hivelab/hive/internal/task"
)

// adapterRetryBase is the first backoff delay for a failed ledger write.
const adapterRetryBase = 100 * time.Millisecond

// reconcile folds one item's microtask outcomes into a terminal item
// status and writes it through the adapter. The parent completes only
// when every child succeeded; otherwise it fails with notes naming the
// failed step indices. In-memory state is authoritative either way.
func (p *Processor) reconcile(ctx context.Context, run *itemRun) {
	itemID := run.item.ID
	log := p.logger.WithItem(itemID)
	defer p.coord.ReleaseClaim(itemID, p.holder)

	if run.isCancelled() {
		if err := p.queue.Release(itemID, false); err != nil {
			log.Warn("queue release failed", "error", err)
		}
		p.writeWithRetry(ctx, "mark failed", itemID, func(wctx context.Context) error {
			return p.adapter.MarkFailed(wctx, itemID, "cancelled")
		})
		p.recordFailure(itemID)
		log.Info("item reconciled as cancelled")
		return
	}

	var failedSteps []int
	completed := 0
	for _, mt := range run.microtasks {
		switch mt.Status {
		case task.MicroCompleted:
			completed++
		case task.MicroFailed:
			failedSteps = append(failedSteps, mt.SequenceIndex)
		}
	}

	if completed == len(run.microtasks) {
		if err := p.queue.Release(itemID, true); err != nil {
			log.Warn("queue release failed", "error", err)
		}
		p.engine.InvalidateFor(&run.item)
		notes := fmt.Sprintf("%d microtasks completed", completed)
		p.writeWithRetry(ctx, "mark completed", itemID, func(wctx context.Context) error {
			return p.adapter.MarkCompleted(wctx, itemID, notes)
		})
		p.publish(event.NewItemCompletedEvent(itemID, completed))
		log.Info("item completed", "microtasks", completed)
		return
	}

	if err := p.queue.Release(itemID, false); err != nil {
		log.Warn("queue release failed", "error", err)
	}

	sort.Ints(failedSteps)
	reason := failureNotes(failedSteps, len(run.microtasks))
	p.writeWithRetry(ctx, "mark failed", itemID, func(wctx context.Context) error {
		return p.adapter.MarkFailed(wctx, itemID, reason)
	})
	p.publish(event.NewItemFailedEvent(itemID, failedSteps, reason))
	p.recordFailure(itemID)
	log.Warn("item failed", "failed_steps", failedSteps, "completed", completed)
}

// failureNotes renders the ledger note for a failed item.
func failureNotes(failedSteps []int, total int) string {
	if len(failedSteps) == 0 {
		return "incomplete: some microtasks did not finish"
	}
	steps := make([]string, len(failedSteps))
	for i, idx := range failedSteps {
		steps[i] = fmt.Sprintf("%d", idx)
	}
	return fmt.Sprintf("failed steps %s of %d", strings.Join(steps, ", "), total)
}

// writeWithRetry attempts a ledger write with exponential backoff. An
// exhausted write is logged as a warning and absorbed; the engine's
// in-memory state remains authoritative.
func (p *Processor) writeWithRetry(ctx context.Context, op, itemID string, write func(context.Context) error) {
	backoff := adapterRetryBase
	var err error

	for attempt := 1; attempt <= p.adapterRetries; attempt++ {
		err = write(ctx)
		if err == nil {
			return
		}
		if ctx.Err() != nil {
			break
		}
		if attempt < p.adapterRetries {
			select {
			case <-ctx.Done():
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}

	p.logger.WithItem(itemID).Warn("ledger write dropped after retries",
		"op", op, "attempts", p.adapterRetries, "error", err)
}

func (p *Processor) recordFailure(itemID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.recentFailures = append(p.recentFailures, itemID)
	if len(p.recentFailures) > recentFailureLimit {
		p.recentFailures = p.recentFailures[len(p.recentFailures)-recentFailureLimit:]
	}
}
