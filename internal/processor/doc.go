// Package processor runs the orchestration loop that ties the engine
// together: scan the ledger, admit a batch through the queue, break
// items into microtasks, assign them to workers, execute under time
// budgets, and reconcile outcomes back to the ledger.
//
// The loop is single-threaded and phase-oriented. Concurrency lives at
// the edges: the worker pool executes dispatched microtasks, and
// parallel-safe microtasks of one item fan out together. Cancellation
// is checked at every phase boundary.
package processor
