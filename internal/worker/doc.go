// Package worker executes microtasks on a bounded pool of goroutines.
//
// The Executor interface is the pluggable boundary to whatever actually
// performs a microtask. The Pool owns goroutine lifecycle and per-task
// time budgets; it never decides which worker gets which task, that is
// the coordinator's job. A SimulatedExecutor ships for tests and for
// dry runs.
package worker
