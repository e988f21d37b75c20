// Package coordinator matches microtasks to workers and guards the
// engine's assignment invariants.
//
// The coordinator owns the worker registry. Selection picks among idle
// workers whose capability set covers the microtask's requirements
// (capabilities may be glob patterns), tie-broken by highest performance
// score and then lowest current load. Assignment is atomic under the
// registry lock and fails with a ConflictError when it would exceed a
// worker's capacity or double-book a microtask; this is the sole mechanism
// preventing double-booking under concurrent invocation.
//
// The conflict detector scans for work items simultaneously claimed
// in-progress by more than one subsystem and resolves in favor of the
// higher-priority claim, releasing and requeuing the loser. It is the only
// authority permitted to revoke an assignment; workers never self-unassign.
//
// Rebalance periodically recomputes worker allocation across complexity
// tiers proportional to aggregate backlog, shifting idle workers toward
// the tier with the largest queue. A cooldown between decisions prevents
// allocation thrash.
package coordinator
