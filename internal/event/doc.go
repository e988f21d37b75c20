// Package event provides a pub-sub event bus for decoupled inter-component
// communication in the hive engine.
//
// The orchestration loop, the worker coordinator, and the status layer
// communicate through events rather than direct method calls. Components
// publish events without knowing who will receive them, and subscribe to
// events without knowing who will produce them.
//
// # Main Types
//
//   - [Event]: Interface that all events must implement, providing EventType() and Timestamp()
//   - [Bus]: Synchronous pub-sub event dispatcher with thread-safe operations
//   - [Handler]: Function type for event handlers (func(Event))
//
// # Thread Safety
//
// The [Bus] type is safe for concurrent use. Handlers are called
// synchronously and protected against panics - a panicking handler will not
// prevent other handlers from being called.
//
// # Event Type Naming Convention
//
// Event types follow the pattern "category.action":
//   - item.admitted, item.completed, item.failed, item.cancelled
//   - microtask.assigned, microtask.completed, microtask.requeued
//   - queue.depth_changed
//   - worker.registered, worker.failed
//   - conflict.resolved
//   - cache.hit, cache.miss
//   - phase.changed
package event
