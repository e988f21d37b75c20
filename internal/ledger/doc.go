// Package ledger connects the engine to the external task ledger.
//
// The engine never parses the ledger's native markup. Instead, every
// ledger backend implements the Adapter contract: list pending work
// items and reflect status transitions back. The package ships a YAML
// file adapter as the reference backend, plus an optional filesystem
// watcher so the processor can rescan early when the ledger file
// changes instead of waiting for the next scan tick.
package ledger
