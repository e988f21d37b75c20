// Package breakdown decomposes work items into bounded-duration microtasks.
//
// Items are first classified by estimated duration into a complexity bucket
// (low, medium, high, critical) against configurable thresholds. Low items
// pass through as a single microtask. Medium items are chunked uniformly at
// a coarse chunk size with phase labels. High and critical items are
// decomposed with a named pattern selected by task category; the category
// set is a closed enum with an explicit default, so dispatch is auditable
// rather than driven by free-form string matching. An unknown category
// falls back to uniform chunking, which is never an error.
//
// Successful breakdowns of high and critical items are stored in a
// content-addressed cache so identical items decompose once; the processor
// invalidates the entry when the parent item completes.
package breakdown
