// Package queue implements admission control for the hive engine.
//
// The queue manager decides which pending work items enter active
// processing each cycle. Admission respects three bounds:
//
//   - the active count never exceeds the maximum threshold
//   - a batch is only admitted once enough candidates accumulate to reach
//     the minimum threshold, or the wait timeout elapses
//   - a single cycle never admits more than the batch cap
//
// Candidates are ordered by priority descending with ties broken by age
// (oldest first). Waiting below the minimum threshold is deliberate: it
// avoids thrash from re-decomposing too few items per cycle, and is
// signalled with the ErrAdmissionWait sentinel rather than treated as a
// failure.
//
// The manager persists its state as JSON guarded by a file lock so a
// restarted engine resumes with the same active set and the status command
// can read a snapshot from another process.
package queue
