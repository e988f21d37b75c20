package processor

// Phase is the processor's position in the orchestration cycle.
type Phase string

const (
	// PhaseIdle means the loop is sleeping between cycles.
	PhaseIdle Phase = "idle"

	// PhaseScanning means the loop is listing pending ledger items.
	PhaseScanning Phase = "scanning"

	// PhaseAdmitting means the loop is running queue admission.
	PhaseAdmitting Phase = "admitting"

	// PhaseBreakingDown means admitted items are being decomposed.
	PhaseBreakingDown Phase = "breaking_down"

	// PhaseAssigning means microtasks are being matched to workers.
	PhaseAssigning Phase = "assigning"

	// PhaseExecuting means dispatched microtasks are running.
	PhaseExecuting Phase = "executing"

	// PhaseReconciling means outcomes are being folded back into item
	// status and written to the ledger.
	PhaseReconciling Phase = "reconciling"
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	return string(p)
}
