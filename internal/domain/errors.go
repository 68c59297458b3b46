package domain

import "errors"

var (
	// ErrInvalidState indicates a hypothesis is in the wrong state for the
	// requested ledger operation. This signals a core logic defect and is the
	// only error class allowed to abort a running session.
	ErrInvalidState = errors.New("hypothesis in invalid state for operation")

	// ErrInvalidDecision indicates a reasoning collaborator returned a value
	// outside the five-decision set. Coerced to NO_PROGRESS at the pass
	// coordinator boundary.
	ErrInvalidDecision = errors.New("unrecognized decision value")

	// ErrCollaboratorTimeout indicates an evidence or reasoning call exceeded
	// its per-call timeout after exhausting retries.
	ErrCollaboratorTimeout = errors.New("collaborator call timed out")

	// ErrCollaboratorFailed indicates a non-timeout failure from an evidence
	// or reasoning call. Recovered locally as NO_PROGRESS, never propagated.
	ErrCollaboratorFailed = errors.New("collaborator call failed")

	// ErrEngineUnavailable indicates a hard failure that prevented the engine
	// from running at all, before any pass executed.
	ErrEngineUnavailable = errors.New("discovery engine unavailable")
)
