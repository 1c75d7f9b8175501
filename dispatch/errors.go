package dispatch

import "errors"

// Error kinds surfaced by the assignment engine. Router and geometry error
// kinds live in the route package; they are fully contained there and never
// reach assignment callers.
var (
	// ErrUnknownServiceType is fatal for the Assign call and returned to
	// the caller.
	ErrUnknownServiceType = errors.New("unknown service type")

	// ErrNoCandidates is a normal internal signal; strategies convert it
	// into queued/queued_priority outcomes and surface it via warnings.
	ErrNoCandidates = errors.New("no candidate drivers")

	// ErrETAUnavailable marks an ETA collaborator failure. It is contained:
	// time estimates fall back to the fixed travel rate.
	ErrETAUnavailable = errors.New("eta service unavailable")

	// ErrMissingCollaborator is a bootstrap error for a nil required
	// collaborator.
	ErrMissingCollaborator = errors.New("missing required collaborator")
)
