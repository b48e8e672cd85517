package game

import "errors"

var (
	// ErrMergeConflict means an AI actor's journaled commands no longer apply
	// to the freshest stored state; authoritative state wins and the actor
	// must replan.
	ErrMergeConflict = errors.New("merge conflict")
	// ErrNoState is returned by a StateStore that holds nothing for the room.
	ErrNoState = errors.New("no stored state")
	// ErrStaleRevision is returned by SetState when the stored revision is not
	// exactly one behind the incoming one.
	ErrStaleRevision = errors.New("stale revision")
	// ErrUnknownPlayer is returned for an external id with no seat.
	ErrUnknownPlayer = errors.New("unknown player")
)
