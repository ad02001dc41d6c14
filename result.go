package sessionstate

import "time"

// Outcome tags the result of a session fetch.
type Outcome int

const (
	// OutcomeNotFound means no live record exists: absent, or expired
	// and lazily deleted by this read.
	OutcomeNotFound Outcome = iota

	// OutcomeFound means the record was returned (and, for exclusive
	// fetches, the lock was granted).
	OutcomeFound

	// OutcomeLockedByOther means another holder has exclusive access;
	// no item is returned.
	OutcomeLockedByOther
)

// Action tells the caller what to do with a freshly fetched session.
type Action int

const (
	// ActionNone means the payload is ready to use.
	ActionNone Action = iota

	// ActionInitialize means the record was an uninitialized
	// placeholder; the caller received a fresh empty payload and should
	// run first-use initialization.
	ActionInitialize
)

// GetResult is the outcome of Get or AcquireExclusive.
type GetResult struct {
	Outcome Outcome

	// Data is the decoded payload. Set only when Outcome is
	// OutcomeFound.
	Data *StoreData

	// LockToken is the fencing token for subsequent SetAndRelease,
	// Release and Remove calls. For OutcomeLockedByOther it reports the
	// current holder's token.
	LockToken int32

	// LockAge is how long the current holder has held the lock. Set
	// only when Outcome is OutcomeLockedByOther.
	LockAge time.Duration

	// Action is the flags-derived indicator for OutcomeFound results.
	Action Action
}

// Found reports whether a payload was returned.
func (r *GetResult) Found() bool {
	return r.Outcome == OutcomeFound
}

// Locked reports whether the record is held by another caller.
func (r *GetResult) Locked() bool {
	return r.Outcome == OutcomeLockedByOther
}
