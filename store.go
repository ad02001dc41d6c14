package sessionstate

import (
	"context"
	"time"
)

// DocumentStore is the client boundary to the external document store. All
// mutation goes through single-document conditional updates so mutual
// exclusion works across independent, non-communicating processes.
type DocumentStore interface {
	// FindOne returns the record matching the filter, or nil when no
	// record matches (not an error).
	FindOne(ctx context.Context, f RecordFilter) (*SessionRecord, error)

	// UpdateOne atomically applies the mutation to the single record
	// matching the filter and returns the matched count (0 or 1).
	UpdateOne(ctx context.Context, f RecordFilter, u RecordUpdate) (int64, error)

	// DeleteOne removes the record matching the filter and returns the
	// deleted count (0 or 1).
	DeleteOne(ctx context.Context, f RecordFilter) (int64, error)

	// Upsert inserts or fully replaces the record identified by the
	// filter's (ID, ApplicationName). Transient write failures are
	// reported wrapped in ErrTransient.
	Upsert(ctx context.Context, f RecordFilter, rec *SessionRecord) error

	// EnsureExpiryIndex performs one-time idempotent setup of the
	// store-native background expiry sweep on the expires field.
	EnsureExpiryIndex(ctx context.Context) error

	// Close closes the store and releases any resources.
	Close() error
}

// RecordFilter selects at most one record. ID and ApplicationName are always
// set; the remaining fields add conditions for conditional updates.
type RecordFilter struct {
	ID              string
	ApplicationName string

	// LockID, when non-nil, requires the stored lockId to equal the
	// given fencing token.
	LockID *int32

	// Unlocked requires locked == false.
	Unlocked bool

	// ExpiresAfter, when non-nil, requires expires > the given time.
	ExpiresAfter *time.Time
}

// Matches reports whether the record satisfies every condition of the
// filter. Drivers without a native query language (memory, redis) share this
// one definition of the conditional-update semantics.
func (f RecordFilter) Matches(rec *SessionRecord) bool {
	if rec == nil {
		return false
	}
	if rec.ID != f.ID || rec.ApplicationName != f.ApplicationName {
		return false
	}
	if f.LockID != nil && rec.LockID != *f.LockID {
		return false
	}
	if f.Unlocked && rec.Locked {
		return false
	}
	if f.ExpiresAfter != nil && !rec.Expires.After(*f.ExpiresAfter) {
		return false
	}
	return true
}

// RecordUpdate is a portable single-document mutation. Nil fields are left
// unchanged; Items must be non-nil (possibly empty) to be written.
type RecordUpdate struct {
	Locked   *bool
	LockDate *time.Time
	Expires  *time.Time
	Items    []Item
	Flags    *SessionFlags

	// IncrementLockID bumps lockId by one atomically with the rest of
	// the mutation.
	IncrementLockID bool
}

// Apply mutates the record in place. Used by drivers that execute updates
// client-side under their own atomicity mechanism.
func (u RecordUpdate) Apply(rec *SessionRecord) {
	if u.Locked != nil {
		rec.Locked = *u.Locked
	}
	if u.LockDate != nil {
		rec.LockDate = *u.LockDate
	}
	if u.Expires != nil {
		rec.Expires = *u.Expires
	}
	if u.Items != nil {
		rec.Items = u.Items
	}
	if u.Flags != nil {
		rec.Flags = *u.Flags
	}
	if u.IncrementLockID {
		rec.LockID++
	}
}
