package sessionstate

import "time"

// SessionFlags marks the initialization state of a stored record.
type SessionFlags int32

const (
	// FlagNone is a fully initialized record.
	FlagNone SessionFlags = 0

	// FlagUninitialized marks a placeholder record created ahead of the
	// first real save (cookie-less and SSO flows). Cleared on the first
	// successful exclusive fetch.
	FlagUninitialized SessionFlags = 1
)

// Item is one serialized session entry. Each pair is persisted as an
// independent single-key unit so store-level array semantics survive key
// collisions across encoding passes.
type Item struct {
	Key   string `bson:"key" json:"key"`
	Value []byte `bson:"value" json:"value"`
}

// SessionRecord is the persisted document representing one
// application+session pair. (ID, ApplicationName) is the only key; no two
// records share it.
type SessionRecord struct {
	ID              string       `bson:"id" json:"id"`
	ApplicationName string       `bson:"applicationName" json:"applicationName"`
	Created         time.Time    `bson:"created" json:"created"`
	LockDate        time.Time    `bson:"lockDate" json:"lockDate"`
	Expires         time.Time    `bson:"expires" json:"expires"`
	Locked          bool         `bson:"locked" json:"locked"`
	LockID          int32        `bson:"lockId" json:"lockId"`
	TimeoutMinutes  int32        `bson:"timeoutMinutes" json:"timeoutMinutes"`
	Items           []Item       `bson:"items" json:"items"`
	Flags           SessionFlags `bson:"flags" json:"flags"`
}

// Expired reports whether the record is logically dead at the given time.
func (r *SessionRecord) Expired(now time.Time) bool {
	return !r.Expires.After(now)
}

// Timeout returns the record's session TTL as a duration.
func (r *SessionRecord) Timeout() time.Duration {
	return time.Duration(r.TimeoutMinutes) * time.Minute
}

// Clone returns a deep copy of the record.
func (r *SessionRecord) Clone() *SessionRecord {
	c := *r
	if r.Items != nil {
		c.Items = make([]Item, len(r.Items))
		copy(c.Items, r.Items)
	}
	return &c
}
