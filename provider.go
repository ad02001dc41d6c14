// Package sessionstate persists web-session state in an external document
// store shared across many application processes, giving the same semantics
// a single in-process session table would: create, exclusive
// read-modify-write, timeout-based expiry, and explicit abandonment.
//
// Mutual exclusion is achieved purely through the store's atomic
// single-document conditional update, never through client-side locks, so
// the protocol is safe under concurrent access from independent,
// non-communicating processes. Exclusive access is fenced by a monotonic
// lock token (lockId); losing a race for the lock is expected and reported
// as an outcome, not an error.
package sessionstate

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Provider implements the session record protocol over a DocumentStore.
type Provider struct {
	store DocumentStore
	cfg   providerConfig

	// now is swapped in tests.
	now func() time.Time
}

// New creates a Provider over the given store. Unless disabled via
// WithAutoCreateExpiryIndex(false), it registers the store's background
// expiry sweep so stale records are purged even without a read.
func New(store DocumentStore, opts ...Option) (*Provider, error) {
	if store == nil {
		return nil, ErrInvalidConfig
	}

	cfg := providerConfig{
		defaultTimeout:  DefaultTimeout,
		retry:           DefaultRetryPolicy(),
		autoCreateIndex: true,
		logger:          zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	p := &Provider{store: store, cfg: cfg, now: time.Now}

	if cfg.autoCreateIndex {
		if err := store.EnsureExpiryIndex(context.Background()); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// CreateNew returns an empty in-memory session value. Nothing is persisted;
// persistence happens on the first SetAndRelease with isNew=true.
func (p *Provider) CreateNew(timeout time.Duration) *StoreData {
	if timeout <= 0 {
		timeout = p.cfg.defaultTimeout
	}
	return &StoreData{Values: NewValues(), Timeout: timeout}
}

// CreateUninitialized upserts a placeholder record for id with an empty
// payload and flags marking it uninitialized. Calling it again for the same
// id is an idempotent overwrite.
func (p *Provider) CreateUninitialized(ctx context.Context, id string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = p.cfg.defaultTimeout
	}
	now := p.now().UTC()
	rec := &SessionRecord{
		ID:              id,
		ApplicationName: p.cfg.applicationName,
		Created:         now,
		LockDate:        now,
		Expires:         now.Add(timeout),
		Locked:          false,
		LockID:          0,
		TimeoutMinutes:  int32(timeout / time.Minute),
		Items:           []Item{},
		Flags:           FlagUninitialized,
	}
	return p.cfg.retry.Do(ctx, p.cfg.logger, func() error {
		return p.store.Upsert(ctx, p.key(id), rec)
	})
}

// Get performs a shared read: it never takes the lock and never mutates
// lockId or locked. An expired record is deleted as a side effect of the
// read that discovers it and reported as not found.
func (p *Provider) Get(ctx context.Context, id string) (*GetResult, error) {
	rec, err := p.store.FindOne(ctx, p.key(id))
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return &GetResult{Outcome: OutcomeNotFound}, nil
	}

	now := p.now().UTC()
	if rec.Expired(now) {
		return p.expireRecord(ctx, id)
	}

	values, err := DecodeValues(rec.Items)
	if err != nil {
		return nil, err
	}
	return &GetResult{
		Outcome:   OutcomeFound,
		Data:      &StoreData{Values: values, Timeout: rec.Timeout()},
		LockToken: rec.LockID,
	}, nil
}

// AcquireExclusive attempts to take exclusive access to the session.
//
// The lock is taken by a single conditional update (locked=false and not
// expired); the record is then read back to decide the outcome. The lock
// attempt and the expiry check race against separate snapshots: a record
// that expires mid-operation is reported not-found/unlocked even if a
// concurrent acquisition existed. On success the lock token is incremented
// by one and any uninitialized flag is consumed, in which case the caller
// receives a fresh empty payload and ActionInitialize.
func (p *Provider) AcquireExclusive(ctx context.Context, id string) (*GetResult, error) {
	now := p.now().UTC()

	locked := true
	var acquired int64
	err := p.cfg.retry.Do(ctx, p.cfg.logger, func() error {
		f := p.key(id)
		f.Unlocked = true
		f.ExpiresAfter = &now

		var opErr error
		acquired, opErr = p.store.UpdateOne(ctx, f, RecordUpdate{
			Locked:   &locked,
			LockDate: &now,
		})
		return opErr
	})
	if err != nil {
		return nil, err
	}

	rec, err := p.store.FindOne(ctx, p.key(id))
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return &GetResult{Outcome: OutcomeNotFound}, nil
	}
	if rec.Expired(p.now().UTC()) {
		return p.expireRecord(ctx, id)
	}

	if acquired == 0 {
		p.cfg.logger.Debug().
			Str("session_id", id).
			Int32("lock_id", rec.LockID).
			Msg("session locked by another holder")
		return &GetResult{
			Outcome:   OutcomeLockedByOther,
			LockToken: rec.LockID,
			LockAge:   p.now().UTC().Sub(rec.LockDate),
		}, nil
	}

	// Lock granted: bump the fencing token and consume the
	// uninitialized flag while holding the lock.
	flags := FlagNone
	err = p.cfg.retry.Do(ctx, p.cfg.logger, func() error {
		_, opErr := p.store.UpdateOne(ctx, p.key(id), RecordUpdate{
			Flags:           &flags,
			IncrementLockID: true,
		})
		return opErr
	})
	if err != nil {
		return nil, err
	}

	res := &GetResult{
		Outcome:   OutcomeFound,
		LockToken: rec.LockID + 1,
		Action:    ActionNone,
	}
	if rec.Flags == FlagUninitialized {
		res.Action = ActionInitialize
		res.Data = &StoreData{Values: NewValues(), Timeout: rec.Timeout()}
		return res, nil
	}

	values, err := DecodeValues(rec.Items)
	if err != nil {
		return nil, err
	}
	res.Data = &StoreData{Values: values, Timeout: rec.Timeout()}
	return res, nil
}

// SetAndRelease persists the session payload and releases the exclusive
// lock. With isNew it upserts a fresh record with lockId reset to zero.
// Otherwise the write is fenced by lockToken: if the token is stale (the
// lock was already released and re-acquired by someone else) the write is a
// silent no-op, since the original holder has lost the right to persist.
func (p *Provider) SetAndRelease(ctx context.Context, id string, data *StoreData, lockToken int32, isNew bool) error {
	timeout := p.cfg.defaultTimeout
	if data != nil && data.Timeout > 0 {
		timeout = data.Timeout
	}
	var values *SessionValues
	if data != nil {
		values = data.Values
	}
	items, err := EncodeValues(values)
	if err != nil {
		return err
	}
	now := p.now().UTC()
	expires := now.Add(timeout)

	if isNew {
		rec := &SessionRecord{
			ID:              id,
			ApplicationName: p.cfg.applicationName,
			Created:         now,
			LockDate:        now,
			Expires:         expires,
			Locked:          false,
			LockID:          0,
			TimeoutMinutes:  int32(timeout / time.Minute),
			Items:           items,
			Flags:           FlagNone,
		}
		return p.cfg.retry.Do(ctx, p.cfg.logger, func() error {
			return p.store.Upsert(ctx, p.key(id), rec)
		})
	}

	unlocked := false
	return p.cfg.retry.Do(ctx, p.cfg.logger, func() error {
		f := p.key(id)
		f.LockID = &lockToken

		_, opErr := p.store.UpdateOne(ctx, f, RecordUpdate{
			Locked:  &unlocked,
			Expires: &expires,
			Items:   items,
		})
		return opErr
	})
}

// Release abandons the lock without saving (e.g. after an upstream error),
// refreshing the expiry to the default timeout. A stale lockToken makes it
// a no-op.
func (p *Provider) Release(ctx context.Context, id string, lockToken int32) error {
	expires := p.now().UTC().Add(p.cfg.defaultTimeout)
	unlocked := false
	return p.cfg.retry.Do(ctx, p.cfg.logger, func() error {
		f := p.key(id)
		f.LockID = &lockToken

		_, err := p.store.UpdateOne(ctx, f, RecordUpdate{
			Locked:  &unlocked,
			Expires: &expires,
		})
		return err
	})
}

// Remove deletes the session. The delete is fenced by lockToken so a stale
// holder can never remove a record re-acquired by a new holder.
func (p *Provider) Remove(ctx context.Context, id string, lockToken int32) error {
	f := p.key(id)
	f.LockID = &lockToken
	_, err := p.store.DeleteOne(ctx, f)
	return err
}

// ResetTimeout refreshes the session's expiry to the default timeout. It is
// a keep-alive ping, independent of lock state.
func (p *Provider) ResetTimeout(ctx context.Context, id string) error {
	expires := p.now().UTC().Add(p.cfg.defaultTimeout)
	return p.cfg.retry.Do(ctx, p.cfg.logger, func() error {
		_, err := p.store.UpdateOne(ctx, p.key(id), RecordUpdate{
			Expires: &expires,
		})
		return err
	})
}

// Close closes the underlying store.
func (p *Provider) Close() error {
	return p.store.Close()
}

func (p *Provider) key(id string) RecordFilter {
	return RecordFilter{ID: id, ApplicationName: p.cfg.applicationName}
}

// expireRecord deletes a record discovered dead by a read and reports the
// miss. Lazy deletion complements, and races benignly with, the store's
// background sweep.
func (p *Provider) expireRecord(ctx context.Context, id string) (*GetResult, error) {
	if _, err := p.store.DeleteOne(ctx, p.key(id)); err != nil {
		return nil, err
	}
	p.cfg.logger.Debug().Str("session_id", id).Msg("deleted expired session record")
	return &GetResult{Outcome: OutcomeNotFound}, nil
}
