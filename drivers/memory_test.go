package drivers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creastat/sessionstate"
)

func testRecord(id string, expires time.Time) *sessionstate.SessionRecord {
	now := time.Now().UTC()
	return &sessionstate.SessionRecord{
		ID:              id,
		ApplicationName: "app1",
		Created:         now,
		LockDate:        now,
		Expires:         expires,
		TimeoutMinutes:  20,
		Items:           []sessionstate.Item{},
	}
}

func keyFilter(id string) sessionstate.RecordFilter {
	return sessionstate.RecordFilter{ID: id, ApplicationName: "app1"}
}

func TestMemoryStore_UpsertFindRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	rec := testRecord("S1", time.Now().Add(time.Hour))
	rec.Items = []sessionstate.Item{{Key: "k", Value: []byte(`"v"`)}}
	require.NoError(t, s.Upsert(ctx, keyFilter("S1"), rec))

	got, err := s.FindOne(ctx, keyFilter("S1"))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec.Items, got.Items)

	// Stored records are isolated from caller mutation.
	rec.Items[0].Key = "mutated"
	got2, err := s.FindOne(ctx, keyFilter("S1"))
	require.NoError(t, err)
	assert.Equal(t, "k", got2.Items[0].Key)
}

func TestMemoryStore_FindOneAbsent(t *testing.T) {
	s := NewMemoryStore()
	got, err := s.FindOne(context.Background(), keyFilter("missing"))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryStore_ConditionalUpdate(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	now := time.Now().UTC()
	rec := testRecord("S1", now.Add(time.Hour))
	require.NoError(t, s.Upsert(ctx, keyFilter("S1"), rec))

	// Lock acquisition: matches while unlocked and unexpired.
	locked := true
	f := keyFilter("S1")
	f.Unlocked = true
	f.ExpiresAfter = &now
	matched, err := s.UpdateOne(ctx, f, sessionstate.RecordUpdate{
		Locked:          &locked,
		LockDate:        &now,
		IncrementLockID: true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), matched)

	got, err := s.FindOne(ctx, keyFilter("S1"))
	require.NoError(t, err)
	assert.True(t, got.Locked)
	assert.Equal(t, int32(1), got.LockID)

	// A second acquisition attempt finds no unlocked record.
	matched, err = s.UpdateOne(ctx, f, sessionstate.RecordUpdate{Locked: &locked})
	require.NoError(t, err)
	assert.Equal(t, int64(0), matched)
}

func TestMemoryStore_LockIDFencing(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	rec := testRecord("S1", time.Now().Add(time.Hour))
	rec.LockID = 2
	require.NoError(t, s.Upsert(ctx, keyFilter("S1"), rec))

	stale := int32(1)
	f := keyFilter("S1")
	f.LockID = &stale
	matched, err := s.UpdateOne(ctx, f, sessionstate.RecordUpdate{IncrementLockID: true})
	require.NoError(t, err)
	assert.Equal(t, int64(0), matched, "stale token matches nothing")

	deleted, err := s.DeleteOne(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)

	current := int32(2)
	f.LockID = &current
	deleted, err = s.DeleteOne(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

// The provider running over the memory driver end to end.
func TestProviderOverMemoryStore(t *testing.T) {
	ctx := context.Background()
	p, err := sessionstate.New(NewMemoryStore(),
		sessionstate.WithApplicationName("app1"),
		sessionstate.WithRetryPolicy(sessionstate.RetryPolicy{MaxAttempts: 3, Delay: time.Millisecond}))
	require.NoError(t, err)

	require.NoError(t, p.CreateUninitialized(ctx, "S1", 20*time.Minute))

	res, err := p.AcquireExclusive(ctx, "S1")
	require.NoError(t, err)
	require.True(t, res.Found())
	assert.Equal(t, int32(1), res.LockToken)
	assert.Equal(t, sessionstate.ActionInitialize, res.Action)

	res.Data.Values.Set("count", "1")
	require.NoError(t, p.SetAndRelease(ctx, "S1", res.Data, res.LockToken, false))

	got, err := p.Get(ctx, "S1")
	require.NoError(t, err)
	require.True(t, got.Found())
	val, _ := got.Data.Values.Get("count")
	assert.Equal(t, "1", val)
}
