package drivers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/creastat/sessionstate"
)

func TestNewMongoStore_ValidatesConfig(t *testing.T) {
	ctx := context.Background()

	_, err := NewMongoStore(ctx, MongoConfig{Database: "db", Collection: "sessions"})
	assert.ErrorIs(t, err, sessionstate.ErrInvalidConfig)

	_, err = NewMongoStore(ctx, MongoConfig{URI: "mongodb://localhost"})
	assert.ErrorIs(t, err, sessionstate.ErrInvalidConfig)

	_, err = NewMongoStore(ctx, MongoConfig{URI: "mongodb://localhost", Database: "db"})
	assert.ErrorIs(t, err, sessionstate.ErrInvalidConfig)
}

func TestMongoFilter(t *testing.T) {
	now := time.Now().UTC()
	token := int32(7)

	f := sessionstate.RecordFilter{
		ID:              "S1",
		ApplicationName: "app1",
		LockID:          &token,
		Unlocked:        true,
		ExpiresAfter:    &now,
	}

	got := mongoFilter(f)
	assert.Equal(t, bson.M{
		"id":              "S1",
		"applicationName": "app1",
		"lockId":          int32(7),
		"locked":          false,
		"expires":         bson.M{"$gt": now},
	}, got)

	// The bare key filter carries no conditions.
	got = mongoFilter(sessionstate.RecordFilter{ID: "S1", ApplicationName: "app1"})
	assert.Equal(t, bson.M{"id": "S1", "applicationName": "app1"}, got)
}

func TestMongoUpdate(t *testing.T) {
	now := time.Now().UTC()
	locked := true
	flags := sessionstate.FlagNone

	u := sessionstate.RecordUpdate{
		Locked:          &locked,
		LockDate:        &now,
		Flags:           &flags,
		IncrementLockID: true,
	}

	got := mongoUpdate(u)
	require.Contains(t, got, "$set")
	require.Contains(t, got, "$inc")
	assert.Equal(t, bson.M{
		"locked":   true,
		"lockDate": now,
		"flags":    sessionstate.FlagNone,
	}, got["$set"])
	assert.Equal(t, bson.M{"lockId": 1}, got["$inc"])

	// Items are written only when non-nil.
	items := []sessionstate.Item{{Key: "k", Value: []byte(`"v"`)}}
	got = mongoUpdate(sessionstate.RecordUpdate{Items: items})
	assert.Equal(t, bson.M{"items": items}, got["$set"])
}

func TestTransientClassification(t *testing.T) {
	assert.NoError(t, transient(nil))

	retryable := mongo.CommandError{
		Code:   189, // PrimarySteppedDown
		Labels: []string{"RetryableWriteError"},
	}
	err := transient(retryable)
	assert.ErrorIs(t, err, sessionstate.ErrTransient)

	wcFailure := mongo.WriteException{
		WriteConcernError: &mongo.WriteConcernError{
			Code:    64, // WriteConcernFailed
			Message: "waiting for replication timed out",
		},
	}
	err = transient(wcFailure)
	assert.ErrorIs(t, err, sessionstate.ErrTransient)

	fatal := errors.New("document failed validation")
	err = transient(fatal)
	assert.NotErrorIs(t, err, sessionstate.ErrTransient)
	assert.Equal(t, fatal, err)
}
