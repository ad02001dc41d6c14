package drivers

import (
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/creastat/sessionstate"
)

// StoreType represents the type of document store driver.
type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeRedis  StoreType = "redis"
	StoreTypeMongo  StoreType = "mongo"
)

// Option is a functional option for configuring a driver.
type Option func(*driverConfig)

// driverConfig holds configuration for document store drivers.
type driverConfig struct {
	redisClient     *redis.Client
	redisKeyPrefix  string
	mongoCollection *mongo.Collection
}

// WithRedisClient sets the Redis client for the Redis driver.
func WithRedisClient(client *redis.Client) Option {
	return func(c *driverConfig) {
		c.redisClient = client
	}
}

// WithRedisKeyPrefix sets the key prefix for the Redis driver.
func WithRedisKeyPrefix(prefix string) Option {
	return func(c *driverConfig) {
		c.redisKeyPrefix = prefix
	}
}

// WithMongoCollection sets an already-connected collection for the Mongo
// driver. To dial a connection instead, use NewMongoStore.
func WithMongoCollection(coll *mongo.Collection) Option {
	return func(c *driverConfig) {
		c.mongoCollection = coll
	}
}

// New creates a document store of the given type.
// Supports "memory", "redis" and "mongo" driver types. Redis requires
// WithRedisClient; mongo requires WithMongoCollection.
func New(storeType StoreType, opts ...Option) (sessionstate.DocumentStore, error) {
	config := &driverConfig{}
	for _, opt := range opts {
		opt(config)
	}

	switch storeType {
	case StoreTypeMemory:
		return NewMemoryStore(), nil

	case StoreTypeRedis:
		if config.redisClient == nil {
			return nil, sessionstate.ErrInvalidConfig
		}
		return NewRedisStore(config.redisClient, config.redisKeyPrefix), nil

	case StoreTypeMongo:
		if config.mongoCollection == nil {
			return nil, sessionstate.ErrInvalidConfig
		}
		return NewMongoCollectionStore(config.mongoCollection), nil

	default:
		return nil, sessionstate.ErrInvalidStoreType
	}
}
