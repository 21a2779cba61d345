package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists snapshots in Redis, one key per team, so hierarchy
// state survives process restarts and is shared across replicas.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisConfig configures a RedisStore.
type RedisConfig struct {
	// Prefix is prepended to every key.
	// Default: "clickops:hierarchy:"
	Prefix string

	// TTL bounds how long a snapshot lives server-side. The directory
	// re-validates entry expiry itself, so this only caps storage growth.
	// Default: 30 minutes
	TTL time.Duration
}

// NewRedisStore creates a store from an address, verifying connectivity.
func NewRedisStore(addr, password string, db int, config RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("session: failed to connect to redis: %w", err)
	}

	return NewRedisStoreFromClient(client, config), nil
}

// NewRedisStoreFromURL creates a store from a redis:// URL, verifying
// connectivity.
func NewRedisStoreFromURL(redisURL string, config RedisConfig) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("session: failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("session: failed to connect to redis: %w", err)
	}

	return NewRedisStoreFromClient(client, config), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client, config RedisConfig) *RedisStore {
	if config.Prefix == "" {
		config.Prefix = "clickops:hierarchy:"
	}
	if config.TTL <= 0 {
		config.TTL = 30 * time.Minute
	}
	return &RedisStore{
		client: client,
		prefix: config.Prefix,
		ttl:    config.TTL,
	}
}

// Load returns the stored snapshot for the team, or (nil, nil).
func (s *RedisStore) Load(ctx context.Context, teamID string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.prefix+teamID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: load snapshot: %w", err)
	}
	return data, nil
}

// Save stores the snapshot for the team with the configured TTL.
func (s *RedisStore) Save(ctx context.Context, teamID string, snapshot []byte) error {
	if err := s.client.Set(ctx, s.prefix+teamID, snapshot, s.ttl).Err(); err != nil {
		return fmt.Errorf("session: save snapshot: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ensure RedisStore implements Store
var _ Store = (*RedisStore)(nil)
