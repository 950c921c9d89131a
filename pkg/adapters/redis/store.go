// Package redis implements ports.SlotStore on Redis. Snapshots are JSON
// values keyed by project and slot, with a per-project ZSET index so List
// never scans the keyspace.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/vine/pkg/domain"
)

// farFuture is the index score for saves without a TTL: 2100-01-01.
const farFuture = 4102444800

// Store implements ports.SlotStore using Redis.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithTTL sets an expiration on saved slots. Zero (the default) keeps
// saves forever; shared demo deployments use this to shed stale saves.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix overrides the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a Redis store with its own client.
func New(address, password string, db int, opts ...Option) *Store {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(client, opts...)
}

// NewFromClient creates a Redis store over an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "vine:save:",
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *Store) key(projectID string, slot int) string {
	return fmt.Sprintf("%s%s:%d", s.prefix, projectID, slot)
}

func (s *Store) indexKey(projectID string) string {
	return s.prefix + projectID + ":index"
}

// Save persists the snapshot and registers the slot in the project index.
// Both writes go through one pipeline.
func (s *Store) Save(ctx context.Context, projectID string, slot int, snap *domain.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	// Index score mirrors the value's expiry so List can prune lazily.
	score := float64(time.Now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = farFuture
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(projectID, slot), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(projectID), backend.Z{
		Score:  score,
		Member: strconv.Itoa(slot),
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save to redis: %w", err)
	}
	return nil
}

// Load retrieves a snapshot. A missing or expired key is an empty slot.
func (s *Store) Load(ctx context.Context, projectID string, slot int) (*domain.Snapshot, error) {
	val, err := s.client.Get(ctx, s.key(projectID, slot)).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, domain.ErrSlotEmpty
		}
		return nil, fmt.Errorf("get from redis: %w", err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal([]byte(val), &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// Delete empties a slot and its index entry.
func (s *Store) Delete(ctx context.Context, projectID string, slot int) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.key(projectID, slot))
	pipe.ZRem(ctx, s.indexKey(projectID), strconv.Itoa(slot))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete from redis: %w", err)
	}
	return nil
}

// List returns the occupied slots for a project, ascending. Index entries
// whose score has passed are pruned first; with no TTL configured this
// removes nothing.
func (s *Store) List(ctx context.Context, projectID string) ([]int, error) {
	now := float64(time.Now().Unix())
	if err := s.client.ZRemRangeByScore(ctx, s.indexKey(projectID), "-inf", fmt.Sprintf("%f", now)).Err(); err != nil {
		return nil, fmt.Errorf("prune expired slots: %w", err)
	}

	members, err := s.client.ZRange(ctx, s.indexKey(projectID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}

	slots := make([]int, 0, len(members))
	for _, m := range members {
		n, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		slots = append(slots, n)
	}
	sort.Ints(slots)
	return slots, nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}
