package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"veriledger/internal/consent"
	"veriledger/pkg/platform/sentinel"
)

const entryKeyPrefix = "veriledger:entry:"

// RedisClient is a ledger backed by Redis. SETNX gives the atomic
// create-if-absent that at-most-once registration requires; status updates
// use WATCH so concurrent transitions cannot clobber each other.
type RedisClient struct {
	rdb *redis.Client
}

func NewRedisClient(rdb *redis.Client) *RedisClient {
	return &RedisClient{rdb: rdb}
}

func entryKey(hash string) string {
	return entryKeyPrefix + hash
}

func (c *RedisClient) RegisterIfAbsent(ctx context.Context, hash string, initialStatus consent.Status, ownerPrincipal string) (*Entry, error) {
	entry := &Entry{
		ContentHash:    hash,
		Status:         initialStatus,
		OwnerPrincipal: ownerPrincipal,
		RegisteredAt:   time.Now().UTC(),
	}
	body, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("encode entry: %w", err)
	}

	created, err := c.rdb.SetNX(ctx, entryKey(hash), body, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: register entry: %v", sentinel.ErrUnavailable, err)
	}
	if created {
		return entry, nil
	}
	// Entry already existed; return it unchanged.
	return c.Fetch(ctx, hash)
}

func (c *RedisClient) Fetch(ctx context.Context, hash string) (*Entry, error) {
	body, err := c.rdb.Get(ctx, entryKey(hash)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("%w: fetch entry: %v", sentinel.ErrUnavailable, err)
	}
	var entry Entry
	if err := json.Unmarshal(body, &entry); err != nil {
		return nil, fmt.Errorf("decode entry: %w", err)
	}
	return &entry, nil
}

func (c *RedisClient) UpdateStatus(ctx context.Context, hash string, next consent.Status) (*Entry, error) {
	key := entryKey(hash)
	var updated *Entry

	txn := func(tx *redis.Tx) error {
		body, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return sentinel.ErrNotFound
			}
			return fmt.Errorf("%w: fetch entry: %v", sentinel.ErrUnavailable, err)
		}
		var entry Entry
		if err := json.Unmarshal(body, &entry); err != nil {
			return fmt.Errorf("decode entry: %w", err)
		}
		if err := consent.Validate(entry.Status, next); err != nil {
			return err
		}
		entry.Status = next
		out, err := json.Marshal(&entry)
		if err != nil {
			return fmt.Errorf("encode entry: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			return nil
		})
		if err != nil {
			return fmt.Errorf("%w: update entry: %v", sentinel.ErrUnavailable, err)
		}
		updated = &entry
		return nil
	}

	// Bounded optimistic retries on WATCH conflicts.
	for range 3 {
		err := c.rdb.Watch(ctx, txn, key)
		if err == nil {
			return updated, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("%w: update entry: too many concurrent transitions", sentinel.ErrUnavailable)
}
