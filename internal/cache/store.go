package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Vaultexe/server/internal/token"
)

// ClaimStore holds live refresh and OTP claims. Entries vanish at TTL
// expiry with no cleanup job; that expiry is what enforces the refresh
// session window and the OTP challenge window.
type ClaimStore interface {
	// Save writes the claim under key. With keepTTL the write only
	// replaces an existing entry, preserving its remaining TTL; if the
	// key is absent it falls back to a fresh timed write. Reports
	// whether a write occurred.
	Save(ctx context.Context, key string, claim token.Claim, keepTTL bool) (bool, error)
	// Get returns the claim or nil when absent or expired.
	Get(ctx context.Context, key string) (*token.Claim, error)
	// Delete removes the key, reporting whether it existed.
	Delete(ctx context.Context, key string) (bool, error)
}

// RedisClaimStore implements ClaimStore on Redis. The keep-TTL path is a
// single atomic SET XX KEEPTTL so two concurrent refreshes on the same
// device cannot interleave a read-then-write.
type RedisClaimStore struct {
	client redis.UniversalClient
	ttls   TTLMap
}

var _ ClaimStore = (*RedisClaimStore)(nil)

func NewRedisClaimStore(client redis.UniversalClient, ttls TTLMap) *RedisClaimStore {
	return &RedisClaimStore{client: client, ttls: ttls}
}

func (s *RedisClaimStore) Save(ctx context.Context, key string, claim token.Claim, keepTTL bool) (bool, error) {
	payload, err := json.Marshal(claim)
	if err != nil {
		return false, fmt.Errorf("marshal claim: %w", err)
	}

	if keepTTL {
		err := s.client.SetArgs(ctx, key, payload, redis.SetArgs{Mode: "XX", KeepTTL: true}).Err()
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, redis.Nil) {
			return false, fmt.Errorf("save claim: %w", err)
		}
		// Key absent; fall back to a fresh timed write.
	}

	ttl, err := s.ttls.For(claim.Kind)
	if err != nil {
		return false, err
	}
	if err := s.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return false, fmt.Errorf("save claim: %w", err)
	}
	return true, nil
}

func (s *RedisClaimStore) Get(ctx context.Context, key string) (*token.Claim, error) {
	payload, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("load claim: %w", err)
	}
	var claim token.Claim
	if err := json.Unmarshal(payload, &claim); err != nil {
		return nil, fmt.Errorf("decode claim: %w", err)
	}
	return &claim, nil
}

func (s *RedisClaimStore) Delete(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Del(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("delete claim: %w", err)
	}
	return n == 1, nil
}
