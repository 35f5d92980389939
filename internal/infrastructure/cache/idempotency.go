package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"stockflow/internal/core/apperror"
)

// IdempotencyStatus is the state of a keyed request.
type IdempotencyStatus string

const (
	IdempotencyPending IdempotencyStatus = "pending"
	IdempotencySuccess IdempotencyStatus = "success"
	IdempotencyFailed  IdempotencyStatus = "failed"
)

// staleAfter is how long a pending key may stay unfinished before another
// request may take it over.
const staleAfter = time.Minute

// IdempotencyRecord is the stored state of one key.
type IdempotencyRecord struct {
	ActorID     int64             `json:"actor_id"`
	Operation   string            `json:"operation"`
	RequestHash string            `json:"request_hash"`
	Status      IdempotencyStatus `json:"status"`
	StatusCode  int               `json:"status_code,omitempty"`
	ContentType string            `json:"content_type,omitempty"`
	Body        []byte            `json:"body,omitempty"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// IdempotencyReplay is a stored response to send again.
type IdempotencyReplay struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// IdempotencyStore keeps X-Idempotency-Key state in Redis. Keys are scoped per actor.
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewIdempotencyStore creates a store whose keys expire after ttl.
func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{
		client: client,
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func redisKey(actorID int64, key string) string {
	return fmt.Sprintf("idempotency:%d:%s", actorID, key)
}

// AcquireKey claims key for a request.
// Returns:
//   - (nil, nil) if the key was claimed and the request should run
//   - (replay, nil) if the request already finished
//   - (nil, err) if the key is in flight or was used for a different request
func (s *IdempotencyStore) AcquireKey(ctx context.Context, key string, actorID int64, operation, requestHash string) (*IdempotencyReplay, error) {
	rk := redisKey(actorID, key)
	pending := IdempotencyRecord{
		ActorID:     actorID,
		Operation:   operation,
		RequestHash: requestHash,
		Status:      IdempotencyPending,
		UpdatedAt:   s.now(),
	}
	payload, err := json.Marshal(pending)
	if err != nil {
		return nil, fmt.Errorf("marshal idempotency record: %w", err)
	}

	claimed, err := s.client.SetNX(ctx, rk, payload, s.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire idempotency key: %w", err)
	}
	if claimed {
		return nil, nil
	}

	existing, raw, err := s.load(ctx, rk)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		// Expired between SETNX and GET.
		return s.AcquireKey(ctx, key, actorID, operation, requestHash)
	}

	if existing.Operation != operation || existing.RequestHash != requestHash {
		return nil, apperror.NewIdempotencyMismatch(key).
			WithDetail("stored_operation", existing.Operation).
			WithDetail("request_operation", operation)
	}

	switch existing.Status {
	case IdempotencySuccess, IdempotencyFailed:
		return &IdempotencyReplay{
			StatusCode:  existing.StatusCode,
			ContentType: existing.ContentType,
			Body:        existing.Body,
		}, nil
	}

	if s.now().Sub(existing.UpdatedAt) > staleAfter {
		reclaimed, err := s.reclaim(ctx, rk, raw, payload)
		if err != nil {
			return nil, fmt.Errorf("reclaim stale key: %w", err)
		}
		if reclaimed {
			return nil, nil
		}
	}
	return nil, apperror.NewIdempotencyConflict(key)
}

// reclaim replaces the record at rk with payload only if it still holds seen.
// Exactly one of several concurrent retries of a stale key wins.
func (s *IdempotencyStore) reclaim(ctx context.Context, rk string, seen, payload []byte) (bool, error) {
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, rk).Bytes()
		if errors.Is(err, redis.Nil) || (err == nil && !bytes.Equal(current, seen)) {
			return redis.TxFailedErr
		}
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, rk, payload, s.ttl)
			return nil
		})
		return err
	}, rk)
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CompleteKey stores a successful response for replay.
func (s *IdempotencyStore) CompleteKey(ctx context.Context, key string, actorID int64, statusCode int, contentType string, body []byte) error {
	return s.finish(ctx, key, actorID, IdempotencySuccess, statusCode, contentType, body)
}

// FailKey stores a client error response for replay. Server errors release the
// key instead, so the request can be retried with the same key.
func (s *IdempotencyStore) FailKey(ctx context.Context, key string, actorID int64, statusCode int, contentType string, body []byte) error {
	if statusCode >= http.StatusInternalServerError {
		return s.Release(ctx, key, actorID)
	}
	return s.finish(ctx, key, actorID, IdempotencyFailed, statusCode, contentType, body)
}

// Release forgets key.
func (s *IdempotencyStore) Release(ctx context.Context, key string, actorID int64) error {
	if err := s.client.Del(ctx, redisKey(actorID, key)).Err(); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}

func (s *IdempotencyStore) finish(ctx context.Context, key string, actorID int64, status IdempotencyStatus, statusCode int, contentType string, body []byte) error {
	rk := redisKey(actorID, key)
	rec, _, err := s.load(ctx, rk)
	if err != nil {
		return err
	}
	if rec == nil {
		return nil
	}

	rec.Status = status
	rec.StatusCode = statusCode
	rec.ContentType = contentType
	rec.Body = body
	rec.UpdatedAt = s.now()
	return s.save(ctx, rk, *rec)
}

func (s *IdempotencyStore) load(ctx context.Context, rk string) (*IdempotencyRecord, []byte, error) {
	raw, err := s.client.Get(ctx, rk).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load idempotency key: %w", err)
	}

	var rec IdempotencyRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, nil, fmt.Errorf("decode idempotency key: %w", err)
	}
	return &rec, raw, nil
}

func (s *IdempotencyStore) save(ctx context.Context, rk string, rec IdempotencyRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal idempotency record: %w", err)
	}
	if err := s.client.Set(ctx, rk, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("save idempotency key: %w", err)
	}
	return nil
}
