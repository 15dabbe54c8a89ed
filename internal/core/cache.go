// Package core provides the business logic and service layer for the jurisync sync system.
package core

import (
	"context"
	"errors"
	"time"
)

// CacheRepository defines the interface for caching operations.
// This follows the hexagonal architecture pattern where the core defines interfaces
// and the data layer provides implementations.
type CacheRepository interface {
	// Set stores a value in the cache with the given key and TTL.
	// If TTL is 0, the key will not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get retrieves a value from the cache by key.
	// Returns nil if the key doesn't exist or has expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes a key from the cache.
	// Returns true if the key was deleted, false if it didn't exist.
	Delete(ctx context.Context, key string) (bool, error)

	// Exists checks if a key exists in the cache.
	Exists(ctx context.Context, key string) (bool, error)

	// SetTTL updates the TTL for an existing key.
	// Returns true if the key exists and TTL was updated.
	SetTTL(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// SetIfNotExists atomically sets a key only if it doesn't already exist.
	// Returns true if the key was set, false if it already existed.
	// This is useful for implementing distributed locks and deduplication.
	SetIfNotExists(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// Health checks the health of the cache connection.
	Health(ctx context.Context) error
}

// ReferenceCacheService resolves upstream external identifiers to local row
// IDs through a cache. The decision pipeline hits these lookups once per
// synced decision, so keeping the hot mappings out of Postgres keeps bulk
// syncs cheap.
type ReferenceCacheService struct {
	cache  CacheRepository
	courts CourtRepository
	judges JudgeRepository
	ttl    time.Duration
}

// ReferenceCacheConfig holds configuration for reference caching.
type ReferenceCacheConfig struct {
	TTL time.Duration `json:"ttl"`
}

// ReferenceCacheServiceOptions bundles dependencies for NewReferenceCacheService.
type ReferenceCacheServiceOptions struct {
	Cache  CacheRepository
	Courts CourtRepository
	Judges JudgeRepository
	Config ReferenceCacheConfig
}

// DefaultReferenceCacheConfig returns a ReferenceCacheConfig with sensible defaults.
func DefaultReferenceCacheConfig() ReferenceCacheConfig {
	return ReferenceCacheConfig{
		TTL: 30 * time.Minute,
	}
}

// NewReferenceCacheService creates a new ReferenceCacheService.
func NewReferenceCacheService(opts ReferenceCacheServiceOptions) *ReferenceCacheService {
	return &ReferenceCacheService{
		cache:  opts.Cache,
		courts: opts.Courts,
		judges: opts.Judges,
		ttl:    opts.Config.TTL,
	}
}

// CourtID resolves a court external identifier to its local row ID.
// Returns "" without error when the court has not been synced yet.
func (s *ReferenceCacheService) CourtID(ctx context.Context, externalID string) (string, error) {
	if externalID == "" {
		return "", nil
	}

	key := s.courtKey(externalID)
	cached, err := s.cache.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if len(cached) > 0 {
		return string(cached), nil
	}

	if s.courts == nil {
		return "", errors.New("court repository is not configured")
	}
	court, err := s.courts.GetByExternalID(ctx, externalID)
	if err != nil {
		return "", err
	}
	if court == nil {
		return "", nil
	}

	if err := s.cache.Set(ctx, key, []byte(court.ID), s.ttl); err != nil {
		return "", err
	}
	return court.ID, nil
}

// JudgeID resolves a judge external identifier to its local row ID.
// Returns "" without error when the judge has not been synced yet.
func (s *ReferenceCacheService) JudgeID(ctx context.Context, externalID string) (string, error) {
	if externalID == "" {
		return "", nil
	}

	key := s.judgeKey(externalID)
	cached, err := s.cache.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if len(cached) > 0 {
		return string(cached), nil
	}

	if s.judges == nil {
		return "", errors.New("judge repository is not configured")
	}
	judge, err := s.judges.GetByExternalID(ctx, externalID)
	if err != nil {
		return "", err
	}
	if judge == nil {
		return "", nil
	}

	if err := s.cache.Set(ctx, key, []byte(judge.ID), s.ttl); err != nil {
		return "", err
	}
	return judge.ID, nil
}

// StoreCourtID primes the cache after an upsert so follow-up lookups skip the
// database entirely.
func (s *ReferenceCacheService) StoreCourtID(ctx context.Context, externalID, id string) error {
	if externalID == "" || id == "" {
		return nil
	}
	return s.cache.Set(ctx, s.courtKey(externalID), []byte(id), s.ttl)
}

// StoreJudgeID primes the cache after an upsert.
func (s *ReferenceCacheService) StoreJudgeID(ctx context.Context, externalID, id string) error {
	if externalID == "" || id == "" {
		return nil
	}
	return s.cache.Set(ctx, s.judgeKey(externalID), []byte(id), s.ttl)
}

// InvalidateCourt removes a cached court mapping. Called when a court row is
// deleted or its external identifier changes.
func (s *ReferenceCacheService) InvalidateCourt(ctx context.Context, externalID string) error {
	if externalID == "" {
		return nil
	}
	_, err := s.cache.Delete(ctx, s.courtKey(externalID))
	return err
}

// InvalidateJudge removes a cached judge mapping.
func (s *ReferenceCacheService) InvalidateJudge(ctx context.Context, externalID string) error {
	if externalID == "" {
		return nil
	}
	_, err := s.cache.Delete(ctx, s.judgeKey(externalID))
	return err
}

func (s *ReferenceCacheService) courtKey(externalID string) string {
	return "ref:court:" + externalID
}

func (s *ReferenceCacheService) judgeKey(externalID string) string {
	return "ref:judge:" + externalID
}
