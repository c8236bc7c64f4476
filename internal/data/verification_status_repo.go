package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/roadsideiq/verify-api/internal/domain/model"
)

// ErrVerificationStatusNotFound is returned when no status record exists for
// a verification id.
var ErrVerificationStatusNotFound = errors.New("verification status not found")

const verificationStatusKeyPrefix = "verify:status:"

// VerificationStatusRepo stores observable verification task status records
// in Redis, keyed by verification id, with a bounded TTL.
type VerificationStatusRepo struct {
	client       redis.UniversalClient
	ttl          time.Duration
	timeProvider TimeProvider
}

// VerificationStatusRepoConfig holds configuration options for the status repo.
type VerificationStatusRepoConfig struct {
	TTL          time.Duration
	TimeProvider TimeProvider
}

// NewVerificationStatusRepo creates a new VerificationStatusRepo with the given Redis client.
func NewVerificationStatusRepo(client redis.UniversalClient, cfg VerificationStatusRepoConfig) *VerificationStatusRepo {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &VerificationStatusRepo{client: client, ttl: ttl, timeProvider: tp}
}

func verificationStatusKey(verificationID string) string {
	return verificationStatusKeyPrefix + verificationID
}

// Set writes (or overwrites) the status record for a verification id and
// refreshes its TTL.
func (r *VerificationStatusRepo) Set(ctx context.Context, status *model.VerificationStatus) error {
	if status == nil {
		return errors.New("status is required")
	}
	if err := status.Validate(); err != nil {
		return err
	}

	status.UpdatedAt = r.timeProvider.Now().UTC()

	raw, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("marshal verification status: %w", err)
	}

	if err := r.client.Set(ctx, verificationStatusKey(status.VerificationID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set verification status: %w", err)
	}
	return nil
}

// Get retrieves the status record for a verification id. Returns
// ErrVerificationStatusNotFound when no record exists (or it has expired).
func (r *VerificationStatusRepo) Get(ctx context.Context, verificationID string) (*model.VerificationStatus, error) {
	if strings.TrimSpace(verificationID) == "" {
		return nil, errors.New("verification id is required")
	}

	raw, err := r.client.Get(ctx, verificationStatusKey(verificationID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrVerificationStatusNotFound
		}
		return nil, fmt.Errorf("redis get verification status: %w", err)
	}

	var status model.VerificationStatus
	if err := json.Unmarshal([]byte(raw), &status); err != nil {
		return nil, fmt.Errorf("unmarshal verification status: %w", err)
	}
	return &status, nil
}

// Delete removes the status record for a verification id. Deleting a missing
// record is not an error.
func (r *VerificationStatusRepo) Delete(ctx context.Context, verificationID string) error {
	if strings.TrimSpace(verificationID) == "" {
		return errors.New("verification id is required")
	}

	if err := r.client.Del(ctx, verificationStatusKey(verificationID)).Err(); err != nil {
		return fmt.Errorf("redis del verification status: %w", err)
	}
	return nil
}

// Health checks the health of the Redis connection.
func (r *VerificationStatusRepo) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
