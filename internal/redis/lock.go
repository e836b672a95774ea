package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LockStore handles distributed locking in Redis.
//
// The booking path takes a short per-vehicle lock so that the availability
// check and the reservation insert for one vehicle never interleave across
// instances. The store-level exclusion constraint remains the hard guarantee;
// the lock keeps concurrent bookings from burning constraint violations.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

// AcquireVehicleLock attempts to acquire the booking lock for a vehicle.
// Returns true if the lock was acquired, false if already held.
func (s *LockStore) AcquireVehicleLock(ctx context.Context, vehicleID int64, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("lock:vehicle:%d", vehicleID)

	ok, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

// ReleaseVehicleLock releases the booking lock for a vehicle.
func (s *LockStore) ReleaseVehicleLock(ctx context.Context, vehicleID int64) error {
	key := fmt.Sprintf("lock:vehicle:%d", vehicleID)

	return s.client.Del(ctx, key).Err()
}
