package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/database"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/models"
)

var errDatabaseStoreNil = errors.New("cache: database store not initialised")

// DatabaseStore implements the cache Store interface using the primary SQL
// database. It is the fallback when Redis is not configured.
type DatabaseStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewDatabaseStore constructs a database-backed Store.
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	if db == nil {
		return nil
	}
	return &DatabaseStore{db: db, now: time.Now}
}

// IncrementWithTTL atomically increments a counter for the supplied key. The
// window starts with the first increment and is not extended by later ones.
func (s *DatabaseStore) IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if s == nil {
		return 0, 0, errDatabaseStoreNil
	}
	if window <= 0 {
		window = time.Minute
	}

	now := s.now()
	var (
		count  int64
		expiry time.Time
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entry models.CacheEntry
		// Acquire row-level lock
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Take(&entry, "key = ?", key).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			count = 1
			expiry = now.Add(window)
			return tx.Create(&models.CacheEntry{
				Key:       key,
				Value:     []byte("1"),
				ExpiresAt: expiry,
			}).Error
		}
		if err != nil {
			return err
		}

		if !entry.ExpiresAt.IsZero() && !entry.ExpiresAt.After(now) {
			count = 1
			entry.ExpiresAt = now.Add(window)
		} else {
			current, _ := strconv.ParseInt(string(entry.Value), 10, 64)
			count = current + 1
		}
		entry.Value = []byte(strconv.FormatInt(count, 10))
		expiry = entry.ExpiresAt

		return tx.Save(&entry).Error
	})
	if err != nil {
		return 0, 0, err
	}

	return count, expiry.Sub(now), nil
}

// Set upserts the value for a given key with expiry.
func (s *DatabaseStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if s == nil {
		return errDatabaseStoreNil
	}

	entry := models.CacheEntry{
		Key:       key,
		Value:     value,
		ExpiresAt: s.expiry(ttl),
	}

	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
		}).Create(&entry).Error
}

// SetNX inserts the key unless a live entry already exists. Expired entries
// are replaced.
func (s *DatabaseStore) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if s == nil {
		return false, errDatabaseStoreNil
	}

	now := s.now()
	stored := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entry models.CacheEntry
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Take(&entry, "key = ?", key).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			entry = models.CacheEntry{Key: key}
		case err != nil:
			return err
		case entry.ExpiresAt.IsZero() || entry.ExpiresAt.After(now):
			return nil
		}

		entry.Value = value
		entry.ExpiresAt = s.expiry(ttl)
		if err := tx.Save(&entry).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return nil
			}
			return err
		}
		stored = true
		return nil
	})
	return stored, err
}

// Get retrieves a value by key, respecting expiry.
func (s *DatabaseStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, ok, err := s.live(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	return entry.Value, true, nil
}

// TTL reports the remaining lifetime of a key.
func (s *DatabaseStore) TTL(ctx context.Context, key string) (time.Duration, bool, error) {
	entry, ok, err := s.live(ctx, key)
	if err != nil || !ok {
		return 0, false, err
	}
	if entry.ExpiresAt.IsZero() {
		return 0, true, nil
	}
	return entry.ExpiresAt.Sub(s.now()), true, nil
}

// Delete removes keys from the store.
func (s *DatabaseStore) Delete(ctx context.Context, keys ...string) error {
	if s == nil {
		return errDatabaseStoreNil
	}
	if len(keys) == 0 {
		return nil
	}

	return s.db.WithContext(ctx).Where("key IN ?", keys).Delete(&models.CacheEntry{}).Error
}

// Ping checks database connectivity.
func (s *DatabaseStore) Ping(ctx context.Context) error {
	if s == nil {
		return errDatabaseStoreNil
	}
	return database.Ping(ctx, s.db)
}

// PurgeExpired deletes entries whose expiry has passed and returns how many were removed.
func (s *DatabaseStore) PurgeExpired(ctx context.Context) (int64, error) {
	if s == nil {
		return 0, errDatabaseStoreNil
	}
	result := s.db.WithContext(ctx).
		Where("expires_at > ? AND expires_at <= ?", time.Time{}, s.now()).
		Delete(&models.CacheEntry{})
	return result.RowsAffected, result.Error
}

func (s *DatabaseStore) live(ctx context.Context, key string) (models.CacheEntry, bool, error) {
	var entry models.CacheEntry
	if s == nil {
		return entry, false, errDatabaseStoreNil
	}

	err := s.db.WithContext(ctx).Take(&entry, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entry, false, nil
	}
	if err != nil {
		return entry, false, err
	}

	if !entry.ExpiresAt.IsZero() && !s.now().Before(entry.ExpiresAt) {
		_ = s.Delete(ctx, key)
		return entry, false, nil
	}
	return entry, true, nil
}

func (s *DatabaseStore) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return s.now().Add(ttl)
}
