package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/models"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/logger"
)

const defaultSchedule = "@hourly"

// ExpiredPurger removes expired entries from a cache backend.
type ExpiredPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Cleaner coordinates background maintenance: it purges password reset tokens that
// can no longer be redeemed and expired database cache entries. Verification
// requests are an audit trail and are never removed here.
type Cleaner struct {
	db       *gorm.DB
	cache    ExpiredPurger
	cron     *cron.Cron
	now      func() time.Time
	log      *zap.Logger
	schedule string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for cleanup comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithSchedule overrides the cron specification for the cleanup job.
func WithSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.schedule = spec
		}
	}
}

// WithCachePurger registers the cache backend whose expired entries are removed.
func WithCachePurger(p ExpiredPurger) Option {
	return func(cleaner *Cleaner) {
		cleaner.cache = p
	}
}

// NewCleaner constructs a Cleaner. A nil db disables token cleanup.
func NewCleaner(db *gorm.DB, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		db:       db,
		now:      time.Now,
		schedule: defaultSchedule,
		log:      logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

func (c *Cleaner) enabled() bool {
	return c.db != nil || c.cache != nil
}

// Start registers the cleanup job and launches the scheduler.
func (c *Cleaner) Start() error {
	if !c.enabled() {
		return nil
	}

	if _, err := c.cron.AddFunc(c.schedule, func() {
		if err := c.RunOnce(context.Background()); err != nil {
			c.log.Warn("scheduled cleanup failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("maintenance: schedule %q: %w", c.schedule, err)
	}

	c.cron.Start()
	c.log.Info("maintenance scheduled", zap.String("schedule", c.schedule))
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes every cleanup routine sequentially and aggregates failures.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if c.db != nil {
		removed, err := CleanupResetTokens(ctx, c.db, c.now())
		if err != nil {
			errs = multierr.Append(errs, err)
		} else if removed > 0 {
			c.log.Debug("purged password reset tokens", zap.Int64("count", removed))
		}
	}

	if c.cache != nil {
		removed, err := c.cache.PurgeExpired(ctx)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("cleanup cache: %w", err))
		} else if removed > 0 {
			c.log.Debug("purged cache entries", zap.Int64("count", removed))
		}
	}

	return errs
}

// CleanupResetTokens removes reset tokens that are expired or already used.
func CleanupResetTokens(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	if db == nil {
		return 0, errors.New("cleanup tokens: db is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	result := db.WithContext(ctx).
		Where("expires_at < ? OR used = ?", now, true).
		Delete(&models.PasswordResetToken{})
	if result.Error != nil {
		return 0, fmt.Errorf("cleanup tokens: password reset tokens: %w", result.Error)
	}
	return result.RowsAffected, nil
}
