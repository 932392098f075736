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

	"github.com/scolaris/scolaris/internal/models"
	"github.com/scolaris/scolaris/internal/services"
	"github.com/scolaris/scolaris/pkg/logger"
)

const (
	defaultAuditRetentionDays = 180
	defaultAuditSpec          = "@daily"
	defaultOverrideSpec       = "@daily"
	defaultCacheSpec          = "@hourly"
)

// Cleaner coordinates background maintenance: pruning stale audit logs,
// reporting vestigial overrides, and purging expired cache rows.
type Cleaner struct {
	db    *gorm.DB
	audit *services.AuditService
	cron  *cron.Cron
	now   func() time.Time
	log   *zap.Logger

	enabled   bool
	retention int

	auditSchedule    string
	overrideSchedule string
	cacheSchedule    string
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

// WithAuditRetentionDays adjusts how long audit logs are retained.
func WithAuditRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.retention = days
		}
	}
}

// WithAuditSchedule overrides the cron specification for audit retention enforcement.
func WithAuditSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.auditSchedule = spec
		}
	}
}

// WithOverrideReportSchedule overrides the cron specification for the
// vestigial-override report.
func WithOverrideReportSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.overrideSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults. A nil dependency
// results in the corresponding job being skipped.
func NewCleaner(db *gorm.DB, audit *services.AuditService, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		db:               db,
		audit:            audit,
		now:              time.Now,
		retention:        defaultAuditRetentionDays,
		auditSchedule:    defaultAuditSpec,
		overrideSchedule: defaultOverrideSpec,
		cacheSchedule:    defaultCacheSpec,
		log:              logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	cleaner.enabled = cleaner.audit != nil || cleaner.db != nil

	return cleaner
}

// Start registers jobs with the cron scheduler and launches it if at least
// one job is enabled.
func (c *Cleaner) Start() error {
	if !c.enabled {
		return nil
	}

	if c.audit != nil && c.retention > 0 {
		if _, err := c.cron.AddFunc(c.auditSchedule, func() {
			ctx := context.Background()
			cutoff := c.now().AddDate(0, 0, -c.retention)
			if _, err := c.audit.DeleteOlderThan(ctx, cutoff); err != nil {
				c.log.Warn("audit cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if c.db != nil {
		if _, err := c.cron.AddFunc(c.overrideSchedule, func() {
			ctx := context.Background()
			count, err := CountVestigialDenials(ctx, c.db)
			if err != nil {
				c.log.Warn("vestigial override report failed", zap.Error(err))
				return
			}
			if count > 0 {
				c.log.Info("deny overrides without a matching role permission",
					zap.Int64("count", count))
			}
		}); err != nil {
			return err
		}

		if _, err := c.cron.AddFunc(c.cacheSchedule, func() {
			ctx := context.Background()
			if _, err := PurgeExpiredCacheEntries(ctx, c.db, c.now()); err != nil {
				c.log.Warn("cache purge failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all configured routines sequentially. Primarily used in
// tests and during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if c.audit != nil && c.retention > 0 {
		cutoff := c.now().AddDate(0, 0, -c.retention)
		if _, err := c.audit.DeleteOlderThan(ctx, cutoff); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.db != nil {
		if count, err := CountVestigialDenials(ctx, c.db); err != nil {
			errs = multierr.Append(errs, err)
		} else if count > 0 {
			c.log.Info("deny overrides without a matching role permission",
				zap.Int64("count", count))
		}

		if _, err := PurgeExpiredCacheEntries(ctx, c.db, c.now()); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}

// CountVestigialDenials counts deny overrides whose tuple no longer matches
// any permission of the user's role. They are reported, never deleted: the
// deny must survive the role permission being re-added later.
func CountVestigialDenials(ctx context.Context, db *gorm.DB) (int64, error) {
	if db == nil {
		return 0, errors.New("vestigial denials: db is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var count int64
	err := db.WithContext(ctx).
		Model(&models.PermissionOverride{}).
		Joins("JOIN users ON users.id = permission_overrides.user_id").
		Where("permission_overrides.granted = ?", false).
		Where(`NOT EXISTS (
			SELECT 1 FROM role_permissions
			WHERE role_permissions.role = users.role
			  AND role_permissions.resource = permission_overrides.resource
			  AND role_permissions.action = permission_overrides.action
			  AND role_permissions.scope = permission_overrides.scope
		)`).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("vestigial denials: %w", err)
	}
	return count, nil
}

// PurgeExpiredCacheEntries removes expired rows from the database cache table.
func PurgeExpiredCacheEntries(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	if db == nil {
		return 0, errors.New("cache purge: db is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	result := db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&models.CacheEntry{})
	if result.Error != nil {
		return 0, fmt.Errorf("cache purge: %w", result.Error)
	}
	return result.RowsAffected, nil
}
