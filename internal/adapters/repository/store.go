// Package repository persists wallets and content reports.
package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/okian/ehb/internal/domain/model"
	"github.com/okian/ehb/internal/domain/moderation"
	"github.com/okian/ehb/pkg/metrics"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// WalletStore reads and writes franchise wallets.
type WalletStore interface {
	// Wallet returns the wallet for address or types.ErrNotFound.
	Wallet(ctx context.Context, address string) (model.Wallet, error)
	UpsertWallet(ctx context.Context, w model.Wallet) error
}

// ReportStore records reports and tracks per-target review state.
type ReportStore interface {
	// AddReport records r once per reporter and flags the target when the
	// count reaches threshold. Only the call that performs the flag sees
	// NewlyFlagged.
	AddReport(ctx context.Context, r moderation.Report, threshold int64) (moderation.Outcome, error)
	// Target returns the review state of a target or types.ErrNotFound.
	Target(ctx context.Context, kind, targetID string) (model.Target, error)
}

// Store is the full persistence surface.
type Store interface {
	WalletStore
	ReportStore
	Ping(ctx context.Context) error
	Close() error
}

var _ Store = (*GormStore)(nil)

// GormStore implements Store on any gorm dialect.
type GormStore struct {
	db           *gorm.DB
	now          func() time.Time
	maxOpenConns int
	gormLog      gormlogger.Interface
}

// Open connects with driver ("sqlite" or "postgres") and migrates the schema.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*GormStore, error) {
	s := &GormStore{
		now:          time.Now,
		maxOpenConns: 10,
		gormLog:      gormlogger.Discard,
	}
	for _, opt := range opts {
		opt(s)
	}

	var dialector gorm.Dialector
	switch strings.ToLower(driver) {
	case DriverSQLite:
		dialector = sqlite.Open(sqliteDSN(dsn))
		s.maxOpenConns = 1
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: s.gormLog})
	if err != nil {
		return nil, wrap("open database", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, wrap("open database", err)
	}
	sqlDB.SetMaxOpenConns(s.maxOpenConns)

	s.db = db
	if err := s.db.WithContext(ctx).AutoMigrate(&walletRow{}, &reportRow{}, &targetRow{}); err != nil {
		_ = sqlDB.Close()
		return nil, wrap("migrate", err)
	}
	return s, nil
}

// sqliteBusyTimeout makes a writer wait for the file lock instead of failing
// with SQLITE_BUSY.
const sqliteBusyTimeout = "_pragma=busy_timeout(5000)"

// sqliteDSN adds the busy timeout pragma unless the DSN sets one.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "busy_timeout") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&" + sqliteBusyTimeout
	}
	return dsn + "?" + sqliteBusyTimeout
}

func observe(op string, start time.Time) {
	metrics.RecordRepositoryQueryLatency(op, float64(time.Since(start).Microseconds())/1000)
}

// Wallet implements WalletStore.
func (s *GormStore) Wallet(ctx context.Context, address string) (model.Wallet, error) {
	defer observe("wallet", time.Now())

	var row walletRow
	if err := s.db.WithContext(ctx).First(&row, "address = ?", address).Error; err != nil {
		return model.Wallet{}, wrap("load wallet", err)
	}
	return row.toModel(), nil
}

// UpsertWallet implements WalletStore.
func (s *GormStore) UpsertWallet(ctx context.Context, w model.Wallet) error {
	defer observe("upsert_wallet", time.Now())

	row := walletRow{
		Address:            w.Address,
		Balance:            w.Balance,
		LockedAmount:       w.LockedAmount,
		LockDurationMonths: w.LockDurationMonths,
		UpdatedAt:          s.now(),
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error
	return wrap("upsert wallet", err)
}

// AddReport implements ReportStore. The insert, the counter bump and the
// conditional flag run in one transaction; the flag is an UPDATE guarded by
// under_review = false, so at most one caller observes the transition.
func (s *GormStore) AddReport(ctx context.Context, r moderation.Report, threshold int64) (moderation.Outcome, error) {
	defer observe("add_report", time.Now())

	var out moderation.Outcome
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.now()

		ins := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&reportRow{
			Kind:       r.Kind,
			TargetID:   r.TargetID,
			ReporterID: r.ReporterID,
			Reason:     r.Reason,
			CreatedAt:  now,
		})
		if ins.Error != nil {
			return ins.Error
		}

		if ins.RowsAffected == 0 {
			out.Duplicate = true
		} else {
			bump := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "kind"}, {Name: "target_id"}},
				DoUpdates: clause.Assignments(map[string]interface{}{
					"report_count": gorm.Expr("report_targets.report_count + 1"),
				}),
			}).Create(&targetRow{Kind: r.Kind, TargetID: r.TargetID, ReportCount: 1})
			if bump.Error != nil {
				return bump.Error
			}

			flag := tx.Model(&targetRow{}).
				Where("kind = ? AND target_id = ? AND under_review = ? AND report_count >= ?",
					r.Kind, r.TargetID, false, threshold).
				Updates(map[string]interface{}{"under_review": true, "flagged_at": now})
			if flag.Error != nil {
				return flag.Error
			}
			out.NewlyFlagged = flag.RowsAffected == 1
		}

		var t targetRow
		if err := tx.First(&t, "kind = ? AND target_id = ?", r.Kind, r.TargetID).Error; err != nil {
			return err
		}
		out.ReportCount = t.ReportCount
		out.UnderReview = t.UnderReview
		return nil
	})
	if err != nil {
		return moderation.Outcome{}, wrap("add report", err)
	}
	return out, nil
}

// Target implements ReportStore.
func (s *GormStore) Target(ctx context.Context, kind, targetID string) (model.Target, error) {
	defer observe("target", time.Now())

	var row targetRow
	if err := s.db.WithContext(ctx).First(&row, "kind = ? AND target_id = ?", kind, targetID).Error; err != nil {
		return model.Target{}, wrap("load target", err)
	}
	return row.toModel(), nil
}

// Counts returns the number of stored wallets and flagged targets.
func (s *GormStore) Counts(ctx context.Context) (wallets, flagged int64, err error) {
	db := s.db.WithContext(ctx)
	if err = db.Model(&walletRow{}).Count(&wallets).Error; err != nil {
		return 0, 0, wrap("count wallets", err)
	}
	if err = db.Model(&targetRow{}).Where("under_review = ?", true).Count(&flagged).Error; err != nil {
		return 0, 0, wrap("count flagged", err)
	}
	return wallets, flagged, nil
}

// Ping checks the database connection.
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return wrap("ping", err)
	}
	return wrap("ping", sqlDB.PingContext(ctx))
}

// Close releases the connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
