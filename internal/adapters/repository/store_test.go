package repository

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	gormlogger "gorm.io/gorm/logger"

	"github.com/okian/ehb/internal/domain/model"
	"github.com/okian/ehb/internal/domain/moderation"
	"github.com/okian/ehb/internal/domain/types"
)

func openTestStore(t *testing.T, opts ...Option) *GormStore {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "ehb.db")
	s, err := Open(context.Background(), DriverSQLite, dsn, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), "oracle", "")
	require.ErrorIs(t, err, ErrUnsupportedDriver)
}

func TestSQLiteDSN(t *testing.T) {
	require.Equal(t, "ehb.db?_pragma=busy_timeout(5000)", sqliteDSN("ehb.db"))
	require.Equal(t, "file:ehb.db?mode=rwc&_pragma=busy_timeout(5000)", sqliteDSN("file:ehb.db?mode=rwc"))
	require.Equal(t, "ehb.db?_pragma=busy_timeout(100)", sqliteDSN("ehb.db?_pragma=busy_timeout(100)"))
}

func TestOpenSQLiteCapsPool(t *testing.T) {
	s := openTestStore(t, WithMaxOpenConns(8), WithQueryLogging(true))
	sqlDB, err := s.db.DB()
	require.NoError(t, err)
	require.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
	require.NotEqual(t, gormlogger.Discard, s.gormLog)

	var timeout int
	require.NoError(t, s.db.Raw("PRAGMA busy_timeout").Scan(&timeout).Error)
	require.Equal(t, 5000, timeout)
}

func TestWalletRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	addr := "0x52908400098527886E0F7030069857D2E4169EE7"

	_, err := s.Wallet(ctx, addr)
	require.ErrorIs(t, err, types.ErrNotFound)

	require.NoError(t, s.UpsertWallet(ctx, model.Wallet{
		Address: addr, Balance: 5000, LockedAmount: 5000, LockDurationMonths: 12,
	}))
	w, err := s.Wallet(ctx, addr)
	require.NoError(t, err)
	require.Equal(t, 5000.0, w.Balance)
	require.Equal(t, 12, w.LockDurationMonths)

	require.NoError(t, s.UpsertWallet(ctx, model.Wallet{
		Address: addr, Balance: 20000, LockedAmount: 10000, LockDurationMonths: 36,
	}))
	w, err = s.Wallet(ctx, addr)
	require.NoError(t, err)
	require.Equal(t, 20000.0, w.Balance)
	require.Equal(t, 10000.0, w.LockedAmount)
	require.Equal(t, 36, w.LockDurationMonths)

	wallets, flagged, err := s.Counts(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, wallets)
	require.EqualValues(t, 0, flagged)
}

func TestAddReportFlagsAtThreshold(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := openTestStore(t, WithClock(func() time.Time { return fixed }))
	ctx := context.Background()

	report := func(reporter string) moderation.Outcome {
		out, err := s.AddReport(ctx, moderation.Report{Kind: "ad", TargetID: "ad-1", ReporterID: reporter}, 3)
		require.NoError(t, err)
		return out
	}

	out := report("u1")
	require.EqualValues(t, 1, out.ReportCount)
	require.False(t, out.UnderReview)

	out = report("u2")
	require.EqualValues(t, 2, out.ReportCount)
	require.False(t, out.NewlyFlagged)

	out = report("u3")
	require.EqualValues(t, 3, out.ReportCount)
	require.True(t, out.UnderReview)
	require.True(t, out.NewlyFlagged)

	out = report("u4")
	require.EqualValues(t, 4, out.ReportCount)
	require.True(t, out.UnderReview)
	require.False(t, out.NewlyFlagged)

	tgt, err := s.Target(ctx, "ad", "ad-1")
	require.NoError(t, err)
	require.True(t, tgt.UnderReview)
	require.NotNil(t, tgt.FlaggedAt)
	require.True(t, tgt.FlaggedAt.Equal(fixed))

	_, flagged, err := s.Counts(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, flagged)
}

func TestAddReportDuplicateIsNoop(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	r := moderation.Report{Kind: "video", TargetID: "v-9", ReporterID: "u1"}

	_, err := s.AddReport(ctx, r, 5)
	require.NoError(t, err)
	out, err := s.AddReport(ctx, r, 5)
	require.NoError(t, err)
	require.True(t, out.Duplicate)
	require.EqualValues(t, 1, out.ReportCount)
	require.False(t, out.NewlyFlagged)
}

func TestAddReportConcurrentFlagsOnce(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	const reporters = 12
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		flagged int
		errs    []error
	)
	for i := 0; i < reporters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := s.AddReport(ctx, moderation.Report{
				Kind: "video", TargetID: "v-1", ReporterID: fmt.Sprintf("u%d", i),
			}, 5)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			if out.NewlyFlagged {
				flagged++
			}
		}(i)
	}
	wg.Wait()

	require.Empty(t, errs)
	require.Equal(t, 1, flagged)

	tgt, err := s.Target(ctx, "video", "v-1")
	require.NoError(t, err)
	require.EqualValues(t, reporters, tgt.ReportCount)
}

func TestTargetNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Target(context.Background(), "ad", "missing")
	require.True(t, errors.Is(err, types.ErrNotFound))
}

func TestClosedStoreIsUnavailable(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Ping(context.Background()))
	require.NoError(t, s.Close())

	_, err := s.Wallet(context.Background(), "0xabc")
	require.ErrorIs(t, err, types.ErrDependencyUnavailable)
}
