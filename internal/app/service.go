// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/okian/ehb/internal/adapters/counter"
	eventqueue "github.com/okian/ehb/internal/adapters/mq/queue"
	workerpool "github.com/okian/ehb/internal/adapters/mq/worker"
	"github.com/okian/ehb/internal/adapters/notify"
	"github.com/okian/ehb/internal/adapters/repository"
	"github.com/okian/ehb/internal/domain/dedupe"
	"github.com/okian/ehb/internal/domain/franchise"
	"github.com/okian/ehb/internal/domain/model"
	"github.com/okian/ehb/internal/domain/moderation"
	"github.com/okian/ehb/internal/domain/ratelimit"
	"github.com/okian/ehb/internal/domain/reward"
	"github.com/okian/ehb/internal/domain/tier"
	"github.com/okian/ehb/internal/domain/types"
	"github.com/okian/ehb/pkg/logger"
	"github.com/okian/ehb/pkg/metrics"
)

// ErrNotStarted is returned by operations invoked before Start.
var ErrNotStarted = fmt.Errorf("service not started: %w", types.ErrDependencyUnavailable)

// counterCloser is implemented by counters that hold a connection.
type counterCloser interface {
	Ping(ctx context.Context) error
	Close() error
}

// Service implements the API dependencies for the tier and reward system.
type Service struct {
	mu sync.RWMutex

	// Core components
	counter   ratelimit.Counter
	limiter   *ratelimit.Limiter
	store     repository.Store
	deduper   dedupe.Deduper
	queue     eventqueue.Queue
	notifier  workerpool.Notifier
	pool      *workerpool.Pool
	calc      *reward.Calculator
	access    tier.Evaluator
	franchise *franchise.Evaluator
	policy    moderation.Policy

	// Components opened by Start and released by Stop
	ownCounter  counterCloser
	ownStore    repository.Store
	ownNotifier interface{ Close() error }

	// Configuration
	workerCount      int
	queueSize        int
	dedupeSize       int
	notifyRate       float64
	redisAddr        string
	redisPassword    string
	redisDB          int
	redisTimeout     time.Duration
	profileOverrides []ratelimit.Profile
	dbDriver         string
	dbDSN            string
	dbMaxOpenConns   int
	dbQueryLog       bool
	natsURL          string
	notifySubject    string
	baseRate         float64
	thresholds       map[string]int64
	rules            franchise.Rules

	// State
	backend   string
	started   bool
	startedAt time.Time
	now       func() time.Time

	// Logging
	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:   2,
		queueSize:     1024,
		dedupeSize:    50_000,
		notifyRate:    50,
		dbDriver:      repository.DriverSQLite,
		dbDSN:         "ehb.db",
		notifySubject: notify.DefaultSubject,
		baseRate:      reward.DefaultBaseRate,
		rules:         franchise.DefaultRules(),
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components. Anything opened
// before a failure is released again.
func (s *Service) Start(ctx context.Context) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.logger.Info(ctx, "starting ehb service...")

	defer func() {
		if err != nil {
			s.releaseLocked(ctx)
		}
	}()

	profiles, err := ratelimit.NewProfiles(s.profileOverrides...)
	if err != nil {
		return fmt.Errorf("rate limit profiles: %w", err)
	}
	s.policy, err = moderation.NewPolicy(s.thresholds)
	if err != nil {
		return fmt.Errorf("report thresholds: %w", err)
	}

	if s.counter == nil {
		s.counter = s.openCounter(ctx)
	} else if s.backend == "" {
		s.backend = "external"
	}
	s.limiter = ratelimit.NewLimiter(s.counter,
		ratelimit.WithProfiles(profiles),
		ratelimit.WithLogger(s.logger.Named("ratelimit")),
	)

	if s.store == nil {
		st, err := repository.Open(ctx, s.dbDriver, s.dbDSN,
			repository.WithMaxOpenConns(s.dbMaxOpenConns),
			repository.WithQueryLogging(s.dbQueryLog),
			repository.WithClock(s.now),
		)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		s.store, s.ownStore = st, st
		s.logger.Info(ctx, "store opened", logger.String("driver", s.dbDriver))
	}

	if s.notifier == nil {
		n, err := s.openNotifier(ctx)
		if err != nil {
			return err
		}
		s.notifier = n
	}

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.queue, s.notifier,
		workerpool.WithWorkers(s.workerCount),
		workerpool.WithRate(s.notifyRate),
		workerpool.WithLogger(s.logger.Named("notify")),
	)
	s.pool.Start(ctx)

	s.calc = reward.NewCalculator(reward.WithBaseRate(s.baseRate))
	s.access = tier.NewEvaluator()
	s.franchise = franchise.NewEvaluator(s.rules)

	s.started = true
	s.startedAt = s.now()
	s.logger.Info(ctx, "ehb service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.String("counter", s.backend),
	)
	return nil
}

// openCounter dials Redis when configured. An unreachable Redis is not fatal:
// the limiter fails open until it comes back.
func (s *Service) openCounter(ctx context.Context) ratelimit.Counter {
	if s.redisAddr == "" {
		s.logger.Info(ctx, "using in-memory rate limit counter")
		s.backend = "memory"
		return ratelimit.NewMemoryCounter()
	}
	var opts []counter.Option
	if s.redisTimeout > 0 {
		opts = append(opts, counter.WithTimeout(s.redisTimeout))
	}
	rc := counter.Dial(s.redisAddr, s.redisPassword, s.redisDB, opts...)
	if err := rc.Ping(ctx); err != nil {
		s.logger.Warn(ctx, "redis unreachable, rate limiting will fail open",
			logger.String("addr", s.redisAddr), logger.Error(err))
	}
	s.ownCounter = rc
	s.backend = "redis"
	return rc
}

func (s *Service) openNotifier(ctx context.Context) (workerpool.Notifier, error) {
	if s.natsURL == "" {
		n := notify.NewLogNotifier(s.logger.Named("notify"))
		return n, nil
	}
	n, err := notify.Connect(s.natsURL, s.notifySubject, s.logger.Named("nats"))
	if err != nil {
		return nil, fmt.Errorf("connect notifier: %w", err)
	}
	s.logger.Info(ctx, "publishing flag events to nats",
		logger.String("url", s.natsURL), logger.String("subject", n.Subject()))
	s.ownNotifier = n
	return n, nil
}

// Stop drains pending notifications and releases owned connections.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping ehb service...")

	var errs []error
	if s.pool != nil {
		if err := s.pool.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	errs = append(errs, s.releaseLocked(ctx)...)

	s.started = false
	s.logger.Info(ctx, "ehb service stopped")
	return errors.Join(errs...)
}

func (s *Service) releaseLocked(ctx context.Context) []error {
	var errs []error
	if s.ownNotifier != nil {
		if err := s.ownNotifier.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close notifier: %w", err))
		}
		s.ownNotifier, s.notifier = nil, nil
	}
	if s.ownStore != nil {
		if err := s.ownStore.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
		s.ownStore, s.store = nil, nil
	}
	if s.ownCounter != nil {
		if err := s.ownCounter.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close counter: %w", err))
		}
		s.ownCounter, s.counter, s.backend = nil, nil, ""
	}
	for _, err := range errs {
		s.logger.Error(ctx, "release failed", logger.Error(err))
	}
	return errs
}

// components is the set of collaborators one request works with, copied
// under the read lock so a concurrent Stop cannot nil them mid-request.
type components struct {
	limiter   *ratelimit.Limiter
	store     repository.Store
	deduper   dedupe.Deduper
	queue     eventqueue.Queue
	calc      *reward.Calculator
	access    tier.Evaluator
	franchise *franchise.Evaluator
	policy    moderation.Policy
}

func (s *Service) snapshot() (components, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return components{}, ErrNotStarted
	}
	return components{
		limiter:   s.limiter,
		store:     s.store,
		deduper:   s.deduper,
		queue:     s.queue,
		calc:      s.calc,
		access:    s.access,
		franchise: s.franchise,
		policy:    s.policy,
	}, nil
}

// CalculateReward computes a validator reward.
func (s *Service) CalculateReward(ctx context.Context, in reward.Input) (reward.Result, error) {
	c, err := s.snapshot()
	if err != nil {
		return reward.Result{}, err
	}
	res, err := c.calc.Calculate(in)
	if err != nil {
		metrics.RecordRewardCalculation(metrics.OutcomeRejected)
		s.logger.Debug(ctx, "reward rejected", logger.Error(err))
		return reward.Result{}, err
	}
	metrics.RecordRewardCalculation(metrics.OutcomeAllowed)
	metrics.RecordRewardAmount(res.FinalReward)
	return res, nil
}

// CheckAccess reports whether userLevel may use a resource gated at
// requiredLevel.
func (s *Service) CheckAccess(ctx context.Context, userLevel, requiredLevel string) (bool, error) {
	c, err := s.snapshot()
	if err != nil {
		return false, err
	}
	ok, err := c.access.Check(userLevel, requiredLevel)
	if err != nil {
		return false, err
	}
	metrics.RecordAccessCheck(ok)
	return ok, nil
}

// EvaluateEarnings evaluates franchise earnings for a wallet state.
func (s *Service) EvaluateEarnings(ctx context.Context, in franchise.Input) (franchise.Earnings, error) {
	c, err := s.snapshot()
	if err != nil {
		return franchise.Earnings{}, err
	}
	return evaluate(c, in)
}

func evaluate(c components, in franchise.Input) (franchise.Earnings, error) {
	out, err := c.franchise.Evaluate(in)
	if err != nil {
		return franchise.Earnings{}, err
	}
	metrics.RecordFranchiseEvaluation(out.ValidatorEligible)
	return out, nil
}

// normalizeAddress validates a hex wallet address and returns its checksum
// form, which is the storage key.
func normalizeAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", types.InvalidField("address", "is required")
	}
	if !common.IsHexAddress(address) {
		return "", types.InvalidField("address", "must be a 20 byte hex address")
	}
	return common.HexToAddress(address).Hex(), nil
}

// WalletEarnings loads a stored wallet and evaluates its earnings.
func (s *Service) WalletEarnings(ctx context.Context, address string) (model.Wallet, franchise.Earnings, error) {
	c, err := s.snapshot()
	if err != nil {
		return model.Wallet{}, franchise.Earnings{}, err
	}
	addr, err := normalizeAddress(address)
	if err != nil {
		return model.Wallet{}, franchise.Earnings{}, err
	}
	w, err := c.store.Wallet(ctx, addr)
	if err != nil {
		return model.Wallet{}, franchise.Earnings{}, err
	}
	out, err := evaluate(c, franchise.Input{
		WalletBalance:      w.Balance,
		LockedAmount:       w.LockedAmount,
		LockDurationMonths: w.LockDurationMonths,
	})
	if err != nil {
		return model.Wallet{}, franchise.Earnings{}, err
	}
	return w, out, nil
}

// UpsertWallet validates and stores a wallet snapshot.
func (s *Service) UpsertWallet(ctx context.Context, w model.Wallet) (model.Wallet, error) {
	c, err := s.snapshot()
	if err != nil {
		return model.Wallet{}, err
	}
	addr, err := normalizeAddress(w.Address)
	if err != nil {
		return model.Wallet{}, err
	}
	w.Address = addr
	// Reuse the evaluator's validation so stored wallets are always evaluable.
	if _, err := c.franchise.Evaluate(franchise.Input{
		WalletBalance:      w.Balance,
		LockedAmount:       w.LockedAmount,
		LockDurationMonths: w.LockDurationMonths,
	}); err != nil {
		return model.Wallet{}, err
	}
	if err := c.store.UpsertWallet(ctx, w); err != nil {
		return model.Wallet{}, err
	}
	return c.store.Wallet(ctx, addr)
}

// SubmitReport records a report and raises a flag event the first time the
// target crosses its threshold.
func (s *Service) SubmitReport(ctx context.Context, r moderation.Report) (moderation.Outcome, error) {
	c, err := s.snapshot()
	if err != nil {
		return moderation.Outcome{}, err
	}
	threshold, err := c.policy.Normalize(&r)
	if err != nil {
		return moderation.Outcome{}, err
	}

	key := r.Key()
	if c.deduper.SeenAndRecord(ctx, key) {
		metrics.RecordReportDuplicate()
		return duplicateOutcome(ctx, c.store, r)
	}

	out, err := c.store.AddReport(ctx, r, threshold)
	if err != nil {
		c.deduper.Unrecord(ctx, key)
		return moderation.Outcome{}, err
	}
	if out.Duplicate {
		metrics.RecordReportDuplicate()
		return out, nil
	}
	metrics.RecordReport(r.Kind)

	if out.NewlyFlagged {
		metrics.RecordTargetFlagged(r.Kind)
		s.logger.Info(ctx, "target flagged for review",
			logger.String("kind", r.Kind),
			logger.String("target", r.TargetID),
			logger.Int64("reports", out.ReportCount),
		)
		ev := model.FlagEvent{
			Kind:        r.Kind,
			TargetID:    r.TargetID,
			ReportCount: out.ReportCount,
			Threshold:   threshold,
			FlaggedAt:   s.now().UTC(),
		}
		// The flag is already durable; a dropped notification only loses
		// the push.
		if err := c.queue.Enqueue(ctx, ev); err != nil {
			s.logger.Warn(ctx, "flag notification dropped",
				logger.String("kind", r.Kind),
				logger.String("target", r.TargetID),
				logger.Error(err),
			)
		}
	}
	return out, nil
}

// duplicateOutcome reports the current state of a target for a report the
// cache has already seen. The original write may still be in flight, in which
// case the target is not visible yet.
func duplicateOutcome(ctx context.Context, store repository.ReportStore, r moderation.Report) (moderation.Outcome, error) {
	t, err := store.Target(ctx, r.Kind, r.TargetID)
	switch {
	case errors.Is(err, types.ErrNotFound):
		return moderation.Outcome{Duplicate: true}, nil
	case err != nil:
		return moderation.Outcome{}, err
	}
	return moderation.Outcome{
		ReportCount: t.ReportCount,
		UnderReview: t.UnderReview,
		Duplicate:   true,
	}, nil
}

// Target returns the review state of a reported target.
func (s *Service) Target(ctx context.Context, kind, targetID string) (model.Target, error) {
	c, err := s.snapshot()
	if err != nil {
		return model.Target{}, err
	}
	return c.store.Target(ctx, strings.ToLower(strings.TrimSpace(kind)), strings.TrimSpace(targetID))
}

// Allow applies the named rate limit profile to clientKey.
func (s *Service) Allow(ctx context.Context, clientKey, profile string) (ratelimit.Decision, error) {
	c, err := s.snapshot()
	if err != nil {
		return ratelimit.Decision{}, err
	}
	return c.limiter.Allow(ctx, clientKey, profile)
}

// Ready reports whether the store answers. The rate limit backend is not
// checked because the limiter fails open.
func (s *Service) Ready(ctx context.Context) error {
	c, err := s.snapshot()
	if err != nil {
		return err
	}
	return c.store.Ping(ctx)
}

// counts is implemented by stores that can report table sizes.
type counts interface {
	Counts(ctx context.Context) (wallets, flagged int64, err error)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
	}

	if !s.started {
		return stats
	}

	queueLen := s.queue.Len()
	stats["queueLength"] = queueLen
	stats["dedupeEntries"] = s.deduper.Size()
	stats["uptimeSeconds"] = int64(s.now().Sub(s.startedAt).Seconds())
	stats["rateLimitProfiles"] = s.limiter.Profiles().Names()
	stats["counterBackend"] = s.backend
	stats["reportKinds"] = s.policy.Kinds()
	if c, ok := s.store.(counts); ok {
		wallets, flagged, err := c.Counts(ctx)
		if err != nil {
			s.logger.Warn(ctx, "stats counts failed", logger.Error(err))
		} else {
			stats["wallets"] = wallets
			stats["flaggedTargets"] = flagged
		}
	}

	metrics.UpdateQueueSize(queueLen)
	metrics.UpdateWorkerCount(s.pool.Size())
	return stats
}
