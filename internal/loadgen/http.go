package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/ehb/internal/adapters/http/api"
	"github.com/okian/ehb/internal/domain/moderation"
	"github.com/okian/ehb/internal/domain/tier"
	"github.com/okian/ehb/pkg/logger"
)

const tokenTTL = time.Hour

// client posts reports with one bearer token per reporter.
type client struct {
	http    *http.Client
	baseURL string
	auth    *api.Authenticator

	mu     sync.Mutex
	tokens map[string]string
}

func newClient(cfg *Config) *client {
	return &client{
		http:    &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.BaseURL,
		auth:    api.NewAuthenticator([]byte(cfg.Secret), cfg.Issuer),
		tokens:  map[string]string{},
	}
}

func (c *client) token(subject string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if tok, ok := c.tokens[subject]; ok {
		return tok, nil
	}
	tok, err := c.auth.Issue(subject, tier.LevelBasic, tier.RoleUnknown, tokenTTL)
	if err != nil {
		return "", err
	}
	c.tokens[subject] = tok
	return tok, nil
}

// checkHealth fails unless /healthz answers 200.
func (c *client) checkHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", http.NoBody)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned %d", resp.StatusCode)
	}
	return nil
}

// result classifies one submission.
type result int

const (
	resultCreated result = iota
	resultDuplicate
	resultRateLimited
	resultFailed
)

func (c *client) submit(ctx context.Context, s Submission) (result, moderation.Outcome, error) {
	tok, err := c.token(s.Reporter)
	if err != nil {
		return resultFailed, moderation.Outcome{}, err
	}
	body, err := json.Marshal(s)
	if err != nil {
		return resultFailed, moderation.Outcome{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/reports", bytes.NewReader(body))
	if err != nil {
		return resultFailed, moderation.Outcome{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tok)

	resp, err := c.http.Do(req)
	if err != nil {
		return resultFailed, moderation.Outcome{}, err
	}
	defer resp.Body.Close()

	var out moderation.Outcome
	switch resp.StatusCode {
	case http.StatusCreated, http.StatusOK:
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return resultFailed, out, fmt.Errorf("decode outcome: %w", err)
		}
		if resp.StatusCode == http.StatusOK {
			return resultDuplicate, out, nil
		}
		return resultCreated, out, nil
	case http.StatusTooManyRequests:
		return resultRateLimited, out, nil
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return resultFailed, out, fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
}

// submitAll sends subs with cfg.Workers concurrent requests and tallies the
// outcome into stats.
func submitAll(ctx context.Context, cfg *Config, c *client, subs []Submission, stats *Stats) error {
	log := logger.Get()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)

	for _, s := range subs {
		s := s
		g.Go(func() error {
			res, out, err := c.submit(gctx, s)
			atomic.AddInt64(&stats.Submitted, 1)
			switch res {
			case resultCreated:
				atomic.AddInt64(&stats.Created, 1)
			case resultDuplicate:
				atomic.AddInt64(&stats.Duplicate, 1)
			case resultRateLimited:
				atomic.AddInt64(&stats.RateLimited, 1)
			case resultFailed:
				atomic.AddInt64(&stats.Failed, 1)
				log.Warn(gctx, "report failed",
					logger.String("target", s.TargetID),
					logger.String("reporter", s.Reporter),
					logger.Error(err))
			}
			if out.NewlyFlagged {
				atomic.AddInt64(&stats.Flagged, 1)
			}
			// Individual failures are counted, only cancellation stops the run.
			return gctx.Err()
		})
	}
	return g.Wait()
}
