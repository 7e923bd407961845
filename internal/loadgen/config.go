// Package loadgen drives a running server with concurrent moderation
// reports and checks that every target is flagged exactly once.
package loadgen

import (
	"errors"
	"time"
)

// Config holds configuration for a load run.
type Config struct {
	BaseURL string        // Base URL of the service
	Secret  string        // HS256 secret used to mint reporter tokens
	Issuer  string        // Token issuer, empty when the server does not check it
	Kind    string        // Target kind: ad or video
	Targets int           // Number of distinct targets
	Reports int           // Distinct reporters per target
	Repeats int           // Duplicate submissions per target
	Workers int           // Number of concurrent workers
	Timeout time.Duration // HTTP request timeout
	// Threshold is the server's flag threshold for Kind. Zero skips the
	// flag count verification.
	Threshold int64
}

// Defaults used by the CLI.
const (
	DefaultTargets = 20
	DefaultReports = 6
	DefaultWorkers = 8
	DefaultTimeout = 10 * time.Second
)

var errMissingField = errors.New("loadgen: missing required setting")

func (c *Config) validate() error {
	switch {
	case c.BaseURL == "":
		return errors.Join(errMissingField, errors.New("base url"))
	case c.Secret == "":
		return errors.Join(errMissingField, errors.New("auth secret"))
	case c.Kind == "":
		return errors.Join(errMissingField, errors.New("kind"))
	case c.Targets <= 0 || c.Reports <= 0:
		return errors.New("loadgen: targets and reports must be positive")
	}
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return nil
}

// Submission is one report to send.
type Submission struct {
	Reporter string `json:"-"`
	Kind     string `json:"kind"`
	TargetID string `json:"target_id"`
	Reason   string `json:"reason,omitempty"`
}

// Stats holds run statistics.
type Stats struct {
	Submitted   int64
	Created     int64
	Duplicate   int64
	RateLimited int64
	Failed      int64
	Flagged     int64
	StartTime   time.Time
	Duration    time.Duration
}
