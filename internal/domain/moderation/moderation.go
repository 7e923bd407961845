// Package moderation decides when reported content goes under review.
package moderation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/okian/ehb/internal/domain/types"
)

// Report kinds.
const (
	KindAd    = "ad"
	KindVideo = "video"
)

// ErrUnknownKind is returned for a report kind with no threshold.
var ErrUnknownKind = fmt.Errorf("unknown report kind: %w", types.ErrInvalidInput)

// DefaultThresholds returns the report counts at which each kind is flagged.
func DefaultThresholds() map[string]int64 {
	return map[string]int64{
		KindAd:    3,
		KindVideo: 5,
	}
}

// Report is one user's complaint about a target.
type Report struct {
	Kind       string `json:"kind"`
	TargetID   string `json:"target_id"`
	ReporterID string `json:"reporter_id"`
	Reason     string `json:"reason,omitempty"`
}

// Key identifies the (kind, target, reporter) triple a reporter may file once.
func (r Report) Key() string {
	return r.Kind + "\x00" + r.TargetID + "\x00" + r.ReporterID
}

// Outcome is the result of recording a report.
type Outcome struct {
	ReportCount  int64 `json:"report_count"`
	UnderReview  bool  `json:"under_review"`
	NewlyFlagged bool  `json:"newly_flagged"`
	Duplicate    bool  `json:"duplicate"`
}

// Policy maps report kinds to thresholds. It is immutable after construction.
type Policy struct {
	thresholds map[string]int64
}

// NewPolicy merges overrides over the default thresholds. Non-positive
// thresholds are rejected.
func NewPolicy(overrides map[string]int64) (Policy, error) {
	th := DefaultThresholds()
	for k, v := range overrides {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			return Policy{}, types.InvalidField("report_thresholds", "empty kind")
		}
		if v <= 0 {
			return Policy{}, types.InvalidField("report_thresholds", fmt.Sprintf("%s: threshold must be positive", k))
		}
		th[k] = v
	}
	return Policy{thresholds: th}, nil
}

// Threshold returns the flag threshold for kind.
func (p Policy) Threshold(kind string) (int64, error) {
	v, ok := p.thresholds[kind]
	if !ok {
		return 0, ErrUnknownKind
	}
	return v, nil
}

// Kinds lists the configured kinds in sorted order.
func (p Policy) Kinds() []string {
	out := make([]string, 0, len(p.thresholds))
	for k := range p.thresholds {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Normalize trims the report and validates it against p. It returns the
// threshold for the report's kind.
func (p Policy) Normalize(r *Report) (int64, error) {
	r.Kind = strings.ToLower(strings.TrimSpace(r.Kind))
	r.TargetID = strings.TrimSpace(r.TargetID)
	r.ReporterID = strings.TrimSpace(r.ReporterID)
	r.Reason = strings.TrimSpace(r.Reason)

	switch {
	case r.Kind == "":
		return 0, types.InvalidField("kind", "is required")
	case r.TargetID == "":
		return 0, types.InvalidField("target_id", "is required")
	case r.ReporterID == "":
		return 0, types.InvalidField("reporter_id", "is required")
	case len(r.Reason) > 500:
		return 0, types.InvalidField("reason", "must be at most 500 characters")
	}

	th, err := p.Threshold(r.Kind)
	if err != nil {
		return 0, fmt.Errorf("kind: %w", err)
	}
	return th, nil
}
