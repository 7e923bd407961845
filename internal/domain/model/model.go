// Package model contains domain models passed between layers.
package model

import "time"

// Wallet is the persisted franchise wallet snapshot used for earnings.
type Wallet struct {
	Address            string    `json:"address"`
	Balance            float64   `json:"balance"`
	LockedAmount       float64   `json:"locked_amount"`
	LockDurationMonths int       `json:"lock_duration_months"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Target is the moderation state of one reported item.
type Target struct {
	Kind        string     `json:"kind"`
	TargetID    string     `json:"target_id"`
	ReportCount int64      `json:"report_count"`
	UnderReview bool       `json:"under_review"`
	FlaggedAt   *time.Time `json:"flagged_at,omitempty"`
}

// FlagEvent is emitted once when a target crosses its report threshold.
type FlagEvent struct {
	Kind        string    `json:"kind"`
	TargetID    string    `json:"target_id"`
	ReportCount int64     `json:"report_count"`
	Threshold   int64     `json:"threshold"`
	FlaggedAt   time.Time `json:"flagged_at"`
}
