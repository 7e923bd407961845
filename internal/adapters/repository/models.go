package repository

import (
	"time"

	"github.com/okian/ehb/internal/domain/model"
)

type walletRow struct {
	Address            string  `gorm:"primaryKey;size:42"`
	Balance            float64 `gorm:"not null"`
	LockedAmount       float64 `gorm:"not null"`
	LockDurationMonths int     `gorm:"not null"`
	UpdatedAt          time.Time
}

func (walletRow) TableName() string { return "wallets" }

func (w walletRow) toModel() model.Wallet {
	return model.Wallet{
		Address:            w.Address,
		Balance:            w.Balance,
		LockedAmount:       w.LockedAmount,
		LockDurationMonths: w.LockDurationMonths,
		UpdatedAt:          w.UpdatedAt,
	}
}

type reportRow struct {
	ID         uint   `gorm:"primaryKey"`
	Kind       string `gorm:"size:32;not null;uniqueIndex:idx_reports_once,priority:1"`
	TargetID   string `gorm:"size:128;not null;uniqueIndex:idx_reports_once,priority:2"`
	ReporterID string `gorm:"size:128;not null;uniqueIndex:idx_reports_once,priority:3"`
	Reason     string `gorm:"size:500"`
	CreatedAt  time.Time
}

func (reportRow) TableName() string { return "reports" }

type targetRow struct {
	Kind        string `gorm:"primaryKey;size:32"`
	TargetID    string `gorm:"primaryKey;size:128"`
	ReportCount int64  `gorm:"not null;default:0"`
	UnderReview bool   `gorm:"not null;default:false;index"`
	FlaggedAt   *time.Time
}

func (targetRow) TableName() string { return "report_targets" }

func (t targetRow) toModel() model.Target {
	return model.Target{
		Kind:        t.Kind,
		TargetID:    t.TargetID,
		ReportCount: t.ReportCount,
		UnderReview: t.UnderReview,
		FlaggedAt:   t.FlaggedAt,
	}
}
