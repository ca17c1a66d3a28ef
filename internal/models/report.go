package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReportFilter selects the payments included in a report. End is inclusive
// through the end of its day.
type ReportFilter struct {
	Start  time.Time     `form:"start" time_format:"2006-01-02" binding:"required"`
	End    time.Time     `form:"end" time_format:"2006-01-02" binding:"required"`
	Class  string        `form:"class"`
	Status PaymentStatus `form:"status"`
}

// ReportSummary aggregates payments matching a ReportFilter.
type ReportSummary struct {
	Start               time.Time                  `json:"start"`
	End                 time.Time                  `json:"end"`
	TotalCollected      decimal.Decimal            `json:"total_collected"`
	PendingAmount       decimal.Decimal            `json:"pending_amount"`
	OverdueAmount       decimal.Decimal            `json:"overdue_amount"`
	PaymentCount        int                        `json:"payment_count"`
	AveragePayment      decimal.Decimal            `json:"average_payment"`
	UniqueStudents      int                        `json:"unique_students"`
	CollectionByClass   map[string]decimal.Decimal `json:"collection_by_class"`
	CollectionByMethod  map[string]decimal.Decimal `json:"collection_by_method"`
	CollectionByFeeType map[string]decimal.Decimal `json:"collection_by_fee_type"`
	GeneratedAt         time.Time                  `json:"generated_at"`
}

// Dashboard is the landing page overview.
type Dashboard struct {
	TotalStudents      int             `json:"total_students"`
	TotalFeeStructures int             `json:"total_fee_structures"`
	TotalCollected     decimal.Decimal `json:"total_collected"`
	PendingPayments    int             `json:"pending_payments"`
	RecentPayments     []Payment       `json:"recent_payments"`
}
