package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod enumerates accepted payment channels.
type PaymentMethod string

const (
	MethodCash         PaymentMethod = "cash"
	MethodCheck        PaymentMethod = "check"
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodOnline       PaymentMethod = "online"
)

// PaymentStatus tracks the settlement state of a payment.
type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "paid"
	PaymentPending PaymentStatus = "pending"
	PaymentOverdue PaymentStatus = "overdue"
)

// Payment records money received against a fee structure for a student.
// StudentName, RollNumber and FeeName are copied from the referenced records
// when the payment is created and are not refreshed afterwards.
type Payment struct {
	ID             string          `db:"id" json:"id"`
	StudentID      string          `db:"student_id" json:"student_id" validate:"notblank"`
	StudentName    string          `db:"student_name" json:"student_name"`
	RollNumber     string          `db:"roll_number" json:"roll_number"`
	FeeStructureID string          `db:"fee_structure_id" json:"fee_structure_id" validate:"notblank"`
	FeeName        string          `db:"fee_name" json:"fee_name"`
	Amount         decimal.Decimal `db:"amount" json:"amount" validate:"required,gt=0,cents"`
	PaymentDate    time.Time       `db:"payment_date" json:"payment_date" validate:"required"`
	PaymentMethod  PaymentMethod   `db:"payment_method" json:"payment_method" validate:"oneof=cash check bank_transfer online"`
	ReceiptNumber  string          `db:"receipt_number" json:"receipt_number" validate:"notblank"`
	Status         PaymentStatus   `db:"status" json:"status" validate:"oneof=paid pending overdue"`
	CreatedBy      string          `db:"created_by" json:"created_by" validate:"notblank"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// PaymentFilter narrows payment lookups pushed down to the store. From and To
// are inclusive bounds on PaymentDate.
type PaymentFilter struct {
	StudentID      string
	FeeStructureID string
	Status         PaymentStatus
	From           *time.Time
	To             *time.Time
}

// PaymentQuery captures list parameters accepted by the payment listing.
type PaymentQuery struct {
	StudentID string        `form:"student_id"`
	Status    PaymentStatus `form:"status"`
	Search    string        `form:"search"`
	From      *time.Time    `form:"-"`
	To        *time.Time    `form:"-"`
}

// EndOfDay returns the last microsecond of t's calendar day. Postgres keeps
// timestamps at microsecond precision and rounds anything finer, so a
// nanosecond bound would land on the next midnight.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location()).Add(-time.Microsecond)
}
