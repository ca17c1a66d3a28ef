package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FeeFrequency enumerates how often a fee is charged.
type FeeFrequency string

const (
	FrequencyMonthly   FeeFrequency = "monthly"
	FrequencyQuarterly FeeFrequency = "quarterly"
	FrequencyAnnually  FeeFrequency = "annually"
	FrequencyOneTime   FeeFrequency = "one-time"
)

// FeeStructure is a named, priced fee definition optionally scoped to a class.
type FeeStructure struct {
	ID          string          `db:"id" json:"id"`
	Name        string          `db:"name" json:"name" validate:"notblank"`
	Amount      decimal.Decimal `db:"amount" json:"amount" validate:"required,gt=0,cents"`
	Frequency   FeeFrequency    `db:"frequency" json:"frequency" validate:"oneof=monthly quarterly annually one-time"`
	Class       *string         `db:"class" json:"class,omitempty"`
	Description *string         `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// FeeStructureQuery captures list parameters for fee structures.
type FeeStructureQuery struct {
	Class  string `form:"class"`
	Search string `form:"search"`
}
