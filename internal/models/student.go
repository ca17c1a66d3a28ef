package models

import "time"

// Student is a learner whose fees are tracked by the school office.
type Student struct {
	ID            string    `db:"id" json:"id"`
	Name          string    `db:"name" json:"name" validate:"notblank"`
	RollNumber    string    `db:"roll_number" json:"roll_number" validate:"notblank"`
	Class         string    `db:"class" json:"class" validate:"notblank"`
	Section       string    `db:"section" json:"section"`
	ParentName    string    `db:"parent_name" json:"parent_name" validate:"notblank"`
	ContactNumber string    `db:"contact_number" json:"contact_number" validate:"notblank"`
	Email         *string   `db:"email" json:"email,omitempty"`
	Address       string    `db:"address" json:"address" validate:"notblank"`
	AdmissionDate time.Time `db:"admission_date" json:"admission_date" validate:"required"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter narrows student lookups pushed down to the store.
type StudentFilter struct {
	Class string
}

// StudentQuery captures list parameters accepted by the student listing.
type StudentQuery struct {
	Class  string `form:"class"`
	Search string `form:"search"`
}
