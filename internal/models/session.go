package models

// Session is the authenticated caller passed explicitly to operations that
// record who performed them.
type Session struct {
	UserID string
	Email  string
	Role   UserRole
}
