// Package domain defines the persistence models for support tickets. These
// types are mapped with GORM and form the core data layer of the support
// backend.
package domain

import "time"

// Status is the lifecycle stage of a ticket. The store persists it as free
// text (no CHECK constraint), matching the original permissive schema; the
// closed set below is enforced at the application boundary instead.
type Status string

// Observed status domain values. Tickets are created Open and conventionally
// move through In Progress to Resolved.
const (
	StatusOpen       Status = "Open"
	StatusInProgress Status = "In Progress"
	StatusResolved   Status = "Resolved"
)

// Valid reports whether s is a member of the known status set.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved:
		return true
	}
	return false
}

// TimeLayout is the ISO-8601 layout used for the TEXT timestamp columns.
// Timestamps are stored as strings so reads round-trip byte-for-byte.
const TimeLayout = "2006-01-02T15:04:05"

// FormatTime renders t in UTC using TimeLayout.
func FormatTime(t time.Time) string { return t.UTC().Format(TimeLayout) }

// Now returns the current UTC instant formatted with TimeLayout.
func Now() string { return FormatTime(time.Now()) }

// Ticket represents a single customer support record identified by its
// TicketID. The mapped table mirrors the legacy `support_tickets` layout
// exactly: seven columns, TEXT timestamps, nullable customer_name and
// correlation_id, and a permissive TEXT status with an 'Open' default.
//
// Fields:
//   - TicketID: primary key; conventionally six decimal digits. The digit
//     format is validated by the service layer, not the schema.
//   - CustomerName: optional; nil when the customer is unknown.
//   - Message: required free-text complaint/feedback.
//   - Status: required; defaults to "Open" at the store level.
//   - CorrelationID: optional opaque reference used by an external operations
//     system; never validated or dereferenced here.
//   - CreatedAt: set once at creation, immutable thereafter.
//   - UpdatedAt: refreshed by the repository on every mutation.
type Ticket struct {
	TicketID      string  `json:"ticket_id"                gorm:"column:ticket_id;type:TEXT;primaryKey"`
	CustomerName  *string `json:"customer_name,omitempty"  gorm:"column:customer_name;type:TEXT"`
	Message       string  `json:"message"                  gorm:"column:message;type:TEXT;not null"`
	Status        Status  `json:"status"                   gorm:"column:status;type:TEXT;not null;default:'Open'"`
	CorrelationID *string `json:"correlation_id,omitempty" gorm:"column:correlation_id;type:TEXT"`
	CreatedAt     string  `json:"created_at"               gorm:"column:created_at;type:TEXT;not null"`
	UpdatedAt     string  `json:"updated_at"               gorm:"column:updated_at;type:TEXT;not null"`
}

// TableName returns the database table name for Ticket.
func (Ticket) TableName() string { return "support_tickets" }
