// Package services defines the business logic for support tickets and
// message triage. This file centralizes common service-level error values so
// that they can be consistently returned by service methods and checked by
// callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler layer.
package services

import "errors"

// Ticket-related errors.
var (
	// ErrTicketNotFound indicates that the requested ticket does not exist.
	ErrTicketNotFound = errors.New("ticket not found")

	// ErrDuplicateTicket is returned when a caller-supplied ticket id
	// collides with an existing ticket.
	ErrDuplicateTicket = errors.New("ticket already exists")

	// ErrEmptyMessage is returned when a request carries an empty message.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrMessageTooLong is returned when a message exceeds the maximum
	// configured rune length.
	ErrMessageTooLong = errors.New("message too long")

	// ErrInvalidTicketID is returned when a caller-supplied ticket id is not
	// exactly six decimal digits.
	ErrInvalidTicketID = errors.New("ticket id must be six digits")

	// ErrInvalidStatus is returned when a status value is outside the known
	// set (Open, In Progress, Resolved).
	ErrInvalidStatus = errors.New("invalid ticket status")

	// ErrEmptyUpdate is returned when an update request carries no fields
	// to change.
	ErrEmptyUpdate = errors.New("no fields to update")

	// ErrIDExhausted is returned when ticket id generation keeps colliding
	// and the attempt budget runs out.
	ErrIDExhausted = errors.New("could not allocate a unique ticket id")
)
