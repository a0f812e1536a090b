// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Ticket model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition. In particular the repository does not
// validate status membership or the 6-digit ticket-id convention; the store
// stays as permissive as the legacy schema it mirrors, and the service layer
// owns those rules.
//
// Error semantics:
//   - When a ticket is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - When an insert collides on ticket_id, CreateTicket returns
//     ErrDuplicateKey so the service layer can retry generation or surface
//     a conflict.
//   - On other DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// Functions:
//
//   - CreateTicket(ctx, db, t) -> error
//     Inserts a fully populated Ticket row.
//
//   - GetTicket(ctx, db, ticketID) -> *domain.Ticket, error
//     Fetches a single ticket by id, or ErrNotFound if missing.
//
//   - UpdateTicket(ctx, db, ticketID, changes, now) -> error
//     Applies column changes and refreshes updated_at atomically.
//
//   - CountTickets(ctx, db, status) -> (int64, error)
//     Returns the total number of tickets, optionally filtered by status.
//
//   - ListTicketsPage(ctx, db, status, offset, limit) -> []domain.Ticket, error
//     Returns a paginated slice of tickets, newest first.
//
// This repository is designed to be wrapped by a higher-level service
// (see services.TicketService) which enforces business rules such as id
// generation, status membership, and message validation.
package repo

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/go-support-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrDuplicateKey is returned when an insert violates the ticket_id
// primary key.
var ErrDuplicateKey = errors.New("duplicate ticket id")

// isUniqueViolation detects unique-constraint violations across drivers that
// may not map to gorm.ErrDuplicatedKey. glebarez/sqlite often returns
// plain-text errors for UNIQUE violations.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "duplicate key")
}

// CreateTicket inserts the given ticket row as-is. Callers are expected to
// have populated TicketID, Status, and both timestamps; the repository only
// translates a primary-key collision into ErrDuplicateKey.
func CreateTicket(ctx context.Context, db *gorm.DB, t *domain.Ticket) error {
	if err := db.WithContext(ctx).Create(t).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateKey
		}
		return err
	}
	return nil
}

// GetTicket fetches a ticket by its id, or ErrNotFound if missing.
func GetTicket(ctx context.Context, db *gorm.DB, ticketID string) (*domain.Ticket, error) {
	var t domain.Ticket
	if err := db.WithContext(ctx).Where("ticket_id = ?", ticketID).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateTicket applies the given column changes to a ticket and refreshes
// updated_at in the same statement. The changes map uses column names
// (message, customer_name, correlation_id, status). Returns ErrNotFound when
// no row matches.
func UpdateTicket(ctx context.Context, db *gorm.DB, ticketID string, changes map[string]any, now string) error {
	merged := make(map[string]any, len(changes)+1)
	for k, v := range changes {
		merged[k] = v
	}
	merged["updated_at"] = now

	res := db.WithContext(ctx).
		Model(&domain.Ticket{}).
		Where("ticket_id = ?", ticketID).
		Updates(merged)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountTickets returns the total number of tickets, optionally filtered by
// status. A raw COUNT is used so a missing table surfaces as an error.
func CountTickets(ctx context.Context, db *gorm.DB, status string) (int64, error) {
	var total int64
	var err error
	if status == "" {
		err = db.WithContext(ctx).Raw("SELECT COUNT(*) FROM support_tickets").Scan(&total).Error
	} else {
		err = db.WithContext(ctx).Raw("SELECT COUNT(*) FROM support_tickets WHERE status = ?", status).Scan(&total).Error
	}
	return total, err
}

// ListTicketsPage returns a page of tickets ordered newest first
// (created_at DESC, ticket_id ASC as a deterministic tiebreak), optionally
// filtered by status.
func ListTicketsPage(ctx context.Context, db *gorm.DB, status string, offset, limit int) ([]domain.Ticket, error) {
	var out []domain.Ticket
	q := db.WithContext(ctx).Order("created_at DESC, ticket_id ASC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Offset(offset).Limit(limit).Find(&out).Error
	return out, err
}
