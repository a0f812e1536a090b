// Package services – TicketService
//
// This file implements the TicketService, which owns the lifecycle of support
// tickets. It validates and normalizes inputs, generates 6-digit ticket ids
// with collision retry, enforces the closed status set at the application
// boundary (the store itself stays permissive), and coordinates repository
// operations for creating, reading, updating, and listing tickets.
//
// Service-level errors (e.g., ErrTicketNotFound, ErrDuplicateTicket) are
// returned for predictable cases so handlers can map them to HTTP results
// consistently.
//
// Observability: the mutating and listing methods are OpenTelemetry
// instrumented; spans include the ticket id where applicable.
package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-support-backend/internal/domain"
	"github.com/tbourn/go-support-backend/internal/repo"
)

// ticketIDRE is the 6-decimal-digit ticket id convention, enforced here at
// the boundary rather than in the persisted schema.
var ticketIDRE = regexp.MustCompile(`^\d{6}$`)

// TicketRepo defines the repository contract required by TicketService.
// Implementations are responsible for persistence of ticket rows.
type TicketRepo interface {
	// CreateTicket inserts a fully populated ticket row.
	CreateTicket(ctx context.Context, db *gorm.DB, t *domain.Ticket) error

	// GetTicket fetches a ticket by id.
	GetTicket(ctx context.Context, db *gorm.DB, ticketID string) (*domain.Ticket, error)

	// UpdateTicket applies column changes and refreshes updated_at.
	UpdateTicket(ctx context.Context, db *gorm.DB, ticketID string, changes map[string]any, now string) error

	// CountTickets returns the total number of tickets for pagination.
	CountTickets(ctx context.Context, db *gorm.DB, status string) (int64, error)

	// ListTicketsPage returns a page of tickets, newest first.
	ListTicketsPage(ctx context.Context, db *gorm.DB, status string, offset, limit int) ([]domain.Ticket, error)
}

// CreateTicketInput carries the caller-controlled fields for ticket creation.
// TicketID is optional; when empty the service generates one.
type CreateTicketInput struct {
	TicketID      string
	Message       string
	CustomerName  *string
	CorrelationID *string
}

// UpdateTicketInput is a partial update: nil fields are left untouched.
// Clearing a nullable column back to NULL is intentionally not supported
// through this surface.
type UpdateTicketInput struct {
	Message       *string
	CustomerName  *string
	CorrelationID *string
	Status        *domain.Status
}

// TicketService provides ticket-level operations. It enforces message and id
// rules and keeps the status set closed at this boundary.
type TicketService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the ticket repository used by this service.
	Repo TicketRepo

	// MaxMessageRunes caps stored messages by rune length (0 disables).
	MaxMessageRunes int
	// IDAttempts bounds id-generation retries on collision.
	IDAttempts int

	// newID generates a candidate ticket id; a seam for deterministic tests.
	newID func() string
}

// NewTicketService constructs a TicketService with sane defaults.
func NewTicketService(db *gorm.DB, r TicketRepo) *TicketService {
	return &TicketService{
		DB:              db,
		Repo:            r,
		MaxMessageRunes: 4000,
		IDAttempts:      5,
		newID:           randomTicketID,
	}
}

// randomTicketID returns a uniformly random 6-digit id, zero padded.
func randomTicketID() string {
	return fmt.Sprintf("%06d", rand.IntN(1000000))
}

// Create opens a new ticket with status Open and both timestamps set to the
// same creation instant.
//
// Semantics and validation:
//   - Message is trimmed; empty → ErrEmptyMessage; over the configured rune
//     cap → ErrMessageTooLong.
//   - A caller-supplied TicketID must be exactly six decimal digits
//     (ErrInvalidTicketID) and must not collide (ErrDuplicateTicket).
//   - Without a caller-supplied id, a random 6-digit id is generated and the
//     insert retried on primary-key collision up to IDAttempts times; when
//     the budget runs out, ErrIDExhausted is returned.
func (s *TicketService) Create(ctx context.Context, in CreateTicketInput) (*domain.Ticket, error) {
	tr := otel.Tracer("services/TicketService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(attribute.Bool("ticket.id_supplied", in.TicketID != "")),
	)
	defer span.End()

	msg := strings.TrimSpace(in.Message)
	if msg == "" {
		return nil, ErrEmptyMessage
	}
	if s.MaxMessageRunes > 0 && utf8.RuneCountInString(msg) > s.MaxMessageRunes {
		return nil, ErrMessageTooLong
	}

	now := domain.Now()
	build := func(id string) *domain.Ticket {
		return &domain.Ticket{
			TicketID:      id,
			CustomerName:  in.CustomerName,
			Message:       msg,
			Status:        domain.StatusOpen,
			CorrelationID: in.CorrelationID,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
	}

	// Caller-supplied id: validate the 6-digit convention, surface collisions.
	if in.TicketID != "" {
		if !ticketIDRE.MatchString(in.TicketID) {
			return nil, ErrInvalidTicketID
		}
		t := build(in.TicketID)
		if err := s.Repo.CreateTicket(ctx, s.DB, t); err != nil {
			if errors.Is(err, repo.ErrDuplicateKey) {
				return nil, ErrDuplicateTicket
			}
			return nil, err
		}
		return t, nil
	}

	// Generated id: retry on collision instead of pre-checking, so two
	// concurrent creates cannot race past a read-then-insert window.
	attempts := s.IDAttempts
	if attempts <= 0 {
		attempts = 5
	}
	gen := s.newID
	if gen == nil {
		gen = randomTicketID
	}
	for i := 0; i < attempts; i++ {
		t := build(gen())
		err := s.Repo.CreateTicket(ctx, s.DB, t)
		if err == nil {
			span.SetAttributes(attribute.String("ticket.id", t.TicketID))
			return t, nil
		}
		if !errors.Is(err, repo.ErrDuplicateKey) {
			return nil, err
		}
	}
	return nil, ErrIDExhausted
}

// Get fetches a ticket by id. Lookups stay permissive on id shape so legacy
// rows that predate the 6-digit convention remain reachable.
func (s *TicketService) Get(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	t, err := s.Repo.GetTicket(ctx, s.DB, ticketID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return t, nil
}

// UpdateStatus moves a ticket to the given lifecycle status and refreshes
// updated_at. The status must be a member of the known set.
func (s *TicketService) UpdateStatus(ctx context.Context, ticketID string, status domain.Status) error {
	tr := otel.Tracer("services/TicketService")
	ctx, span := tr.Start(ctx, "UpdateStatus",
		trace.WithAttributes(
			attribute.String("ticket.id", ticketID),
			attribute.String("ticket.status", string(status)),
		),
	)
	defer span.End()

	if !status.Valid() {
		return ErrInvalidStatus
	}
	err := s.Repo.UpdateTicket(ctx, s.DB, ticketID,
		map[string]any{"status": string(status)}, domain.Now())
	if errors.Is(err, repo.ErrNotFound) {
		return ErrTicketNotFound
	}
	return err
}

// Update applies a partial update and returns the resulting ticket. At least
// one field must be present (ErrEmptyUpdate otherwise); message and status
// values are validated the same way as on create.
func (s *TicketService) Update(ctx context.Context, ticketID string, in UpdateTicketInput) (*domain.Ticket, error) {
	tr := otel.Tracer("services/TicketService")
	ctx, span := tr.Start(ctx, "Update",
		trace.WithAttributes(attribute.String("ticket.id", ticketID)),
	)
	defer span.End()

	changes := map[string]any{}
	if in.Message != nil {
		msg := strings.TrimSpace(*in.Message)
		if msg == "" {
			return nil, ErrEmptyMessage
		}
		if s.MaxMessageRunes > 0 && utf8.RuneCountInString(msg) > s.MaxMessageRunes {
			return nil, ErrMessageTooLong
		}
		changes["message"] = msg
	}
	if in.CustomerName != nil {
		changes["customer_name"] = strings.TrimSpace(*in.CustomerName)
	}
	if in.CorrelationID != nil {
		changes["correlation_id"] = strings.TrimSpace(*in.CorrelationID)
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, ErrInvalidStatus
		}
		changes["status"] = string(*in.Status)
	}
	if len(changes) == 0 {
		return nil, ErrEmptyUpdate
	}

	if err := s.Repo.UpdateTicket(ctx, s.DB, ticketID, changes, domain.Now()); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return s.Get(ctx, ticketID)
}

// ListPage returns a page of tickets, optionally filtered by status, along
// with the total count. It applies defaults for invalid page/pageSize.
func (s *TicketService) ListPage(ctx context.Context, status string, page, pageSize int) ([]domain.Ticket, int64, error) {
	tr := otel.Tracer("services/TicketService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("ticket.status_filter", status),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if status != "" && !domain.Status(status).Valid() {
		return nil, 0, ErrInvalidStatus
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := s.Repo.CountTickets(ctx, s.DB, status)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Ticket{}, 0, nil
	}

	items, err := s.Repo.ListTicketsPage(ctx, s.DB, status, offset, pageSize)
	return items, total, err
}
