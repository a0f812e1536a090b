// Ticket HTTP handlers.
//
// This file exposes REST endpoints for ticket resources:
//   - POST   /tickets              (create, idempotency support)
//   - GET    /tickets              (list, paginated, ETag support)
//   - GET    /tickets/{id}         (fetch one)
//   - PATCH  /tickets/{id}         (partial update)
//   - PUT    /tickets/{id}/status  (move through the lifecycle)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses (including conditional responses).
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous successful
// result exists for (user, key), POST /tickets returns the recorded ticket
// and sets `Idempotency-Replayed: true` instead of opening a second one.
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/go-support-backend/internal/domain"
	"github.com/tbourn/go-support-backend/internal/http/middleware"
	"github.com/tbourn/go-support-backend/internal/repo"
	"github.com/tbourn/go-support-backend/internal/services"
	"github.com/tbourn/go-support-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// TicketService defines ticket lifecycle operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type TicketService interface {
	// Create opens a new ticket, generating an id when none is supplied.
	Create(ctx context.Context, in services.CreateTicketInput) (*domain.Ticket, error)
	// Get fetches a ticket by id.
	Get(ctx context.Context, ticketID string) (*domain.Ticket, error)
	// Update applies a partial update and returns the resulting ticket.
	Update(ctx context.Context, ticketID string, in services.UpdateTicketInput) (*domain.Ticket, error)
	// UpdateStatus moves a ticket to a new lifecycle status.
	UpdateStatus(ctx context.Context, ticketID string, status domain.Status) error
	// ListPage returns a page of tickets and the total count.
	ListPage(ctx context.Context, status string, page, pageSize int) ([]domain.Ticket, int64, error)
}

// TriageService classifies raw customer messages and runs the matching flow.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type TriageService interface {
	// Process classifies a message and returns the flow outcome.
	Process(ctx context.Context, message string, customerName, correlationID *string) (*services.TriageResult, error)
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for tickets and triage. It depends on
// abstract service interfaces to keep transport concerns separate from
// business logic.
type Handlers struct {
	ticketSvc TicketService
	triageSvc TriageService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(ticketSvc TicketService, triageSvc TriageService) *Handlers {
	return &Handlers{ticketSvc: ticketSvc, triageSvc: triageSvc}
}

// userID extracts the authenticated user id from Gin context (set by upstream
// middleware). If absent, it falls back to "X-User-ID" header (tests use it),
// and finally to "demo-user". It never touches c.Request if it's nil.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return "demo-user"
}

//
// DTOs
//

// CreateTicketRequest is the JSON payload for opening a ticket.
type CreateTicketRequest struct {
	// TicketID optionally pins the 6-digit id; one is generated when empty.
	TicketID string `json:"ticket_id,omitempty" example:"482193"`
	// Message is the customer's complaint or request. Required.
	Message string `json:"message" binding:"required,min=1" example:"My order arrived damaged."`
	// CustomerName optionally names the customer.
	CustomerName *string `json:"customer_name,omitempty" example:"Alice Smith"`
	// CorrelationID optionally links the ticket to an upstream conversation.
	CorrelationID *string `json:"correlation_id,omitempty" example:"conv-2041"`
}

// UpdateTicketRequest is the JSON payload for a partial ticket update.
// Absent fields are left untouched.
type UpdateTicketRequest struct {
	Message       *string `json:"message,omitempty" example:"Order arrived damaged, box crushed."`
	CustomerName  *string `json:"customer_name,omitempty" example:"Alice Smith"`
	CorrelationID *string `json:"correlation_id,omitempty" example:"conv-2041"`
	Status        *string `json:"status,omitempty" example:"In Progress"`
}

// UpdateTicketStatusRequest is the JSON payload for a status transition.
type UpdateTicketStatusRequest struct {
	// Status is the target lifecycle value: Open, In Progress, or Resolved.
	Status string `json:"status" binding:"required" example:"Resolved"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListTicketsResponse wraps a page of tickets and pagination information.
type ListTicketsResponse struct {
	Tickets    []domain.Ticket `json:"tickets"`
	Pagination Pagination      `json:"pagination"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.ClampInt(utils.AtoiDefault(c.Query("page_size"), defaultPageSize), 1, maxPageSize)
	return
}

// discoverMaxMessageRunes inspects the concrete TicketService for a configured
// message-length limit. If unavailable, it returns a conservative fallback.
func discoverMaxMessageRunes(ticketSvc TicketService) int {
	const fallback = 4000
	if ts, ok := ticketSvc.(*services.TicketService); ok {
		if ts.MaxMessageRunes > 0 {
			return ts.MaxMessageRunes
		}
	}
	return fallback
}

// serviceDB exposes the concrete service's GORM handle for best-effort side
// lookups (ETag stats, idempotency records). Returns nil for fakes.
func serviceDB(ticketSvc TicketService) *gorm.DB {
	if ts, ok := ticketSvc.(*services.TicketService); ok {
		return ts.DB
	}
	return nil
}

//
// Handlers
//

// CreateTicket godoc
// @ID          createTicket
// @Summary     Open a support ticket
// @Description Creates a ticket for the current user and returns the ticket resource.
// @Description Supports idempotency via the Idempotency-Key header (same key → same result).
// @Tags        Tickets
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false "User ID (demo header)"  example(user123)
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    handlers.CreateTicketRequest  true  "Create ticket payload"
//
// @Success     201  {object}  domain.Ticket
// @Success     200  {object}  domain.Ticket           "Replayed from a previous request"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     409  {object}  handlers.ErrorResponse  "Ticket id already taken"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /tickets [post]
func (h *Handlers) CreateTicket(c *gin.Context) {
	ctx := c.Request.Context()

	var req CreateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message required")
		return
	}

	// Early size cap to fail fast at the edge (service has a second guard).
	message := strings.TrimSpace(req.Message)
	maxRunes := discoverMaxMessageRunes(h.ticketSvc)
	if maxRunes > 0 && utf8.RuneCountInString(message) > maxRunes {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("message too long: max %d runes", maxRunes))
		return
	}
	if message == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message required")
		return
	}

	currentUser := userID(c)

	// Idempotency (replay path) – read validated key if present.
	idemKey, _ := middleware.GetIdempotencyKey(c)
	if idemKey != "" {
		if db := serviceDB(h.ticketSvc); db != nil {
			if rec, err := repo.GetIdempotency(ctx, db, currentUser, idemKey, time.Now().UTC()); err == nil && rec != nil {
				if prev, err2 := repo.GetTicket(ctx, db, rec.TicketID); err2 == nil {
					c.Header("Idempotency-Replayed", "true")
					ok(c, http.StatusOK, prev)
					return
				}
			}
		}
	}

	t, err := h.ticketSvc.Create(ctx, services.CreateTicketInput{
		TicketID:      strings.TrimSpace(req.TicketID),
		Message:       message,
		CustomerName:  req.CustomerName,
		CorrelationID: req.CorrelationID,
	})
	if err != nil {
		switch err {
		case services.ErrEmptyMessage:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message required")
		case services.ErrMessageTooLong:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("message too long: max %d runes", maxRunes))
		case services.ErrInvalidTicketID:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "ticket id must be six digits")
		case services.ErrDuplicateTicket:
			fail(c, http.StatusConflict, ErrCodeConflict, "ticket already exists")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		}
		return
	}

	// Idempotency (store path) – best effort.
	if idemKey != "" {
		if db := serviceDB(h.ticketSvc); db != nil {
			ttl := 24 * time.Hour
			_, _ = repo.CreateIdempotency(ctx, db, currentUser, idemKey, t.TicketID, http.StatusCreated, ttl)
		}
	}

	ok(c, http.StatusCreated, t)
}

// GetTicket godoc
// @ID          getTicket
// @Summary     Fetch a ticket
// @Description Returns the ticket with the given id.
// @Tags        Tickets
// @Produce     json
//
// @Param       id  path  string  true  "Ticket ID (6 digits)"  example(482193)
//
// @Success     200  {object}  domain.Ticket
// @Failure     404  {object}  handlers.ErrorResponse  "Ticket not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /tickets/{id} [get]
func (h *Handlers) GetTicket(c *gin.Context) {
	t, err := h.ticketSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch err {
		case services.ErrTicketNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "ticket not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, t)
}

// UpdateTicket godoc
// @ID          updateTicket
// @Summary     Update ticket fields
// @Description Applies a partial update to the ticket and returns the result.
// @Description Absent fields keep their current value; updated_at is refreshed.
// @Tags        Tickets
// @Accept      json
// @Produce     json
//
// @Param       id    path  string  true  "Ticket ID (6 digits)"  example(482193)
// @Param       body  body  handlers.UpdateTicketRequest  true  "Fields to change"
//
// @Success     200  {object}  domain.Ticket
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Ticket not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /tickets/{id} [patch]
func (h *Handlers) UpdateTicket(c *gin.Context) {
	var req UpdateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	in := services.UpdateTicketInput{
		Message:       req.Message,
		CustomerName:  req.CustomerName,
		CorrelationID: req.CorrelationID,
	}
	if req.Status != nil {
		st := domain.Status(strings.TrimSpace(*req.Status))
		in.Status = &st
	}

	t, err := h.ticketSvc.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		switch err {
		case services.ErrTicketNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "ticket not found")
		case services.ErrEmptyUpdate:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "no fields to update")
		case services.ErrEmptyMessage:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message must not be empty")
		case services.ErrMessageTooLong:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message too long")
		case services.ErrInvalidStatus:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "status must be Open, In Progress, or Resolved")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeUpdateFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, t)
}

// UpdateTicketStatus godoc
// @ID          updateTicketStatus
// @Summary     Change ticket status
// @Description Moves the ticket to the given lifecycle status.
// @Tags        Tickets
// @Accept      json
// @Produce     json
//
// @Param       id    path  string  true  "Ticket ID (6 digits)"  example(482193)
// @Param       body  body  handlers.UpdateTicketStatusRequest  true  "Target status"
//
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Ticket not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /tickets/{id}/status [put]
func (h *Handlers) UpdateTicketStatus(c *gin.Context) {
	var req UpdateTicketStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Status) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "status required")
		return
	}

	err := h.ticketSvc.UpdateStatus(c.Request.Context(), c.Param("id"),
		domain.Status(strings.TrimSpace(req.Status)))
	if err != nil {
		switch err {
		case services.ErrInvalidStatus:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "status must be Open, In Progress, or Resolved")
		case services.ErrTicketNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "ticket not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeUpdateFailed, err.Error())
		}
		return
	}

	noContent(c)
}

// ListTickets godoc
// @ID          listTickets
// @Summary     List tickets (paginated)
// @Description Returns a page of tickets, newest first, optionally filtered by status.
// @Description Supports weak ETag via If-None-Match and may return 304.
// @Tags        Tickets
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
// @Param       status         query   string  false "Filter by status"            Enums(Open, In Progress, Resolved)
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListTicketsResponse
// @Header      200  {string} ETag           "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /tickets [get]
func (h *Handlers) ListTickets(c *gin.Context) {
	ctx := c.Request.Context()
	status := strings.TrimSpace(c.Query("status"))
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	if db := serviceDB(h.ticketSvc); db != nil {
		count, maxTS, err := repo.TicketsStats(ctx, db, status)
		if err == nil {
			etag := fmt.Sprintf(`W/"tickets:%s:%d:%s"`, status, count, maxTS)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	// Fetch page.
	items, total, err := h.ticketSvc.ListPage(ctx, status, page, pageSize)
	if err != nil {
		switch err {
		case services.ErrInvalidStatus:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "status must be Open, In Progress, or Resolved")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		}
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	resp := ListTicketsResponse{
		Tickets: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	}
	ok(c, http.StatusOK, resp)
}
