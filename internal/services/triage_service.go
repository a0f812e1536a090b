// Package services – TriageService
//
// This file implements the TriageService, the application-level component
// that turns a raw customer message into an actionable outcome. It classifies
// the message (query vs. positive/negative feedback), opens a support ticket
// for negative feedback, answers status queries by extracting a 6-digit
// ticket id from the text, and produces the human-facing reply for each path.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tbourn/go-support-backend/internal/domain"
	"github.com/tbourn/go-support-backend/internal/triage"
)

// Agent names reported in triage results, identifying which flow produced
// the reply.
const (
	handledByFeedback = "FeedbackAgent"
	handledByQuery    = "QueryAgent"
)

// fallbackDisplayName is used in replies when the customer is anonymous.
const fallbackDisplayName = "Valued Customer"

// TicketOps is the slice of TicketService behavior the triage flow needs.
type TicketOps interface {
	// Create opens a new ticket.
	Create(ctx context.Context, in CreateTicketInput) (*domain.Ticket, error)
	// Get fetches a ticket by id.
	Get(ctx context.Context, ticketID string) (*domain.Ticket, error)
}

// TriageResult is the outcome envelope for a processed customer message.
type TriageResult struct {
	// OriginalMessage echoes the input text.
	OriginalMessage string `json:"original_message"`
	// Classification is the label assigned by the classifier.
	Classification triage.Classification `json:"classification"`
	// HandledBy names the flow that produced the reply.
	HandledBy string `json:"handled_by"`
	// Reply is the human-facing response text.
	Reply string `json:"reply"`
	// TicketID is set when a ticket was created or referenced.
	TicketID string `json:"ticket_id,omitempty"`
	// Found reports, for queries, whether the referenced ticket exists.
	Found bool `json:"found"`
}

// TriageService coordinates classification, ticket creation, and status
// lookups for incoming customer messages.
type TriageService struct {
	// Tickets performs ticket persistence for the feedback and query flows.
	Tickets TicketOps
	// Classifier assigns a Classification to each message.
	Classifier *triage.Classifier

	titleCaser cases.Caser
}

// NewTriageService constructs a TriageService with a default classifier.
func NewTriageService(tickets TicketOps) *TriageService {
	return &TriageService{
		Tickets:    tickets,
		Classifier: triage.NewClassifier(),
		titleCaser: cases.Title(language.English),
	}
}

// Process classifies a customer message and executes the matching flow.
//
// Outcomes:
//   - Positive feedback: a thank-you reply; no ticket is created.
//   - Negative feedback: a new Open ticket carrying the message, customer
//     name, and correlation id; the reply references the ticket id.
//   - Query: the first 6-digit sequence in the text is treated as a ticket
//     id and its status reported; distinct replies cover "no id in message"
//     and "unknown id".
//
// An empty message yields ErrEmptyMessage. Ticket-store failures from the
// negative-feedback path are propagated.
func (s *TriageService) Process(ctx context.Context, message string, customerName, correlationID *string) (*TriageResult, error) {
	tr := otel.Tracer("services/TriageService")
	ctx, span := tr.Start(ctx, "Process")
	defer span.End()

	msg := strings.TrimSpace(message)
	if msg == "" {
		return nil, ErrEmptyMessage
	}

	classification := s.Classifier.Classify(msg)
	span.SetAttributes(attribute.String("triage.classification", string(classification)))

	display := s.displayName(customerName)

	switch classification {
	case triage.PositiveFeedback:
		return &TriageResult{
			OriginalMessage: msg,
			Classification:  classification,
			HandledBy:       handledByFeedback,
			Reply: fmt.Sprintf(
				"Thank you for your kind feedback, %s! We really appreciate you taking the time to share this with us.",
				display),
		}, nil

	case triage.NegativeFeedback:
		t, err := s.Tickets.Create(ctx, CreateTicketInput{
			Message:       msg,
			CustomerName:  customerName,
			CorrelationID: correlationID,
		})
		if err != nil {
			return nil, err
		}
		span.SetAttributes(attribute.String("ticket.id", t.TicketID))
		return &TriageResult{
			OriginalMessage: msg,
			Classification:  classification,
			HandledBy:       handledByFeedback,
			TicketID:        t.TicketID,
			Reply: fmt.Sprintf(
				"We're really sorry to hear about your experience, %s. I've created a support ticket for you: #%s. Our team will review this and get back to you as soon as possible.",
				display, t.TicketID),
		}, nil
	}

	// Query path (also the fallback classification).
	ticketID, ok := triage.ExtractTicketID(msg)
	if !ok {
		return &TriageResult{
			OriginalMessage: msg,
			Classification:  classification,
			HandledBy:       handledByQuery,
			Reply:           "I couldn't find a ticket number in your message. Please share your 6-digit ticket ID so I can check the status for you.",
		}, nil
	}

	t, err := s.Tickets.Get(ctx, ticketID)
	if err != nil {
		if errors.Is(err, ErrTicketNotFound) {
			return &TriageResult{
				OriginalMessage: msg,
				Classification:  classification,
				HandledBy:       handledByQuery,
				TicketID:        ticketID,
				Reply: fmt.Sprintf(
					"I couldn't find any ticket with ID #%s. Please verify the number and try again.", ticketID),
			}, nil
		}
		return nil, err
	}

	return &TriageResult{
		OriginalMessage: msg,
		Classification:  classification,
		HandledBy:       handledByQuery,
		TicketID:        ticketID,
		Found:           true,
		Reply: fmt.Sprintf(
			"Your ticket #%s is currently marked as: %s.", ticketID, t.Status),
	}, nil
}

// displayName normalizes the customer name for replies, falling back to a
// neutral salutation when the customer is anonymous.
func (s *TriageService) displayName(customerName *string) string {
	if customerName == nil {
		return fallbackDisplayName
	}
	name := strings.TrimSpace(*customerName)
	if name == "" {
		return fallbackDisplayName
	}
	// Title-case fully lowercased names ("jane doe" → "Jane Doe"); names with
	// existing capitals are left as the customer wrote them.
	if name == strings.ToLower(name) {
		return s.titleCaser.String(name)
	}
	return name
}
