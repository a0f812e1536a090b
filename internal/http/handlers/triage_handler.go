// Triage HTTP handlers.
//
// This file exposes the message triage endpoint:
//   - POST /triage   (classify a customer message and run the matching flow)
//
// The handler is transport-thin: it validates the payload and delegates to
// TriageService, which classifies the message as positive feedback, negative
// feedback, or a status query, opening or looking up tickets as needed.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-support-backend/internal/services"
)

// TriageRequest is the JSON payload for triaging a raw customer message.
type TriageRequest struct {
	// Message is the customer's free-form text. Required.
	Message string `json:"message" binding:"required,min=1" example:"I am unhappy, my order never arrived"`
	// CustomerName optionally names the customer for personalized replies.
	CustomerName *string `json:"customer_name,omitempty" example:"Alice Smith"`
	// CorrelationID optionally links a resulting ticket to an upstream conversation.
	CorrelationID *string `json:"correlation_id,omitempty" example:"conv-2041"`
}

// PostTriage godoc
// @ID          postTriage
// @Summary     Triage a customer message
// @Description Classifies the message and executes the matching flow: positive
// @Description feedback gets a thank-you, negative feedback opens a ticket, and
// @Description status queries report on the referenced ticket.
// @Tags        Triage
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.TriageRequest  true  "Message to triage"
//
// @Success     200  {object}  services.TriageResult
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /triage [post]
func (h *Handlers) PostTriage(c *gin.Context) {
	var req TriageRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message required")
		return
	}

	res, err := h.triageSvc.Process(c.Request.Context(), req.Message, req.CustomerName, req.CorrelationID)
	if err != nil {
		switch err {
		case services.ErrEmptyMessage:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message required")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeTriageFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, res)
}
