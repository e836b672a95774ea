package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"rental/internal/service"
)

// signatureHeader carries the provider's HMAC signature on webhook
// deliveries. It is the only required header besides the body itself.
const signatureHeader = "Payment-Signature"

// PaymentHandler handles HTTP requests for checkout and webhook delivery.
type PaymentHandler struct {
	checkoutService *service.CheckoutService
	webhookService  *service.WebhookService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(checkoutService *service.CheckoutService, webhookService *service.WebhookService) *PaymentHandler {
	return &PaymentHandler{
		checkoutService: checkoutService,
		webhookService:  webhookService,
	}
}

// CheckoutRequest is the HTTP request body for starting checkout.
type CheckoutRequest struct {
	ReservationID int64  `json:"reservation_id"`
	Description   string `json:"description,omitempty"`
}

// CheckoutResponse is the HTTP response carrying the provider redirect URL.
type CheckoutResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// CreateCheckout handles POST /v1/payments/checkout
func (h *PaymentHandler) CreateCheckout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	result, err := h.checkoutService.CreateCheckout(c.Request.Context(), service.CheckoutRequest{
		ReservationID: req.ReservationID,
		Description:   req.Description,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, CheckoutResponse{
		SessionID: result.SessionID,
		URL:       result.RedirectURL,
	})
}

// HandleWebhook handles POST /v1/payments/webhook
//
// Rejected events (bad signature, malformed body) come back as a client
// error so the provider surfaces them; authentic events are always
// acknowledged with 200, applied or not, so benign unmatched deliveries are
// not redelivered forever.
func (h *PaymentHandler) HandleWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unreadable body"})
		return
	}

	outcome, err := h.webhookService.HandleEvent(c.Request.Context(), payload, c.GetHeader(signatureHeader))
	if outcome == service.OutcomeRejected {
		respondError(c, err)
		return
	}
	if err != nil {
		// Storage failure: let the provider retry.
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "event not processed"})
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"outcome": string(outcome)})
}
