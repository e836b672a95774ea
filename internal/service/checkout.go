package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"rental/internal/config"
)

// PaymentGateway is the interface to the external checkout provider.
// Creating a session is an opaque call: the provider returns a session
// handle and a URL the client is redirected to.
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (*CheckoutSession, error)
}

// CheckoutSessionRequest carries what the provider needs to build a session.
// ReferenceID is echoed back in webhook events as the client reference and is
// the reconciler's primary resolution key.
type CheckoutSessionRequest struct {
	ReferenceID string
	Amount      float64
	Currency    string
	Description string
	SuccessURL  string
	CancelURL   string
}

// CheckoutSession is the provider's handle for a created session.
type CheckoutSession struct {
	ID          string
	RedirectURL string
}

// MockPaymentGateway is a stand-in provider for local runs and tests.
type MockPaymentGateway struct{}

// NewMockPaymentGateway creates a new mock gateway.
func NewMockPaymentGateway() *MockPaymentGateway {
	return &MockPaymentGateway{}
}

// CreateCheckoutSession fabricates a session. Always succeeds.
func (g *MockPaymentGateway) CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (*CheckoutSession, error) {
	id := "cs_mock_" + uuid.New().String()
	return &CheckoutSession{
		ID:          id,
		RedirectURL: fmt.Sprintf("https://checkout.example.com/pay/%s", id),
	}, nil
}

// CheckoutService starts payment for a reservation: it obtains a session from
// the provider and binds the session id to the reservation.
type CheckoutService struct {
	reservations *ReservationService
	gateway      PaymentGateway
	cfg          config.PaymentConfig
}

// NewCheckoutService creates a new CheckoutService.
func NewCheckoutService(reservations *ReservationService, gateway PaymentGateway, cfg config.PaymentConfig) *CheckoutService {
	return &CheckoutService{
		reservations: reservations,
		gateway:      gateway,
		cfg:          cfg,
	}
}

// CheckoutRequest contains the parameters for starting checkout.
type CheckoutRequest struct {
	ReservationID int64
	Description   string
}

// CheckoutResponse contains the created session and redirect URL.
type CheckoutResponse struct {
	SessionID   string
	RedirectURL string
}

// CreateCheckout creates a checkout session for a reservation.
//
// The session id must be bound to the reservation before the redirect URL is
// handed back: once the caller is redirected, the webhook may arrive at any
// moment and the session-id fallback lookup has to work.
func (s *CheckoutService) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutResponse, error) {
	reservation, err := s.reservations.GetReservation(ctx, req.ReservationID)
	if err != nil {
		return nil, err
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, CheckoutSessionRequest{
		ReferenceID: fmt.Sprintf("%d", reservation.ID),
		Amount:      reservation.Cost,
		Currency:    s.cfg.Currency,
		Description: req.Description,
		SuccessURL:  s.cfg.CheckoutSuccessURL,
		CancelURL:   s.cfg.CheckoutCancelURL,
	})
	if err != nil {
		return nil, err
	}

	if err := s.reservations.BindPaymentSession(ctx, reservation.ID, session.ID); err != nil {
		return nil, err
	}

	return &CheckoutResponse{
		SessionID:   session.ID,
		RedirectURL: session.RedirectURL,
	}, nil
}
