package tests

import (
	"context"
	"errors"
	"testing"

	"rental/internal/config"
	"rental/internal/repository"
	"rental/internal/service"
)

// ──────────────────────────────────────────────
// 4. CHECKOUT SESSION CREATION
// ──────────────────────────────────────────────

func newCheckoutFixture(gateway service.PaymentGateway) (*MockReservationRepository, *service.CheckoutService) {
	repo := NewMockReservationRepository()
	reservations := service.NewReservationService(repo, NewMockVehicleCatalog(), nil, nil)
	cfg := config.PaymentConfig{
		Currency:           "pln",
		CheckoutSuccessURL: "http://localhost:5173/success",
		CheckoutCancelURL:  "http://localhost:5173/cancel",
	}
	return repo, service.NewCheckoutService(reservations, gateway, cfg)
}

func TestCreateCheckout_BindsSessionBeforeReturning(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	gateway := NewMockPaymentGateway("sess_abc")
	repo, svc := newCheckoutFixture(gateway)
	seeded := seedPending(repo)

	resp, err := svc.CreateCheckout(ctx, service.CheckoutRequest{
		ReservationID: seeded.ID,
		Description:   "Vehicle rental",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.SessionID != "sess_abc" {
		t.Errorf("expected session id sess_abc, got %q", resp.SessionID)
	}
	if resp.RedirectURL == "" {
		t.Error("expected a redirect URL")
	}

	// The binding must already be in place when the URL is handed out, so a
	// webhook arriving right after the redirect can resolve by session id.
	if got := repo.GetReservation(seeded.ID).PaymentSessionID; got != "sess_abc" {
		t.Errorf("expected session bound to reservation, got %q", got)
	}
}

func TestCreateCheckout_ForwardsReservationDetails(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	gateway := NewMockPaymentGateway("sess_abc")
	repo, svc := newCheckoutFixture(gateway)
	seeded := seedPending(repo)

	if _, err := svc.CreateCheckout(ctx, service.CheckoutRequest{ReservationID: seeded.ID}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := gateway.LastRequest
	if req.ReferenceID != "1" {
		t.Errorf("expected reservation id as reference, got %q", req.ReferenceID)
	}
	if req.Amount != seeded.Cost {
		t.Errorf("expected amount %v, got %v", seeded.Cost, req.Amount)
	}
	if req.Currency != "pln" {
		t.Errorf("expected configured currency, got %q", req.Currency)
	}
}

func TestCreateCheckout_RetryRebindsSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	gateway := NewMockPaymentGateway("sess_first")
	repo, svc := newCheckoutFixture(gateway)
	seeded := seedPending(repo)

	if _, err := svc.CreateCheckout(ctx, service.CheckoutRequest{ReservationID: seeded.ID}); err != nil {
		t.Fatalf("first checkout failed: %v", err)
	}

	// Abandoned checkout, client starts over.
	gateway.SessionID = "sess_second"
	if _, err := svc.CreateCheckout(ctx, service.CheckoutRequest{ReservationID: seeded.ID}); err != nil {
		t.Fatalf("second checkout failed: %v", err)
	}

	if got := repo.GetReservation(seeded.ID).PaymentSessionID; got != "sess_second" {
		t.Errorf("expected latest session bound, got %q", got)
	}
}

func TestCreateCheckout_UnknownReservation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	gateway := NewMockPaymentGateway("sess_abc")
	_, svc := newCheckoutFixture(gateway)

	_, err := svc.CreateCheckout(ctx, service.CheckoutRequest{ReservationID: 999})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if gateway.CreateCallCount != 0 {
		t.Error("expected no provider call for a missing reservation")
	}
}

func TestCreateCheckout_GatewayFailure_NoBinding(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	gateway := NewMockPaymentGateway("sess_abc")
	gateway.FailError = errors.New("provider unavailable")
	repo, svc := newCheckoutFixture(gateway)
	seeded := seedPending(repo)

	if _, err := svc.CreateCheckout(ctx, service.CheckoutRequest{ReservationID: seeded.ID}); err == nil {
		t.Fatal("expected provider failure to propagate")
	}
	if got := repo.GetReservation(seeded.ID).PaymentSessionID; got != "" {
		t.Errorf("expected no session bound after provider failure, got %q", got)
	}
}

// Mock gateway sanity: the built-in stand-in provider issues unique sessions.
func TestMockGateway_IssuesUniqueSessions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	gateway := service.NewMockPaymentGateway()
	first, err := gateway.CreateCheckoutSession(ctx, service.CheckoutSessionRequest{ReferenceID: "1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := gateway.CreateCheckoutSession(ctx, service.CheckoutSessionRequest{ReferenceID: "1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.ID == second.ID {
		t.Error("expected distinct session ids")
	}
}
