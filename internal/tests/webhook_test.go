package tests

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"rental/internal/config"
	"rental/internal/domain"
	"rental/internal/service"
)

// ──────────────────────────────────────────────
// 3. PAYMENT WEBHOOK RECONCILIATION
// ──────────────────────────────────────────────

const webhookTestSecret = "whsec_test_secret"

func newWebhookFixture() (*MockReservationRepository, *service.WebhookService) {
	repo := NewMockReservationRepository()
	reservations := service.NewReservationService(repo, NewMockVehicleCatalog(), nil, nil)
	cfg := config.PaymentConfig{
		WebhookSecret:      webhookTestSecret,
		SignatureTolerance: 5 * time.Minute,
	}
	return repo, service.NewWebhookService(reservations, repo, cfg)
}

func seedPendingWithSession(repo *MockReservationRepository, sessionID string) *domain.Reservation {
	res := &domain.Reservation{
		ClientID: 10, VehicleID: 1,
		StartDate:        date(2025, time.July, 1),
		EndDate:          date(2025, time.July, 3),
		Cost:             300,
		Status:           domain.ReservationStatusPending,
		PaymentSessionID: sessionID,
	}
	repo.AddReservation(res)
	return res
}

func checkoutCompletedPayload(sessionID, clientReference string) []byte {
	return []byte(fmt.Sprintf(
		`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"id":%q,"client_reference_id":%q}}}`,
		sessionID, clientReference,
	))
}

func signedHeader(payload []byte) string {
	return service.SignPayload(payload, time.Now(), webhookTestSecret)
}

func TestWebhook_ValidEvent_MarksPaid(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	repo, svc := newWebhookFixture()
	seeded := seedPendingWithSession(repo, "sess_abc")

	payload := checkoutCompletedPayload("sess_abc", fmt.Sprintf("%d", seeded.ID))
	outcome, err := svc.HandleEvent(ctx, payload, signedHeader(payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != service.OutcomeApplied {
		t.Errorf("expected applied, got %s", outcome)
	}
	if repo.GetReservation(seeded.ID).Status != domain.ReservationStatusPaid {
		t.Error("expected reservation marked PAID")
	}
}

func TestWebhook_InvalidSignature_NeverMutates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	repo, svc := newWebhookFixture()
	seeded := seedPendingWithSession(repo, "sess_abc")
	payload := checkoutCompletedPayload("sess_abc", fmt.Sprintf("%d", seeded.ID))

	testCases := []struct {
		name   string
		header string
	}{
		{
			name:   "wrong secret",
			header: service.SignPayload(payload, time.Now(), "whsec_other"),
		},
		{
			name:   "tampered payload",
			header: service.SignPayload([]byte(`{"forged":true}`), time.Now(), webhookTestSecret),
		},
		{
			name:   "stale timestamp",
			header: service.SignPayload(payload, time.Now().Add(-time.Hour), webhookTestSecret),
		},
		{
			name:   "future timestamp",
			header: service.SignPayload(payload, time.Now().Add(time.Hour), webhookTestSecret),
		},
		{
			name:   "garbage header",
			header: "not-a-signature",
		},
		{
			name:   "empty header",
			header: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			outcome, err := svc.HandleEvent(ctx, payload, tc.header)
			if outcome != service.OutcomeRejected {
				t.Errorf("expected rejected, got %s", outcome)
			}
			if !errors.Is(err, service.ErrInvalidSignature) {
				t.Errorf("expected ErrInvalidSignature, got %v", err)
			}
		})
	}

	if repo.GetReservation(seeded.ID).Status != domain.ReservationStatusPending {
		t.Error("unauthenticated events must not change reservation state")
	}
}

func TestWebhook_RotatedSecret_SecondSignatureAccepted(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	repo, svc := newWebhookFixture()
	seeded := seedPendingWithSession(repo, "sess_abc")
	payload := checkoutCompletedPayload("sess_abc", fmt.Sprintf("%d", seeded.ID))

	// During rotation the provider sends old and new signatures together.
	now := time.Now()
	stale := service.SignPayload(payload, now, "whsec_retired")
	valid := service.SignPayload(payload, now, webhookTestSecret)
	header := stale + "," + strings.TrimPrefix(valid, fmt.Sprintf("t=%d,", now.Unix()))

	outcome, err := svc.HandleEvent(ctx, payload, header)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != service.OutcomeApplied {
		t.Errorf("expected applied, got %s", outcome)
	}
}

func TestWebhook_MalformedPayload_Rejected(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	_, svc := newWebhookFixture()
	payload := []byte(`{"type": "checkout.session.completed", "data": `)

	outcome, err := svc.HandleEvent(ctx, payload, signedHeader(payload))
	if outcome != service.OutcomeRejected {
		t.Errorf("expected rejected, got %s", outcome)
	}
	if !errors.Is(err, service.ErrMalformedPayload) {
		t.Errorf("expected ErrMalformedPayload, got %v", err)
	}
}

func TestWebhook_OtherEventKinds_Ignored(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	repo, svc := newWebhookFixture()
	seeded := seedPendingWithSession(repo, "sess_abc")

	payload := []byte(fmt.Sprintf(
		`{"id":"evt_2","type":"payment_intent.created","data":{"object":{"id":"sess_abc","client_reference_id":"%d"}}}`,
		seeded.ID,
	))
	outcome, err := svc.HandleEvent(ctx, payload, signedHeader(payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != service.OutcomeIgnored {
		t.Errorf("expected ignored, got %s", outcome)
	}
	if repo.GetReservation(seeded.ID).Status != domain.ReservationStatusPending {
		t.Error("non-checkout events must not change reservation state")
	}
}

func TestWebhook_FallsBackToSessionID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	repo, svc := newWebhookFixture()
	seeded := seedPendingWithSession(repo, "sess_fallback")

	// No client reference in the event; only the session id matches.
	payload := checkoutCompletedPayload("sess_fallback", "")
	outcome, err := svc.HandleEvent(ctx, payload, signedHeader(payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != service.OutcomeApplied {
		t.Errorf("expected applied, got %s", outcome)
	}
	if repo.GetReservation(seeded.ID).Status != domain.ReservationStatusPaid {
		t.Error("expected session-id fallback to resolve the reservation")
	}
}

func TestWebhook_BadReference_FallsBackToSessionID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	repo, svc := newWebhookFixture()
	seeded := seedPendingWithSession(repo, "sess_abc")

	// Reference points at a reservation that no longer exists; the session id
	// still resolves.
	payload := checkoutCompletedPayload("sess_abc", "99999")
	outcome, err := svc.HandleEvent(ctx, payload, signedHeader(payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != service.OutcomeApplied {
		t.Errorf("expected applied, got %s", outcome)
	}
	if repo.GetReservation(seeded.ID).Status != domain.ReservationStatusPaid {
		t.Error("expected fallback resolution to apply the payment")
	}
}

func TestWebhook_UnmatchedEvent_AcknowledgedWithoutMutation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	repo, svc := newWebhookFixture()
	seeded := seedPendingWithSession(repo, "sess_abc")

	payload := checkoutCompletedPayload("sess_unknown", "99999")
	outcome, err := svc.HandleEvent(ctx, payload, signedHeader(payload))
	if err != nil {
		t.Fatalf("unmatched events must not error: %v", err)
	}
	if outcome != service.OutcomeIgnored {
		t.Errorf("expected ignored, got %s", outcome)
	}
	if repo.GetReservation(seeded.ID).Status != domain.ReservationStatusPending {
		t.Error("unmatched events must not change any reservation")
	}
}

func TestWebhook_Redelivery_Idempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	repo, svc := newWebhookFixture()
	seeded := seedPendingWithSession(repo, "sess_abc")
	payload := checkoutCompletedPayload("sess_abc", fmt.Sprintf("%d", seeded.ID))

	for i := 0; i < 3; i++ {
		outcome, err := svc.HandleEvent(ctx, payload, signedHeader(payload))
		if err != nil {
			t.Fatalf("delivery %d failed: %v", i+1, err)
		}
		if outcome != service.OutcomeApplied {
			t.Errorf("delivery %d: expected applied, got %s", i+1, outcome)
		}
	}

	if repo.GetReservation(seeded.ID).Status != domain.ReservationStatusPaid {
		t.Error("expected reservation to remain PAID across redeliveries")
	}
	// One status write for the first delivery, none after.
	if repo.UpdateStatusCallCount != 1 {
		t.Errorf("expected one status write, got %d", repo.UpdateStatusCallCount)
	}
}

func TestWebhook_CancelledReservation_PaymentDropped(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	repo, svc := newWebhookFixture()
	seeded := seedPendingWithSession(repo, "sess_abc")
	seeded.Status = domain.ReservationStatusCancelled

	payload := checkoutCompletedPayload("sess_abc", fmt.Sprintf("%d", seeded.ID))
	outcome, err := svc.HandleEvent(ctx, payload, signedHeader(payload))
	if err != nil {
		t.Fatalf("late payment for cancelled booking must be acknowledged: %v", err)
	}
	if outcome != service.OutcomeIgnored {
		t.Errorf("expected ignored, got %s", outcome)
	}
	if repo.GetReservation(seeded.ID).Status != domain.ReservationStatusCancelled {
		t.Error("cancelled reservation must not be revived by a webhook")
	}
}

func TestWebhook_StorageFailure_Propagates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	repo, svc := newWebhookFixture()
	seeded := seedPendingWithSession(repo, "sess_abc")
	repo.UpdateStatusError = errors.New("connection reset")

	payload := checkoutCompletedPayload("sess_abc", fmt.Sprintf("%d", seeded.ID))
	outcome, err := svc.HandleEvent(ctx, payload, signedHeader(payload))
	if err == nil {
		t.Fatal("expected storage failure to propagate so the provider retries")
	}
	if outcome == service.OutcomeApplied {
		t.Error("failed transition must not report applied")
	}
}
