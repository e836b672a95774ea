package service

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strconv"

	"rental/internal/config"
	"rental/internal/repository"
)

// EventCheckoutCompleted is the only provider event kind that drives a
// reservation transition. Everything else is acknowledged and ignored.
const EventCheckoutCompleted = "checkout.session.completed"

// ErrMalformedPayload is returned when a webhook body is not a parseable
// event. Grouped with signature failures at the boundary: both come back to
// the provider as a client error.
var ErrMalformedPayload = errors.New("malformed webhook payload")

// WebhookOutcome classifies how an inbound payment event was handled.
type WebhookOutcome string

const (
	// OutcomeApplied: the event resolved to a reservation and the PAID
	// transition was applied (or had already been applied — redelivery).
	OutcomeApplied WebhookOutcome = "applied"

	// OutcomeIgnored: the event was authentic but required no action —
	// wrong kind, unresolved reference, or a cancelled reservation.
	OutcomeIgnored WebhookOutcome = "ignored"

	// OutcomeRejected: bad signature or malformed payload. Nothing was
	// mutated.
	OutcomeRejected WebhookOutcome = "rejected"
)

// WebhookEvent is the provider's event envelope. The client reference id is
// the reservation id we embedded when the checkout session was created; it
// is a string-encoded integer and may be absent.
type WebhookEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID                string `json:"id"`
			ClientReferenceID string `json:"client_reference_id"`
		} `json:"object"`
	} `json:"data"`
}

// WebhookService reconciles asynchronous payment-provider events against
// reservations. Deliveries may be duplicated, reordered or forged; the
// service verifies authenticity first and applies transitions idempotently.
type WebhookService struct {
	reservations *ReservationService
	store        repository.ReservationRepository
	cfg          config.PaymentConfig
}

// NewWebhookService creates a new WebhookService.
func NewWebhookService(reservations *ReservationService, store repository.ReservationRepository, cfg config.PaymentConfig) *WebhookService {
	return &WebhookService{
		reservations: reservations,
		store:        store,
		cfg:          cfg,
	}
}

// HandleEvent verifies and applies one inbound payment event.
//
// Rejections (bad signature, malformed payload) never touch the store.
// Authentic events that match nothing are acknowledged without mutation so
// the provider stops redelivering them; only storage failures propagate as
// errors, which the boundary turns into a retryable server error.
func (s *WebhookService) HandleEvent(ctx context.Context, payload []byte, sigHeader string) (WebhookOutcome, error) {
	if err := verifySignature(payload, sigHeader, s.cfg.WebhookSecret, s.cfg.SignatureTolerance); err != nil {
		return OutcomeRejected, err
	}

	var event WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return OutcomeRejected, ErrMalformedPayload
	}

	if event.Type != EventCheckoutCompleted {
		return OutcomeIgnored, nil
	}

	id, resolved, err := s.resolve(ctx, &event)
	if err != nil {
		return OutcomeIgnored, err
	}
	if !resolved {
		log.Printf("webhook: unmatched checkout event: event_id=%s session_id=%s reference=%q",
			event.ID, event.Data.Object.ID, event.Data.Object.ClientReferenceID)
		return OutcomeIgnored, nil
	}

	if _, err := s.reservations.MarkPaid(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			// Resolved a moment ago, gone now (admin delete racing the
			// webhook). Benign; acknowledge.
			log.Printf("webhook: reservation vanished before transition: reservation_id=%d event_id=%s", id, event.ID)
			return OutcomeIgnored, nil
		case errors.Is(err, ErrReservationCancelled):
			log.Printf("webhook: payment for cancelled reservation dropped: reservation_id=%d event_id=%s", id, event.ID)
			return OutcomeIgnored, nil
		default:
			return OutcomeIgnored, err
		}
	}

	return OutcomeApplied, nil
}

// resolve maps an event to a reservation id, trying each strategy in order:
// the embedded client reference id first, then the provider session id.
func (s *WebhookService) resolve(ctx context.Context, event *WebhookEvent) (int64, bool, error) {
	if ref := event.Data.Object.ClientReferenceID; ref != "" {
		if id, err := strconv.ParseInt(ref, 10, 64); err == nil && id > 0 {
			if _, err := s.store.GetByID(ctx, id); err == nil {
				return id, true, nil
			} else if !errors.Is(err, repository.ErrNotFound) {
				return 0, false, err
			}
		}
	}

	if sessionID := event.Data.Object.ID; sessionID != "" {
		reservation, err := s.store.FindBySessionID(ctx, sessionID)
		if err == nil {
			return reservation.ID, true, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return 0, false, err
		}
	}

	return 0, false, nil
}
