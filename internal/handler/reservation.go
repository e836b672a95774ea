package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"rental/internal/domain"
	"rental/internal/middleware"
	"rental/internal/service"
)

const dateLayout = "2006-01-02"

// ReservationHandler handles HTTP requests for reservations.
type ReservationHandler struct {
	reservationService *service.ReservationService
}

// NewReservationHandler creates a new ReservationHandler.
func NewReservationHandler(reservationService *service.ReservationService) *ReservationHandler {
	return &ReservationHandler{reservationService: reservationService}
}

// CreateReservationRequest is the HTTP request body for booking a vehicle.
// The owning client is taken from the caller identity, never from the body.
type CreateReservationRequest struct {
	VehicleID int64   `json:"vehicle_id"`
	StartDate string  `json:"start_date"`
	EndDate   string  `json:"end_date"`
	Cost      float64 `json:"cost"`
}

// UpdateReservationRequest is the HTTP request body for the administrative
// full-record override.
type UpdateReservationRequest struct {
	ClientID         int64   `json:"client_id"`
	VehicleID        int64   `json:"vehicle_id"`
	StartDate        string  `json:"start_date"`
	EndDate          string  `json:"end_date"`
	Cost             float64 `json:"cost"`
	Status           string  `json:"status"`
	PaymentSessionID string  `json:"payment_session_id,omitempty"`
}

// ReservationResponse is the HTTP representation of a reservation.
type ReservationResponse struct {
	ID               int64   `json:"id"`
	ClientID         int64   `json:"client_id"`
	VehicleID        int64   `json:"vehicle_id"`
	StartDate        string  `json:"start_date"`
	EndDate          string  `json:"end_date"`
	Cost             float64 `json:"cost"`
	Status           string  `json:"status"`
	PaymentSessionID string  `json:"payment_session_id,omitempty"`
}

func toReservationResponse(r *domain.Reservation) ReservationResponse {
	return ReservationResponse{
		ID:               r.ID,
		ClientID:         r.ClientID,
		VehicleID:        r.VehicleID,
		StartDate:        r.StartDate.Format(dateLayout),
		EndDate:          r.EndDate.Format(dateLayout),
		Cost:             r.Cost,
		Status:           string(r.Status),
		PaymentSessionID: r.PaymentSessionID,
	}
}

// Create handles POST /v1/reservations
func (h *ReservationHandler) Create(c *gin.Context) {
	clientID, ok := middleware.ClientID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "missing caller identity"})
		return
	}

	var req CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	start, end, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: service.ErrInvalidDateRange.Error()})
		return
	}

	reservation, err := h.reservationService.CreateReservation(c.Request.Context(), service.CreateReservationRequest{
		ClientID:  clientID,
		VehicleID: req.VehicleID,
		StartDate: start,
		EndDate:   end,
		Cost:      req.Cost,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toReservationResponse(reservation))
}

// GetAll handles GET /v1/reservations (admin)
func (h *ReservationHandler) GetAll(c *gin.Context) {
	reservations, err := h.reservationService.ListReservations(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]ReservationResponse, 0, len(reservations))
	for _, r := range reservations {
		response = append(response, toReservationResponse(r))
	}

	respondJSON(c, http.StatusOK, response)
}

// Get handles GET /v1/reservations/:id (admin)
func (h *ReservationHandler) Get(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid reservation id"})
		return
	}

	reservation, err := h.reservationService.GetReservation(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toReservationResponse(reservation))
}

// GetMine handles GET /v1/reservations/my
func (h *ReservationHandler) GetMine(c *gin.Context) {
	clientID, ok := middleware.ClientID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "missing caller identity"})
		return
	}

	reservations, err := h.reservationService.ListClientReservations(c.Request.Context(), clientID)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]ReservationResponse, 0, len(reservations))
	for _, r := range reservations {
		response = append(response, toReservationResponse(r))
	}

	respondJSON(c, http.StatusOK, response)
}

// Update handles PUT /v1/reservations/:id (admin)
func (h *ReservationHandler) Update(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid reservation id"})
		return
	}

	var req UpdateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	start, end, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: service.ErrInvalidDateRange.Error()})
		return
	}

	reservation := &domain.Reservation{
		ID:               id,
		ClientID:         req.ClientID,
		VehicleID:        req.VehicleID,
		StartDate:        start,
		EndDate:          end,
		Cost:             req.Cost,
		Status:           domain.ReservationStatus(req.Status),
		PaymentSessionID: req.PaymentSessionID,
	}

	if err := h.reservationService.UpdateReservation(c.Request.Context(), reservation); err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toReservationResponse(reservation))
}

// Delete handles DELETE /v1/reservations/:id (admin)
func (h *ReservationHandler) Delete(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid reservation id"})
		return
	}

	if err := h.reservationService.DeleteReservation(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// PayManual handles POST /v1/reservations/:id/pay-manual (admin)
func (h *ReservationHandler) PayManual(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid reservation id"})
		return
	}

	reservation, err := h.reservationService.MarkManual(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toReservationResponse(reservation))
}

// Cancel handles POST /v1/reservations/:id/cancel (admin)
func (h *ReservationHandler) Cancel(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid reservation id"})
		return
	}

	reservation, err := h.reservationService.MarkCancelled(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toReservationResponse(reservation))
}

func parseID(c *gin.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}

// parseDateRange parses two calendar dates, normalized to UTC midnight.
// Range inversion is left to the service so the error taxonomy stays in one
// place.
func parseDateRange(startStr, endStr string) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(dateLayout, startStr, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := time.ParseInLocation(dateLayout, endStr, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}
