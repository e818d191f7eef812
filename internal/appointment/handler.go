package appointment

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"queueflow/internal/auth"
	"queueflow/internal/servicepoint"
)

type Handler struct {
	Store  *Store
	Points *servicepoint.Store
}

type CreateRequest struct {
	ServicePointID int64  `json:"service_point_id"`
	ServiceTypeID  *int64 `json:"service_type_id,omitempty"`
	Date           string `json:"appointment_date"`
	Time           string `json:"appointment_time"`
	Notes          string `json:"notes"`
}

// Create godoc
//
// @Summary      Book an appointment slot
// @Description  Only service points with supports_appointments accept bookings
// @Tags         Appointments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        appointment body CreateRequest true "Slot"
// @Success      201 {object} Appointment
// @Failure      422 {string} string "validation error"
// @Router       /api/queues/appointments/create [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	user := auth.FromContext(r.Context())

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	if err := ValidateSlot(req.Date, req.Time, time.Now()); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	sp, err := h.Points.Get(r.Context(), req.ServicePointID)
	if err != nil {
		if errors.Is(err, servicepoint.ErrNotFound) {
			http.Error(w, "service point not found", http.StatusNotFound)
			return
		}
		logrus.Errorf("appointment lookup: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !sp.SupportsAppointments {
		http.Error(w, ErrNotSupported.Error(), http.StatusUnprocessableEntity)
		return
	}

	a := &Appointment{
		UserID:         user.UserID,
		ServicePointID: sp.ID,
		ServiceTypeID:  req.ServiceTypeID,
		Date:           req.Date,
		Time:           req.Time,
		Notes:          req.Notes,
	}
	if err := h.Store.Insert(r.Context(), a); err != nil {
		logrus.Errorf("appointment insert: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(a)
}

// List godoc
//
// @Summary      List the caller's appointments
// @Tags         Appointments
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} Appointment
// @Router       /api/queues/appointments [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	user := auth.FromContext(r.Context())

	list, err := h.Store.ListForUser(r.Context(), user.UserID)
	if err != nil {
		logrus.Errorf("list appointments: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}
