package servicepoint

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"queueflow/internal/auth"
)

type HandlerStore interface {
	List(ctx context.Context) ([]ServicePoint, error)
	Create(ctx context.Context, sp *ServicePoint, createdBy int64) error
	SetPaused(ctx context.Context, id int64, paused bool, orgType string) error
	ServiceTypes(ctx context.Context, servicePointID int64) ([]ServiceType, error)
}

type Handler struct {
	Store HandlerStore
}

type CreateRequest struct {
	Name                 string   `json:"name"`
	Description          string   `json:"description"`
	Location             string   `json:"location"`
	Latitude             *float64 `json:"latitude,omitempty"`
	Longitude            *float64 `json:"longitude,omitempty"`
	MapURL               *string  `json:"map_url,omitempty"`
	MaxQueueLength       int      `json:"max_queue_length"`
	SupportsPriority     bool     `json:"supports_priority"`
	SupportsAppointments bool     `json:"supports_appointments"`
}

// List godoc
//
// @Summary      List active service points
// @Description  Includes derived queue_length and capability flags
// @Tags         Queues
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} ServicePoint
// @Router       /api/queues/service-points [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	points, err := h.Store.List(r.Context())
	if err != nil {
		logrus.Errorf("list service points: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(points)
}

// PublicList godoc
//
// @Summary      List active service points without authentication
// @Tags         Queues
// @Produce      json
// @Success      200 {array} ServicePoint
// @Router       /api/queues/public-service-points [get]
func (h *Handler) PublicList(w http.ResponseWriter, r *http.Request) {
	h.List(w, r)
}

// Create godoc
//
// @Summary      Create a service point
// @Description  Staff only. organization_type is inherited from the caller.
// @Tags         Staff
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        point body CreateRequest true "Service point"
// @Success      201 {object} ServicePoint
// @Failure      422 {string} string "validation error"
// @Router       /api/queues/create-service-point [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	user := auth.FromContext(r.Context())

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	if req.Name == "" {
		http.Error(w, "name is required", http.StatusUnprocessableEntity)
		return
	}
	if req.MaxQueueLength <= 0 {
		req.MaxQueueLength = 50
	}

	orgType := user.OrgType
	if !ValidOrgType(orgType) {
		orgType = OrgGeneric
	}

	sp := &ServicePoint{
		Name:                 req.Name,
		Description:          req.Description,
		Location:             req.Location,
		Latitude:             req.Latitude,
		Longitude:            req.Longitude,
		MapURL:               req.MapURL,
		OrganizationType:     orgType,
		MaxQueueLength:       req.MaxQueueLength,
		SupportsPriority:     req.SupportsPriority,
		SupportsAppointments: req.SupportsAppointments,
		ServiceTypes:         []ServiceType{},
	}

	if err := h.Store.Create(r.Context(), sp, user.UserID); err != nil {
		logrus.Errorf("create service point: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	logrus.Infof("service point created: %q (id=%d) by %s", sp.Name, sp.ID, user.Username)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(sp)
}

// Pause godoc
//
// @Summary      Pause a service point
// @Description  Paused points refuse new joins; leave and call-next still work.
// @Description  Only points of the caller's organization can be paused.
// @Tags         Staff
// @Security     BearerAuth
// @Param        id path int true "Service point ID"
// @Success      200 {object} map[string]string
// @Failure      404 {string} string "not found"
// @Router       /api/queues/service-points/{id}/pause [post]
func (h *Handler) Pause(w http.ResponseWriter, r *http.Request) {
	h.setPaused(w, r, true)
}

// Resume godoc
//
// @Summary      Resume a paused service point
// @Description  Only points of the caller's organization can be resumed.
// @Tags         Staff
// @Security     BearerAuth
// @Param        id path int true "Service point ID"
// @Success      200 {object} map[string]string
// @Failure      404 {string} string "not found"
// @Router       /api/queues/service-points/{id}/resume [post]
func (h *Handler) Resume(w http.ResponseWriter, r *http.Request) {
	h.setPaused(w, r, false)
}

func (h *Handler) setPaused(w http.ResponseWriter, r *http.Request, paused bool) {
	user := auth.FromContext(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid service point id", http.StatusBadRequest)
		return
	}

	orgType := user.OrgType
	if !ValidOrgType(orgType) {
		orgType = OrgGeneric
	}

	if err := h.Store.SetPaused(r.Context(), id, paused, orgType); err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "service point not found", http.StatusNotFound)
			return
		}
		logrus.Errorf("set paused: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	state := "resumed"
	if paused {
		state = "paused"
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "service point " + state})
}

// ServiceTypes godoc
//
// @Summary      List service types for a service point
// @Tags         Queues
// @Produce      json
// @Security     BearerAuth
// @Param        service_point_id query int true "Service point ID"
// @Success      200 {array} ServiceType
// @Router       /api/queues/service-types [get]
func (h *Handler) ServiceTypes(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.URL.Query().Get("service_point_id"), 10, 64)
	if err != nil {
		http.Error(w, "service_point_id required", http.StatusBadRequest)
		return
	}

	types, err := h.Store.ServiceTypes(r.Context(), id)
	if err != nil {
		logrus.Errorf("list service types: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(types)
}
