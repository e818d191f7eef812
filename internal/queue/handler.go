package queue

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"queueflow/internal/auth"
)

type Handler struct {
	Engine *Engine
}

type LeaveRequest struct {
	ServicePointID int64 `json:"service_point_id,omitempty"`
	QueueEntryID   int64 `json:"queue_entry_id,omitempty"`
}

type CallNextRequest struct {
	ServicePointID int64 `json:"service_point_id"`
}

type MarkServedRequest struct {
	QueueEntryID int64 `json:"queue_entry_id"`
}

// Join godoc
//
// @Summary      Join a queue
// @Tags         Queues
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body JoinRequest true "Target service point"
// @Success      201 {object} JoinResult
// @Failure      400 {object} map[string]string "service point unavailable"
// @Failure      409 {object} map[string]string "already queued"
// @Router       /api/queues/join [post]
func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	user := auth.FromContext(r.Context())

	var req JoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, ErrValidation)
		return
	}

	res, err := h.Engine.Join(r.Context(), user.UserID, req)
	if err != nil {
		logrus.Debugf("join sp=%d user=%d: %v", req.ServicePointID, user.UserID, err)
		WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(res)
}

// Leave godoc
//
// @Summary      Leave a queue
// @Tags         Queues
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body LeaveRequest true "Service point or entry"
// @Success      200 {object} map[string]string
// @Failure      400 {object} map[string]string "no active entry"
// @Router       /api/queues/leave [post]
func (h *Handler) Leave(w http.ResponseWriter, r *http.Request) {
	user := auth.FromContext(r.Context())

	var req LeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, ErrValidation)
		return
	}

	if err := h.Engine.Leave(r.Context(), user.UserID, req.ServicePointID, req.QueueEntryID); err != nil {
		WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "left the queue"})
}

// CallNext godoc
//
// @Summary      Call the next entry
// @Description  Staff only. Priority entries first, then earliest ticket.
// @Tags         Staff
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CallNextRequest true "Service point"
// @Success      200 {object} Entry
// @Failure      400 {object} map[string]string "queue empty"
// @Router       /api/queues/call-next [post]
func (h *Handler) CallNext(w http.ResponseWriter, r *http.Request) {
	user := auth.FromContext(r.Context())

	var req CallNextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, ErrValidation)
		return
	}

	entry, err := h.Engine.CallNext(r.Context(), req.ServicePointID, user.OrgType)
	if err != nil {
		WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entry)
}

// MarkServed godoc
//
// @Summary      Mark a called entry as served
// @Tags         Staff
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body MarkServedRequest true "Entry"
// @Success      200 {object} Entry
// @Failure      409 {object} map[string]string "entry terminal"
// @Router       /api/queues/mark-served [post]
func (h *Handler) MarkServed(w http.ResponseWriter, r *http.Request) {
	var req MarkServedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, ErrValidation)
		return
	}

	entry, err := h.Engine.MarkServed(r.Context(), req.QueueEntryID)
	if err != nil {
		WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entry)
}

// MyPosition godoc
//
// @Summary      My active queue position
// @Tags         Queues
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} PositionResult
// @Failure      400 {object} map[string]string "no active entry"
// @Router       /api/queues/my-position [get]
func (h *Handler) MyPosition(w http.ResponseWriter, r *http.Request) {
	user := auth.FromContext(r.Context())

	res, err := h.Engine.MyPosition(r.Context(), user.UserID)
	if err != nil {
		WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}

// MyQueues godoc
//
// @Summary      All my active queue entries
// @Tags         Queues
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} PositionResult
// @Router       /api/queues/my-queues [get]
func (h *Handler) MyQueues(w http.ResponseWriter, r *http.Request) {
	user := auth.FromContext(r.Context())

	res, err := h.Engine.MyQueues(r.Context(), user.UserID)
	if err != nil {
		WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}

// History godoc
//
// @Summary      My served and abandoned entries
// @Tags         Queues
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} Entry
// @Router       /api/queues/history [get]
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	user := auth.FromContext(r.Context())

	entries, err := h.Engine.History(r.Context(), user.UserID)
	if err != nil {
		WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}

// DeleteServicePoint godoc
//
// @Summary      Delete a service point
// @Description  Staff only. Active entries are abandoned and notified, the
// @Description  channel gets a deleted event, then the record is removed.
// @Tags         Staff
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Service point ID"
// @Success      200 {object} map[string]string
// @Failure      404 {object} map[string]string
// @Router       /api/queues/delete-service-point/{id} [delete]
func (h *Handler) DeleteServicePoint(w http.ResponseWriter, r *http.Request) {
	user := auth.FromContext(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		WriteError(w, ErrValidation)
		return
	}

	if err := h.Engine.DeleteServicePoint(r.Context(), id, user.OrgType); err != nil {
		WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "service point deleted"})
}

// DeleteAllServicePoints godoc
//
// @Summary      Delete all service points of the caller's organization
// @Tags         Staff
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} map[string]int
// @Router       /api/queues/delete-all-service-points [delete]
func (h *Handler) DeleteAllServicePoints(w http.ResponseWriter, r *http.Request) {
	user := auth.FromContext(r.Context())

	deleted, err := h.Engine.DeleteAllForOrg(r.Context(), user.OrgType)
	if err != nil {
		logrus.Errorf("delete-all for org %q: %v", user.OrgType, err)
		WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"deleted": deleted})
}
