package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"queueflow/internal/auth"
)

type HandlerStore interface {
	ListForUser(ctx context.Context, userID int64) ([]Notification, error)
	MarkRead(ctx context.Context, userID, id int64) (bool, error)
	Delete(ctx context.Context, userID, id int64) (bool, error)
}

type Handler struct {
	Store HandlerStore
}

// List godoc
//
// @Summary      List the caller's notifications, newest first
// @Tags         Notifications
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} Notification
// @Router       /api/notifications [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	user := auth.FromContext(r.Context())

	list, err := h.Store.ListForUser(r.Context(), user.UserID)
	if err != nil {
		logrus.Errorf("list notifications: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}

// MarkRead godoc
//
// @Summary      Mark one notification as read
// @Tags         Notifications
// @Security     BearerAuth
// @Param        id path int true "Notification ID"
// @Success      200 {object} map[string]string
// @Failure      404 {string} string "not found"
// @Router       /api/notifications/{id}/read [post]
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, h.Store.MarkRead, "marked as read")
}

// Delete godoc
//
// @Summary      Delete one notification
// @Tags         Notifications
// @Security     BearerAuth
// @Param        id path int true "Notification ID"
// @Success      200 {object} map[string]string
// @Failure      404 {string} string "not found"
// @Router       /api/notifications/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, h.Store.Delete, "deleted")
}

// update runs an ownership-scoped mutation. A notification belonging to
// someone else is indistinguishable from a missing one.
func (h *Handler) update(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, userID, id int64) (bool, error),
	done string,
) {
	user := auth.FromContext(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid notification id", http.StatusBadRequest)
		return
	}

	ok, err := op(r.Context(), user.UserID, id)
	if err != nil {
		logrus.Errorf("notification update: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "notification not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "notification " + done})
}
