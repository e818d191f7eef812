package queue

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Machine-readable failure kinds surfaced to the API layer. Everything here
// is a bad request of some sort, never a reason to take the process down.
var (
	ErrUnauthenticated         = errors.New("unauthenticated")
	ErrAlreadyQueued           = errors.New("already_queued")
	ErrNoActiveEntry           = errors.New("no_active_entry")
	ErrServicePointUnavailable = errors.New("service_point_unavailable")
	ErrQueueEmpty              = errors.New("queue_empty")
	ErrEntryTerminal           = errors.New("entry_terminal")
	ErrNotFoundOrForbidden     = errors.New("not_found_or_forbidden")
	ErrValidation              = errors.New("validation_error")
	ErrConflict                = errors.New("conflict")
)

var errStatus = map[error]int{
	ErrUnauthenticated:         http.StatusUnauthorized,
	ErrAlreadyQueued:           http.StatusConflict,
	ErrNoActiveEntry:           http.StatusBadRequest,
	ErrServicePointUnavailable: http.StatusBadRequest,
	ErrQueueEmpty:              http.StatusBadRequest,
	ErrEntryTerminal:           http.StatusConflict,
	ErrNotFoundOrForbidden:     http.StatusNotFound,
	ErrValidation:              http.StatusUnprocessableEntity,
	ErrConflict:                http.StatusConflict,
}

var errMessage = map[error]string{
	ErrUnauthenticated:         "authentication required",
	ErrAlreadyQueued:           "you are already in this queue",
	ErrNoActiveEntry:           "no active queue entry found",
	ErrServicePointUnavailable: "service point is inactive, paused or full",
	ErrQueueEmpty:              "the queue is empty",
	ErrEntryTerminal:           "entry is already served or abandoned",
	ErrNotFoundOrForbidden:     "not found",
	ErrValidation:              "invalid input",
	ErrConflict:                "request lost a race with a concurrent change",
}

// WriteError maps an engine error to {"error": kind, "message": …}.
// Unknown errors become an opaque 500.
func WriteError(w http.ResponseWriter, err error) {
	for kind, status := range errStatus {
		if errors.Is(err, kind) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			json.NewEncoder(w).Encode(map[string]string{
				"error":   kind.Error(),
				"message": errMessage[kind],
			})
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   "internal",
		"message": "internal error",
	})
}
