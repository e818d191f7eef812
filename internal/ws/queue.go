package ws

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"queueflow/internal/auth"
	"queueflow/internal/broadcast"
	"queueflow/internal/config"
	"queueflow/internal/monitoring"
	"queueflow/internal/servicepoint"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Queue serves one WebSocket per (connection, service point) channel.
// GET /ws/queues/{service_point_id}?token=<access token>
func Queue(
	hub *broadcast.Hub,
	points *servicepoint.Store,
	cfg *config.Config,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		// =======================
		// JWT FROM QUERY
		// =======================
		token, err := auth.TokenFromRequest(r)
		if err != nil {
			http.Error(w, "token required", http.StatusUnauthorized)
			return
		}

		actx, err := auth.ParseJWT(token, cfg.JWT.Secret)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		servicePointID, err := strconv.ParseInt(chi.URLParam(r, "service_point_id"), 10, 64)
		if err != nil || servicePointID == 0 {
			http.Error(w, "invalid service point id", http.StatusBadRequest)
			return
		}

		sp, err := points.Get(r.Context(), servicePointID)
		if err != nil {
			http.Error(w, "service point not found", http.StatusNotFound)
			return
		}

		// =======================
		// WS UPGRADE
		// =======================
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		monitoring.WSConnected()
		defer monitoring.WSDisconnected()

		logrus.Infof("🔌 WS connect user=%d service_point=%d", actx.UserID, servicePointID)

		// =======================
		// SNAPSHOT
		// =======================
		conn.WriteJSON(map[string]any{
			"type": "snapshot",
			"data": map[string]any{
				"service_point_id": sp.ID,
				"queue_length":     sp.QueueLength,
			},
		})

		// =======================
		// SUBSCRIBE
		// =======================
		sub := hub.Subscribe(servicePointID, actx.UserID)
		defer hub.Unsubscribe(servicePointID, sub)

		// reader only detects the peer going away
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		// =======================
		// LOOP
		// =======================
		for {
			select {
			case ev, ok := <-sub.C:
				if !ok {
					return
				}
				msg := map[string]any{"type": "queue_update", "data": ev}
				switch {
				case ev.Deleted:
					msg["type"] = "service_point_deleted"
				case ev.Position != nil:
					msg["type"] = "position_update"
				}
				if err := conn.WriteJSON(msg); err != nil {
					return
				}

			case <-done:
				logrus.Infof("WS disconnect user=%d service_point=%d", actx.UserID, servicePointID)
				return
			}
		}
	}
}
