package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	httpSwagger "github.com/swaggo/http-swagger"

	"queueflow/internal/analytics"
	"queueflow/internal/appointment"
	"queueflow/internal/auth"
	"queueflow/internal/broadcast"
	"queueflow/internal/config"
	"queueflow/internal/db"
	"queueflow/internal/notification"
	"queueflow/internal/queue"
	"queueflow/internal/servicepoint"
	"queueflow/internal/waittime"
	"queueflow/internal/ws"

	_ "queueflow/docs"
)

// @title QueueFlow API
// @version 1.0
// @description Queue management backend
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.Load()

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	pool, err := db.New(cfg.DB.DSN)
	if err != nil {
		logrus.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	rdb, err := db.NewRedis(cfg.Redis.URL)
	if err != nil {
		logrus.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	// Core wiring
	hub := broadcast.NewHub()
	estimator := waittime.NewEstimator(rdb,
		time.Minute*time.Duration(cfg.Queue.DefaultServiceMinutes))

	notifStore := notification.NewStore(pool)
	dispatcher := notification.NewDispatcher(notifStore)

	engine := queue.NewEngine(queue.NewPGStore(pool), dispatcher, hub, estimator, queue.Options{
		SingleActivePolicy:      cfg.Queue.SingleActivePolicy,
		PositionNotifyThreshold: cfg.Queue.PositionNotifyThreshold,
	})

	pointStore := servicepoint.NewStore(pool)

	// Handlers
	authHandler := &auth.Handler{
		DB:         pool,
		Queues:     engine,
		Secret:     cfg.JWT.Secret,
		TTL:        cfg.AccessTTL(),
		RefreshTTL: cfg.RefreshTTL(),
	}
	queueHandler := &queue.Handler{Engine: engine}
	pointHandler := &servicepoint.Handler{Store: pointStore}
	notifHandler := &notification.Handler{Store: notifStore}
	analyticsHandler := &analytics.Handler{
		Aggregator: &analytics.Aggregator{Store: analytics.NewStore(pool)},
	}
	appointmentHandler := &appointment.Handler{
		Store:  appointment.NewStore(pool),
		Points: pointStore,
	}

	r := chi.NewRouter()

	// CORS for the browser frontend
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{
			"http://localhost:5173",
			"http://localhost:3000",
		},
		AllowedMethods: []string{
			"GET", "POST", "PUT", "DELETE", "OPTIONS",
		},
		AllowedHeaders: []string{
			"Accept", "Authorization", "Content-Type",
		},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		if err := db.RedisHealthCheck(rdb); err != nil {
			http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	})

	// Public routes
	r.Post("/api/auth/login", authHandler.Login)
	r.Post("/api/auth/register", authHandler.Register)
	r.Post("/api/auth/refresh", authHandler.Refresh)
	r.Get("/api/queues/public-service-points", pointHandler.PublicList)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(cfg.JWT.Secret))

		r.Get("/api/me", func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(auth.FromContext(r.Context()))
		})
		r.Post("/api/auth/delete-user", authHandler.DeleteUser)

		r.Get("/api/queues/service-points", pointHandler.List)
		r.Get("/api/queues/service-types", pointHandler.ServiceTypes)

		r.Post("/api/queues/join", queueHandler.Join)
		r.Post("/api/queues/leave", queueHandler.Leave)
		r.Get("/api/queues/my-position", queueHandler.MyPosition)
		r.Get("/api/queues/my-queues", queueHandler.MyQueues)
		r.Get("/api/queues/history", queueHandler.History)

		r.Get("/api/notifications", notifHandler.List)
		r.Post("/api/notifications/{id}/read", notifHandler.MarkRead)
		r.Delete("/api/notifications/{id}", notifHandler.Delete)

		r.Get("/api/queues/appointments", appointmentHandler.List)
		r.Post("/api/queues/appointments/create", appointmentHandler.Create)

		// Staff only
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireStaff)

			r.Post("/api/queues/call-next", queueHandler.CallNext)
			r.Post("/api/queues/mark-served", queueHandler.MarkServed)

			r.Post("/api/queues/create-service-point", pointHandler.Create)
			r.Delete("/api/queues/delete-service-point/{id}", queueHandler.DeleteServicePoint)
			r.Delete("/api/queues/delete-all-service-points", queueHandler.DeleteAllServicePoints)
			r.Post("/api/queues/service-points/{id}/pause", pointHandler.Pause)
			r.Post("/api/queues/service-points/{id}/resume", pointHandler.Resume)

			r.Get("/api/queues/analytics", analyticsHandler.Report)
		})
	})

	// WebSocket (token in query, auth handled inside)
	r.Get("/ws/queues/{service_point_id}", ws.Queue(hub, pointStore, cfg))

	// Metrics + Swagger
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	logrus.Infof("🚀 queueflow listening on %s", cfg.HTTP.Addr)
	if err := http.ListenAndServe(cfg.HTTP.Addr, r); err != nil {
		logrus.Fatalf("server: %v", err)
	}
}
