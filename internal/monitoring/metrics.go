package monitoring

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queueOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_operations_total",
			Help: "Total queue operations by type and outcome",
		},
		[]string{"operation", "status"},
	)

	queueLength = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "queue_length",
			Help: "Current active queue length per service point",
		},
		[]string{"service_point"},
	)

	wsConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_connections",
			Help: "Currently open queue WebSocket connections",
		},
	)

	serviceDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "service_duration_seconds",
			Help:    "Time from called to served per entry",
			Buckets: prometheus.ExponentialBuckets(15, 2, 10),
		},
	)
)

func TrackQueueOperation(operation, status string) {
	queueOperations.WithLabelValues(operation, status).Inc()
}

func SetQueueLength(servicePointID int64, length int) {
	queueLength.WithLabelValues(strconv.FormatInt(servicePointID, 10)).Set(float64(length))
}

func DropQueueLength(servicePointID int64) {
	queueLength.DeleteLabelValues(strconv.FormatInt(servicePointID, 10))
}

func WSConnected()    { wsConnections.Inc() }
func WSDisconnected() { wsConnections.Dec() }

func ObserveServiceDuration(d time.Duration) {
	serviceDuration.Observe(d.Seconds())
}
