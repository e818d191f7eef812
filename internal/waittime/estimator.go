package waittime

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// sample window per service point
const maxSamples = 50

// Estimator keeps a rolling window of observed service durations per service
// point in a Redis list and answers with their mean. With no samples, or with
// Redis down, it falls back to the configured default so wait estimates keep
// flowing.
type Estimator struct {
	rdb        *redis.Client
	defaultDur time.Duration
}

func NewEstimator(rdb *redis.Client, defaultDur time.Duration) *Estimator {
	return &Estimator{rdb: rdb, defaultDur: defaultDur}
}

func key(servicePointID int64) string {
	return fmt.Sprintf("waittime:sp:%d", servicePointID)
}

// Record appends one observed service duration and trims the window.
func (e *Estimator) Record(ctx context.Context, servicePointID int64, d time.Duration) {
	if d <= 0 {
		return
	}

	k := key(servicePointID)
	pipe := e.rdb.TxPipeline()
	pipe.RPush(ctx, k, d.Milliseconds())
	pipe.LTrim(ctx, k, -maxSamples, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		logrus.Errorf("wait time record for service point %d: %v", servicePointID, err)
	}
}

// Average returns the mean of the recorded window, or the default duration
// when the window is empty or Redis is unreachable.
func (e *Estimator) Average(ctx context.Context, servicePointID int64) time.Duration {
	vals, err := e.rdb.LRange(ctx, key(servicePointID), 0, -1).Result()
	if err != nil {
		logrus.Errorf("wait time average for service point %d: %v", servicePointID, err)
		return e.defaultDur
	}
	if len(vals) == 0 {
		return e.defaultDur
	}

	var totalMs int64
	n := 0
	for _, v := range vals {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil || ms <= 0 {
			continue
		}
		totalMs += ms
		n++
	}
	if n == 0 {
		return e.defaultDur
	}

	return time.Duration(totalMs/int64(n)) * time.Millisecond
}
