package waittime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
)

func TestAverageEmptyWindowFallsBack(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	e := NewEstimator(rdb, 5*time.Minute)

	mock.ExpectLRange("waittime:sp:7", 0, -1).SetVal([]string{})

	assert.Equal(t, 5*time.Minute, e.Average(context.Background(), 7))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAverageMeansTheWindow(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	e := NewEstimator(rdb, 5*time.Minute)

	// 2 min, 4 min, 6 min → mean 4 min
	mock.ExpectLRange("waittime:sp:7", 0, -1).SetVal([]string{"120000", "240000", "360000"})

	assert.Equal(t, 4*time.Minute, e.Average(context.Background(), 7))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAverageSkipsGarbageSamples(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	e := NewEstimator(rdb, 5*time.Minute)

	mock.ExpectLRange("waittime:sp:7", 0, -1).SetVal([]string{"oops", "-5", "60000"})

	assert.Equal(t, time.Minute, e.Average(context.Background(), 7))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAverageRedisDownFallsBack(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	e := NewEstimator(rdb, 5*time.Minute)

	mock.ExpectLRange("waittime:sp:7", 0, -1).SetErr(errors.New("connection refused"))

	assert.Equal(t, 5*time.Minute, e.Average(context.Background(), 7))
}

func TestRecordPushesAndTrims(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	e := NewEstimator(rdb, 5*time.Minute)

	mock.ExpectTxPipeline()
	mock.ExpectRPush("waittime:sp:7", int64(180000)).SetVal(1)
	mock.ExpectLTrim("waittime:sp:7", -50, -1).SetVal("OK")
	mock.ExpectTxPipelineExec()

	e.Record(context.Background(), 7, 3*time.Minute)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordIgnoresNonPositive(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	e := NewEstimator(rdb, 5*time.Minute)

	e.Record(context.Background(), 7, 0)
	e.Record(context.Background(), 7, -time.Second)
	assert.NoError(t, mock.ExpectationsWereMet())
}
