package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func passing(context.Context) error { return nil }

func failingWith(msg string) CheckFunc {
	return func(context.Context) error { return errors.New(msg) }
}

func serve(h http.HandlerFunc) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	return rec
}

func TestLiveEndpoint_AllPassing(t *testing.T) {
	h := New(nil)
	h.AddLiveness("a", passing)
	h.AddLiveness("b", passing)

	rec := serve(h.LiveEndpoint)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestLiveEndpoint_FailureThreshold(t *testing.T) {
	h := New(nil)
	h.AddLiveness("db", failingWith("connection refused"))
	ctx := context.Background()
	c := h.liveness[0]

	assert.False(t, c.run(ctx))
	assert.False(t, c.run(ctx))
	assert.Equal(t, http.StatusOK, serve(h.LiveEndpoint).Code, "below threshold")

	assert.True(t, c.run(ctx))
	rec := serve(h.LiveEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unhealthy","checks":{"db":"connection refused"}}`, rec.Body.String())
}

func TestCheck_SuccessThreshold(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	h := New(nil)
	h.AddReadiness("cache", func(context.Context) error {
		if fail.Load() {
			return errors.New("cold")
		}
		return nil
	}, FailureThreshold(1), SuccessThreshold(2))
	h.SetReady(true)
	ctx := context.Background()
	c := h.readiness[0]

	c.run(ctx)
	assert.False(t, h.IsReady())

	fail.Store(false)
	c.run(ctx)
	assert.False(t, h.IsReady(), "one success is not enough")
	c.run(ctx)
	assert.True(t, h.IsReady())
}

func TestReadyEndpoint_ManualFlag(t *testing.T) {
	h := New(nil)
	h.AddReadiness("postgres", passing)

	rec := serve(h.ReadyEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unhealthy","checks":{"_readiness":"service is not ready"}}`, rec.Body.String())

	h.SetReady(true)
	assert.Equal(t, http.StatusOK, serve(h.ReadyEndpoint).Code)

	h.SetReady(false)
	assert.False(t, h.IsReady())
}

func TestCheck_Timeout(t *testing.T) {
	h := New(nil)
	h.AddLiveness("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, Timeout(10*time.Millisecond), FailureThreshold(1))

	h.liveness[0].run(context.Background())

	rec := serve(h.LiveEndpoint)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "deadline exceeded")
}

func TestStartStop_LogsTransitions(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := New(zap.New(core))
	h.AddReadiness("postgres", failingWith("down"), FailureThreshold(1))
	h.SetReady(true)

	h.Start(context.Background(), 5*time.Millisecond)
	require.Eventually(t, func() bool { return !h.IsReady() }, time.Second, 5*time.Millisecond)
	h.Stop()
	h.Stop()

	entries := logs.FilterMessage("Health check failing").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "postgres", entries[0].ContextMap()["check"])
}

func TestGoroutineCountCheck(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(100000)(context.Background()))
	assert.Error(t, GoroutineCountCheck(0)(context.Background()))
}

func TestGCMaxPauseCheck(t *testing.T) {
	assert.NoError(t, GCMaxPauseCheck(time.Hour)(context.Background()))
}

func TestPingCheck(t *testing.T) {
	err := PingCheck("sqlite", func(context.Context) error { return errors.New("closed") })(context.Background())
	require.Error(t, err)
	assert.Equal(t, "ping sqlite: closed", err.Error())
	assert.NoError(t, PingCheck("sqlite", passing)(context.Background()))
}
