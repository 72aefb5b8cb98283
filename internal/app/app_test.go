package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xenking/storefront/pkg/health"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

type noopTelemetry struct{}

func (noopTelemetry) TracerProvider() trace.TracerProvider { return tracenoop.NewTracerProvider() }
func (noopTelemetry) MeterProvider() metric.MeterProvider  { return metricnoop.NewMeterProvider() }

func TestOpenBackend_UnknownDriver(t *testing.T) {
	_, err := openBackend(context.Background(), DatabaseConfig{Driver: "mysql"})
	require.ErrorContains(t, err, `unknown database driver "mysql"`)
}

func TestRouter(t *testing.T) {
	ctx := context.Background()
	be, err := openBackend(ctx, DatabaseConfig{Driver: DriverSQLite, URL: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(be.close)

	api, err := newAPI(be, noopTelemetry{})
	require.NoError(t, err)

	hs := health.New(zap.NewNop())
	hs.AddReadiness(DriverSQLite, health.PingCheck(DriverSQLite, be.ping))

	core, logs := observer.New(zap.InfoLevel)
	router := newRouter(zap.New(core), hs, api, noopTelemetry{})

	do := func(method, target, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(method, target, strings.NewReader(body)))
		return rec
	}

	rec := do(http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	hs.SetReady(true)
	rec = do(http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = do(http.MethodPost, "/api/store", `{"name":"Downtown","address":"1 Main St"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(httpmiddleware.RequestIDHeader))

	rec = do(http.MethodGet, "/api/store/1/validate", "")
	assert.JSONEq(t, `{"valid":true}`, rec.Body.String())

	rec = do(http.MethodGet, "/api/nothing-here", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	entries := logs.FilterField(zap.String("route", "POST /api/store")).All()
	require.Len(t, entries, 1)
	assert.Equal(t, "Request", entries[0].Message)
}
