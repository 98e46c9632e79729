package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/inclusiva/storage/cache"
)

func TestMiddleware(t *testing.T) {
	m := New("test")
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/ok", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/denied", func(c echo.Context) error { return echo.NewHTTPError(http.StatusForbidden) })
	e.GET("/metrics", m.Handler())

	for _, path := range []string{"/ok", "/ok", "/denied"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requestCounter.WithLabelValues(http.MethodGet, "/ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errorCounter.WithLabelValues(http.MethodGet, "/denied", "403")))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "test_api_requests_total"))
}

func TestCounters(t *testing.T) {
	m := New("test")
	m.RecordLogin("pin", true)
	m.RecordLogin("member", false)
	m.RecordLogin("member", false)
	m.RecordDenied("users")
	m.RecordMemberCreated()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.loginCounter.WithLabelValues("pin", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.loginCounter.WithLabelValues("member", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.deniedCounter.WithLabelValues("users")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.membersCreated))
}

func TestInstrumentCache(t *testing.T) {
	ctx := context.Background()
	m := New("test")
	c := m.InstrumentCache(cache.NewMemory())

	var v string
	found, err := c.Get(ctx, "k", &v)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	found, err = c.Get(ctx, "k", &v)
	require.NoError(t, err)
	assert.True(t, found)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheCounter.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheCounter.WithLabelValues("miss")))
}
