package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Middleware(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())

	router := chi.NewRouter()
	router.Use(metrics.Middleware)
	router.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/42", nil))
		assert.Equal(t, http.StatusTeapot, rec.Code)
	}

	count := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("GET", "/items/{id}", "418"))
	assert.Equal(t, float64(2), count)
}

func TestMetrics_Recorders(t *testing.T) {
	metrics := NewMetrics(nil)

	metrics.RecordAuthDecision("required", "unauthenticated")
	metrics.RecordLogin("success")
	metrics.RecordRateLimited("login")
	metrics.RecordAIRequest("gemini", "error")
	metrics.RecordFAQCache(true)
	metrics.RecordFAQCache(false)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.AuthDecisionsTotal.WithLabelValues("required", "unauthenticated")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.LoginsTotal.WithLabelValues("success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.FAQCacheTotal.WithLabelValues("hit")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.FAQCacheTotal.WithLabelValues("miss")))

	var nilMetrics *Metrics
	assert.NotPanics(t, func() { nilMetrics.RecordLogin("success") })
}

func TestMetrics_Handler(t *testing.T) {
	metrics := NewMetrics(nil)
	metrics.RecordLogin("invalid_credentials")

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `smartassist_logins_total{outcome="invalid_credentials"} 1`)
}

func TestNewLogger(t *testing.T) {
	logger := NewLogger("debug", "", true)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	logger = NewLogger("nonsense", "text", true)
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
}
