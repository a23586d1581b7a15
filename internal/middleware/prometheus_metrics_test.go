package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/zfogg/circle/internal/metrics"
)

func TestMetricsMiddleware_StatusCodesAreNumeric(t *testing.T) {
	m := metrics.NewForRegistry(prometheus.NewRegistry())

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(MetricsMiddleware(m))
	router.GET("/200", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	router.GET("/404", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	router.GET("/502", func(c *gin.Context) { c.Status(http.StatusBadGateway) })

	for _, path := range []string{"/200", "/404", "/502", "/502"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	// Numeric labels let dashboards match status=~"5.."
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/200", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/404", "404")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/502", "502")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/200", "OK")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("http_502", "/502")))
}

func TestMetricsMiddleware_LabelsByRouteTemplate(t *testing.T) {
	m := metrics.NewForRegistry(prometheus.NewRegistry())

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(MetricsMiddleware(m))
	router.POST("/posts/:id/like", func(c *gin.Context) { c.Status(http.StatusOK) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/posts/a/like", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/posts/b/like", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "/posts/:id/like", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "404")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.HTTPActiveConnections.WithLabelValues("POST", "/posts/:id/like")))
}
