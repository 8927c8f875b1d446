package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slidecraft/backend/go/internal/models"
	"slidecraft/backend/go/pkg/circuitbreaker"
	"slidecraft/backend/go/pkg/logger"
	"slidecraft/backend/go/pkg/ratelimiter"
)

func init() { gin.SetMode(gin.TestMode) }

func serve(r *gin.Engine, remote string) int {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = remote
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimit_PerClient(t *testing.T) {
	limiter, err := ratelimiter.NewPerKey(ratelimiter.Settings{
		Algorithm: ratelimiter.AlgorithmFixedWindow, Limit: 1, Window: time.Hour,
	}, time.Hour)
	require.NoError(t, err)

	r := gin.New()
	r.Use(RateLimit(limiter, nil))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(r, "10.0.0.1:1000"))
	assert.Equal(t, http.StatusTooManyRequests, serve(r, "10.0.0.1:1001"))
	assert.Equal(t, http.StatusOK, serve(r, "10.0.0.2:1000"))
}

func TestCircuitBreak_OpensOnServerErrors(t *testing.T) {
	breaker := circuitbreaker.New(circuitbreaker.Settings{FailureThreshold: 2, Timeout: time.Hour})
	calls := 0

	r := gin.New()
	r.Use(CircuitBreak(breaker))
	r.GET("/", func(c *gin.Context) {
		calls++
		c.Status(http.StatusBadGateway)
	})

	assert.Equal(t, http.StatusBadGateway, serve(r, "10.0.0.1:1"))
	assert.Equal(t, http.StatusBadGateway, serve(r, "10.0.0.1:1"))
	assert.Equal(t, http.StatusServiceUnavailable, serve(r, "10.0.0.1:1"))
	assert.Equal(t, 2, calls)
}

func TestAccessLog(t *testing.T) {
	base, hook := test.NewNullLogger()
	r := gin.New()
	r.Use(AccessLog(logger.NewWith(base, "test")))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/boom", func(c *gin.Context) {
		_ = c.Error(assert.AnError)
		c.Status(http.StatusInternalServerError)
	})

	serve(r, "10.0.0.9:1")
	e := hook.LastEntry()
	require.NotNil(t, e)
	assert.Equal(t, logrus.InfoLevel, e.Level)
	req, ok := e.Data["request_info"].(models.RequestInfo)
	require.True(t, ok)
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/", req.Path)
	assert.Equal(t, "10.0.0.9", req.RemoteAddr)
	assert.Equal(t, http.StatusOK, req.Status)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	e = hook.LastEntry()
	assert.Equal(t, logrus.ErrorLevel, e.Level)
	errInfo, ok := e.Data["error"].(models.ErrorInfo)
	require.True(t, ok)
	assert.Equal(t, http.StatusInternalServerError, errInfo.StatusCode)
}
