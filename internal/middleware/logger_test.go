package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/logger"
)

func TestLoggerMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, recorded := observer.New(zap.InfoLevel)
	restore := logger.Replace(zap.New(core))
	defer restore()

	r := gin.New()
	r.Use(RequestID(), Logger())
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	r.GET("/boom", func(c *gin.Context) {
		c.Status(http.StatusBadGateway)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "pong", w.Body.String())
	require.Equal(t, "req-42", w.Header().Get(RequestIDHeader))

	entries := recorded.FilterMessage("request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, "/ping", fields["path"])
	require.Equal(t, "req-42", fields["request_id"])
	require.Equal(t, "http", fields["module"])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.NotEmpty(t, w.Header().Get(RequestIDHeader))

	errorsLogged := recorded.FilterLevelExact(zapcore.ErrorLevel).All()
	require.Len(t, errorsLogged, 1)
	require.EqualValues(t, http.StatusBadGateway, errorsLogged[0].ContextMap()["status"])
}
