package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/handlers/testutil"
)

func TestHealth_ReportsDependencies(t *testing.T) {
	env := testutil.NewEnv(t)

	w := env.Request(http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var payload struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	testutil.DecodeInto(t, testutil.DecodeResponse(t, w).Data, &payload)
	require.Equal(t, "ok", payload.Status)
	require.Equal(t, "up", payload.Checks["database"])
	require.Equal(t, "up", payload.Checks["cache"])
}

func TestHealth_DatabaseDown(t *testing.T) {
	env := testutil.NewEnv(t)

	sqlDB, err := env.DB.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	w := env.Request(http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.Contains(t, w.Body.String(), "degraded")
}
