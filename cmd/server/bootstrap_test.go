package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/app"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/models"
)

func testConfig() *app.Config {
	return &app.Config{
		Server: app.ServerConfig{FrontendURL: "http://localhost:3000"},
		Database: app.DatabaseConfig{
			Driver: "sqlite",
			DSN:    "file:" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=1",
		},
		Monitoring: app.MonitoringConfig{Health: app.HealthConfig{Enabled: true}},
		Auth: app.AuthConfig{
			JWT:        app.JWTSettings{Secret: "bootstrap-test-secret-0123456789abcdef", TTL: time.Hour},
			BcryptCost: 10,
			Admin:      app.AdminSettings{Email: "root@ajarra.test", Password: "Adm1nPassw0rd"},
		},
		OAuth: app.OAuthConfig{StateSecret: "0123456789abcdef0123456789abcdef"},
		Maintenance: app.MaintenanceConfig{
			Enabled:         true,
			CleanupSchedule: "@every 1h",
		},
	}
}

func TestBootstrapRuntime(t *testing.T) {
	stack, err := bootstrapRuntime(context.Background(), testConfig(), zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, stack.Router)
	require.NotNil(t, stack.Cleaner)
	require.Nil(t, stack.Redis)

	w := httptest.NewRecorder()
	stack.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var admin models.User
	require.NoError(t, stack.DB.Take(&admin, "email = ?", "root@ajarra.test").Error)
	require.Equal(t, models.RoleAdmin, admin.Role)

	require.NoError(t, stack.Shutdown(context.Background()))
}

func TestBootstrapRuntimeFallsBackWithoutRedis(t *testing.T) {
	cfg := testConfig()
	cfg.Maintenance.Enabled = false
	cfg.Cache.Redis = app.RedisCacheConfig{Enabled: true, Address: "127.0.0.1:1", Timeout: 100 * time.Millisecond}

	stack, err := bootstrapRuntime(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	require.Nil(t, stack.Redis)
	require.NotNil(t, stack.Cache)
	require.Nil(t, stack.Cleaner)
	require.NoError(t, stack.Shutdown(context.Background()))
}

func TestBootstrapRuntimeRejectsBadDriver(t *testing.T) {
	cfg := testConfig()
	cfg.Database.Driver = "oracle"

	_, err := bootstrapRuntime(context.Background(), cfg, zap.NewNop())
	require.Error(t, err)
}

func TestConvertDatabaseConfig(t *testing.T) {
	cfg := &app.Config{Database: app.DatabaseConfig{
		Driver: " PostgreSQL ",
		Postgres: app.DBAuthConfig{
			Host:     " db.internal ",
			Port:     5432,
			Database: "ajarra",
			Username: "svc",
			Password: " secret ",
		},
		MaxOpenConns: 20,
	}}

	dbCfg := convertDatabaseConfig(cfg)
	require.Equal(t, "postgres", dbCfg.Driver)
	require.Equal(t, "db.internal", dbCfg.Host)
	require.Equal(t, 5432, dbCfg.Port)
	require.Equal(t, "ajarra", dbCfg.Name)
	require.Equal(t, "svc", dbCfg.User)
	require.Equal(t, " secret ", dbCfg.Password)
	require.Equal(t, 20, dbCfg.MaxOpenConns)

	require.Equal(t, "sqlite", convertDatabaseConfig(&app.Config{}).Driver)

	mysql := convertDatabaseConfig(&app.Config{Database: app.DatabaseConfig{
		Driver: "mysql",
		MySQL:  app.DBAuthConfig{Host: "mysql", Port: 3306},
	}})
	require.Equal(t, "mysql", mysql.Driver)
	require.Equal(t, "mysql", mysql.Host)
}

func TestLoadApplicationConfigMissingPath(t *testing.T) {
	_, err := loadApplicationConfig("/definitely/not/here")
	require.Error(t, err)
}

func TestServeStopsOnCancel(t *testing.T) {
	server := newHTTPServer(app.ServerConfig{}, http.NotFoundHandler())
	server.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, serve(ctx, server, time.Second, zap.NewNop()))
}
