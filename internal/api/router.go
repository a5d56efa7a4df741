package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/app"
	iauth "github.com/Ajsrental/Ajsrental-ajarra-backend/internal/auth"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/auth/providers"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/cache"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/handlers"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/middleware"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/services"
)

// Dependencies bundles everything the HTTP layer needs. Google and Linker
// may be nil when Google sign-in is disabled.
type Dependencies struct {
	Config       *app.Config
	DB           *gorm.DB
	Cache        cache.Store
	JWT          *iauth.JWTService
	Users        *services.UserService
	Verification *services.VerificationService
	Resets       *services.PasswordResetService
	Google       providers.Provider
	Linker       *iauth.AccountLinker
	StateCodec   *iauth.StateCodec
}

func (d Dependencies) validate() error {
	switch {
	case d.Config == nil:
		return errors.New("config must be provided")
	case d.DB == nil:
		return errors.New("database handle must be provided")
	case d.JWT == nil:
		return errors.New("jwt service must be provided")
	case d.Users == nil || d.Verification == nil || d.Resets == nil:
		return errors.New("auth services must be provided")
	}
	return nil
}

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	cfg := deps.Config

	r := gin.New()
	r.HandleMethodNotAllowed = true

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowedOrigins...))

	r.NoRoute(middleware.NotFoundHandler)
	r.NoMethod(func(c *gin.Context) {
		c.AbortWithStatus(http.StatusMethodNotAllowed)
	})

	registerHealthRoutes(r, cfg, deps.DB, deps.Cache)
	registerMetricsRoutes(r, cfg)

	v1 := r.Group("/api/v1")
	if cfg.Server.RateLimit.Enabled {
		v1.Use(middleware.RateLimit(deps.Cache, cfg.Server.RateLimit.Requests, cfg.Server.RateLimit.Window))
	}

	success, failure := cfg.GoogleRedirects()
	registerAuthRoutes(v1, authRouteDeps{
		Auth:     handlers.NewAuthHandler(deps.Users, deps.JWT),
		OTP:      handlers.NewOTPHandler(deps.Verification),
		Password: handlers.NewPasswordHandler(deps.Resets),
		Google: handlers.NewGoogleHandler(deps.Google, deps.Linker, deps.JWT, deps.StateCodec, handlers.GoogleHandlerConfig{
			SuccessURL:   success,
			ErrorURL:     failure,
			FrontendURL:  cfg.Server.FrontendURL,
			SecureCookie: strings.HasPrefix(cfg.Server.FrontendURL, "https://"),
		}),
		RequireAuth: middleware.Auth(deps.JWT),
	})

	return r, nil
}
