package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/app"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/cache"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/handlers"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/errors"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/response"
)

func registerHealthRoutes(r *gin.Engine, cfg *app.Config, db *gorm.DB, store cache.Store) {
	if !cfg.Monitoring.Health.Enabled {
		r.GET("/health", disabledHandler)
		return
	}
	r.GET("/health", handlers.Health(db, store))
}

func disabledHandler(c *gin.Context) {
	response.Error(c, errors.New("DISABLED", "Endpoint disabled", http.StatusNotFound))
}
