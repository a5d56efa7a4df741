package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/cache"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/database"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/response"
)

const healthCheckTimeout = 2 * time.Second

// Health reports database and cache reachability. Any failing dependency
// turns the response into a 503 so load balancers can drain the instance.
func Health(db *gorm.DB, store cache.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(requestContext(c), healthCheckTimeout)
		defer cancel()

		checks := gin.H{}
		healthy := true

		if db != nil {
			if err := database.Ping(ctx, db); err != nil {
				checks["database"] = "down"
				healthy = false
			} else {
				checks["database"] = "up"
			}
		}
		if store != nil {
			if err := store.Ping(ctx); err != nil {
				checks["cache"] = "down"
				healthy = false
			} else {
				checks["cache"] = "up"
			}
		}

		status := http.StatusOK
		state := "ok"
		if !healthy {
			status = http.StatusServiceUnavailable
			state = "degraded"
		}
		response.Success(c, status, gin.H{"status": state, "checks": checks})
	}
}
