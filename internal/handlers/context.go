package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/middleware"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/errors"
	"github.com/Ajsrental/Ajsrental-ajarra-backend/pkg/response"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// currentUserID returns the authenticated user id or writes a 401.
func currentUserID(c *gin.Context) (string, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return "", false
	}
	return id, true
}
