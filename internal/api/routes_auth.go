package api

import (
	"github.com/gin-gonic/gin"

	"github.com/Ajsrental/Ajsrental-ajarra-backend/internal/handlers"
)

type authRouteDeps struct {
	Auth        *handlers.AuthHandler
	OTP         *handlers.OTPHandler
	Password    *handlers.PasswordHandler
	Google      *handlers.GoogleHandler
	RequireAuth gin.HandlerFunc
}

func registerAuthRoutes(v1 *gin.RouterGroup, deps authRouteDeps) {
	auth := v1.Group("/auth")
	{
		auth.POST("/sign-up", deps.Auth.SignUp)
		auth.POST("/login", deps.Auth.Login)

		auth.POST("/send-otp", deps.OTP.Send)
		auth.POST("/verify-otp", deps.OTP.Verify)
		auth.POST("/resend-otp", deps.OTP.Resend)

		auth.POST("/forgot-password", deps.Password.Forgot)
		auth.POST("/reset-password/:token", deps.Password.Reset)

		auth.GET("/google", deps.Google.Begin)
		auth.GET("/google/callback", deps.Google.Callback)
		auth.GET("/google/success", deps.Google.Success)
		auth.GET("/google/error", deps.Google.Error)
		auth.GET("/google/signout", deps.Google.SignOut)
	}

	protected := auth.Group("")
	protected.Use(deps.RequireAuth)
	{
		protected.GET("/me", deps.Auth.Me)
		protected.POST("/change-password", deps.Auth.ChangePassword)
		protected.PATCH("/set-role", deps.Auth.SetRole)
	}
}
