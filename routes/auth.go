package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"sintetic-qa/internal/config"
	"sintetic-qa/models"
	"sintetic-qa/utils"
)

// SetupAuthRoutes wires the single-operator login endpoint. The operator
// account comes from the environment; there is no user database.
func SetupAuthRoutes(router *gin.Engine, cfg *config.Config) {
	router.POST("/auth/login", func(c *gin.Context) {
		var req models.LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		if cfg.AdminEmail == "" || cfg.AdminPasswordHash == "" {
			utils.RespondWithError(c, http.StatusServiceUnavailable,
				"login_disabled", "Operator account is not configured", nil)
			return
		}

		if req.Email != cfg.AdminEmail || !utils.CheckPassword(req.Password, cfg.AdminPasswordHash) {
			utils.RespondWithUnauthorized(c, "Invalid credentials")
			return
		}

		expiresIn, err := time.ParseDuration(cfg.JWTExpiresIn)
		if err != nil {
			expiresIn = 24 * time.Hour
		}
		token, err := utils.GenerateJWT(req.Email, "admin", cfg.JWTSecret, expiresIn)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to issue token", nil)
			return
		}

		c.JSON(http.StatusOK, models.Generic{
			Message: "Login successful",
			Result: models.LoginResponse{
				Token:     token,
				ExpiresIn: int64(expiresIn.Seconds()),
			},
			Code: models.CodeOK,
		})
	})
}
