package handlers

import (
	"backend/models"
	"backend/storage"
	"backend/utils"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// LoginHandler handles user authentication
// @Summary Login user
// @Description Authenticate user and return session token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Login credentials"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.Response
// @Failure 401 {object} utils.Response
// @Failure 403 {object} utils.Response
// @Router /api/login [post]
func LoginHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var loginData models.LoginRequest
		if err := c.ShouldBindJSON(&loginData); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
			return
		}

		user, err := storage.GetUserByEmail(db, loginData.Email)
		if err != nil || !utils.ValidatePassword(user.Password, loginData.Password) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}

		if user.Suspended {
			c.JSON(http.StatusForbidden, gin.H{"error": "Account is suspended"})
			return
		}

		newToken, err := utils.GenerateJWT(user.Email)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}

		refreshToken, err := utils.GenerateRefreshToken(user.Email, newToken)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate refresh token"})
			return
		}

		// Access token expires in 15 minutes, refresh token in 15 days
		session := &models.Session{
			UserID:                user.ID,
			SessionID:             newToken,
			HostName:              user.Email,
			IPAddress:             c.ClientIP(),
			Timestamp:             time.Now(),
			ExpiresAt:             time.Now().Add(15 * time.Minute),
			RefreshToken:          refreshToken,
			RefreshTokenExpiresAt: time.Now().Add(15 * 24 * time.Hour),
		}

		if err := storage.SaveSession(db, session, true); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save session", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":       "User successfully logged in",
			"access_token":  newToken,
			"refresh_token": refreshToken,
			"user": gin.H{
				"id":    user.ID,
				"email": user.Email,
			},
		})
	}
}

// RefreshTokenHandler exchanges a valid refresh token for a new access token
// @Summary Refresh access token
// @Description Exchange a refresh token for a fresh access token and session
// @Tags Authentication
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.Response
// @Failure 401 {object} utils.Response
// @Router /api/refresh-token [post]
func RefreshTokenHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			RefreshToken string `json:"refresh_token" binding:"required"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
			return
		}

		parsedToken, err := utils.ValidateJWT(body.RefreshToken)
		if err != nil || !parsedToken.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired refresh token"})
			return
		}

		claims, ok := parsedToken.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			return
		}

		tokenType, _ := claims["type"].(string)
		if tokenType != "refresh" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not a refresh token"})
			return
		}

		email, _ := claims["email"].(string)
		sessionID, _ := claims["sessionId"].(string)
		if email == "" || sessionID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Token claims missing"})
			return
		}

		// The refresh token must still be bound to the session it was issued for
		stored, err := storage.GetRefreshTokenBySession(db, sessionID)
		if err != nil || stored != body.RefreshToken {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Refresh token not recognized"})
			return
		}

		user, err := storage.GetUserByEmail(db, email)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			return
		}
		if user.Suspended {
			c.JSON(http.StatusForbidden, gin.H{"error": "Account is suspended"})
			return
		}

		newToken, err := utils.GenerateJWT(user.Email)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}

		newRefresh, err := utils.GenerateRefreshToken(user.Email, newToken)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate refresh token"})
			return
		}

		if err := storage.DeleteSessionByID(db, sessionID, user.ID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to rotate session", "details": err.Error()})
			return
		}

		session := &models.Session{
			UserID:                user.ID,
			SessionID:             newToken,
			HostName:              user.Email,
			IPAddress:             c.ClientIP(),
			Timestamp:             time.Now(),
			ExpiresAt:             time.Now().Add(15 * time.Minute),
			RefreshToken:          newRefresh,
			RefreshTokenExpiresAt: time.Now().Add(15 * 24 * time.Hour),
		}
		if err := storage.SaveSession(db, session, true); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save session", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"access_token":  newToken,
			"refresh_token": newRefresh,
		})
	}
}

// LogoutHandler deletes the caller's session
// @Summary Logout user
// @Description Delete the current session and its refresh token
// @Tags Authentication
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Success 200 {object} utils.Response
// @Failure 401 {object} utils.Response
// @Router /api/logout [post]
func LogoutHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing Authorization header"})
			return
		}

		user := CurrentUser(c)
		if user == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session"})
			return
		}

		if err := storage.DeleteSessionByID(db, token, user.ID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to logout", "details": err.Error()})
			return
		}

		utils.SuccessResponse(c, "Logged out", http.StatusOK)
	}
}
