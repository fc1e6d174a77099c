package handlers

import (
	"backend/models"
	"backend/storage"
	"backend/utils"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func bearerToken(c *gin.Context) string {
	token := strings.TrimSpace(c.GetHeader("Authorization"))
	token = strings.TrimPrefix(token, "Bearer ")
	return strings.TrimSpace(token)
}

// SessionAuth is the route middleware: it validates the JWT, checks the
// session table and puts the resolved user on the context.
func SessionAuth(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing Authorization header"})
			return
		}

		parsedToken, err := utils.ValidateJWT(token)
		if err != nil || !parsedToken.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		user, err := storage.GetUserBySessionID(db, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired session"})
			return
		}

		c.Set("currentUser", user)
		c.Next()
	}
}

// CurrentUser returns the user resolved by SessionAuth.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get("currentUser")
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

// ValidateSession validates user session
// @Summary Validate session
// @Description Validate user session token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.Response
// @Failure 401 {object} utils.Response
// @Router /api/validate-session [post]
func ValidateSession(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionToken := bearerToken(c)
		if sessionToken == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Authorization header missing token"})
			return
		}

		parsedToken, err := utils.ValidateJWT(sessionToken)
		if err != nil || !parsedToken.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		claims, ok := parsedToken.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			return
		}

		exp, ok := claims["exp"].(float64)
		if !ok || time.Now().Unix() > int64(exp) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Token expired"})
			return
		}

		var sessionHost string
		var expiresAt time.Time
		err = db.QueryRow("SELECT host_name, expires_at FROM session WHERE session_id = $1 AND expires_at > NOW()", sessionToken).
			Scan(&sessionHost, &expiresAt)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired session"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":    "Session validated",
			"session_id": sessionToken,
			"host_name":  sessionHost,
			"expires_at": expiresAt,
		})
	}
}
