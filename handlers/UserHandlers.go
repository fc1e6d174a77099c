package handlers

import (
	"backend/models"
	"backend/utils"
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
)

// CreateUserHandler creates a new user
// @Summary Create user
// @Description Create a new user account
// @Tags Users
// @Accept json
// @Produce json
// @Param request body models.CreateUserRequest true "User details"
// @Success 201 {object} models.User
// @Failure 400 {object} utils.Response
// @Failure 409 {object} utils.Response
// @Router /api/users [post]
func CreateUserHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.CreateUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}

		hashed, err := utils.HashPassword(req.Password)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
			return
		}

		var userID int
		err = db.QueryRow(`
			INSERT INTO users (employee_id, email, password, first_name, last_name, is_admin, country, phone_no, created_at, updated_at)
			VALUES ($1, LOWER($2), $3, $4, $5, $6, $7, $8, NOW(), NOW())
			RETURNING id`,
			req.EmployeeId, req.Email, hashed, req.FirstName, req.LastName,
			req.IsAdmin, req.Country, req.PhoneNo).Scan(&userID)
		if err != nil {
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
				c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user", "details": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"id": userID, "email": req.Email})
	}
}

// GetUsersHandler lists users
// @Summary List users
// @Description List all users
// @Tags Users
// @Produce json
// @Success 200 {array} models.User
// @Router /api/users [get]
func GetUsersHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := utils.GetFastQueryContext(c.Request.Context())
		defer cancel()

		rows, err := db.QueryContext(ctx, `
			SELECT id, employee_id, email, first_name, last_name, is_admin, country, phone_no, suspended, created_at, updated_at
			FROM users ORDER BY id`)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users", "details": err.Error()})
			return
		}
		defer rows.Close()

		users := []models.User{}
		for rows.Next() {
			var u models.User
			if err := rows.Scan(&u.ID, &u.EmployeeId, &u.Email, &u.FirstName, &u.LastName,
				&u.IsAdmin, &u.Country, &u.PhoneNo, &u.Suspended, &u.CreatedAt, &u.UpdatedAt); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan user", "details": err.Error()})
				return
			}
			users = append(users, u)
		}

		c.JSON(http.StatusOK, users)
	}
}

// SuspendUserHandler toggles a user's suspended flag
// @Summary Suspend or unsuspend user
// @Tags Users
// @Produce json
// @Param id path int true "User ID"
// @Param suspend query bool true "Suspend flag"
// @Success 200 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Router /api/users/{id}/suspend [put]
func SuspendUserHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
			return
		}
		suspend := c.Query("suspend") == "true"

		result, err := db.Exec(`UPDATE users SET suspended = $1, updated_at = $2 WHERE id = $3`,
			suspend, time.Now(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user", "details": err.Error()})
			return
		}
		if n, _ := result.RowsAffected(); n == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}

		utils.SuccessResponse(c, "User updated", http.StatusOK)
	}
}
