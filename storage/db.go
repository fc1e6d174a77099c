package storage

import (
	"backend/models"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func InitDB() *sql.DB {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	user := os.Getenv("DB_USER")
	password := os.Getenv("DB_PASSWORD")
	dbname := os.Getenv("DB_NAME")
	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")

	connStr := fmt.Sprintf("user=%s password=%s dbname=%s host=%s port=%s sslmode=disable",
		user, password, dbname, host, port)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Set connection pool settings optimized for light server load
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database:", err)
	}

	return db
}

// SaveSession saves a new session for a user, handling multiple device support.
// If allowMultipleSessions is false, all existing sessions are deleted first.
func SaveSession(db *sql.DB, session *models.Session, allowMultipleSessions bool) error {
	if !allowMultipleSessions {
		deleteAllQuery := `DELETE FROM session WHERE user_id = $1`
		_, err := db.Exec(deleteAllQuery, session.UserID)
		if err != nil {
			return fmt.Errorf("failed to delete all user sessions: %v", err)
		}
	}

	insertQuery := `INSERT INTO session (user_id, session_id, host_name, ip_address, timestp, expires_at, refresh_token, refresh_token_expires_at)
                    VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := db.Exec(insertQuery, session.UserID, session.SessionID, session.HostName, session.IPAddress, session.Timestamp, session.ExpiresAt, session.RefreshToken, session.RefreshTokenExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to insert new session: %v", err)
	}
	return nil
}

// SaveRefreshToken stores a refresh token in the session table bound to a session.
func SaveRefreshToken(db *sql.DB, userID int, sessionID string, refreshToken string, expiresAt time.Time) error {
	updateQuery := `UPDATE session SET refresh_token = $1, refresh_token_expires_at = $2 WHERE session_id = $3 AND user_id = $4`

	result, err := db.Exec(updateQuery, refreshToken, expiresAt, sessionID, userID)
	if err != nil {
		return fmt.Errorf("failed to save refresh token: %v", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %v", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("session not found for session_id: %s and user_id: %d", sessionID, userID)
	}

	return nil
}

// GetRefreshTokenBySession retrieves a refresh token for a specific session
func GetRefreshTokenBySession(db *sql.DB, sessionID string) (string, error) {
	var refreshToken string
	err := db.QueryRow(`
		SELECT refresh_token FROM session
		WHERE session_id = $1 AND refresh_token_expires_at > NOW()`, sessionID).Scan(&refreshToken)
	if err != nil {
		return "", fmt.Errorf("refresh token not found: %v", err)
	}
	return refreshToken, nil
}

// DeleteRefreshToken removes a refresh token for a session (for logout)
func DeleteRefreshToken(db *sql.DB, sessionID string) error {
	_, err := db.Exec(`UPDATE session SET refresh_token = NULL, refresh_token_expires_at = NULL WHERE session_id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete refresh token: %v", err)
	}
	return nil
}

func DeleteSession(db *sql.DB, userID int) error {
	query := `DELETE FROM session WHERE user_id = $1`
	_, err := db.Exec(query, userID)
	return err
}

// DeleteSessionByID deletes a specific session by session_id
func DeleteSessionByID(db *sql.DB, sessionID string, userID int) error {
	query := `DELETE FROM session WHERE session_id = $1 AND user_id = $2`
	result, err := db.Exec(query, sessionID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %v", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %v", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("session not found or already deleted")
	}

	return nil
}

func GetUserByEmail(db *sql.DB, email string) (*models.User, error) {
	var user models.User
	query := `SELECT id, email, password, suspended FROM users WHERE LOWER(email) = LOWER($1)`

	err := db.QueryRow(query, email).Scan(&user.ID, &user.Email, &user.Password, &user.Suspended)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user with email %s not found", email)
		}
		return nil, fmt.Errorf("failed to query user: %v", err)
	}

	return &user, nil
}

func CleanupExpiredSessions(db *sql.DB) error {
	threshold := time.Now().Add(-24 * time.Hour)
	_, err := db.Exec("DELETE FROM session WHERE expires_at < $1", threshold)
	return err
}

// GetUserBySessionID retrieves a User by the given session ID from the database.
func GetUserBySessionID(db *sql.DB, sessionID string) (*models.User, error) {
	query := `
		SELECT u.id, u.employee_id, u.email, u.first_name, u.last_name,
			   u.created_at, u.updated_at, u.first_access, u.last_access,
			   u.is_admin, u.country, u.phone_no, u.suspended
		FROM session s
		JOIN users u ON s.user_id = u.id
		WHERE s.session_id = $1 AND s.expires_at > NOW()
	`

	var user models.User
	var firstAccess, lastAccess sql.NullTime

	err := db.QueryRow(query, sessionID).Scan(
		&user.ID, &user.EmployeeId, &user.Email, &user.FirstName,
		&user.LastName, &user.CreatedAt, &user.UpdatedAt,
		&firstAccess, &lastAccess, &user.IsAdmin,
		&user.Country, &user.PhoneNo, &user.Suspended,
	)
	if err != nil || user.Suspended {
		if err == sql.ErrNoRows {
			return nil, errors.New("user not found for the given session ID or account suspended")
		}
		if err == nil {
			return nil, errors.New("user not found for the given session ID or account suspended")
		}
		return nil, err
	}

	user.FirstAccess = firstAccess.Time
	if !firstAccess.Valid {
		user.FirstAccess = time.Time{}
	}

	user.LastAccess = lastAccess.Time
	if !lastAccess.Valid {
		user.LastAccess = time.Time{}
	}

	return &user, nil
}

// PurgeOldActivityLogs removes activity log rows older than the retention window.
func PurgeOldActivityLogs(db *sql.DB, retention time.Duration) (int64, error) {
	threshold := time.Now().Add(-retention)
	result, err := db.Exec("DELETE FROM activity_logs WHERE created_at < $1", threshold)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// PurgeDeletedQuotes hard-deletes quotes that were soft-deleted longer ago
// than the retention window, together with their versions and rows.
func PurgeDeletedQuotes(db *sql.DB, retention time.Duration) (int64, error) {
	threshold := time.Now().Add(-retention)

	tx, err := db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		DELETE FROM mapped_rows
		WHERE quote_id IN (SELECT id FROM quotes WHERE deleted_at IS NOT NULL AND deleted_at < $1)`, threshold)
	if err != nil {
		return 0, err
	}

	_, err = tx.Exec(`
		DELETE FROM quote_versions
		WHERE quote_id IN (SELECT id FROM quotes WHERE deleted_at IS NOT NULL AND deleted_at < $1)`, threshold)
	if err != nil {
		return 0, err
	}

	result, err := tx.Exec(`DELETE FROM quotes WHERE deleted_at IS NOT NULL AND deleted_at < $1`, threshold)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
