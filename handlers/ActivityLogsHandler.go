package handlers

import (
	"backend/models"
	"backend/utils"
	"database/sql"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// GetActivityLogsHandler godoc
// @Summary      Get activity logs
// @Tags         activity-logs
// @Param        page      query  int     false  "Page"
// @Param        limit     query  int     false  "Limit"
// @Param        quote_id  query  int     false  "Filter by quote"
// @Param        event     query  string  false  "Filter by event name"
// @Success      200       {object}  object
// @Router       /api/logs [get]
func GetActivityLogsHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
		if err != nil || page < 1 {
			page = 1
		}
		limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
		if err != nil || limit < 1 {
			limit = 10
		}
		offset := (page - 1) * limit

		whereClauses := []string{}
		args := []interface{}{}
		argIndex := 1

		if quoteID, err := strconv.Atoi(c.Query("quote_id")); err == nil && quoteID > 0 {
			whereClauses = append(whereClauses, "quote_id = $"+strconv.Itoa(argIndex))
			args = append(args, quoteID)
			argIndex++
		}
		if event := strings.TrimSpace(c.Query("event")); event != "" {
			whereClauses = append(whereClauses, "event_name = $"+strconv.Itoa(argIndex))
			args = append(args, event)
			argIndex++
		}

		whereSQL := ""
		if len(whereClauses) > 0 {
			whereSQL = " WHERE " + strings.Join(whereClauses, " AND ")
		}

		ctx, cancel := utils.GetDefaultQueryContext(c.Request.Context())
		defer cancel()

		var totalRecords int
		if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM activity_logs`+whereSQL, args...).Scan(&totalRecords); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error counting logs"})
			return
		}

		totalPages := int(math.Ceil(float64(totalRecords) / float64(limit)))

		query := `
			SELECT id, created_at, user_name, host_name, event_context, ip_address,
				   description, event_name, quote_id, COALESCE(version_id, 0)
			FROM activity_logs` + whereSQL + `
			ORDER BY created_at DESC
			LIMIT $` + strconv.Itoa(argIndex) + ` OFFSET $` + strconv.Itoa(argIndex+1)
		args = append(args, limit, offset)

		rows, err := db.QueryContext(ctx, query, args...)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error querying logs"})
			return
		}
		defer rows.Close()

		logs := []models.ActivityLog{}
		for rows.Next() {
			var (
				entry        models.ActivityLog
				userName     sql.NullString
				hostName     sql.NullString
				eventContext sql.NullString
				ipAddress    sql.NullString
				description  sql.NullString
				eventName    sql.NullString
			)

			if err := rows.Scan(&entry.ID, &entry.CreatedAt, &userName, &hostName,
				&eventContext, &ipAddress, &description, &eventName,
				&entry.QuoteID, &entry.VersionID); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Error scanning logs"})
				return
			}

			entry.UserName = userName.String
			entry.HostName = hostName.String
			entry.EventContext = eventContext.String
			entry.IPAddress = ipAddress.String
			entry.Description = description.String
			entry.EventName = eventName.String
			logs = append(logs, entry)
		}

		c.JSON(http.StatusOK, gin.H{
			"logs":          logs,
			"total_records": totalRecords,
			"total_pages":   totalPages,
			"page":          page,
			"limit":         limit,
			"has_next":      page < totalPages,
			"has_prev":      page > 1,
		})
	}
}
