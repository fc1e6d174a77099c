package handlers

import (
	"backend/models"
	"backend/repository"
	"backend/services"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GetQuoteRowsHandler lists the rows of the quote's editable state
// @Summary List quote rows
// @Tags Rows
// @Produce json
// @Param id path int true "Quote ID"
// @Success 200 {array} models.MappedRow
// @Failure 404 {object} utils.Response
// @Router /api/quotes/{id}/rows [get]
func GetQuoteRowsHandler(versions *services.VersionService, rows *repository.RowRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		quoteID, ok := quoteIDParam(c)
		if !ok {
			return
		}

		state, err := versions.ResolveEditableState(quoteID)
		if err != nil {
			respondGroupError(c, err)
			return
		}

		list, err := rows.StateRows(int(state.Quote.ID), state.VersionID())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch rows", "details": err.Error()})
			return
		}
		if list == nil {
			list = []models.MappedRow{}
		}

		c.JSON(http.StatusOK, list)
	}
}

// ImportRowsHandler bulk-imports priced rows into the quote's editable state
// @Summary Import rows
// @Tags Rows
// @Accept json
// @Produce json
// @Param id path int true "Quote ID"
// @Param request body models.ImportRowsRequest true "Rows to import"
// @Success 201 {object} map[string]interface{}
// @Failure 404 {object} utils.Response
// @Router /api/quotes/{id}/rows/import [post]
func ImportRowsHandler(versions *services.VersionService, rows *repository.RowRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		quoteID, ok := quoteIDParam(c)
		if !ok {
			return
		}

		var req models.ImportRowsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}
		if len(req.Rows) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No rows to import"})
			return
		}

		state, err := versions.ResolveEditableState(quoteID)
		if err != nil {
			respondGroupError(c, err)
			return
		}

		now := time.Now()
		imported := make([]models.MappedRow, 0, len(req.Rows))
		for _, r := range req.Rows {
			imported = append(imported, models.MappedRow{
				ID:          uuid.NewString(),
				QuoteID:     int(state.Quote.ID),
				VersionID:   state.VersionID(),
				ProductNo:   r.ProductNo,
				Description: r.Description,
				SerialNo:    r.SerialNo,
				Qty:         r.Qty,
				Price:       r.Price,
				CreatedAt:   now,
			})
		}

		if err := rows.InsertRows(imported); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to import rows", "details": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"message":  "Rows imported",
			"imported": len(imported),
		})
	}
}
