package handlers

import (
	"backend/models"
	"backend/services"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func quoteIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid quote ID"})
		return 0, false
	}
	return uint(id), true
}

// CreateQuoteHandler creates a new quote
// @Summary Create quote
// @Description Create a new quote draft owned by the caller
// @Tags Quotes
// @Accept json
// @Produce json
// @Param request body models.CreateQuoteRequest true "Quote details"
// @Success 201 {object} models.QuoteGorm
// @Failure 400 {object} utils.Response
// @Router /api/quotes [post]
func CreateQuoteHandler(quotes *services.QuoteService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.CreateQuoteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}

		user := CurrentUser(c)
		if user == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session"})
			return
		}

		quote, err := quotes.CreateQuote(req, user.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create quote", "details": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, quote)
	}
}

// GetQuotesHandler lists quotes with pagination
// @Summary List quotes
// @Tags Quotes
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(20)
// @Success 200 {object} map[string]interface{}
// @Router /api/quotes [get]
func GetQuotesHandler(quotes *services.QuoteService) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		if page < 1 {
			page = 1
		}
		if limit < 1 || limit > 100 {
			limit = 20
		}

		list, total, err := quotes.ListQuotes(page, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch quotes", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"quotes": list,
			"total":  total,
			"page":   page,
			"limit":  limit,
		})
	}
}

// GetQuoteHandler returns one quote
// @Summary Get quote
// @Tags Quotes
// @Produce json
// @Param id path int true "Quote ID"
// @Success 200 {object} models.QuoteGorm
// @Failure 404 {object} utils.Response
// @Router /api/quotes/{id} [get]
func GetQuoteHandler(quotes *services.QuoteService) gin.HandlerFunc {
	return func(c *gin.Context) {
		quoteID, ok := quoteIDParam(c)
		if !ok {
			return
		}

		quote, err := quotes.GetQuote(quoteID)
		if err != nil {
			if errors.Is(err, services.ErrQuoteNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Quote not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch quote", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, quote)
	}
}

// UpdateQuoteHandler updates quote attributes
// @Summary Update quote
// @Tags Quotes
// @Accept json
// @Produce json
// @Param id path int true "Quote ID"
// @Param request body models.UpdateQuoteRequest true "Changed fields"
// @Success 200 {object} models.QuoteGorm
// @Failure 404 {object} utils.Response
// @Router /api/quotes/{id} [put]
func UpdateQuoteHandler(quotes *services.QuoteService) gin.HandlerFunc {
	return func(c *gin.Context) {
		quoteID, ok := quoteIDParam(c)
		if !ok {
			return
		}

		var req models.UpdateQuoteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}

		quote, err := quotes.UpdateQuote(quoteID, req)
		if err != nil {
			if errors.Is(err, services.ErrQuoteNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Quote not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update quote", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, quote)
	}
}

// SubmitQuoteHandler marks a quote as submitted
// @Summary Submit quote
// @Tags Quotes
// @Produce json
// @Param id path int true "Quote ID"
// @Success 200 {object} models.QuoteGorm
// @Failure 404 {object} utils.Response
// @Router /api/quotes/{id}/submit [post]
func SubmitQuoteHandler(quotes *services.QuoteService) gin.HandlerFunc {
	return func(c *gin.Context) {
		quoteID, ok := quoteIDParam(c)
		if !ok {
			return
		}

		quote, err := quotes.SubmitQuote(quoteID)
		if err != nil {
			if errors.Is(err, services.ErrQuoteNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Quote not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to submit quote", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, quote)
	}
}

// DeleteQuoteHandler soft-deletes a quote
// @Summary Delete quote
// @Tags Quotes
// @Produce json
// @Param id path int true "Quote ID"
// @Success 200 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Router /api/quotes/{id} [delete]
func DeleteQuoteHandler(quotes *services.QuoteService) gin.HandlerFunc {
	return func(c *gin.Context) {
		quoteID, ok := quoteIDParam(c)
		if !ok {
			return
		}

		if err := quotes.DeleteQuote(quoteID); err != nil {
			if errors.Is(err, services.ErrQuoteNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Quote not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete quote", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Quote deleted"})
	}
}

// ListVersionsHandler returns all versions of a quote
// @Summary List quote versions
// @Tags Versions
// @Produce json
// @Param id path int true "Quote ID"
// @Success 200 {array} models.QuoteVersionGorm
// @Router /api/quotes/{id}/versions [get]
func ListVersionsHandler(versions *services.VersionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		quoteID, ok := quoteIDParam(c)
		if !ok {
			return
		}

		list, err := versions.ListVersions(quoteID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch versions", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, list)
	}
}

// SetActiveVersionHandler activates a version, or the base quote state when
// version_id is zero
// @Summary Set active version
// @Tags Versions
// @Accept json
// @Produce json
// @Param id path int true "Quote ID"
// @Success 200 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Router /api/quotes/{id}/versions/activate [put]
func SetActiveVersionHandler(versions *services.VersionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		quoteID, ok := quoteIDParam(c)
		if !ok {
			return
		}

		var req struct {
			VersionID uint `json:"version_id"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
			return
		}

		if err := versions.SetActiveVersion(quoteID, req.VersionID); err != nil {
			switch {
			case errors.Is(err, services.ErrQuoteNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "Quote not found"})
			case errors.Is(err, services.ErrVersionNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "Version not found"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to activate version", "details": err.Error()})
			}
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Active version updated"})
	}
}

// DeleteVersionHandler removes a version and its rows
// @Summary Delete quote version
// @Tags Versions
// @Produce json
// @Param id path int true "Quote ID"
// @Param versionId path int true "Version ID"
// @Success 200 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Router /api/quotes/{id}/versions/{versionId} [delete]
func DeleteVersionHandler(versions *services.VersionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		quoteID, ok := quoteIDParam(c)
		if !ok {
			return
		}

		versionID, err := strconv.ParseUint(c.Param("versionId"), 10, 32)
		if err != nil || versionID == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid version ID"})
			return
		}

		if err := versions.DeleteVersion(quoteID, uint(versionID)); err != nil {
			if errors.Is(err, services.ErrVersionNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Version not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete version", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Version deleted"})
	}
}
