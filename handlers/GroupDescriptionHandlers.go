package handlers

import (
	"backend/models"
	"backend/services"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

func actorFromContext(c *gin.Context) (services.Actor, bool) {
	user := CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session"})
		return services.Actor{}, false
	}
	return services.Actor{
		UserID:    user.ID,
		UserName:  user.FirstName + " " + user.LastName,
		HostName:  c.Request.Host,
		IPAddress: c.ClientIP(),
	}, true
}

func respondGroupError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrQuoteNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Quote not found"})
	case errors.Is(err, services.ErrVersionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Version not found"})
	case errors.Is(err, services.ErrGroupNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Rows group not found"})
	case errors.Is(err, services.ErrLockTimeout):
		c.JSON(http.StatusConflict, gin.H{"error": "Quote is being edited by another request, try again"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Operation failed", "details": err.Error()})
	}
}

// groupNameTaken reports whether another group of the quote's editable
// state already uses the name.
func groupNameTaken(versions services.VersionResolver, quoteID uint, name, excludeID string) (bool, error) {
	state, err := versions.ResolveEditableState(quoteID)
	if err != nil {
		return false, err
	}
	return state.Groups().HasName(name, excludeID), nil
}

// GetRowsGroupsHandler returns the grouped row view of a quote
// @Summary List rows groups
// @Description List every group of the quote's editable state with rows and totals
// @Tags Groups
// @Produce json
// @Param id path int true "Quote ID"
// @Success 200 {array} models.GroupWithRows
// @Failure 404 {object} utils.Response
// @Router /api/quotes/{id}/groups [get]
func GetRowsGroupsHandler(groups *services.GroupDescriptionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		quoteID, ok := quoteIDParam(c)
		if !ok {
			return
		}

		views, err := groups.RetrieveRowsGroups(quoteID)
		if err != nil {
			respondGroupError(c, err)
			return
		}

		c.JSON(http.StatusOK, views)
	}
}

// SearchGroupRowsHandler free-text searches the quote state's rows
// @Summary Search rows
// @Description Search rows by comma separated tokens, unioned with the rows of group_id when given
// @Tags Groups
// @Produce json
// @Param id path int true "Quote ID"
// @Param search query string false "Comma separated search tokens"
// @Param group_id query string false "Group whose rows are always included"
// @Success 200 {array} models.MappedRow
// @Failure 404 {object} utils.Response
// @Router /api/quotes/{id}/groups/search-rows [get]
func SearchGroupRowsHandler(groups *services.GroupDescriptionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		quoteID, ok := quoteIDParam(c)
		if !ok {
			return
		}

		rows, err := groups.SearchRows(quoteID, c.Query("search"), c.Query("group_id"))
		if err != nil {
			respondGroupError(c, err)
			return
		}

		c.JSON(http.StatusOK, rows)
	}
}

// FindRowsGroupHandler returns one group with its rows and totals
// @Summary Get rows group
// @Tags Groups
// @Produce json
// @Param id path int true "Quote ID"
// @Param groupId path string true "Group ID"
// @Success 200 {object} models.GroupWithRows
// @Failure 404 {object} utils.Response
// @Router /api/quotes/{id}/groups/{groupId} [get]
func FindRowsGroupHandler(groups *services.GroupDescriptionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		quoteID, ok := quoteIDParam(c)
		if !ok {
			return
		}

		view, err := groups.FindGroupDescription(quoteID, c.Param("groupId"))
		if err != nil {
			respondGroupError(c, err)
			return
		}

		c.JSON(http.StatusOK, view)
	}
}

// CreateRowsGroupHandler creates a new rows group
// @Summary Create rows group
// @Tags Groups
// @Accept json
// @Produce json
// @Param id path int true "Quote ID"
// @Param request body models.CreateGroupRequest true "Group attributes"
// @Success 201 {object} models.RowsGroup
// @Failure 404 {object} utils.Response
// @Failure 409 {object} utils.Response
// @Failure 422 {object} utils.Response
// @Router /api/quotes/{id}/groups [post]
func CreateRowsGroupHandler(groups *services.GroupDescriptionService, versions services.VersionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		quoteID, ok := quoteIDParam(c)
		if !ok {
			return
		}

		var req models.CreateGroupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}

		actor, ok := actorFromContext(c)
		if !ok {
			return
		}

		taken, err := groupNameTaken(versions, quoteID, req.Name, "")
		if err != nil {
			respondGroupError(c, err)
			return
		}
		if taken {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "A group with this name already exists"})
			return
		}

		created, err := groups.CreateGroupDescription(quoteID, actor, req)
		if err != nil {
			respondGroupError(c, err)
			return
		}

		c.JSON(http.StatusCreated, created)
	}
}

// UpdateRowsGroupHandler updates a group's name, search text and rows
// @Summary Update rows group
// @Tags Groups
// @Accept json
// @Produce json
// @Param id path int true "Quote ID"
// @Param groupId path string true "Group ID"
// @Param request body models.UpdateGroupRequest true "Group attributes"
// @Success 200 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Failure 409 {object} utils.Response
// @Failure 422 {object} utils.Response
// @Router /api/quotes/{id}/groups/{groupId} [put]
func UpdateRowsGroupHandler(groups *services.GroupDescriptionService, versions services.VersionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		quoteID, ok := quoteIDParam(c)
		if !ok {
			return
		}
		groupID := c.Param("groupId")

		var req models.UpdateGroupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}

		actor, ok := actorFromContext(c)
		if !ok {
			return
		}

		taken, err := groupNameTaken(versions, quoteID, req.Name, groupID)
		if err != nil {
			respondGroupError(c, err)
			return
		}
		if taken {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "A group with this name already exists"})
			return
		}

		if err := groups.UpdateGroupDescription(quoteID, groupID, actor, req); err != nil {
			respondGroupError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Group updated"})
	}
}

// SelectRowsGroupsHandler marks exactly the given groups selected
// @Summary Select rows groups
// @Tags Groups
// @Accept json
// @Produce json
// @Param id path int true "Quote ID"
// @Param request body models.SelectGroupsRequest true "Selected group ids"
// @Success 200 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Failure 409 {object} utils.Response
// @Router /api/quotes/{id}/groups/select [put]
func SelectRowsGroupsHandler(groups *services.GroupDescriptionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		quoteID, ok := quoteIDParam(c)
		if !ok {
			return
		}

		var req models.SelectGroupsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}

		actor, ok := actorFromContext(c)
		if !ok {
			return
		}

		if err := groups.SelectGroupDescription(quoteID, actor, req.GroupIDs); err != nil {
			respondGroupError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Selection updated"})
	}
}

// MoveGroupRowsHandler moves rows between two groups
// @Summary Move rows between groups
// @Tags Groups
// @Accept json
// @Produce json
// @Param id path int true "Quote ID"
// @Param request body models.MoveGroupRowsRequest true "Move instruction"
// @Success 200 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Failure 409 {object} utils.Response
// @Router /api/quotes/{id}/groups/move [put]
func MoveGroupRowsHandler(groups *services.GroupDescriptionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		quoteID, ok := quoteIDParam(c)
		if !ok {
			return
		}

		var req models.MoveGroupRowsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}

		actor, ok := actorFromContext(c)
		if !ok {
			return
		}

		if err := groups.MoveGroupDescriptionRows(quoteID, actor, req); err != nil {
			respondGroupError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Rows moved"})
	}
}

// SortRowsGroupsHandler replaces the group sort specification
// @Summary Sort rows groups
// @Tags Groups
// @Accept json
// @Produce json
// @Param id path int true "Quote ID"
// @Param request body models.SortGroupsRequest true "Sort columns"
// @Success 200 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Failure 409 {object} utils.Response
// @Router /api/quotes/{id}/groups/sort [put]
func SortRowsGroupsHandler(groups *services.GroupDescriptionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		quoteID, ok := quoteIDParam(c)
		if !ok {
			return
		}

		var req models.SortGroupsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}

		actor, ok := actorFromContext(c)
		if !ok {
			return
		}

		if err := groups.UpdateGroupDescriptionSort(quoteID, actor, models.SortSpec(req.Sort)); err != nil {
			respondGroupError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Sort updated"})
	}
}

// DeleteRowsGroupHandler removes a group from the state's list
// @Summary Delete rows group
// @Tags Groups
// @Produce json
// @Param id path int true "Quote ID"
// @Param groupId path string true "Group ID"
// @Success 200 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Failure 409 {object} utils.Response
// @Router /api/quotes/{id}/groups/{groupId} [delete]
func DeleteRowsGroupHandler(groups *services.GroupDescriptionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		quoteID, ok := quoteIDParam(c)
		if !ok {
			return
		}

		actor, ok := actorFromContext(c)
		if !ok {
			return
		}

		if err := groups.DeleteGroupDescription(quoteID, c.Param("groupId"), actor); err != nil {
			respondGroupError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Group deleted"})
	}
}
