package services

import (
	"backend/models"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneGroupListIsDeep(t *testing.T) {
	original := models.GroupList{
		{ID: "g1", Name: "Services", RowsIDs: []string{"r1", "r2"}},
	}

	cloned := cloneGroupList(original)
	cloned[0].Name = "Changed"
	cloned[0].RowsIDs[0] = "other"

	assert.Equal(t, "Services", original[0].Name)
	assert.Equal(t, "r1", original[0].RowsIDs[0])
}

func TestRemapGroupListDropsUnknownIDs(t *testing.T) {
	groups := models.GroupList{
		{ID: "g1", RowsIDs: []string{"r1", "r2", "r3"}},
		{ID: "g2", RowsIDs: []string{"r3"}},
	}
	idMap := map[string]string{
		"r1": "n1",
		"r3": "n3",
	}

	remapGroupList(groups, idMap)

	assert.Equal(t, []string{"n1", "n3"}, groups[0].RowsIDs)
	assert.Equal(t, []string{"n3"}, groups[1].RowsIDs)
}

func TestRemapGroupListEmptyMembership(t *testing.T) {
	groups := models.GroupList{{ID: "g1"}}
	remapGroupList(groups, map[string]string{"r1": "n1"})
	assert.Empty(t, groups[0].RowsIDs)
}
