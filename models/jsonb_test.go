package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupListScanValue(t *testing.T) {
	original := GroupList{
		{ID: "g1", Name: "Servers", SearchText: "srv", IsSelected: true, RowsIDs: []string{"r1", "r2"}},
		{ID: "g2", Name: "Services"},
	}

	value, err := original.Value()
	require.NoError(t, err)

	var scanned GroupList
	require.NoError(t, scanned.Scan(value))
	assert.Equal(t, original, scanned)
}

func TestGroupListScanDefaults(t *testing.T) {
	var g GroupList
	require.NoError(t, g.Scan(nil))
	assert.NotNil(t, g)
	assert.Empty(t, g)

	require.NoError(t, g.Scan([]byte{}))
	assert.Empty(t, g)

	// string payloads come back from some drivers
	require.NoError(t, g.Scan(`[{"id":"g1","name":"X","search_text":"","is_selected":false,"rows_ids":null}]`))
	require.Len(t, g, 1)
	assert.Equal(t, "g1", g[0].ID)

	assert.Error(t, g.Scan(42))
}

func TestNilGroupListValueIsEmptyArray(t *testing.T) {
	var g GroupList
	value, err := g.Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("[]"), value)
}

func TestGroupListFindByID(t *testing.T) {
	g := GroupList{{ID: "a"}, {ID: "b"}}
	assert.Equal(t, 0, g.FindByID("a"))
	assert.Equal(t, 1, g.FindByID("b"))
	assert.Equal(t, -1, g.FindByID("c"))
}

func TestGroupListHasName(t *testing.T) {
	g := GroupList{
		{ID: "a", Name: "Servers"},
		{ID: "b", Name: "Services"},
	}
	assert.True(t, g.HasName("Servers", ""))
	assert.False(t, g.HasName("Servers", "a"), "a group does not conflict with itself")
	assert.True(t, g.HasName("Servers", "b"))
	assert.False(t, g.HasName("Storage", ""))
}

func TestSortSpecScanValue(t *testing.T) {
	spec := SortSpec{{Column: "total_price", Direction: "desc"}}
	value, err := spec.Value()
	require.NoError(t, err)

	var scanned SortSpec
	require.NoError(t, scanned.Scan(value))
	assert.Equal(t, spec, scanned)
}

func TestNilSortSpecValueIsNull(t *testing.T) {
	var spec SortSpec
	value, err := spec.Value()
	require.NoError(t, err)
	assert.Nil(t, value)

	var scanned SortSpec
	require.NoError(t, scanned.Scan(nil))
	assert.Nil(t, scanned)
}

func TestEditableStateTargeting(t *testing.T) {
	quote := &QuoteGorm{ID: 3, CreatedBy: 7, GroupDescription: GroupList{{ID: "g1"}}}
	base := &EditableState{Quote: quote}

	assert.Equal(t, 3, base.StateID())
	assert.Equal(t, 0, base.VersionID())
	assert.Equal(t, "update-quote:3", base.LockKey())
	assert.Equal(t, 7, base.CreatorID())
	assert.Len(t, base.Groups(), 1)

	version := &QuoteVersionGorm{ID: 11, QuoteID: 3, CreatedBy: 9}
	withVersion := &EditableState{Quote: quote, Version: version}

	assert.Equal(t, 11, withVersion.StateID())
	assert.Equal(t, 11, withVersion.VersionID())
	assert.Equal(t, "update-quote:11", withVersion.LockKey())
	assert.Equal(t, 9, withVersion.CreatorID())
	assert.Empty(t, withVersion.Groups(), "version groups shadow the quote's")

	withVersion.SetGroups(GroupList{{ID: "g2"}})
	assert.Len(t, quote.GroupDescription, 1, "writes through a version never touch the base quote")
	assert.Equal(t, "g2", version.GroupDescription[0].ID)
}
