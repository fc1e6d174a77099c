// Package models - JSONB value types for the group description columns.
package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// RowsGroup is a named bucket of line-rows for subtotal display. Groups are
// never shared between versions; membership is remapped on fork.
type RowsGroup struct {
	ID         string   `json:"id" example:"7f0b2e14-6c55-4b67-a1b1-0d6f8f1c9a10"`
	Name       string   `json:"name" example:"Servers"`
	SearchText string   `json:"search_text" example:"srv"`
	IsSelected bool     `json:"is_selected" example:"false"`
	RowsIDs    []string `json:"rows_ids"`
}

// GroupList is the ordered group_description column, stored as JSONB and
// always read-modify-written as a whole.
type GroupList []RowsGroup

// Value implements the driver.Valuer interface
func (g GroupList) Value() (driver.Value, error) {
	if g == nil {
		return json.Marshal(GroupList{})
	}
	return json.Marshal(g)
}

// Scan implements the sql.Scanner interface
func (g *GroupList) Scan(value interface{}) error {
	if value == nil {
		*g = GroupList{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			bytes = []byte(s)
		} else {
			return errors.New("type assertion to []byte failed")
		}
	}

	if len(bytes) == 0 {
		*g = GroupList{}
		return nil
	}

	var result GroupList
	if err := json.Unmarshal(bytes, &result); err != nil {
		return err
	}
	*g = result
	return nil
}

// FindByID returns the index of the group with the given id, or -1.
func (g GroupList) FindByID(id string) int {
	for i := range g {
		if g[i].ID == id {
			return i
		}
	}
	return -1
}

// HasName reports whether any group other than excludeID carries the name.
func (g GroupList) HasName(name, excludeID string) bool {
	for i := range g {
		if g[i].Name == name && g[i].ID != excludeID {
			return true
		}
	}
	return false
}

// SortColumn is one ordering rule of the sort_group_description spec.
// Column is one of name, search_text, total_count, total_price.
type SortColumn struct {
	Column    string `json:"column" example:"total_price"`
	Direction string `json:"direction" example:"desc"`
}

// SortSpec is the sort_group_description column. A nil spec means the
// insertion order of the group list is kept.
type SortSpec []SortColumn

// Value implements the driver.Valuer interface
func (s SortSpec) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

// Scan implements the sql.Scanner interface
func (s *SortSpec) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		if str, ok := value.(string); ok {
			bytes = []byte(str)
		} else {
			return errors.New("type assertion to []byte failed")
		}
	}

	if len(bytes) == 0 {
		*s = nil
		return nil
	}

	var result SortSpec
	if err := json.Unmarshal(bytes, &result); err != nil {
		return err
	}
	*s = result
	return nil
}
