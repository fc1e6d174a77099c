package services

import (
	"backend/models"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// ErrGroupNotFound is returned when a referenced group id is absent from
// the editable state's group list.
var ErrGroupNotFound = errors.New("rows group not found")

// Actor identifies the user behind a mutation for copy-on-write and audit
// purposes.
type Actor struct {
	UserID    int
	UserName  string
	HostName  string
	IPAddress string
}

// RowSource is the row-query provider. versionID 0 addresses the base
// quote state.
type RowSource interface {
	StateRows(quoteID, versionID int) ([]models.MappedRow, error)
	SearchStateRows(quoteID, versionID int, search string, includeIDs []string) ([]models.MappedRow, error)
	RemapReplicated(versionID int, oldRowIDs []string) ([]string, error)
}

// VersionResolver abstracts the version selector.
type VersionResolver interface {
	ResolveEditableState(quoteID uint) (*models.EditableState, error)
	CreateNewVersionIfNonCreator(quoteID uint, actingUserID int) (*models.EditableState, error)
}

// StateStore persists the group description and sort spec of an editable
// state in one transaction.
type StateStore interface {
	SaveGroupDescription(state *models.EditableState) error
}

// GroupDescriptionService owns the group_description list of a quote
// state: CRUD, selection, row moves and sorted aggregate views. Every
// write follows a fixed protocol: resolve the editable state (forking for
// non-creators), take the per-state lock, snapshot, mutate, persist,
// snapshot again and enqueue the audit diff. The lock is released on every
// exit path.
type GroupDescriptionService struct {
	versions VersionResolver
	rows     RowSource
	store    StateStore
	locks    LockProvider
	audit    AuditSink
}

func NewGroupDescriptionService(versions VersionResolver, rows RowSource, store StateStore, locks LockProvider, audit AuditSink) *GroupDescriptionService {
	return &GroupDescriptionService{
		versions: versions,
		rows:     rows,
		store:    store,
		locks:    locks,
		audit:    audit,
	}
}

// mutate runs fn against the editable state of the quote under the state
// lock and persists the result.
func (gs *GroupDescriptionService) mutate(quoteID uint, actor Actor, verb string, fn func(state *models.EditableState) error) error {
	state, err := gs.versions.CreateNewVersionIfNonCreator(quoteID, actor.UserID)
	if err != nil {
		return err
	}

	lock, err := gs.locks.Acquire(state.LockKey(), LockWaitBudget)
	if err != nil {
		return err
	}
	defer lock.Release()

	before := gs.snapshot(state)

	if err := fn(state); err != nil {
		return err
	}
	if err := gs.store.SaveGroupDescription(state); err != nil {
		return err
	}

	after := gs.snapshot(state)

	if gs.audit != nil {
		gs.audit.Enqueue(models.AuditEntry{
			QuoteID:      int(state.Quote.ID),
			VersionID:    state.VersionID(),
			EventContext: "Quote " + state.Quote.QuoteNumber,
			EventName:    verb,
			Attribute:    "group_description",
			Before:       before,
			After:        after,
			UserName:     actor.UserName,
			HostName:     actor.HostName,
			IPAddress:    actor.IPAddress,
		})
	}
	return nil
}

// remapIfForked translates row ids supplied against the pre-fork state
// into the forked version's row ids. Identity passthrough when no fork
// happened.
func (gs *GroupDescriptionService) remapIfForked(state *models.EditableState, rowIDs []string) ([]string, error) {
	if !state.WasForked || len(rowIDs) == 0 {
		return rowIDs, nil
	}
	return gs.rows.RemapReplicated(state.VersionID(), rowIDs)
}

// RetrieveRowsGroups returns every group of the quote's editable state
// joined against its live rows, with count and price aggregates, in the
// state's configured sort order. Pure read, no lock taken.
func (gs *GroupDescriptionService) RetrieveRowsGroups(quoteID uint) ([]models.GroupWithRows, error) {
	state, err := gs.versions.ResolveEditableState(quoteID)
	if err != nil {
		return nil, err
	}

	rows, err := gs.rows.StateRows(int(state.Quote.ID), state.VersionID())
	if err != nil {
		return nil, err
	}

	return BuildGroupViews(state.Groups(), rows, state.Sort()), nil
}

// SearchRows free-text matches the state's rows, unioned with the rows
// already belonging to groupID when given.
func (gs *GroupDescriptionService) SearchRows(quoteID uint, search, groupID string) ([]models.MappedRow, error) {
	state, err := gs.versions.ResolveEditableState(quoteID)
	if err != nil {
		return nil, err
	}

	var includeIDs []string
	if groupID != "" {
		if i := state.Groups().FindByID(groupID); i >= 0 {
			includeIDs = state.Groups()[i].RowsIDs
		}
	}

	return gs.rows.SearchStateRows(int(state.Quote.ID), state.VersionID(), search, includeIDs)
}

// FindGroupDescription returns one enriched group of the editable state.
func (gs *GroupDescriptionService) FindGroupDescription(quoteID uint, groupID string) (*models.GroupWithRows, error) {
	state, err := gs.versions.ResolveEditableState(quoteID)
	if err != nil {
		return nil, err
	}

	groups := state.Groups()
	i := groups.FindByID(groupID)
	if i < 0 {
		return nil, ErrGroupNotFound
	}

	rows, err := gs.rows.StateRows(int(state.Quote.ID), state.VersionID())
	if err != nil {
		return nil, err
	}

	views := BuildGroupViews(models.GroupList{groups[i]}, rows, nil)
	return &views[0], nil
}

// CreateGroupDescription appends a new group with a fresh id to the
// editable state's list.
func (gs *GroupDescriptionService) CreateGroupDescription(quoteID uint, actor Actor, attrs models.CreateGroupRequest) (*models.RowsGroup, error) {
	var created models.RowsGroup
	err := gs.mutate(quoteID, actor, "created", func(state *models.EditableState) error {
		rowsIDs, err := gs.remapIfForked(state, attrs.RowsIDs)
		if err != nil {
			return err
		}

		created = models.RowsGroup{
			ID:         uuid.NewString(),
			Name:       attrs.Name,
			SearchText: attrs.SearchText,
			RowsIDs:    dedupe(rowsIDs),
		}
		state.SetGroups(append(state.Groups(), created))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateGroupDescription overwrites an existing group's name, search text
// and member rows.
func (gs *GroupDescriptionService) UpdateGroupDescription(quoteID uint, groupID string, actor Actor, attrs models.UpdateGroupRequest) error {
	return gs.mutate(quoteID, actor, "updated", func(state *models.EditableState) error {
		groups := state.Groups()
		i := groups.FindByID(groupID)
		if i < 0 {
			return ErrGroupNotFound
		}

		rowsIDs, err := gs.remapIfForked(state, attrs.RowsIDs)
		if err != nil {
			return err
		}

		groups[i].Name = attrs.Name
		groups[i].SearchText = attrs.SearchText
		groups[i].RowsIDs = dedupe(rowsIDs)
		state.SetGroups(groups)
		return nil
	})
}

// SelectGroupDescription marks exactly the given groups selected across
// the whole list.
func (gs *GroupDescriptionService) SelectGroupDescription(quoteID uint, actor Actor, groupIDs []string) error {
	selected := make(map[string]bool, len(groupIDs))
	for _, id := range groupIDs {
		selected[id] = true
	}

	return gs.mutate(quoteID, actor, "updated", func(state *models.EditableState) error {
		groups := state.Groups()
		for i := range groups {
			groups[i].IsSelected = selected[groups[i].ID]
		}
		state.SetGroups(groups)
		return nil
	})
}

// MoveGroupDescriptionRows moves the given rows from one group to another
// in a single locked write. Both groups must exist.
func (gs *GroupDescriptionService) MoveGroupDescriptionRows(quoteID uint, actor Actor, attrs models.MoveGroupRowsRequest) error {
	return gs.mutate(quoteID, actor, "updated", func(state *models.EditableState) error {
		groups := state.Groups()
		from := groups.FindByID(attrs.FromGroupID)
		to := groups.FindByID(attrs.ToGroupID)
		if from < 0 || to < 0 {
			return ErrGroupNotFound
		}

		moving, err := gs.remapIfForked(state, dedupe(attrs.Rows))
		if err != nil {
			return err
		}

		groups[from].RowsIDs = removeAll(groups[from].RowsIDs, moving)
		groups[to].RowsIDs = appendMissing(groups[to].RowsIDs, moving)
		state.SetGroups(groups)
		return nil
	})
}

// DeleteGroupDescription removes the group from the list; removal of an
// unknown id is a no-op. Deleting the last group also clears the sort
// spec, there being nothing left to sort.
func (gs *GroupDescriptionService) DeleteGroupDescription(quoteID uint, groupID string, actor Actor) error {
	return gs.mutate(quoteID, actor, "deleted", func(state *models.EditableState) error {
		groups := state.Groups()
		if i := groups.FindByID(groupID); i >= 0 {
			groups = append(groups[:i], groups[i+1:]...)
		}
		state.SetGroups(groups)
		if len(groups) == 0 {
			state.SetSort(nil)
		}
		return nil
	})
}

// UpdateGroupDescriptionSort replaces the state's sort spec.
func (gs *GroupDescriptionService) UpdateGroupDescriptionSort(quoteID uint, actor Actor, spec models.SortSpec) error {
	return gs.mutate(quoteID, actor, "updated", func(state *models.EditableState) error {
		state.SetSort(spec)
		return nil
	})
}

// snapshot renders the joined group view as a comparable string for the
// audit diff. Best effort: a failed read yields an empty snapshot, never a
// failed mutation.
func (gs *GroupDescriptionService) snapshot(state *models.EditableState) string {
	rows, err := gs.rows.StateRows(int(state.Quote.ID), state.VersionID())
	if err != nil {
		log.Printf("[groups] snapshot read failed for quote %d: %v", state.Quote.ID, err)
		return ""
	}

	views := BuildGroupViews(state.Groups(), rows, state.Sort())
	lines := make([]string, 0, len(views))
	for _, v := range views {
		lines = append(lines, fmt.Sprintf("%s: %d rows, total %.2f", v.Name, v.TotalCount, v.TotalPrice))
	}
	return strings.Join(lines, "; ")
}

// BuildGroupViews joins groups against live rows, computes the count and
// price aggregates and applies the sort spec. Ids referencing no existing
// row are skipped in the aggregates. Ties keep insertion order.
func BuildGroupViews(groups models.GroupList, rows []models.MappedRow, spec models.SortSpec) []models.GroupWithRows {
	byID := make(map[string]models.MappedRow, len(rows))
	for _, r := range rows {
		byID[r.ID] = r
	}

	views := make([]models.GroupWithRows, 0, len(groups))
	for _, g := range groups {
		view := models.GroupWithRows{RowsGroup: g, Rows: []models.MappedRow{}}
		var total float64
		for _, id := range g.RowsIDs {
			row, ok := byID[id]
			if !ok {
				continue
			}
			view.Rows = append(view.Rows, row)
			total += row.Price
		}
		view.TotalCount = len(view.Rows)
		view.TotalPrice = roundPrice(total)
		views = append(views, view)
	}

	applySortSpec(views, spec)
	return views
}

func applySortSpec(views []models.GroupWithRows, spec models.SortSpec) {
	if len(spec) == 0 {
		return
	}

	sort.SliceStable(views, func(i, j int) bool {
		for _, col := range spec {
			cmp := compareColumn(views[i], views[j], col.Column)
			if cmp == 0 {
				continue
			}
			if strings.EqualFold(col.Direction, "desc") {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

func compareColumn(a, b models.GroupWithRows, column string) int {
	switch column {
	case "name":
		return strings.Compare(a.Name, b.Name)
	case "search_text":
		return strings.Compare(a.SearchText, b.SearchText)
	case "total_count":
		return a.TotalCount - b.TotalCount
	case "total_price":
		switch {
		case a.TotalPrice < b.TotalPrice:
			return -1
		case a.TotalPrice > b.TotalPrice:
			return 1
		}
	}
	return 0
}

func roundPrice(v float64) float64 {
	return math.Round(v*100) / 100
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func removeAll(ids, toRemove []string) []string {
	drop := make(map[string]bool, len(toRemove))
	for _, id := range toRemove {
		drop[id] = true
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !drop[id] {
			out = append(out, id)
		}
	}
	return out
}

func appendMissing(ids, toAdd []string) []string {
	present := make(map[string]bool, len(ids))
	for _, id := range ids {
		present[id] = true
	}
	for _, id := range toAdd {
		if !present[id] {
			present[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}
