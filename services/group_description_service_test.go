package services

import (
	"backend/models"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVersionResolver struct {
	state  *models.EditableState
	forked *models.EditableState
	err    error
}

func (f *fakeVersionResolver) ResolveEditableState(quoteID uint) (*models.EditableState, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.state, nil
}

func (f *fakeVersionResolver) CreateNewVersionIfNonCreator(quoteID uint, actingUserID int) (*models.EditableState, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.forked != nil && actingUserID != f.state.CreatorID() {
		return f.forked, nil
	}
	return f.state, nil
}

type fakeRowSource struct {
	rows  map[int][]models.MappedRow // keyed by version id, 0 = base state
	remap map[string]string
}

func (f *fakeRowSource) StateRows(quoteID, versionID int) ([]models.MappedRow, error) {
	return f.rows[versionID], nil
}

func (f *fakeRowSource) SearchStateRows(quoteID, versionID int, search string, includeIDs []string) ([]models.MappedRow, error) {
	include := make(map[string]bool, len(includeIDs))
	for _, id := range includeIDs {
		include[id] = true
	}

	var tokens []string
	for _, t := range strings.Split(search, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tokens = append(tokens, strings.ToLower(t))
		}
	}

	var out []models.MappedRow
	for _, r := range f.rows[versionID] {
		if include[r.ID] {
			out = append(out, r)
			continue
		}
		haystack := strings.ToLower(r.ProductNo + " " + r.Description + " " + r.SerialNo)
		for _, t := range tokens {
			if strings.Contains(haystack, t) {
				out = append(out, r)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeRowSource) RemapReplicated(versionID int, oldRowIDs []string) ([]string, error) {
	var out []string
	for _, id := range oldRowIDs {
		if newID, ok := f.remap[id]; ok {
			out = append(out, newID)
		}
	}
	return out, nil
}

type fakeStateStore struct {
	mu    sync.Mutex
	saves []models.GroupList
	err   error
}

func (f *fakeStateStore) SaveGroupDescription(state *models.EditableState) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	saved := make(models.GroupList, len(state.Groups()))
	copy(saved, state.Groups())
	f.saves = append(f.saves, saved)
	return nil
}

func (f *fakeStateStore) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saves)
}

type fakeAuditSink struct {
	mu      sync.Mutex
	entries []models.AuditEntry
}

func (f *fakeAuditSink) Enqueue(entry models.AuditEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
}

type failingLockProvider struct{}

func (failingLockProvider) Acquire(key string, wait time.Duration) (Lock, error) {
	return nil, ErrLockTimeout
}

func baseQuoteState(groups models.GroupList) *models.EditableState {
	return &models.EditableState{
		Quote: &models.QuoteGorm{
			ID:               1,
			QuoteNumber:      "EQ-10023",
			CustomerName:     "Foster Wheeler Ltd",
			CreatedBy:        7,
			GroupDescription: groups,
		},
	}
}

func newTestService(state *models.EditableState, rows *fakeRowSource) (*GroupDescriptionService, *fakeStateStore, *fakeAuditSink, *fakeVersionResolver) {
	resolver := &fakeVersionResolver{state: state}
	store := &fakeStateStore{}
	audit := &fakeAuditSink{}
	svc := NewGroupDescriptionService(resolver, rows, store, NewKeyedMutex(), audit)
	return svc, store, audit, resolver
}

func testRows() *fakeRowSource {
	return &fakeRowSource{
		rows: map[int][]models.MappedRow{
			0: {
				{ID: "r1", QuoteID: 1, ProductNo: "P9B20A", Description: "HPE 3Y FC NBD Exch SVC", Price: 100.10},
				{ID: "r2", QuoteID: 1, ProductNo: "P9B21A", Description: "HPE 5Y FC NBD Exch SVC", Price: 50.05},
				{ID: "r3", QuoteID: 1, ProductNo: "Q8C30B", Description: "Storage expansion", Price: 75},
			},
		},
	}
}

func TestRetrieveRowsGroupsAggregates(t *testing.T) {
	groups := models.GroupList{
		{ID: "g1", Name: "Services", RowsIDs: []string{"r1", "r2", "missing"}},
		{ID: "g2", Name: "Hardware", RowsIDs: []string{"r3"}},
		{ID: "g3", Name: "Empty"},
	}
	svc, _, _, _ := newTestService(baseQuoteState(groups), testRows())

	views, err := svc.RetrieveRowsGroups(1)
	require.NoError(t, err)
	require.Len(t, views, 3)

	assert.Equal(t, 2, views[0].TotalCount)
	assert.Equal(t, 150.15, views[0].TotalPrice)
	assert.Equal(t, 1, views[1].TotalCount)
	assert.Equal(t, 75.0, views[1].TotalPrice)
	assert.Equal(t, 0, views[2].TotalCount)
	assert.Equal(t, 0.0, views[2].TotalPrice)
	assert.NotNil(t, views[2].Rows)
}

func TestRetrieveRowsGroupsAppliesSortSpec(t *testing.T) {
	groups := models.GroupList{
		{ID: "g1", Name: "Alpha", RowsIDs: []string{"r2"}},
		{ID: "g2", Name: "Beta", RowsIDs: []string{"r1"}},
		{ID: "g3", Name: "Gamma", RowsIDs: []string{"r3"}},
	}
	state := baseQuoteState(groups)
	state.Quote.SortGroupDescription = models.SortSpec{{Column: "total_price", Direction: "desc"}}
	svc, _, _, _ := newTestService(state, testRows())

	views, err := svc.RetrieveRowsGroups(1)
	require.NoError(t, err)
	require.Len(t, views, 3)
	assert.Equal(t, "Beta", views[0].Name)
	assert.Equal(t, "Gamma", views[1].Name)
	assert.Equal(t, "Alpha", views[2].Name)
}

func TestSortSpecTiesKeepInsertionOrder(t *testing.T) {
	rows := []models.MappedRow{
		{ID: "r1", Price: 10},
		{ID: "r2", Price: 10},
	}
	groups := models.GroupList{
		{ID: "g1", Name: "First", RowsIDs: []string{"r1"}},
		{ID: "g2", Name: "Second", RowsIDs: []string{"r2"}},
	}

	views := BuildGroupViews(groups, rows, models.SortSpec{{Column: "total_price", Direction: "desc"}})
	require.Len(t, views, 2)
	assert.Equal(t, "First", views[0].Name)
	assert.Equal(t, "Second", views[1].Name)
}

func TestSearchRowsUnionsGroupMembers(t *testing.T) {
	groups := models.GroupList{
		{ID: "g1", Name: "Services", RowsIDs: []string{"r3"}},
	}
	svc, _, _, _ := newTestService(baseQuoteState(groups), testRows())

	// "HPE" matches r1 and r2; r3 joins via the group membership
	rows, err := svc.SearchRows(1, "HPE", "g1")
	require.NoError(t, err)
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	assert.ElementsMatch(t, []string{"r1", "r2", "r3"}, ids)
}

func TestSearchRowsCommaTokensAreORed(t *testing.T) {
	svc, _, _, _ := newTestService(baseQuoteState(nil), testRows())

	rows, err := svc.SearchRows(1, "Q8C30B, 3Y", "")
	require.NoError(t, err)
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	assert.ElementsMatch(t, []string{"r1", "r3"}, ids)
}

func TestFindGroupDescription(t *testing.T) {
	groups := models.GroupList{
		{ID: "g1", Name: "Services", RowsIDs: []string{"r1"}},
	}
	svc, _, _, _ := newTestService(baseQuoteState(groups), testRows())

	view, err := svc.FindGroupDescription(1, "g1")
	require.NoError(t, err)
	assert.Equal(t, "Services", view.Name)
	assert.Equal(t, 1, view.TotalCount)

	_, err = svc.FindGroupDescription(1, "nope")
	assert.ErrorIs(t, err, ErrGroupNotFound)
}

func TestCreateGroupDescription(t *testing.T) {
	svc, store, audit, _ := newTestService(baseQuoteState(nil), testRows())
	actor := Actor{UserID: 7, UserName: "John Doe"}

	created, err := svc.CreateGroupDescription(1, actor, models.CreateGroupRequest{
		Name:       "Servers",
		SearchText: "srv",
		RowsIDs:    []string{"r1", "r2", "r1"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Servers", created.Name)
	assert.Equal(t, []string{"r1", "r2"}, created.RowsIDs, "duplicate row ids are dropped")

	require.Equal(t, 1, store.saveCount())
	require.Len(t, audit.entries, 1)
	assert.Equal(t, "created", audit.entries[0].EventName)
	assert.Equal(t, "group_description", audit.entries[0].Attribute)
	assert.Equal(t, "Quote EQ-10023", audit.entries[0].EventContext)
}

func TestCreateGroupRemapsRowsAfterFork(t *testing.T) {
	base := baseQuoteState(models.GroupList{})
	forkedVersion := &models.QuoteVersionGorm{ID: 5, QuoteID: 1, VersionCode: "RV-01", CreatedBy: 9}
	forked := &models.EditableState{Quote: base.Quote, Version: forkedVersion, WasForked: true}

	rows := testRows()
	rows.rows[5] = []models.MappedRow{
		{ID: "n1", QuoteID: 1, VersionID: 5, ReplicatedRowID: "r1", Price: 100.10},
		{ID: "n2", QuoteID: 1, VersionID: 5, ReplicatedRowID: "r2", Price: 50.05},
	}
	rows.remap = map[string]string{"r1": "n1", "r2": "n2"}

	resolver := &fakeVersionResolver{state: base, forked: forked}
	store := &fakeStateStore{}
	svc := NewGroupDescriptionService(resolver, rows, store, NewKeyedMutex(), &fakeAuditSink{})

	// user 9 is not the creator, so the write lands on the forked version
	created, err := svc.CreateGroupDescription(1, Actor{UserID: 9}, models.CreateGroupRequest{
		Name:    "Servers",
		RowsIDs: []string{"r1", "r2", "gone"},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"n1", "n2"}, created.RowsIDs, "pre-fork ids are remapped, unknown ids dropped")

	require.Equal(t, 1, store.saveCount())
	assert.Equal(t, created.RowsIDs, forked.Version.GroupDescription[0].RowsIDs)
}

func TestCreatorWriteDoesNotFork(t *testing.T) {
	base := baseQuoteState(nil)
	forked := &models.EditableState{Quote: base.Quote, Version: &models.QuoteVersionGorm{ID: 5}, WasForked: true}
	resolver := &fakeVersionResolver{state: base, forked: forked}
	store := &fakeStateStore{}
	svc := NewGroupDescriptionService(resolver, testRows(), store, NewKeyedMutex(), &fakeAuditSink{})

	_, err := svc.CreateGroupDescription(1, Actor{UserID: 7}, models.CreateGroupRequest{Name: "Mine"})
	require.NoError(t, err)
	assert.Len(t, base.Quote.GroupDescription, 1, "creator writes stay on the base state")
}

func TestUpdateGroupDescription(t *testing.T) {
	groups := models.GroupList{
		{ID: "g1", Name: "Old", SearchText: "o", RowsIDs: []string{"r1"}},
	}
	state := baseQuoteState(groups)
	svc, store, _, _ := newTestService(state, testRows())

	err := svc.UpdateGroupDescription(1, "g1", Actor{UserID: 7}, models.UpdateGroupRequest{
		Name:       "New",
		SearchText: "n",
		RowsIDs:    []string{"r2", "r3"},
	})
	require.NoError(t, err)
	assert.Equal(t, "New", state.Groups()[0].Name)
	assert.Equal(t, []string{"r2", "r3"}, state.Groups()[0].RowsIDs)
	assert.Equal(t, 1, store.saveCount())
}

func TestUpdateUnknownGroupFailsWithoutSave(t *testing.T) {
	svc, store, audit, _ := newTestService(baseQuoteState(nil), testRows())

	err := svc.UpdateGroupDescription(1, "nope", Actor{UserID: 7}, models.UpdateGroupRequest{Name: "X"})
	assert.ErrorIs(t, err, ErrGroupNotFound)
	assert.Equal(t, 0, store.saveCount())
	assert.Empty(t, audit.entries)
}

func TestSelectGroupDescription(t *testing.T) {
	groups := models.GroupList{
		{ID: "g1", IsSelected: true},
		{ID: "g2"},
		{ID: "g3", IsSelected: true},
	}
	state := baseQuoteState(groups)
	svc, _, _, _ := newTestService(state, testRows())

	err := svc.SelectGroupDescription(1, Actor{UserID: 7}, []string{"g2"})
	require.NoError(t, err)
	assert.False(t, state.Groups()[0].IsSelected)
	assert.True(t, state.Groups()[1].IsSelected)
	assert.False(t, state.Groups()[2].IsSelected)
}

func TestMoveGroupDescriptionRows(t *testing.T) {
	groups := models.GroupList{
		{ID: "g1", Name: "From", RowsIDs: []string{"r1", "r2"}},
		{ID: "g2", Name: "To", RowsIDs: []string{"r3"}},
	}
	state := baseQuoteState(groups)
	svc, store, _, _ := newTestService(state, testRows())

	err := svc.MoveGroupDescriptionRows(1, Actor{UserID: 7}, models.MoveGroupRowsRequest{
		FromGroupID: "g1",
		ToGroupID:   "g2",
		Rows:        []string{"r1", "r1", "r3"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"r2"}, state.Groups()[0].RowsIDs)
	assert.Equal(t, []string{"r3", "r1"}, state.Groups()[1].RowsIDs, "already-present rows are not duplicated")
	assert.Equal(t, 1, store.saveCount(), "both membership changes land in one save")
}

func TestMoveRowsUnknownGroupFailsAtomically(t *testing.T) {
	groups := models.GroupList{
		{ID: "g1", Name: "From", RowsIDs: []string{"r1"}},
	}
	state := baseQuoteState(groups)
	svc, store, _, _ := newTestService(state, testRows())

	err := svc.MoveGroupDescriptionRows(1, Actor{UserID: 7}, models.MoveGroupRowsRequest{
		FromGroupID: "g1",
		ToGroupID:   "missing",
		Rows:        []string{"r1"},
	})
	assert.ErrorIs(t, err, ErrGroupNotFound)
	assert.Equal(t, []string{"r1"}, state.Groups()[0].RowsIDs, "source group untouched")
	assert.Equal(t, 0, store.saveCount())
}

func TestDeleteGroupDescription(t *testing.T) {
	groups := models.GroupList{
		{ID: "g1"},
		{ID: "g2"},
	}
	state := baseQuoteState(groups)
	state.Quote.SortGroupDescription = models.SortSpec{{Column: "name"}}
	svc, store, audit, _ := newTestService(state, testRows())

	require.NoError(t, svc.DeleteGroupDescription(1, "g1", Actor{UserID: 7}))
	assert.Len(t, state.Groups(), 1)
	assert.NotNil(t, state.Sort(), "sort spec kept while groups remain")

	// unknown id is a no-op but still persists
	require.NoError(t, svc.DeleteGroupDescription(1, "nope", Actor{UserID: 7}))
	assert.Len(t, state.Groups(), 1)

	require.NoError(t, svc.DeleteGroupDescription(1, "g2", Actor{UserID: 7}))
	assert.Empty(t, state.Groups())
	assert.Nil(t, state.Sort(), "deleting the last group clears the sort spec")

	assert.Equal(t, 3, store.saveCount())
	assert.Len(t, audit.entries, 3)
	assert.Equal(t, "deleted", audit.entries[0].EventName)
}

func TestUpdateGroupDescriptionSort(t *testing.T) {
	state := baseQuoteState(models.GroupList{{ID: "g1"}})
	svc, _, _, _ := newTestService(state, testRows())

	spec := models.SortSpec{{Column: "total_count", Direction: "asc"}}
	require.NoError(t, svc.UpdateGroupDescriptionSort(1, Actor{UserID: 7}, spec))
	assert.Equal(t, spec, state.Sort())
}

func TestLockTimeoutSurfacesWithoutSave(t *testing.T) {
	resolver := &fakeVersionResolver{state: baseQuoteState(nil)}
	store := &fakeStateStore{}
	svc := NewGroupDescriptionService(resolver, testRows(), store, failingLockProvider{}, &fakeAuditSink{})

	_, err := svc.CreateGroupDescription(1, Actor{UserID: 7}, models.CreateGroupRequest{Name: "X"})
	assert.ErrorIs(t, err, ErrLockTimeout)
	assert.Equal(t, 0, store.saveCount())
}

func TestLockReleasedOnMutationError(t *testing.T) {
	locks := NewKeyedMutex()
	resolver := &fakeVersionResolver{state: baseQuoteState(nil)}
	store := &fakeStateStore{}
	svc := NewGroupDescriptionService(resolver, testRows(), store, locks, &fakeAuditSink{})

	err := svc.UpdateGroupDescription(1, "missing", Actor{UserID: 7}, models.UpdateGroupRequest{Name: "X"})
	assert.ErrorIs(t, err, ErrGroupNotFound)

	// the state lock must be free again
	lock, err := locks.Acquire("update-quote:1", 50*time.Millisecond)
	require.NoError(t, err)
	lock.Release()
}

func TestLockReleasedOnStoreError(t *testing.T) {
	locks := NewKeyedMutex()
	resolver := &fakeVersionResolver{state: baseQuoteState(nil)}
	store := &fakeStateStore{err: errors.New("disk full")}
	svc := NewGroupDescriptionService(resolver, testRows(), store, locks, &fakeAuditSink{})

	_, err := svc.CreateGroupDescription(1, Actor{UserID: 7}, models.CreateGroupRequest{Name: "X"})
	require.Error(t, err)

	lock, err := locks.Acquire("update-quote:1", 50*time.Millisecond)
	require.NoError(t, err)
	lock.Release()
}

func TestConcurrentMutationsSerialize(t *testing.T) {
	state := baseQuoteState(nil)
	svc, store, _, _ := newTestService(state, testRows())

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateGroupDescription(1, Actor{UserID: 7}, models.CreateGroupRequest{Name: "G"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, state.Groups(), workers, "no concurrent create may be lost")
	assert.Equal(t, workers, store.saveCount())
}

func TestAuditDiffCarriesBeforeAndAfter(t *testing.T) {
	groups := models.GroupList{
		{ID: "g1", Name: "Services", RowsIDs: []string{"r1"}},
	}
	svc, _, audit, _ := newTestService(baseQuoteState(groups), testRows())

	err := svc.UpdateGroupDescription(1, "g1", Actor{UserID: 7, UserName: "John Doe", IPAddress: "10.0.0.1"},
		models.UpdateGroupRequest{Name: "Services", RowsIDs: []string{"r1", "r2"}})
	require.NoError(t, err)

	require.Len(t, audit.entries, 1)
	entry := audit.entries[0]
	assert.Equal(t, "Services: 1 rows, total 100.10", entry.Before)
	assert.Equal(t, "Services: 2 rows, total 150.15", entry.After)
	assert.Equal(t, "John Doe", entry.UserName)
	assert.Equal(t, "10.0.0.1", entry.IPAddress)
}
