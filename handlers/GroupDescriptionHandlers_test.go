package handlers

import (
	"backend/models"
	"backend/services"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVersionResolver struct {
	state *models.EditableState
	forks int
}

func (s *stubVersionResolver) ResolveEditableState(quoteID uint) (*models.EditableState, error) {
	return s.state, nil
}

func (s *stubVersionResolver) CreateNewVersionIfNonCreator(quoteID uint, actingUserID int) (*models.EditableState, error) {
	s.forks++
	return s.state, nil
}

type stubRowSource struct{}

func (stubRowSource) StateRows(quoteID, versionID int) ([]models.MappedRow, error) {
	return nil, nil
}

func (stubRowSource) SearchStateRows(quoteID, versionID int, search string, includeIDs []string) ([]models.MappedRow, error) {
	return nil, nil
}

func (stubRowSource) RemapReplicated(versionID int, oldRowIDs []string) ([]string, error) {
	return oldRowIDs, nil
}

type stubStateStore struct{ saves int }

func (s *stubStateStore) SaveGroupDescription(state *models.EditableState) error {
	s.saves++
	return nil
}

type stubAuditSink struct{}

func (stubAuditSink) Enqueue(entry models.AuditEntry) {}

func quoteStateWithGroup() *models.EditableState {
	return &models.EditableState{
		Quote: &models.QuoteGorm{
			ID:          1,
			QuoteNumber: "EQ-10023",
			CreatedBy:   7,
			GroupDescription: models.GroupList{
				{ID: "g1", Name: "Services", RowsIDs: []string{"r1"}},
			},
		},
	}
}

func newGroupsRouter(resolver *stubVersionResolver, store *stubStateStore) *gin.Engine {
	gin.SetMode(gin.TestMode)

	groups := services.NewGroupDescriptionService(
		resolver, stubRowSource{}, store, services.NewKeyedMutex(), stubAuditSink{})

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("currentUser", &models.User{ID: 7, FirstName: "Jane", LastName: "Doe"})
	})
	r.POST("/api/quotes/:id/groups", CreateRowsGroupHandler(groups, resolver))
	r.PUT("/api/quotes/:id/groups/:groupId", UpdateRowsGroupHandler(groups, resolver))
	return r
}

func doGroupsRequest(t *testing.T, r *gin.Engine, method, url string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(method, url, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateRowsGroupRejectsDuplicateName(t *testing.T) {
	resolver := &stubVersionResolver{state: quoteStateWithGroup()}
	store := &stubStateStore{}
	r := newGroupsRouter(resolver, store)

	w := doGroupsRequest(t, r, http.MethodPost, "/api/quotes/1/groups",
		models.CreateGroupRequest{Name: "Services"})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "already exists")
	assert.Equal(t, 0, store.saves, "store must not be reached on a name collision")
	assert.Equal(t, 0, resolver.forks)
}

func TestCreateRowsGroupAcceptsNewName(t *testing.T) {
	resolver := &stubVersionResolver{state: quoteStateWithGroup()}
	store := &stubStateStore{}
	r := newGroupsRouter(resolver, store)

	w := doGroupsRequest(t, r, http.MethodPost, "/api/quotes/1/groups",
		models.CreateGroupRequest{Name: "Hardware"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, store.saves)
}

func TestUpdateRowsGroupKeepsOwnName(t *testing.T) {
	resolver := &stubVersionResolver{state: quoteStateWithGroup()}
	store := &stubStateStore{}
	r := newGroupsRouter(resolver, store)

	w := doGroupsRequest(t, r, http.MethodPut, "/api/quotes/1/groups/g1",
		models.UpdateGroupRequest{Name: "Services"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, store.saves)
}
