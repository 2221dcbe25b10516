package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/abroad-api/internal/dto"
	"github.com/noah-isme/abroad-api/internal/models"
	"github.com/noah-isme/abroad-api/internal/service"
)

func cardIDs(cards []dto.ProgramCard) []string {
	ids := make([]string, 0, len(cards))
	for _, c := range cards {
		ids = append(ids, c.ID)
	}
	return ids
}

func sessionCriteria(sess *service.Session) models.ProgramCriteria {
	var criteria models.ProgramCriteria
	_ = sess.Do(func(st *service.SessionState) error {
		criteria = st.Programs.Criteria()
		return nil
	})
	return criteria
}

func TestProgramHandlerListFirstPage(t *testing.T) {
	sess := newLoadedSession(t, handlerCatalog())
	h := NewProgramHandler(defaultSettings())

	c, w := newEngineContext(http.MethodGet, "/programs", nil, sess)
	h.List(c)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	page, env := decodeData[dto.ProgramPageResponse](t, w)
	assert.Equal(t, []string{"h1", "h2"}, cardIDs(page.Items))
	assert.False(t, page.NoResults)
	assert.Equal(t, models.CatalogReady, page.Catalog.State)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, models.Pagination{Page: 1, PageSize: 2, TotalCount: 5, TotalPages: 3}, *env.Pagination)
}

func TestProgramHandlerListAppliesQueryCriteria(t *testing.T) {
	sess := newLoadedSession(t, handlerCatalog())
	h := NewProgramHandler(defaultSettings())

	c, w := newEngineContext(http.MethodGet, "/programs?country=France", nil, sess)
	h.List(c)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	page, env := decodeData[dto.ProgramPageResponse](t, w)
	assert.Equal(t, []string{"h3", "h5"}, cardIDs(page.Items))
	assert.Equal(t, 2, env.Pagination.TotalCount)
	require.NotNil(t, sessionCriteria(sess).Country)
	assert.Equal(t, "France", *sessionCriteria(sess).Country)

	// criteria persist for later requests without parameters
	c, w = newEngineContext(http.MethodGet, "/programs", nil, sess)
	h.List(c)
	page, _ = decodeData[dto.ProgramPageResponse](t, w)
	assert.Equal(t, []string{"h3", "h5"}, cardIDs(page.Items))
}

func TestProgramHandlerListPageAndSort(t *testing.T) {
	sess := newLoadedSession(t, handlerCatalog())
	h := NewProgramHandler(defaultSettings())

	c, w := newEngineContext(http.MethodGet, "/programs?page=3", nil, sess)
	h.List(c)
	page, _ := decodeData[dto.ProgramPageResponse](t, w)
	assert.Equal(t, []string{"h5"}, cardIDs(page.Items))

	c, w = newEngineContext(http.MethodGet, "/programs?page=1&sort=deadline", nil, sess)
	h.List(c)
	page, _ = decodeData[dto.ProgramPageResponse](t, w)
	require.Equal(t, []string{"h3", "h1"}, cardIDs(page.Items))
	assert.Equal(t, 4, page.Items[0].DaysLeft)
	assert.Equal(t, models.UrgencyUrgent, page.Items[0].Urgency)
	assert.Equal(t, 16, page.Items[1].DaysLeft)

	// sorting never reorders the stored derived set
	c, w = newEngineContext(http.MethodGet, "/programs", nil, sess)
	h.List(c)
	page, _ = decodeData[dto.ProgramPageResponse](t, w)
	assert.Equal(t, []string{"h1", "h2"}, cardIDs(page.Items))
}

func TestProgramHandlerListRejectsInvalidInput(t *testing.T) {
	cases := []struct {
		name   string
		target string
	}{
		{"page zero", "/programs?country=Japan&page=0"},
		{"page not a number", "/programs?country=Japan&page=two"},
		{"inverted budget", "/programs?country=Japan&min_budget=500&max_budget=100"},
		{"negative budget", "/programs?min_budget=-1&max_budget=100"},
		{"missing max budget", "/programs?min_budget=100"},
		{"unknown sort", "/programs?country=Japan&sort=popularity"},
		{"unknown order", "/programs?sort=name&order=sideways"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sess := newLoadedSession(t, handlerCatalog())
			h := NewProgramHandler(defaultSettings())

			c, w := newEngineContext(http.MethodGet, tc.target, nil, sess)
			h.List(c)

			requireErrorCode(t, w, http.StatusBadRequest, "VALIDATION_ERROR")
			assert.True(t, sessionCriteria(sess).IsEmpty(), "criteria must be untouched")
		})
	}
}

func TestProgramHandlerBudgetExcludesUnknownTuition(t *testing.T) {
	sess := newLoadedSession(t, handlerCatalog())
	h := NewProgramHandler(stubSettings{pageSize: 10, window: 30, now: handlerNow()})

	c, w := newEngineContext(http.MethodGet, "/programs?min_budget=0&max_budget=100000", nil, sess)
	h.List(c)

	page, _ := decodeData[dto.ProgramPageResponse](t, w)
	assert.Equal(t, []string{"h1", "h2", "h3", "h5"}, cardIDs(page.Items))
}

func TestProgramHandlerApplyAndClearCriteria(t *testing.T) {
	sess := newLoadedSession(t, handlerCatalog())
	h := NewProgramHandler(defaultSettings())

	c, w := newEngineContext(http.MethodGet, "/programs/page/2", nil, sess)
	c.Params = gin.Params{{Key: "page", Value: "2"}}
	h.Page(c)
	page, _ := decodeData[dto.ProgramPageResponse](t, w)
	assert.Equal(t, []string{"h3", "h4"}, cardIDs(page.Items))

	body := dto.CriteriaRequest{Query: "  SCIENCE ", Country: ptr("Germany")}
	c, w = newEngineContext(http.MethodPut, "/programs/criteria", body, sess)
	h.ApplyCriteria(c)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	page, env := decodeData[dto.ProgramPageResponse](t, w)
	assert.Equal(t, []string{"h1", "h2"}, cardIDs(page.Items))
	assert.Equal(t, 1, env.Pagination.Page, "changing criteria resets the page")

	c, w = newEngineContext(http.MethodPut, "/programs/criteria", dto.CriteriaRequest{Query: "quantum"}, sess)
	h.ApplyCriteria(c)
	page, _ = decodeData[dto.ProgramPageResponse](t, w)
	assert.Empty(t, page.Items)
	assert.True(t, page.NoResults)

	c, w = newEngineContext(http.MethodDelete, "/programs/criteria", nil, sess)
	h.ClearCriteria(c)
	page, env = decodeData[dto.ProgramPageResponse](t, w)
	assert.Equal(t, []string{"h1", "h2"}, cardIDs(page.Items))
	assert.Equal(t, 5, env.Pagination.TotalCount)
	assert.True(t, page.Criteria.IsEmpty())
}

func TestProgramHandlerApplyCriteriaValidation(t *testing.T) {
	sess := newLoadedSession(t, handlerCatalog())
	h := NewProgramHandler(defaultSettings())

	c, w := newEngineContext(http.MethodPut, "/programs/criteria", `{"query":`, sess)
	h.ApplyCriteria(c)
	requireErrorCode(t, w, http.StatusBadRequest, "VALIDATION_ERROR")

	body := dto.CriteriaRequest{Country: ptr("France"), Budget: &models.BudgetRange{Min: 10, Max: 5}}
	c, w = newEngineContext(http.MethodPut, "/programs/criteria", body, sess)
	h.ApplyCriteria(c)
	requireErrorCode(t, w, http.StatusBadRequest, "VALIDATION_ERROR")
	assert.True(t, sessionCriteria(sess).IsEmpty())

	c, w = newEngineContext(http.MethodGet, "/programs/page/0", nil, sess)
	c.Params = gin.Params{{Key: "page", Value: "0"}}
	h.Page(c)
	requireErrorCode(t, w, http.StatusBadRequest, "VALIDATION_ERROR")
}

func TestProgramHandlerPagePastEndIsEmpty(t *testing.T) {
	sess := newLoadedSession(t, handlerCatalog())
	h := NewProgramHandler(defaultSettings())

	c, w := newEngineContext(http.MethodGet, "/programs/page/9", nil, sess)
	c.Params = gin.Params{{Key: "page", Value: "9"}}
	h.Page(c)

	require.Equal(t, http.StatusOK, w.Code)
	page, env := decodeData[dto.ProgramPageResponse](t, w)
	assert.Empty(t, page.Items)
	assert.False(t, page.NoResults)
	assert.Equal(t, 3, env.Pagination.TotalPages)
}

func TestProgramHandlerFacetsAndGet(t *testing.T) {
	sess := newLoadedSession(t, handlerCatalog())
	h := NewProgramHandler(defaultSettings())

	c, w := newEngineContext(http.MethodGet, "/programs/facets", nil, sess)
	h.Facets(c)
	facets, _ := decodeData[models.ProgramFacets](t, w)
	assert.Equal(t, []string{"France", "Germany", "Japan"}, facets.Countries)
	assert.Equal(t, []string{"Arts", "Computer Science", "Economics", "Medicine"}, facets.Fields)
	require.NotNil(t, facets.MinTuition)
	assert.Equal(t, 1000.0, *facets.MinTuition)
	assert.Equal(t, 15000.0, *facets.MaxTuition)
	assert.Equal(t, 5, facets.Total)

	_ = sess.Do(func(st *service.SessionState) error {
		st.Saved.Toggle("h4")
		return nil
	})
	c, w = newEngineContext(http.MethodGet, "/programs/h4", nil, sess)
	c.Params = gin.Params{{Key: "id", Value: "h4"}}
	h.Get(c)
	card, _ := decodeData[dto.ProgramCard](t, w)
	assert.Equal(t, "Medicine MD", card.Name)
	assert.True(t, card.Saved)
	assert.Equal(t, models.UrgencyUpcoming, card.Urgency)

	c, w = newEngineContext(http.MethodGet, "/programs/nope", nil, sess)
	c.Params = gin.Params{{Key: "id", Value: "nope"}}
	h.Get(c)
	requireErrorCode(t, w, http.StatusNotFound, "NOT_FOUND")
}

func TestProgramHandlerRequiresSession(t *testing.T) {
	h := NewProgramHandler(defaultSettings())
	c, w := newEngineContext(http.MethodGet, "/programs", nil, nil)
	h.List(c)
	requireErrorCode(t, w, http.StatusUnauthorized, "UNAUTHORIZED")
}
