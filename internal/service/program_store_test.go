package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/abroad-api/internal/models"
	appErrors "github.com/noah-isme/abroad-api/pkg/errors"
)

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func programIDs(programs []models.Program) []string {
	ids := make([]string, 0, len(programs))
	for _, p := range programs {
		ids = append(ids, p.ID)
	}
	return ids
}

func sampleCatalog() []models.Program {
	deadline := time.Date(2026, time.December, 1, 0, 0, 0, 0, time.UTC)
	return []models.Program{
		{ID: "p1", Name: "Mechanical Engineering MSc", University: strPtr("TU Munich"), Country: "Germany", Field: "Engineering", TuitionFee: floatPtr(0), Scholarship: 1200, Deadline: deadline, Description: "Tuition-free research master"},
		{ID: "p2", Name: "Computer Science MS", University: strPtr("Stanford University"), Country: "USA", Field: "Computer Science", TuitionFee: floatPtr(40000), Scholarship: 5000, Deadline: deadline.AddDate(0, 1, 0), Description: "Systems and AI tracks"},
		{ID: "p3", Name: "Data Science MSc", University: strPtr("University of Amsterdam"), Country: "Netherlands", Field: "Computer Science", TuitionFee: floatPtr(18000), Scholarship: 0, Deadline: deadline.AddDate(0, 0, -10), Description: "Statistics and machine learning"},
		{ID: "p4", Name: "Public Health MPH", Country: "USA", Field: "Medicine", Deadline: deadline.AddDate(0, 2, 0), Description: "Tuition to be announced"},
		{ID: "p5", Name: "Renewable Energy MSc", University: strPtr("RWTH Aachen"), Country: "Germany", Field: "Engineering", TuitionFee: floatPtr(3000), Scholarship: 800, Deadline: deadline.AddDate(0, 0, 5), Description: "Wind and solar systems"},
	}
}

func newSampleStore(t *testing.T) *ProgramStore {
	t.Helper()
	store, err := NewProgramStore(sampleCatalog())
	require.NoError(t, err)
	return store
}

func TestProgramStoreCountryAndBudget(t *testing.T) {
	store, err := NewProgramStore([]models.Program{
		{ID: "P1", Name: "One", Country: "Germany", Field: "Engineering", TuitionFee: floatPtr(0)},
		{ID: "P2", Name: "Two", Country: "USA", Field: "Engineering", TuitionFee: floatPtr(40000)},
	})
	require.NoError(t, err)

	store.SetCountry(strPtr("Germany"))
	assert.Equal(t, []string{"P1"}, programIDs(store.FilteredPrograms()))

	require.NoError(t, store.SetBudgetRange(&models.BudgetRange{Min: 0, Max: 0}))
	assert.Equal(t, []string{"P1"}, programIDs(store.FilteredPrograms()))

	require.NoError(t, store.SetBudgetRange(&models.BudgetRange{Min: 10, Max: 50000}))
	assert.Empty(t, store.FilteredPrograms())
}

func TestProgramStoreEmptyCatalog(t *testing.T) {
	store, err := NewProgramStore(nil)
	require.NoError(t, err)
	store.SetQuery("anything")
	assert.NotNil(t, store.FilteredPrograms())
	assert.Empty(t, store.FilteredPrograms())
}

func TestProgramStoreWhitespaceQueryIsEmpty(t *testing.T) {
	store := newSampleStore(t)
	store.SetQuery("   \t ")
	assert.Equal(t, []string{"p1", "p2", "p3", "p4", "p5"}, programIDs(store.FilteredPrograms()))
}

func TestProgramStoreQueryMatchesNameUniversityAndDescription(t *testing.T) {
	store := newSampleStore(t)

	store.SetQuery("  STANFORD ")
	assert.Equal(t, []string{"p2"}, programIDs(store.FilteredPrograms()))

	store.SetQuery("msc")
	assert.Equal(t, []string{"p1", "p3", "p5"}, programIDs(store.FilteredPrograms()))

	store.SetQuery("machine learning")
	assert.Equal(t, []string{"p3"}, programIDs(store.FilteredPrograms()))
}

func TestProgramStoreBudgetExcludesUnknownTuition(t *testing.T) {
	store := newSampleStore(t)
	store.SetCountry(strPtr("USA"))
	assert.Equal(t, []string{"p2", "p4"}, programIDs(store.FilteredPrograms()))

	require.NoError(t, store.SetBudgetRange(&models.BudgetRange{Min: 0, Max: 1000000}))
	assert.Equal(t, []string{"p2"}, programIDs(store.FilteredPrograms()))
}

func TestProgramStoreBudgetExactBoundary(t *testing.T) {
	store := newSampleStore(t)
	require.NoError(t, store.SetBudgetRange(&models.BudgetRange{Min: 18000, Max: 18000}))
	assert.Equal(t, []string{"p3"}, programIDs(store.FilteredPrograms()))
}

func TestProgramStoreRejectsInvalidBudget(t *testing.T) {
	store := newSampleStore(t)
	require.NoError(t, store.SetBudgetRange(&models.BudgetRange{Min: 0, Max: 5000}))
	require.NoError(t, store.SetPage(2))

	err := store.SetBudgetRange(&models.BudgetRange{Min: 9000, Max: 100})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	criteria := store.Criteria()
	require.NotNil(t, criteria.Budget)
	assert.Equal(t, models.BudgetRange{Min: 0, Max: 5000}, *criteria.Budget)
	assert.Equal(t, 2, store.Page())

	err = store.ApplyCriteria(models.ProgramCriteria{Query: "x", Budget: &models.BudgetRange{Min: -1, Max: 5}})
	require.Error(t, err)
	assert.Equal(t, "", store.Criteria().Query)
}

func TestProgramStoreDeterministicAndIdempotent(t *testing.T) {
	store := newSampleStore(t)
	store.SetField(strPtr("Computer Science"))
	first := store.FilteredPrograms()
	second := store.FilteredPrograms()
	assert.Equal(t, first, second)

	store.SetField(strPtr("Computer Science"))
	assert.Equal(t, first, store.FilteredPrograms())
}

func TestProgramStoreClearRestoresCatalogOrder(t *testing.T) {
	store := newSampleStore(t)
	store.SetQuery("msc")
	store.SetCountry(strPtr("Germany"))
	require.NoError(t, store.SetBudgetRange(&models.BudgetRange{Min: 1, Max: 5000}))
	assert.Equal(t, []string{"p5"}, programIDs(store.FilteredPrograms()))

	store.ClearCriteria()
	assert.True(t, store.Criteria().IsEmpty())
	assert.Equal(t, programIDs(sampleCatalog()), programIDs(store.FilteredPrograms()))
}

func TestProgramStoreBlankChoiceMeansAny(t *testing.T) {
	store := newSampleStore(t)
	store.SetCountry(strPtr("Germany"))
	store.SetCountry(strPtr("  "))
	assert.Nil(t, store.Criteria().Country)
	assert.Len(t, store.FilteredPrograms(), 5)
}

func TestProgramStoreCriterionChangeResetsPage(t *testing.T) {
	store := newSampleStore(t)
	require.NoError(t, store.SetPage(3))
	store.SetQuery("msc")
	assert.Equal(t, 1, store.Page())

	require.NoError(t, store.SetPage(2))
	store.ClearCriteria()
	assert.Equal(t, 1, store.Page())

	assert.Error(t, store.SetPage(0))
}

func TestProgramStoreReplaceCatalogRecomputes(t *testing.T) {
	store := newSampleStore(t)
	store.SetCountry(strPtr("Germany"))
	assert.Equal(t, []string{"p1", "p5"}, programIDs(store.FilteredPrograms()))
	version := store.Version()

	require.NoError(t, store.ReplaceCatalog([]models.Program{
		{ID: "p9", Name: "Physics", Country: "Germany", Field: "Science"},
	}))
	assert.Greater(t, store.Version(), version)
	assert.Equal(t, []string{"p9"}, programIDs(store.FilteredPrograms()))
}

func TestProgramStoreReplaceCatalogRejectsDuplicates(t *testing.T) {
	store := newSampleStore(t)
	err := store.ReplaceCatalog([]models.Program{{ID: "x"}, {ID: "x"}})
	require.Error(t, err)
	assert.Len(t, store.Catalog(), 5)
}

func TestProgramStoreFilteredResultsAreCopies(t *testing.T) {
	store := newSampleStore(t)
	results := store.FilteredPrograms()
	results[0].Name = "mutated"
	program, ok := store.Lookup("p1")
	require.True(t, ok)
	assert.Equal(t, "Mechanical Engineering MSc", program.Name)
}

func TestProgramStoreCurrentPage(t *testing.T) {
	store := newSampleStore(t)
	require.NoError(t, store.SetPage(2))
	page := store.CurrentPage(2)
	assert.Equal(t, []string{"p3", "p4"}, programIDs(page.Items))
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 5, page.TotalCount)
}

func TestProgramStoreFacets(t *testing.T) {
	facets := newSampleStore(t).Facets()
	assert.Equal(t, []string{"Germany", "Netherlands", "USA"}, facets.Countries)
	assert.Equal(t, []string{"Computer Science", "Engineering", "Medicine"}, facets.Fields)
	require.NotNil(t, facets.MinTuition)
	require.NotNil(t, facets.MaxTuition)
	assert.Equal(t, 0.0, *facets.MinTuition)
	assert.Equal(t, 40000.0, *facets.MaxTuition)
	assert.Equal(t, 5, facets.Total)
}

func TestSortPrograms(t *testing.T) {
	catalog := sampleCatalog()

	sorted, err := SortPrograms(catalog, models.ProgramSort{By: models.SortByTuition, Order: "desc"})
	require.NoError(t, err)
	assert.Equal(t, []string{"p2", "p3", "p5", "p1", "p4"}, programIDs(sorted))

	sorted, err = SortPrograms(catalog, models.ProgramSort{By: models.SortByDeadline})
	require.NoError(t, err)
	assert.Equal(t, []string{"p3", "p1", "p5", "p2", "p4"}, programIDs(sorted))

	sorted, err = SortPrograms(catalog, models.ProgramSort{})
	require.NoError(t, err)
	assert.Equal(t, programIDs(catalog), programIDs(sorted))

	_, err = SortPrograms(catalog, models.ProgramSort{By: "rank"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	_, err = SortPrograms(catalog, models.ProgramSort{By: models.SortByName, Order: "sideways"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestProgramStoreSeparatorInValueDoesNotReuseResults(t *testing.T) {
	store, err := NewProgramStore([]models.Program{
		{ID: "P1", Name: "One", Country: "Germany", Field: "CS"},
	})
	require.NoError(t, err)

	store.SetCountry(strPtr("Germany|field=CS"))
	assert.Empty(t, store.FilteredPrograms())

	require.NoError(t, store.ApplyCriteria(models.ProgramCriteria{Country: strPtr("Germany"), Field: strPtr("CS")}))
	assert.Equal(t, []string{"P1"}, programIDs(store.FilteredPrograms()))

	store.SetCountry(strPtr("Germany|field=CS"))
	assert.Empty(t, store.FilteredPrograms())
}

func TestProgramCriteriaKeyDistinguishesCriteria(t *testing.T) {
	criteria := []models.ProgramCriteria{
		{},
		{Country: strPtr("")},
		{Country: strPtr("Germany")},
		{Country: strPtr("Germany|field=CS")},
		{Country: strPtr("Germany"), Field: strPtr("CS")},
		{Field: strPtr("CS")},
		{Query: `a"|country="b`},
		{Query: "a", Country: strPtr("b")},
		{Budget: &models.BudgetRange{Min: 1, Max: 2}},
		{Country: strPtr("budget=1-2")},
	}
	seen := make(map[string]int, len(criteria))
	for i, c := range criteria {
		key := c.Key()
		if prev, ok := seen[key]; ok {
			t.Fatalf("criteria %d and %d share key %s", prev, i, key)
		}
		seen[key] = i
	}

	assert.Equal(t, models.ProgramCriteria{Query: "  Data "}.Key(), models.ProgramCriteria{Query: "data"}.Key())
}
