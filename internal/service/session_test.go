package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/abroad-api/internal/models"
	appErrors "github.com/noah-isme/abroad-api/pkg/errors"
)

type loaderResult struct {
	programs []models.Program
	err      error
	release  chan struct{}
	started  chan struct{}
}

// scriptedLoader answers calls in order, optionally blocking each until released.
type scriptedLoader struct {
	mu       sync.Mutex
	results  []*loaderResult
	calls    int
	criteria []*models.ProgramCriteria
}

func (l *scriptedLoader) FetchPrograms(ctx context.Context, criteria *models.ProgramCriteria) ([]models.Program, error) {
	l.mu.Lock()
	res := l.results[l.calls]
	l.calls++
	l.criteria = append(l.criteria, criteria)
	l.mu.Unlock()

	if res.started != nil {
		close(res.started)
	}
	if res.release != nil {
		select {
		case <-res.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return res.programs, res.err
}

func fixedNow() time.Time {
	return time.Date(2026, time.October, 16, 12, 0, 0, 0, time.UTC)
}

func TestSessionRefreshCatalogSuccess(t *testing.T) {
	sess := NewSession(testUser, nil, fixedNow)
	assert.Equal(t, models.CatalogIdle, sess.CatalogStatus().State)

	loader := &scriptedLoader{results: []*loaderResult{{programs: sampleCatalog()}}}
	status, err := sess.RefreshCatalog(context.Background(), loader)
	require.NoError(t, err)
	assert.Equal(t, models.CatalogReady, status.State)
	assert.Equal(t, 5, status.Programs)
	require.NotNil(t, status.LoadedAt)
	assert.Equal(t, fixedNow(), *status.LoadedAt)
	assert.Nil(t, loader.criteria[0])
}

func TestSessionRefreshFailureKeepsCatalog(t *testing.T) {
	sess := NewSession(testUser, nil, fixedNow)
	loader := &scriptedLoader{results: []*loaderResult{
		{programs: sampleCatalog()},
		{err: appErrors.Clone(appErrors.ErrUpstreamUnavailable, "catalog offline")},
	}}

	_, err := sess.RefreshCatalog(context.Background(), loader)
	require.NoError(t, err)
	_ = sess.Do(func(st *SessionState) error {
		st.Programs.SetCountry(strPtr("Germany"))
		return nil
	})

	status, err := sess.RefreshCatalog(context.Background(), loader)
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrUpstreamUnavailable)
	assert.Equal(t, models.CatalogFailed, status.State)
	assert.Equal(t, "catalog offline", status.Error)
	assert.Equal(t, 5, status.Programs)

	_ = sess.Do(func(st *SessionState) error {
		assert.Equal(t, []string{"p1", "p5"}, programIDs(st.Programs.FilteredPrograms()))
		return nil
	})
}

func TestSessionRefreshRejectsInvalidCatalog(t *testing.T) {
	sess := NewSession(testUser, nil, fixedNow)
	loader := &scriptedLoader{results: []*loaderResult{{programs: []models.Program{{ID: "dup"}, {ID: "dup"}}}}}
	status, err := sess.RefreshCatalog(context.Background(), loader)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Equal(t, models.CatalogFailed, status.State)
	assert.Equal(t, 0, status.Programs)
}

func TestSessionDiscardsStaleCatalogLoad(t *testing.T) {
	sess := NewSession(testUser, nil, fixedNow)
	slow := &loaderResult{
		programs: []models.Program{{ID: "old", Name: "Old", Country: "X", Field: "Y"}},
		release:  make(chan struct{}),
		started:  make(chan struct{}),
	}
	fresh := &loaderResult{programs: sampleCatalog()}
	loader := &scriptedLoader{results: []*loaderResult{slow, fresh}}

	staleErr := make(chan error, 1)
	go func() {
		_, err := sess.RefreshCatalog(context.Background(), loader)
		staleErr <- err
	}()
	<-slow.started
	assert.Equal(t, models.CatalogPending, sess.CatalogStatus().State)

	status, err := sess.RefreshCatalog(context.Background(), loader)
	require.NoError(t, err)
	assert.Equal(t, models.CatalogReady, status.State)

	close(slow.release)
	err = <-staleErr
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrStaleResponse))

	_ = sess.Do(func(st *SessionState) error {
		assert.Equal(t, programIDs(sampleCatalog()), programIDs(st.Programs.Catalog()))
		return nil
	})
	assert.Equal(t, models.CatalogReady, sess.CatalogStatus().State)
}

func TestSessionDoUpdatesLastSeen(t *testing.T) {
	current := fixedNow()
	sess := NewSession(testUser, nil, func() time.Time { return current })
	current = current.Add(time.Hour)
	_ = sess.Do(func(*SessionState) error { return nil })
	assert.Equal(t, current, sess.LastSeen())
}
