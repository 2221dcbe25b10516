package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/abroad-api/internal/middleware"
	"github.com/noah-isme/abroad-api/internal/models"
	"github.com/noah-isme/abroad-api/internal/service"
)

type responseEnvelope struct {
	Data       json.RawMessage    `json:"data"`
	Error      *errorBody         `json:"error"`
	Pagination *models.Pagination `json:"pagination"`
	Meta       map[string]any     `json:"meta"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type stubSettings struct {
	pageSize int
	window   int
	now      time.Time
}

func (s stubSettings) PageSize() int         { return s.pageSize }
func (s stubSettings) UrgentWindowDays() int { return s.window }
func (s stubSettings) Now() time.Time        { return s.now }

type staticLoader struct {
	programs []models.Program
	err      error
}

func (l staticLoader) FetchPrograms(ctx context.Context, criteria *models.ProgramCriteria) ([]models.Program, error) {
	return l.programs, l.err
}

var handlerUser = models.CurrentUser{UserID: "u-1", DisplayName: "Grace Hopper", Email: "grace@example.com"}

func handlerNow() time.Time {
	return time.Date(2026, time.October, 16, 12, 0, 0, 0, time.UTC)
}

func defaultSettings() stubSettings {
	return stubSettings{pageSize: 2, window: 30, now: handlerNow()}
}

func ptr[T any](v T) *T { return &v }

func handlerCatalog() []models.Program {
	day := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }
	return []models.Program{
		{ID: "h1", Name: "Computer Science MSc", Country: "Germany", Field: "Computer Science", University: ptr("TU Munich"), TuitionFee: ptr(1000.0), Deadline: day(2026, time.November, 1)},
		{ID: "h2", Name: "Data Science MSc", Country: "Germany", Field: "Computer Science", University: ptr("Heidelberg"), TuitionFee: ptr(15000.0), Deadline: day(2027, time.January, 15)},
		{ID: "h3", Name: "Fine Arts BA", Country: "France", Field: "Arts", University: ptr("Sorbonne"), TuitionFee: ptr(8000.0), Deadline: day(2026, time.October, 20)},
		{ID: "h4", Name: "Medicine MD", Country: "Japan", Field: "Medicine", Deadline: day(2027, time.March, 1)},
		{ID: "h5", Name: "Economics MA", Country: "France", Field: "Economics", University: ptr("Sciences Po"), TuitionFee: ptr(12000.0), Deadline: day(2026, time.December, 15)},
	}
}

// newLoadedSession returns a session whose catalog has been loaded from programs.
func newLoadedSession(t *testing.T, programs []models.Program) *service.Session {
	t.Helper()
	sess := service.NewSession(handlerUser, nil, handlerNow)
	_, err := sess.RefreshCatalog(context.Background(), staticLoader{programs: programs})
	require.NoError(t, err)
	return sess
}

// newEngineContext builds a test context carrying the claims and, when non-nil, the session.
func newEngineContext(method, target string, body any, sess *service.Session) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	var reader io.Reader
	switch v := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(v)
	default:
		raw, _ := json.Marshal(v)
		reader = bytes.NewBuffer(raw)
	}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(method, target, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: handlerUser.UserID, DisplayName: handlerUser.DisplayName, Email: handlerUser.Email})
	if sess != nil {
		c.Set(middleware.ContextSessionKey, sess)
	}
	return c, w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var env responseEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func decodeData[T any](t *testing.T, w *httptest.ResponseRecorder) (T, responseEnvelope) {
	t.Helper()
	env := decodeEnvelope(t, w)
	var out T
	require.NotNil(t, env.Data, "response has no data: %s", w.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out, env
}

func requireErrorCode(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error)
	require.Equal(t, code, env.Error.Code)
}

