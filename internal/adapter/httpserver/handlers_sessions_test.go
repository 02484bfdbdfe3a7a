package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hauke92/mindgate/internal/app"
	"github.com/hauke92/mindgate/internal/domain"
	apperrors "github.com/hauke92/mindgate/internal/platform/errors"
)

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// --- handleLaunch tests ---

func TestHandleLaunch_PassesPlannedDuration(t *testing.T) {
	var got domain.LaunchRequest
	appSvc := &mockAppService{
		requestLaunchFn: func(_ context.Context, req domain.LaunchRequest) (domain.LaunchResult, error) {
			got = req
			return domain.LaunchResult{Decision: domain.Permit, SessionID: 42}, nil
		},
	}

	srv := newTestServer(t, appSvc)
	req := jsonRequest(http.MethodPost, "/api/launch", `{"package":"com.example.game","planned_minutes":25}`)
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)

	require.NoError(t, callHandler(srv.handleLaunch, c))
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "com.example.game", got.Package)
	require.NotNil(t, got.Planned)
	assert.Equal(t, 25*time.Minute, *got.Planned)

	var result domain.LaunchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, domain.Permit, result.Decision)
	assert.Equal(t, int64(42), result.SessionID)
}

func TestHandleLaunch_PromptDecision(t *testing.T) {
	appSvc := &mockAppService{
		requestLaunchFn: func(_ context.Context, _ domain.LaunchRequest) (domain.LaunchResult, error) {
			return domain.LaunchResult{Decision: domain.RequireTimeLimitPrompt}, nil
		},
	}

	srv := newTestServer(t, appSvc)
	req := jsonRequest(http.MethodPost, "/api/launch", `{"package":"com.example.game"}`)
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)

	require.NoError(t, callHandler(srv.handleLaunch, c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var result domain.LaunchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, domain.RequireTimeLimitPrompt, result.Decision)
	assert.Zero(t, result.SessionID)
}

func TestHandleLaunch_RejectsNonPositiveMinutes(t *testing.T) {
	srv := newTestServer(t, &mockAppService{})
	req := jsonRequest(http.MethodPost, "/api/launch", `{"package":"com.example.game","planned_minutes":0}`)
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)

	require.NoError(t, callHandler(srv.handleLaunch, c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleLaunch_ValidationErrorFromService(t *testing.T) {
	appSvc := &mockAppService{
		requestLaunchFn: func(_ context.Context, _ domain.LaunchRequest) (domain.LaunchResult, error) {
			return domain.LaunchResult{}, apperrors.ValidationError("package must not be empty")
		},
	}

	srv := newTestServer(t, appSvc)
	req := jsonRequest(http.MethodPost, "/api/launch", `{"package":""}`)
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)

	require.NoError(t, callHandler(srv.handleLaunch, c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, apperrors.TypeValidation, resp.Type)
}

// --- session handler tests ---

func TestHandleListSessions(t *testing.T) {
	appSvc := &mockAppService{
		activeSessionsFn: func(_ context.Context) ([]app.SessionView, error) {
			return []app.SessionView{
				{Session: domain.Session{ID: 1, Package: "com.example.game", Active: true}, RemainingSeconds: 300},
			}, nil
		},
	}

	srv := newTestServer(t, appSvc)
	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)

	require.NoError(t, callHandler(srv.handleListSessions, c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var views []app.SessionView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	require.Len(t, views, 1)
	assert.Equal(t, int64(300), views[0].RemainingSeconds)
}

func TestHandleGetSession_BadID(t *testing.T) {
	srv := newTestServer(t, &mockAppService{})
	req := httptest.NewRequest(http.MethodGet, "/api/sessions/abc", nil)
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("abc")

	require.NoError(t, callHandler(srv.handleGetSession, c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGetSession_NotFound(t *testing.T) {
	appSvc := &mockAppService{
		getSessionFn: func(_ context.Context, _ int64) (app.SessionView, error) {
			return app.SessionView{}, apperrors.NotFoundError("session not found")
		},
	}

	srv := newTestServer(t, appSvc)
	req := httptest.NewRequest(http.MethodGet, "/api/sessions/99", nil)
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("99")

	require.NoError(t, callHandler(srv.handleGetSession, c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleEndSession(t *testing.T) {
	var endedID int64
	appSvc := &mockAppService{
		endSessionFn: func(_ context.Context, id int64) error {
			endedID = id
			return nil
		},
	}

	srv := newTestServer(t, appSvc)
	req := httptest.NewRequest(http.MethodDelete, "/api/sessions/7", nil)
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("7")

	require.NoError(t, callHandler(srv.handleEndSession, c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, int64(7), endedID)
}

func TestHandleEndAppSession(t *testing.T) {
	var endedPkg string
	appSvc := &mockAppService{
		endSessionForAppFn: func(_ context.Context, pkg string) error {
			endedPkg = pkg
			return nil
		},
	}

	srv := newTestServer(t, appSvc)
	req := httptest.NewRequest(http.MethodDelete, "/api/apps/com.example.game/session", nil)
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)
	c.SetParamNames("package")
	c.SetParamValues("com.example.game")

	require.NoError(t, callHandler(srv.handleEndAppSession, c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "com.example.game", endedPkg)
}

func TestHandleExtendSession_ForwardsChallenge(t *testing.T) {
	var gotChallengeID string
	var gotAnswer int
	var gotExtra time.Duration
	appSvc := &mockAppService{
		extendSessionFn: func(_ context.Context, id int64, extra time.Duration, challengeID string, answer int) (app.SessionView, error) {
			gotExtra = extra
			gotChallengeID = challengeID
			gotAnswer = answer
			return app.SessionView{Session: domain.Session{ID: id, Active: true}, RemainingSeconds: 900}, nil
		},
	}

	srv := newTestServer(t, appSvc)
	req := jsonRequest(http.MethodPost, "/api/sessions/3/extend", `{"extra_minutes":15,"challenge_id":"ch-1","answer":56}`)
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("3")

	require.NoError(t, callHandler(srv.handleExtendSession, c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 15*time.Minute, gotExtra)
	assert.Equal(t, "ch-1", gotChallengeID)
	assert.Equal(t, 56, gotAnswer)
}

func TestHandleExtendSession_RejectsNonPositiveMinutes(t *testing.T) {
	srv := newTestServer(t, &mockAppService{})
	req := jsonRequest(http.MethodPost, "/api/sessions/3/extend", `{"extra_minutes":-5}`)
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("3")

	require.NoError(t, callHandler(srv.handleExtendSession, c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleExtendSession_ChallengeRequired(t *testing.T) {
	appSvc := &mockAppService{
		extendSessionFn: func(_ context.Context, _ int64, _ time.Duration, _ string, _ int) (app.SessionView, error) {
			return app.SessionView{}, apperrors.ValidationError("extending this session requires a solved math challenge")
		},
	}

	srv := newTestServer(t, appSvc)
	req := jsonRequest(http.MethodPost, "/api/sessions/3/extend", `{"extra_minutes":10}`)
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("3")

	require.NoError(t, callHandler(srv.handleExtendSession, c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
