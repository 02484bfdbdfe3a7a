package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hauke92/mindgate/internal/challenge"
	"github.com/hauke92/mindgate/internal/domain"
)

func TestHandleIssueChallenge(t *testing.T) {
	appSvc := &mockAppService{
		issueChallengeFn: func(_ context.Context, pkg string) (challenge.Challenge, error) {
			return challenge.Challenge{
				ID:         "ch-1",
				Package:    pkg,
				Question:   "7 × 8",
				Difficulty: domain.MathMedium,
			}, nil
		},
	}

	srv := newTestServer(t, appSvc)
	req := jsonRequest(http.MethodPost, "/api/challenges", `{"package":"com.example.game"}`)
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)

	require.NoError(t, callHandler(srv.handleIssueChallenge, c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var ch challenge.Challenge
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ch))
	assert.Equal(t, "ch-1", ch.ID)
	assert.Equal(t, "7 × 8", ch.Question)
	assert.NotContains(t, rec.Body.String(), "answer")
}

func TestHandleIssueChallenge_EmptyPackage(t *testing.T) {
	srv := newTestServer(t, &mockAppService{})
	req := jsonRequest(http.MethodPost, "/api/challenges", `{"package":""}`)
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)

	require.NoError(t, callHandler(srv.handleIssueChallenge, c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleVerifyChallenge(t *testing.T) {
	appSvc := &mockAppService{
		verifyChallengeFn: func(id string, answer int) (bool, error) {
			return answer == 56, nil
		},
	}

	srv := newTestServer(t, appSvc)

	for _, tc := range []struct {
		name    string
		body    string
		correct bool
	}{
		{name: "right answer", body: `{"answer":56}`, correct: true},
		{name: "wrong answer", body: `{"answer":55}`, correct: false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			req := jsonRequest(http.MethodPost, "/api/challenges/ch-1/verify", tc.body)
			rec := httptest.NewRecorder()
			c := srv.echo.NewContext(req, rec)
			c.SetParamNames("id")
			c.SetParamValues("ch-1")

			require.NoError(t, callHandler(srv.handleVerifyChallenge, c))
			assert.Equal(t, http.StatusOK, rec.Code)

			var resp map[string]bool
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tc.correct, resp["correct"])
		})
	}
}

func TestHandleVerifyChallenge_UnknownID(t *testing.T) {
	srv := newTestServer(t, &mockAppService{})
	req := jsonRequest(http.MethodPost, "/api/challenges/nope/verify", `{"answer":1}`)
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("nope")

	require.NoError(t, callHandler(srv.handleVerifyChallenge, c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
