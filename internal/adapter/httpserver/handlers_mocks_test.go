package httpserver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/hauke92/mindgate/internal/app"
	"github.com/hauke92/mindgate/internal/challenge"
	"github.com/hauke92/mindgate/internal/domain"
	"github.com/hauke92/mindgate/internal/platform/config"
)

// --- Mock implementations ---

type mockAppService struct {
	requestLaunchFn      func(ctx context.Context, req domain.LaunchRequest) (domain.LaunchResult, error)
	activeSessionsFn     func(ctx context.Context) ([]app.SessionView, error)
	getSessionFn         func(ctx context.Context, id int64) (app.SessionView, error)
	endSessionFn         func(ctx context.Context, id int64) error
	endSessionForAppFn   func(ctx context.Context, pkg string) error
	extendSessionFn      func(ctx context.Context, id int64, extra time.Duration, challengeID string, answer int) (app.SessionView, error)
	issueChallengeFn     func(ctx context.Context, pkg string) (challenge.Challenge, error)
	verifyChallengeFn    func(id string, answer int) (bool, error)
	settingsFn           func(ctx context.Context) (domain.Settings, error)
	updateSettingsFn     func(ctx context.Context, settings domain.Settings) (domain.Settings, error)
	appPolicyFn          func(ctx context.Context, pkg string) (domain.AppPolicy, error)
	setAppFlagsFn        func(ctx context.Context, pkg string, distracting, hidden bool) error
	appTimeLimitInfoFn   func(ctx context.Context, pkg string) (domain.TimeLimitInfo, error)
	updateAppTimeLimitFn func(ctx context.Context, pkg string, minutes int) error
	clearAppTimeLimitFn  func(ctx context.Context, pkg string) error
}

func (m *mockAppService) RequestLaunch(ctx context.Context, req domain.LaunchRequest) (domain.LaunchResult, error) {
	if m.requestLaunchFn != nil {
		return m.requestLaunchFn(ctx, req)
	}
	return domain.LaunchResult{Decision: domain.Permit}, nil
}

func (m *mockAppService) ActiveSessions(ctx context.Context) ([]app.SessionView, error) {
	if m.activeSessionsFn != nil {
		return m.activeSessionsFn(ctx)
	}
	return []app.SessionView{}, nil
}

func (m *mockAppService) GetSession(ctx context.Context, id int64) (app.SessionView, error) {
	if m.getSessionFn != nil {
		return m.getSessionFn(ctx, id)
	}
	return app.SessionView{}, errors.New("not implemented")
}

func (m *mockAppService) EndSession(ctx context.Context, id int64) error {
	if m.endSessionFn != nil {
		return m.endSessionFn(ctx, id)
	}
	return nil
}

func (m *mockAppService) EndSessionForApp(ctx context.Context, pkg string) error {
	if m.endSessionForAppFn != nil {
		return m.endSessionForAppFn(ctx, pkg)
	}
	return nil
}

func (m *mockAppService) ExtendSession(ctx context.Context, id int64, extra time.Duration, challengeID string, answer int) (app.SessionView, error) {
	if m.extendSessionFn != nil {
		return m.extendSessionFn(ctx, id, extra, challengeID, answer)
	}
	return app.SessionView{}, errors.New("not implemented")
}

func (m *mockAppService) IssueChallenge(ctx context.Context, pkg string) (challenge.Challenge, error) {
	if m.issueChallengeFn != nil {
		return m.issueChallengeFn(ctx, pkg)
	}
	return challenge.Challenge{}, errors.New("not implemented")
}

func (m *mockAppService) VerifyChallenge(id string, answer int) (bool, error) {
	if m.verifyChallengeFn != nil {
		return m.verifyChallengeFn(id, answer)
	}
	return false, domain.ErrChallengeNotFound
}

func (m *mockAppService) Settings(ctx context.Context) (domain.Settings, error) {
	if m.settingsFn != nil {
		return m.settingsFn(ctx)
	}
	return domain.Settings{}, nil
}

func (m *mockAppService) UpdateSettings(ctx context.Context, settings domain.Settings) (domain.Settings, error) {
	if m.updateSettingsFn != nil {
		return m.updateSettingsFn(ctx, settings)
	}
	return settings, nil
}

func (m *mockAppService) AppPolicy(ctx context.Context, pkg string) (domain.AppPolicy, error) {
	if m.appPolicyFn != nil {
		return m.appPolicyFn(ctx, pkg)
	}
	return domain.AppPolicy{Package: pkg}, nil
}

func (m *mockAppService) SetAppFlags(ctx context.Context, pkg string, distracting, hidden bool) error {
	if m.setAppFlagsFn != nil {
		return m.setAppFlagsFn(ctx, pkg, distracting, hidden)
	}
	return nil
}

func (m *mockAppService) AppTimeLimitInfo(ctx context.Context, pkg string) (domain.TimeLimitInfo, error) {
	if m.appTimeLimitInfoFn != nil {
		return m.appTimeLimitInfoFn(ctx, pkg)
	}
	return domain.TimeLimitInfo{}, nil
}

func (m *mockAppService) UpdateAppTimeLimit(ctx context.Context, pkg string, minutes int) error {
	if m.updateAppTimeLimitFn != nil {
		return m.updateAppTimeLimitFn(ctx, pkg, minutes)
	}
	return nil
}

func (m *mockAppService) ClearAppTimeLimit(ctx context.Context, pkg string) error {
	if m.clearAppTimeLimitFn != nil {
		return m.clearAppTimeLimitFn(ctx, pkg)
	}
	return nil
}

type mockHub struct {
	registerErr error
	registered  int
}

func (m *mockHub) Register(conn *websocket.Conn) error {
	if m.registerErr != nil {
		return m.registerErr
	}
	m.registered++
	return nil
}

func (m *mockHub) Unregister(conn *websocket.Conn) {}

func (m *mockHub) ClientCount() int { return m.registered }

// --- Test helpers ---

func newTestServer(t *testing.T, appSvc appService) *Server {
	t.Helper()

	e := echo.New()

	srv := &Server{
		echo:   e,
		config: &config.Config{Port: "8823", MaxClientsPerStream: 16},
		app:    appSvc,
		hub:    &mockHub{},
	}

	srv.registerRoutes()

	return srv
}

func callHandler(handler echo.HandlerFunc, c echo.Context) error {
	return ErrorHandlingMiddleware()(handler)(c)
}
