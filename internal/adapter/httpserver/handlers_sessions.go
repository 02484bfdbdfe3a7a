package httpserver

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hauke92/mindgate/internal/domain"
	apperrors "github.com/hauke92/mindgate/internal/platform/errors"
)

type launchRequest struct {
	Package        string `json:"package"`
	BypassFriction bool   `json:"bypass_friction"`
	// PlannedMinutes carries the duration the user picked at the time
	// limit prompt. Absent on the first attempt.
	PlannedMinutes *int `json:"planned_minutes,omitempty"`
}

func (s *Server) handleLaunch(c echo.Context) error {
	ctx := c.Request().Context()

	var req launchRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	launch := domain.LaunchRequest{
		Package:        req.Package,
		BypassFriction: req.BypassFriction,
	}
	if req.PlannedMinutes != nil {
		if *req.PlannedMinutes <= 0 {
			return apperrors.ValidationError("planned_minutes must be positive").
				WithField("planned_minutes", *req.PlannedMinutes)
		}
		planned := time.Duration(*req.PlannedMinutes) * time.Minute
		launch.Planned = &planned
	}

	result, err := s.app.RequestLaunch(ctx, launch)
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusOK, result); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleListSessions(c echo.Context) error {
	sessions, err := s.app.ActiveSessions(c.Request().Context())
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusOK, sessions); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleGetSession(c echo.Context) error {
	id, err := parseSessionID(c)
	if err != nil {
		return err
	}

	sess, err := s.app.GetSession(c.Request().Context(), id)
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusOK, sess); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleEndSession(c echo.Context) error {
	id, err := parseSessionID(c)
	if err != nil {
		return err
	}

	if err := s.app.EndSession(c.Request().Context(), id); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleEndAppSession(c echo.Context) error {
	pkg, err := appPackage(c)
	if err != nil {
		return err
	}

	if err := s.app.EndSessionForApp(c.Request().Context(), pkg); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

type extendRequest struct {
	ExtraMinutes int `json:"extra_minutes"`
	// ChallengeID and Answer present a solved math challenge when the
	// session's app requires one for extensions.
	ChallengeID string `json:"challenge_id,omitempty"`
	Answer      int    `json:"answer,omitempty"`
}

func (s *Server) handleExtendSession(c echo.Context) error {
	id, err := parseSessionID(c)
	if err != nil {
		return err
	}

	var req extendRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if req.ExtraMinutes <= 0 {
		return apperrors.ValidationError("extra_minutes must be positive").
			WithField("extra_minutes", req.ExtraMinutes)
	}

	extra := time.Duration(req.ExtraMinutes) * time.Minute
	sess, err := s.app.ExtendSession(c.Request().Context(), id, extra, req.ChallengeID, req.Answer)
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusOK, sess); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func parseSessionID(c echo.Context) (int64, error) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperrors.ValidationError("invalid session id").WithField("id", raw)
	}
	return id, nil
}
