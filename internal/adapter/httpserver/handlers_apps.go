package httpserver

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hauke92/mindgate/internal/domain"
	apperrors "github.com/hauke92/mindgate/internal/platform/errors"
)

func (s *Server) handleGetAppPolicy(c echo.Context) error {
	pkg, err := appPackage(c)
	if err != nil {
		return err
	}

	policy, err := s.app.AppPolicy(c.Request().Context(), pkg)
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusOK, policy); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

type appFlagsRequest struct {
	Distracting bool `json:"distracting"`
	Hidden      bool `json:"hidden"`
}

func (s *Server) handleSetAppFlags(c echo.Context) error {
	pkg, err := appPackage(c)
	if err != nil {
		return err
	}

	var req appFlagsRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	if err := s.app.SetAppFlags(c.Request().Context(), pkg, req.Distracting, req.Hidden); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleGetAppTimeLimit(c echo.Context) error {
	pkg, err := appPackage(c)
	if err != nil {
		return err
	}

	info, err := s.app.AppTimeLimitInfo(c.Request().Context(), pkg)
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusOK, info); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

type timeLimitRequest struct {
	Minutes int `json:"minutes"`
}

func (s *Server) handleSetAppTimeLimit(c echo.Context) error {
	pkg, err := appPackage(c)
	if err != nil {
		return err
	}

	var req timeLimitRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	if err := s.app.UpdateAppTimeLimit(c.Request().Context(), pkg, req.Minutes); err != nil {
		return err
	}

	info, err := s.app.AppTimeLimitInfo(c.Request().Context(), pkg)
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusOK, info); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleClearAppTimeLimit(c echo.Context) error {
	pkg, err := appPackage(c)
	if err != nil {
		return err
	}

	if err := s.app.ClearAppTimeLimit(c.Request().Context(), pkg); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleGetSettings(c echo.Context) error {
	settings, err := s.app.Settings(c.Request().Context())
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusOK, settings); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleUpdateSettings(c echo.Context) error {
	var settings domain.Settings
	if err := c.Bind(&settings); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	updated, err := s.app.UpdateSettings(c.Request().Context(), settings)
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusOK, updated); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func appPackage(c echo.Context) (string, error) {
	pkg := c.Param("package")
	if pkg == "" {
		return "", apperrors.ValidationError("package must not be empty")
	}
	return pkg, nil
}
