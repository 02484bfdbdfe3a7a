package httpserver

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "github.com/hauke92/mindgate/internal/platform/errors"
)

type issueChallengeRequest struct {
	Package string `json:"package"`
}

func (s *Server) handleIssueChallenge(c echo.Context) error {
	var req issueChallengeRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if req.Package == "" {
		return apperrors.ValidationError("package must not be empty")
	}

	ch, err := s.app.IssueChallenge(c.Request().Context(), req.Package)
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusCreated, ch); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

type verifyChallengeRequest struct {
	Answer int `json:"answer"`
}

func (s *Server) handleVerifyChallenge(c echo.Context) error {
	id := c.Param("id")

	var req verifyChallengeRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	ok, err := s.app.VerifyChallenge(id, req.Answer)
	if err != nil {
		return apperrors.NotFoundError("challenge not found or expired").WithField("challenge_id", id)
	}

	if err := c.JSON(http.StatusOK, map[string]bool{"correct": ok}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}
