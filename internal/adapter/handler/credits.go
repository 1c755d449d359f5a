package handler

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "github.com/youdub-team/youdub-backend/errors"
	"github.com/youdub-team/youdub-backend/internal/infrastructure/http/middleware"
	"github.com/youdub-team/youdub-backend/internal/usecase/credit"
)

// Credits handles credit availability endpoints
type Credits struct {
	gate   *credit.Gate
	logger *zap.Logger
}

// NewCredits creates a new credits handler
func NewCredits(gate *credit.Gate, logger *zap.Logger) *Credits {
	return &Credits{
		gate:   gate,
		logger: logger,
	}
}

// Check returns the caller's remaining allowances per funding method
// GET /v1/credits
func (h *Credits) Check(c echo.Context) error {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return HandleError(h.logger, c, apperrors.ErrUnauthenticated())
	}

	availability, err := h.gate.Check(c.Request().Context(), userID)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, availability)
}
