package handler

import (
	"io"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "github.com/youdub-team/youdub-backend/errors"
	dto "github.com/youdub-team/youdub-backend/internal/adapter/dto/dubbing"
	"github.com/youdub-team/youdub-backend/internal/domain/entities"
	"github.com/youdub-team/youdub-backend/internal/infrastructure/http/middleware"
	"github.com/youdub-team/youdub-backend/internal/usecase/dubbing"
)

// Dubbing handles dubbing session endpoints
type Dubbing struct {
	service *dubbing.Service
	logger  *zap.Logger
}

// NewDubbing creates a new dubbing handler
func NewDubbing(service *dubbing.Service, logger *zap.Logger) *Dubbing {
	return &Dubbing{
		service: service,
		logger:  logger,
	}
}

// StartSession starts a dubbing session for a character
// POST /v1/dubbing/sessions
func (h *Dubbing) StartSession(c echo.Context) error {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return HandleError(h.logger, c, apperrors.ErrUnauthenticated())
	}

	var req dto.StartSessionRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidPayload())
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument(err.Error()))
	}

	transcriptID, err := uuid.Parse(req.TranscriptID)
	if err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument("invalid transcript_id"))
	}

	result, err := h.service.StartSession(c.Request().Context(), userID, transcriptID, req.CharacterID, entities.CreditMethod(req.CreditMethod))
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, dto.NewSessionResponse(result))
}

// GetSession returns one of the caller's sessions with progress
// GET /v1/dubbing/sessions/:id
func (h *Dubbing) GetSession(c echo.Context) error {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return HandleError(h.logger, c, apperrors.ErrUnauthenticated())
	}

	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument("invalid session id"))
	}

	result, err := h.service.GetSession(c.Request().Context(), userID, sessionID)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, dto.NewSessionResponse(result))
}

// ListSessions returns a page of the caller's sessions
// GET /v1/dubbing/sessions
func (h *Dubbing) ListSessions(c echo.Context) error {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return HandleError(h.logger, c, apperrors.ErrUnauthenticated())
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))
	if pageSize < 1 {
		pageSize = 20
	}

	sessions, total, err := h.service.ListSessions(c.Request().Context(), userID, page, pageSize)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, dto.NewSessionListResponse(sessions, total, page, pageSize))
}

// UploadRecording stores a take for one dialogue of a session
// POST /v1/dubbing/sessions/:id/recordings/:dialogueId
func (h *Dubbing) UploadRecording(c echo.Context) error {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return HandleError(h.logger, c, apperrors.ErrUnauthenticated())
	}

	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument("invalid session id"))
	}
	dialogueID := c.Param("dialogueId")
	if dialogueID == "" {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument("dialogue id is required"))
	}

	fileHeader, err := c.FormFile("audio")
	if err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument("audio file is required"))
	}
	file, err := fileHeader.Open()
	if err != nil {
		return HandleError(h.logger, c, apperrors.ErrInternal(err))
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return HandleError(h.logger, c, apperrors.ErrInternal(err))
	}

	result, err := h.service.UploadRecording(c.Request().Context(), userID, sessionID, dialogueID, fileHeader.Filename, data)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, dto.NewSessionResponse(result))
}

// ProcessSession mixes a fully recorded session into its final outputs
// POST /v1/dubbing/sessions/:id/process
func (h *Dubbing) ProcessSession(c echo.Context) error {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return HandleError(h.logger, c, apperrors.ErrUnauthenticated())
	}

	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument("invalid session id"))
	}

	session, err := h.service.ProcessSession(c.Request().Context(), userID, sessionID)
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	total := len(session.Recordings)
	return HandleSuccess(h.logger, c, dto.NewSessionResponse(&dubbing.SessionWithProgress{
		Session:        session,
		TotalDialogues: total,
		Recorded:       total,
		Progress:       session.Progress(total),
	}))
}

// DeleteSession removes one of the caller's sessions and its stored takes
// DELETE /v1/dubbing/sessions/:id
func (h *Dubbing) DeleteSession(c echo.Context) error {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		return HandleError(h.logger, c, apperrors.ErrUnauthenticated())
	}

	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument("invalid session id"))
	}

	if err := h.service.DeleteSession(c.Request().Context(), userID, sessionID); err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, map[string]string{"id": sessionID.String()})
}

// ProcessCollaborative mixes several sessions of one transcript together
// POST /v1/dubbing/collaborative
func (h *Dubbing) ProcessCollaborative(c echo.Context) error {
	if _, ok := middleware.UserIDFromContext(c); !ok {
		return HandleError(h.logger, c, apperrors.ErrUnauthenticated())
	}

	var req dto.CollaborativeMixRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidPayload())
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument(err.Error()))
	}

	transcriptID, err := uuid.Parse(req.TranscriptID)
	if err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument("invalid transcript_id"))
	}
	sessionIDs := make([]uuid.UUID, 0, len(req.SessionIDs))
	for _, raw := range req.SessionIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return HandleError(h.logger, c, apperrors.ErrInvalidArgument("invalid session id: "+raw))
		}
		sessionIDs = append(sessionIDs, id)
	}

	result, err := h.service.ProcessCollaborative(c.Request().Context(), transcriptID, sessionIDs)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, result)
}

// GetTranscriptInfo returns a transcript with all sessions recorded on it
// GET /v1/dubbing/transcripts/:id
func (h *Dubbing) GetTranscriptInfo(c echo.Context) error {
	if _, ok := middleware.UserIDFromContext(c); !ok {
		return HandleError(h.logger, c, apperrors.ErrUnauthenticated())
	}

	transcriptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return HandleError(h.logger, c, apperrors.ErrInvalidArgument("invalid transcript id"))
	}

	info, err := h.service.GetTranscriptDubbingInfo(c.Request().Context(), transcriptID)
	if err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, dto.NewTranscriptInfoResponse(info))
}
