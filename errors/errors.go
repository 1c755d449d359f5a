package errors

import (
	"fmt"
	"net/http"
)

// AppError is the application error type surfaced by handlers. Every error
// carries a machine-readable code plus a human-readable message; Raw keeps the
// underlying cause for logging.
type AppError struct {
	Raw      error
	HTTPCode int
	Code     ErrorCode
	Message  string
	Details  map[string]string
}

// Error implements the error interface.
func (e AppError) Error() string {
	if e.Raw != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code.String(), e.Message, e.Raw)
	}
	return fmt.Sprintf("[%s] %s", e.Code.String(), e.Message)
}

// Unwrap exposes the underlying cause to errors.Is/As.
func (e AppError) Unwrap() error {
	return e.Raw
}

// WithDetail adds a key/value detail to the error.
func (e AppError) WithDetail(key, value string) AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// General errors

func ErrInternal(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_INTERNAL,
		Message:  "Internal server error",
	}
}

func ErrInvalidArgument(message string) AppError {
	return AppError{
		HTTPCode: http.StatusBadRequest,
		Code:     ErrorCode_INVALID_ARGUMENT,
		Message:  message,
	}
}

func ErrInvalidPayload() AppError {
	return AppError{
		HTTPCode: http.StatusBadRequest,
		Code:     ErrorCode_INVALID_PAYLOAD,
		Message:  "Invalid payload",
	}
}

func ErrUnauthenticated() AppError {
	return AppError{
		HTTPCode: http.StatusUnauthorized,
		Code:     ErrorCode_UNAUTHENTICATED,
		Message:  "Authentication required",
	}
}

func ErrForbidden(action string) AppError {
	return AppError{
		HTTPCode: http.StatusForbidden,
		Code:     ErrorCode_FORBIDDEN,
		Message:  fmt.Sprintf("Not authorized to %s", action),
	}
}

// Credit admission errors

func ErrInsufficientCredits(message string) AppError {
	return AppError{
		HTTPCode: http.StatusForbidden,
		Code:     ErrorCode_INSUFFICIENT_CREDITS,
		Message:  message,
	}
}

func ErrCreditConsumeFailed(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_CREDIT_CONSUME_FAILED,
		Message:  "Failed to consume dubbing credit",
	}
}

// Session validation errors

func ErrTranscriptNotFound(transcriptID string) AppError {
	return AppError{
		HTTPCode: http.StatusNotFound,
		Code:     ErrorCode_TRANSCRIPT_NOT_FOUND,
		Message:  "Transcript not found",
	}.WithDetail("transcript_id", transcriptID)
}

func ErrCharacterNotFound(characterID string) AppError {
	return AppError{
		HTTPCode: http.StatusNotFound,
		Code:     ErrorCode_CHARACTER_NOT_FOUND,
		Message:  fmt.Sprintf("Character %s not found in transcript", characterID),
	}.WithDetail("character_id", characterID)
}

func ErrSessionNotFound(sessionID string) AppError {
	return AppError{
		HTTPCode: http.StatusNotFound,
		Code:     ErrorCode_SESSION_NOT_FOUND,
		Message:  "Session not found",
	}.WithDetail("session_id", sessionID)
}

func ErrDialogueNotFound(dialogueID, characterID string) AppError {
	return AppError{
		HTTPCode: http.StatusNotFound,
		Code:     ErrorCode_DIALOGUE_NOT_FOUND,
		Message:  fmt.Sprintf("Dialogue %s not found for character %s", dialogueID, characterID),
	}.WithDetail("dialogue_id", dialogueID)
}

func ErrEmptyFile() AppError {
	return AppError{
		HTTPCode: http.StatusBadRequest,
		Code:     ErrorCode_EMPTY_FILE,
		Message:  "Audio file is empty",
	}
}

func ErrUnsupportedFormat(allowed string) AppError {
	return AppError{
		HTTPCode: http.StatusBadRequest,
		Code:     ErrorCode_UNSUPPORTED_FORMAT,
		Message:  fmt.Sprintf("Unsupported file format. Allowed: %s", allowed),
	}
}

func ErrInvalidAudio(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusBadRequest,
		Code:     ErrorCode_INVALID_AUDIO,
		Message:  "Invalid audio file. Please upload a valid MP3, OGG, WEBM, WAV or M4A file",
	}
}

func ErrIncompleteSession(expected, recorded int) AppError {
	return AppError{
		HTTPCode: http.StatusBadRequest,
		Code:     ErrorCode_INCOMPLETE_SESSION,
		Message:  fmt.Sprintf("Not all dialogues recorded. Expected %d, got %d", expected, recorded),
	}
}

// Collaborative consistency errors

func ErrInconsistentTranscript() AppError {
	return AppError{
		HTTPCode: http.StatusBadRequest,
		Code:     ErrorCode_INCONSISTENT_TRANSCRIPT,
		Message:  "All sessions must be from the same transcript",
	}
}

func ErrDuplicateCharacter(names []string) AppError {
	e := AppError{
		HTTPCode: http.StatusBadRequest,
		Code:     ErrorCode_DUPLICATE_CHARACTER,
		Message:  "Cannot mix sessions with duplicate characters",
	}
	for i, name := range names {
		e = e.WithDetail(fmt.Sprintf("duplicate_%d", i), name)
	}
	return e
}

// Mixing pipeline errors

func ErrMissingStems(transcriptID string) AppError {
	return AppError{
		HTTPCode: http.StatusBadRequest,
		Code:     ErrorCode_MISSING_STEMS,
		Message:  "Transcript is missing background or voices audio",
	}.WithDetail("transcript_id", transcriptID)
}

func ErrFetchFailed(url string, err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusBadGateway,
		Code:     ErrorCode_FETCH_FAILED,
		Message:  "Failed to download media source",
	}.WithDetail("url", url)
}

func ErrCorruptSource(what string, err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusBadRequest,
		Code:     ErrorCode_CORRUPT_SOURCE,
		Message:  fmt.Sprintf("Downloaded audio for %s is empty or could not be decoded", what),
	}
}

func ErrMuxFailed(err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_MUX_FAILED,
		Message:  "Failed to mux dubbed audio into video",
	}
}

func ErrCodecFailed(operation string, err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_CODEC_FAILED,
		Message:  fmt.Sprintf("Audio codec operation failed: %s", operation),
	}
}

// Integration errors

func ErrStorageFailed(operation string, err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_STORAGE_FAILED,
		Message:  fmt.Sprintf("Storage operation failed: %s", operation),
	}
}

func ErrDBFailed(operation string, err error) AppError {
	return AppError{
		Raw:      err,
		HTTPCode: http.StatusInternalServerError,
		Code:     ErrorCode_DB_FAILED,
		Message:  fmt.Sprintf("Database operation failed: %s", operation),
	}
}
