package entities

import "errors"

// Domain errors returned by repositories; the usecase layer maps them onto
// the API error taxonomy.
var (
	ErrTranscriptNotFound = errors.New("transcript not found")
	ErrSessionNotFound    = errors.New("dubbing session not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrCreditsNotFound    = errors.New("user credits not found")
)
