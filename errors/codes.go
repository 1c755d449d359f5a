package errors

// ErrorCode identifies an error kind in API responses and logs. Codes are
// stable: clients switch on the string form, so renaming one is a breaking
// change.
type ErrorCode int

const (
	ErrorCode_HTTP_OK ErrorCode = 0

	// General
	ErrorCode_INTERNAL         ErrorCode = 1000
	ErrorCode_INVALID_ARGUMENT ErrorCode = 1001
	ErrorCode_NOT_FOUND        ErrorCode = 1002
	ErrorCode_FORBIDDEN        ErrorCode = 1003
	ErrorCode_UNAUTHENTICATED  ErrorCode = 1004
	ErrorCode_INVALID_PAYLOAD  ErrorCode = 1005

	// Credit admission
	ErrorCode_INSUFFICIENT_CREDITS  ErrorCode = 2000
	ErrorCode_CREDIT_CONSUME_FAILED ErrorCode = 2001

	// Dubbing session validation
	ErrorCode_TRANSCRIPT_NOT_FOUND ErrorCode = 3000
	ErrorCode_CHARACTER_NOT_FOUND  ErrorCode = 3001
	ErrorCode_SESSION_NOT_FOUND    ErrorCode = 3002
	ErrorCode_DIALOGUE_NOT_FOUND   ErrorCode = 3003
	ErrorCode_EMPTY_FILE           ErrorCode = 3004
	ErrorCode_UNSUPPORTED_FORMAT   ErrorCode = 3005
	ErrorCode_INVALID_AUDIO        ErrorCode = 3006
	ErrorCode_INCOMPLETE_SESSION   ErrorCode = 3007

	// Collaborative consistency
	ErrorCode_INCONSISTENT_TRANSCRIPT ErrorCode = 4000
	ErrorCode_DUPLICATE_CHARACTER     ErrorCode = 4001

	// Mixing pipeline
	ErrorCode_MISSING_STEMS  ErrorCode = 5000
	ErrorCode_FETCH_FAILED   ErrorCode = 5001
	ErrorCode_CORRUPT_SOURCE ErrorCode = 5002
	ErrorCode_MUX_FAILED     ErrorCode = 5003
	ErrorCode_CODEC_FAILED   ErrorCode = 5004

	// Integrations
	ErrorCode_STORAGE_FAILED ErrorCode = 6000
	ErrorCode_DB_FAILED      ErrorCode = 6001
)

var codeNames = map[ErrorCode]string{
	ErrorCode_HTTP_OK:                 "OK",
	ErrorCode_INTERNAL:                "INTERNAL",
	ErrorCode_INVALID_ARGUMENT:        "INVALID_ARGUMENT",
	ErrorCode_NOT_FOUND:               "NOT_FOUND",
	ErrorCode_FORBIDDEN:               "FORBIDDEN",
	ErrorCode_UNAUTHENTICATED:         "UNAUTHENTICATED",
	ErrorCode_INVALID_PAYLOAD:         "INVALID_PAYLOAD",
	ErrorCode_INSUFFICIENT_CREDITS:    "INSUFFICIENT_CREDITS",
	ErrorCode_CREDIT_CONSUME_FAILED:   "CREDIT_CONSUME_FAILED",
	ErrorCode_TRANSCRIPT_NOT_FOUND:    "TRANSCRIPT_NOT_FOUND",
	ErrorCode_CHARACTER_NOT_FOUND:     "CHARACTER_NOT_FOUND",
	ErrorCode_SESSION_NOT_FOUND:       "SESSION_NOT_FOUND",
	ErrorCode_DIALOGUE_NOT_FOUND:      "DIALOGUE_NOT_FOUND",
	ErrorCode_EMPTY_FILE:              "EMPTY_FILE",
	ErrorCode_UNSUPPORTED_FORMAT:      "UNSUPPORTED_FORMAT",
	ErrorCode_INVALID_AUDIO:           "INVALID_AUDIO",
	ErrorCode_INCOMPLETE_SESSION:      "INCOMPLETE_SESSION",
	ErrorCode_INCONSISTENT_TRANSCRIPT: "INCONSISTENT_TRANSCRIPT",
	ErrorCode_DUPLICATE_CHARACTER:     "DUPLICATE_CHARACTER",
	ErrorCode_MISSING_STEMS:           "MISSING_STEMS",
	ErrorCode_FETCH_FAILED:            "FETCH_FAILED",
	ErrorCode_CORRUPT_SOURCE:          "CORRUPT_SOURCE",
	ErrorCode_MUX_FAILED:              "MUX_FAILED",
	ErrorCode_CODEC_FAILED:            "CODEC_FAILED",
	ErrorCode_STORAGE_FAILED:          "STORAGE_FAILED",
	ErrorCode_DB_FAILED:               "DB_FAILED",
}

// String returns the stable name of the code.
func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "UNKNOWN"
}

// MarshalJSON renders the code as its stable string name.
func (c ErrorCode) MarshalJSON() ([]byte, error) {
	return []byte(`"` + c.String() + `"`), nil
}
