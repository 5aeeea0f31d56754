// internal/api/error_codes.go
package api

import (
	"net/http"

	apperrors "github.com/Corphon/Diplomat/internal/errors"
)

// API错误消息
const (
	MessageNotFound    = "Not found"
	MessageMissingText = "Missing text"
	MessageServerError = "Server error"
)

// StatusForError maps a gateway failure to its HTTP status.
// Only client input errors are 4xx; every server-side failure is a 500.
func StatusForError(err error) int {
	if apperrors.IsValidationError(err) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
