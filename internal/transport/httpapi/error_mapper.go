package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/fitgrid/messaging-service/internal/domain"
)

// MapError writes a business error with its stable code and the status of
// its kind. Anything else is an internal failure: logged in full, surfaced
// as an opaque 500.
func MapError(w http.ResponseWriter, log *zap.Logger, err error) {
	if appErr, ok := domain.AsError(err); ok {
		WriteError(w, statusOf(appErr.Kind), appErr.Code, appErr.Message)
		return
	}

	log.Error("internal error", zap.Error(err))
	WriteError(w, http.StatusInternalServerError, "UNEXPECTED_ERROR", "an unexpected error occurred")
}

func statusOf(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
