package httpx

import (
	"log/slog"
	"net/http"

	apperrors "github.com/glosswerks/glosswerks-api/internal/errors"
	obserrors "github.com/glosswerks/glosswerks-api/internal/observability/errors"
)

// StatusForError maps an AppError code onto an HTTP status. Errors without a code are 500.
func StatusForError(err error) int {
	switch apperrors.GetCode(err) {
	case apperrors.ErrCodeValidation:
		return http.StatusBadRequest
	case apperrors.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case apperrors.ErrCodeForbidden:
		return http.StatusForbidden
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeConflict:
		return http.StatusConflict
	case apperrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case apperrors.ErrCodeTransport:
		return http.StatusBadGateway
	case apperrors.ErrCodeCanceled:
		// nginx's "client closed request"; the client is gone and never sees it.
		return 499
	default:
		return http.StatusInternalServerError
	}
}

// RenderError writes err as a JSON error. errCode names the failed operation and is used
// for errors that carry no AppError code; 5xx causes are logged and not echoed back.
func RenderError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, errCode string, err error) {
	status := StatusForError(err)
	code := string(apperrors.GetCode(err))
	if code == "" {
		code = errCode
	}

	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed",
			"op", errCode,
			"class", obserrors.Classify(err),
			"path", r.URL.Path,
			"error", err,
		)
		WriteJSON(w, status, errorBody{Error: code, Message: http.StatusText(status)})
		return
	}

	body := errorBody{Error: code, Message: err.Error()}
	if field := apperrors.GetField(err); field != "" {
		body.Field = field
	}
	WriteJSON(w, status, body)
}
