package httpx

import (
	"bytes"
	"encoding/json"
	"net/http"

	apperrors "github.com/xeroflow/xeroflow/internal/errors"
)

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		// Response writer errors (e.g., client disconnect) can't be recovered from here.
		return
	}
}

// ErrorParams groups parameters for WriteError.
type ErrorParams struct {
	Code    int
	ErrCode string
	Err     error
}

// WriteError writes a JSON error response using ErrorParams.
func WriteError(w http.ResponseWriter, p ErrorParams) {
	body := map[string]any{"error": p.ErrCode, "message": p.Err.Error()}
	if fields := apperrors.GetFieldErrors(p.Err); len(fields) > 0 {
		body["validation_errors"] = fields
	}
	WriteJSON(w, p.Code, body)
}

// WriteAppError maps an application error to an HTTP status and writes
// it. Auth-class errors are the caller's job to turn into redirects;
// by the time an error lands here it is rendered as JSON.
func WriteAppError(w http.ResponseWriter, err error) {
	code := apperrors.GetCode(err)
	status := statusForCode(code)
	errCode := string(code)
	if errCode == "" {
		errCode = "internal"
	}
	WriteError(w, ErrorParams{Code: status, ErrCode: errCode, Err: err})
}

func statusForCode(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrCodeUnauthenticated, apperrors.ErrCodeTokenInvalid:
		return http.StatusUnauthorized
	case apperrors.ErrCodeStateMismatch, apperrors.ErrCodeAccessDenied:
		return http.StatusForbidden
	case apperrors.ErrCodeNotFound, apperrors.ErrCodeTenantNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeValidation:
		return http.StatusBadRequest
	case apperrors.ErrCodeConflict:
		return http.StatusConflict
	case apperrors.ErrCodeDownstream, apperrors.ErrCodeNetwork:
		return http.StatusBadGateway
	case apperrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
