package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	apperrors "github.com/target/mediafetch/internal/errors"
)

// maxRequestBody caps JSON request bodies. Requests only carry a URL and a hint.
const maxRequestBody = 64 << 10

// DecodeJSON decodes JSON from the request body into the destination and handles errors.
// Returns true if successful, false if there was an error (error response already written).
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, ErrorParams{Code: http.StatusRequestEntityTooLarge, ErrCode: "request_too_large", Err: err})
			return false
		}
		if errors.Is(err, io.EOF) {
			err = errors.New("request body is empty")
		}
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_json", Err: err})
		return false
	}

	return true
}

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
	WriteJSON(w, p.Code, map[string]string{"error": p.ErrCode, "message": p.Err.Error()})
}

// statusByCode is the single mapping from AppError codes to HTTP statuses.
var statusByCode = map[apperrors.ErrorCode]int{ //nolint:gochecknoglobals // read-only lookup
	apperrors.ErrCodeInvalidRequest:      http.StatusBadRequest,
	apperrors.ErrCodeUnsupportedPlatform: http.StatusBadRequest,
	apperrors.ErrCodeNotFound:            http.StatusNotFound,
	apperrors.ErrCodeMissingArtifact:     http.StatusNotFound,
	apperrors.ErrCodeNotReady:            http.StatusConflict,
	apperrors.ErrCodeConflict:            http.StatusConflict,
	apperrors.ErrCodeCapacity:            http.StatusTooManyRequests,
	apperrors.ErrCodeExtraction:          http.StatusBadGateway,
	apperrors.ErrCodeDownload:            http.StatusBadGateway,
	apperrors.ErrCodeTimeout:             http.StatusGatewayTimeout,
	apperrors.ErrCodeCanceled:            499,
	apperrors.ErrCodeInternal:            http.StatusInternalServerError,
}

func statusForCode(code apperrors.ErrorCode) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// WriteAppError renders err using its AppError code. Errors without a code
// are reported as internal and their text is not exposed.
func WriteAppError(w http.ResponseWriter, err error) {
	code := apperrors.GetCode(err)
	if code == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusInternalServerError,
			ErrCode: string(apperrors.ErrCodeInternal),
			Err:     errors.New("internal server error"),
		})
		return
	}

	body := map[string]string{"error": string(code), "message": err.Error()}
	if field := apperrors.GetField(err); field != "" {
		body["field"] = field
	}
	WriteJSON(w, statusForCode(code), body)
}
