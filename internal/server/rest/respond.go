package rest

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/payportal/internal/common"
)

const maxBodyBytes = 1 << 20

var statusByKind = map[common.Kind]int{
	common.KindValidation:              http.StatusBadRequest,
	common.KindAuthentication:          http.StatusUnauthorized,
	common.KindInsufficientPermissions: http.StatusForbidden,
	common.KindNotFound:                http.StatusNotFound,
	common.KindAlreadyResolved:         http.StatusConflict,
	common.KindConflict:                http.StatusConflict,
	common.KindTooManyAttempts:         http.StatusTooManyRequests,
	common.KindInternal:                http.StatusInternalServerError,
}

type errorResponse struct {
	Error   common.Kind `json:"error"`
	Message string      `json:"message"`
	Field   string      `json:"field,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

// respondWithError writes err as {"error": kind, "message": ...}. Internal
// details never reach the client.
func (h *Handler) respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	kind := common.KindOf(err)
	resp := errorResponse{Error: kind, Message: err.Error()}

	var ve *common.ValidationError
	if errors.As(err, &ve) {
		resp.Field = ve.Field
	}

	var tm *common.TooManyAttemptsError
	if errors.As(err, &tm) {
		w.Header().Set(common.RetryAfterHeader, strconv.Itoa(tm.RetryAfterSeconds()))
	}

	if kind == common.KindInternal {
		h.logger.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		resp.Message = "internal error"
	}

	respondWithJSON(w, statusByKind[kind], resp)
}

// decodeJSON reads a JSON body into dst. A malformed body is a validation
// error on the "body" field.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return common.NewValidationError("body", "empty_body")
		}
		return common.NewValidationError("body", "malformed_json")
	}
	return nil
}
