package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/stevemurr/friends-server/apperr"
	"github.com/stevemurr/friends-server/log"
)

const resultSuccess = "Success"

type dataResponse struct {
	Data any `json:"data"`
}

type resultResponse struct {
	Result string `json:"result"`
	ID     int    `json:"id,omitempty"`
}

type errorResponse struct {
	Error   string        `json:"error"`
	Details []fieldDetail `json:"details,omitempty"`
}

// fieldDetail describes one invalid request field.
type fieldDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnf("failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError maps an apperr code to a status. Not-found is a 400
// here, matching the public API.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch apperr.CodeOf(err) {
	case apperr.ErrCodeValidation, apperr.ErrCodeNotFound:
		log.Debugf("%s %s: %v", r.Method, r.URL.Path, err)
		writeError(w, http.StatusBadRequest, apperr.MessageOf(err))
	default:
		log.Errorf("%s %s [%s]: %v", r.Method, r.URL.Path, requestIDFrom(r.Context()), err)
		writeError(w, http.StatusInternalServerError, "Something went wrong")
	}
}

// pathID parses the {id} URL parameter, writing a 400 when it is not an
// integer.
func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "id must be an integer, got "+strconv.Quote(raw))
		return 0, false
	}
	return id, true
}
