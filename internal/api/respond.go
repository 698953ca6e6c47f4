package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"task-manager/internal/service"
)

type envelope map[string]any

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("[warn] encode response: %v", err)
	}
}

// writeError maps service errors to status codes. resource names the entity
// in not-found messages; internal failures are logged and never echoed.
func writeError(w http.ResponseWriter, err error, resource string) {
	var (
		verr     *service.ValidationError
		conflict *service.ConflictError
	)
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, envelope{"success": false, "message": "Validation failed", "errors": verr.Fields})
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusUnprocessableEntity, envelope{"success": false, "message": conflict.Message, "tasks_count": conflict.TaskCount})
	case errors.Is(err, service.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, envelope{"success": false, "message": "Invalid login credentials"})
	case errors.Is(err, service.ErrUnauthenticated):
		writeJSON(w, http.StatusUnauthorized, envelope{"success": false, "message": "Unauthenticated."})
	case errors.Is(err, service.ErrForbidden):
		writeJSON(w, http.StatusForbidden, envelope{"success": false, "message": "You do not have access to this " + strings.ToLower(nounOr(resource, "resource"))})
	case errors.Is(err, service.ErrNotFound):
		writeJSON(w, http.StatusNotFound, envelope{"success": false, "message": nounOr(resource, "Resource") + " not found"})
	case errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusGatewayTimeout, envelope{"success": false, "message": "Request timed out"})
	default:
		log.Printf("[error] %v", err)
		writeJSON(w, http.StatusInternalServerError, envelope{"success": false, "message": "Internal server error"})
	}
}

func nounOr(resource, fallback string) string {
	if resource == "" {
		return fallback
	}
	return resource
}

// maxBodyBytes bounds every decoded request body.
const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, envelope{"success": false, "message": "Request body too large"})
			return false
		}
		writeJSON(w, http.StatusBadRequest, envelope{"success": false, "message": "Invalid JSON body"})
		return false
	}
	return true
}

// pathID returns the numeric {id} route variable.
func pathID(r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
