package handler

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"vntrbirds-be/internal/middleware"
	"vntrbirds-be/pkg/errors"
	"vntrbirds-be/pkg/logger"
)

// maxJSONBody bounds small JSON request bodies
const maxJSONBody = 64 << 10

// respondJSON writes data as JSON with the given status
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// respondError renders err as the JSON error envelope. Errors that are not
// AppErrors are reported as internal failures with fallback as the message.
func respondError(w http.ResponseWriter, r *http.Request, err error, fallback string, logger *logger.Logger) {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		appErr = errors.NewInternalError(fallback, err)
	}
	middleware.WriteError(w, r, appErr, logger)
}

// decodeJSON reads a bounded JSON body into dst
func decodeJSON(r *http.Request, dst interface{}) error {
	body := io.LimitReader(r.Body, maxJSONBody)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		return errors.NewValidationError("Invalid request body", map[string]interface{}{
			"reason": err.Error(),
		})
	}
	return nil
}

// generateETag generates an ETag for the given data
func generateETag(data interface{}) string {
	jsonData, _ := json.Marshal(data)
	hash := md5.Sum(jsonData)
	return fmt.Sprintf(`"%x"`, hash)
}

// notModified sets the ETag and reports whether the client already has it
func notModified(w http.ResponseWriter, r *http.Request, etag string) bool {
	w.Header().Set("ETag", etag)
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return true
	}
	return false
}
