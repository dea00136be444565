// Package handler implements the JSON API: catalog management, cart
// operations, and checkout. Identity comes from the X-User-ID and
// X-Session-ID request headers; exactly one must be set for cart routes.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rhowell/njord/internal/domain"
	"github.com/rhowell/njord/internal/middleware"
)

const (
	// UserIDHeader identifies an authenticated user.
	UserIDHeader = "X-User-ID"

	// SessionIDHeader identifies an anonymous session.
	SessionIDHeader = "X-Session-ID"
)

var validate = validator.New()

// respondJSON writes v as a JSON response with the given status.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

// decodeJSON decodes and validates a request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.Invalid(r.URL.Path, "Invalid request body")
	}
	if err := validate.Struct(dst); err != nil {
		return domain.Invalid(r.URL.Path, "Validation failed: "+err.Error())
	}
	return nil
}

// ownerFromRequest builds the cart owner key from the identity headers.
func ownerFromRequest(r *http.Request) (domain.OwnerKey, error) {
	key := domain.OwnerKey{
		UserID:    r.Header.Get(UserIDHeader),
		SessionID: r.Header.Get(SessionIDHeader),
	}
	if err := key.Validate(); err != nil {
		return domain.OwnerKey{}, err
	}
	return key, nil
}

// userFromRequest returns the authenticated user ID. Checkout and order
// routes reject session-only identities.
func userFromRequest(r *http.Request) (string, error) {
	userID := r.Header.Get(UserIDHeader)
	if userID == "" {
		return "", domain.Invalid(r.URL.Path, "X-User-ID header is required")
	}
	return userID, nil
}

// pathInt64 parses a numeric path segment.
func pathInt64(r *http.Request, name string) (int64, error) {
	v, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || v <= 0 {
		return 0, domain.Invalid(r.URL.Path, "Invalid "+name)
	}
	return v, nil
}

// pathUUID parses a UUID path segment.
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	v, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, domain.Invalid(r.URL.Path, "Invalid "+name)
	}
	return v, nil
}

// queryInt32 parses an optional int32 query parameter, returning def when
// absent.
func queryInt32(r *http.Request, name string, def int32) (int32, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, domain.Invalid(r.URL.Path, "Invalid "+name)
	}
	return int32(v), nil
}

// respondError delegates to the shared middleware error writer.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	middleware.RespondError(w, r, err)
}
