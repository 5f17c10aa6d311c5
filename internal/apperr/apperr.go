// Package apperr defines JobOps's typed error kinds and the stable codes
// they surface over HTTP.
package apperr

import (
	"errors"
	"net/http"
)

// Kind is one of the stable error kinds from spec.md §7.
type Kind string

const (
	KindValidation             Kind = "validation"
	KindAuthRequired           Kind = "auth_required"
	KindNotFound               Kind = "not_found"
	KindSchemaGuard            Kind = "schema_guard"
	KindCollaboratorUnavailable Kind = "collaborator_unavailable"
	KindTransientAIFailure     Kind = "transient_ai_failure"
	KindLockBusy               Kind = "lock_busy"
)

// Error is the single typed error every JobOps component returns for
// anything that must surface a stable code + HTTP status to a caller. Its
// json tags ARE the `{ok:false, error, detail}` envelope from spec.md §7 —
// huma serializes a returned error's own fields directly when it implements
// StatusError, so this struct doubles as its own wire body.
type Error struct {
	Kind    Kind   `json:"-"`
	Code    string `json:"error"` // stable short code for UI branching, e.g. "job_key_busy"
	Message string `json:"detail,omitempty"`
	Status  int    `json:"-"`
	Err     error  `json:"-"` // wrapped cause, not exposed to callers
	OK      bool   `json:"ok"` // always false; zero value, kept for envelope symmetry
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Err.Error()
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.Err }

// GetStatus implements huma's StatusError interface.
func (e *Error) GetStatus() int { return e.Status }

func newErr(kind Kind, code, message string, status int, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Status: status, Err: cause}
}

// Validation wraps a malformed-body / missing-field error as 400.
func Validation(code, message string, cause error) *Error {
	return newErr(KindValidation, code, message, http.StatusBadRequest, cause)
}

// AuthRequired signals a missing/invalid shared-secret header as 401.
func AuthRequired() *Error {
	return newErr(KindAuthRequired, "auth_required", "missing or invalid credentials", http.StatusUnauthorized, nil)
}

// NotFound wraps an unknown job_key/target id/profile as 404.
func NotFound(code, message string) *Error {
	return newErr(KindNotFound, code, message, http.StatusNotFound, nil)
}

// SchemaGuard signals an optional column absent from the current schema as 400.
func SchemaGuard(feature string) *Error {
	return newErr(KindSchemaGuard, "feature_not_enabled_in_schema", "feature not enabled in schema: "+feature, http.StatusBadRequest, nil)
}

// CollaboratorUnavailable wraps a DB/fetcher/AI outage. Admin callers see 500;
// the ingest path downgrades this to LINK_ONLY instead of surfacing it raw.
func CollaboratorUnavailable(collaborator string, cause error) *Error {
	return newErr(KindCollaboratorUnavailable, "collaborator_unavailable", collaborator+" unavailable", http.StatusInternalServerError, cause)
}

// TransientAIFailure wraps an AI call failure after the in-band retry is exhausted.
func TransientAIFailure(cause error) *Error {
	return newErr(KindTransientAIFailure, "transient_ai_failure", "AI call failed after retry", http.StatusInternalServerError, cause)
}

// LockBusy signals the per-job_key advisory lock was not acquired in time.
func LockBusy(jobKey string) *Error {
	return newErr(KindLockBusy, "job_key_busy", "job is currently locked by another operation", http.StatusConflict, nil)
}

// As extracts an *Error from err, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Envelope is the `{ok, data?, error?, detail?}` response shape from spec.md §6/§7.
type Envelope struct {
	OK     bool   `json:"ok"`
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// ToEnvelope builds the error envelope and status code for any error value.
// Errors that are not *Error map to a generic internal_error with status 500.
func ToEnvelope(err error) (Envelope, int) {
	if e, ok := As(err); ok {
		return Envelope{OK: false, Error: e.Code, Detail: e.Message}, e.Status
	}
	return Envelope{OK: false, Error: "internal_error", Detail: "an unexpected error occurred"}, http.StatusInternalServerError
}
