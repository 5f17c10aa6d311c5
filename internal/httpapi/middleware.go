package httpapi

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/mkochhar/jobops/internal/apperr"
	"github.com/mkochhar/jobops/internal/config"
)

// ContextKey namespaces context values this package installs, mirroring the
// teacher's mw.ContextKey pattern.
type ContextKey string

// CapabilityKey is the context key under which the authenticated
// capability set ("ui", "admin", or both) is stored by requireCapability.
const CapabilityKey ContextKey = "capability"

// Capability is the set of header-gated capabilities a request presented.
type Capability struct {
	UI    bool
	Admin bool
}

// GetCapability returns the Capability stored on ctx by requireCapability,
// or a zero Capability if none was set (e.g. for public routes).
func GetCapability(ctx context.Context) Capability {
	if c, ok := ctx.Value(CapabilityKey).(Capability); ok {
		return c
	}
	return Capability{}
}

func constantTimeEquals(given, want string) bool {
	if want == "" || given == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(given), []byte(want)) == 1
}

// capabilityOf inspects the two shared-secret headers spec.md §6 names:
// x-ui-key gates the "ui" capability, x-api-key gates "admin".
func capabilityOf(cfg *config.Config, r *http.Request) Capability {
	return Capability{
		UI:    constantTimeEquals(r.Header.Get("x-ui-key"), cfg.UIKey),
		Admin: constantTimeEquals(r.Header.Get("x-api-key"), cfg.AdminKey),
	}
}

// requireUI accepts only the UI capability header.
func requireUI(cfg *config.Config) func(http.Handler) http.Handler {
	return requireCapability(cfg, func(c Capability) bool { return c.UI })
}

// requireAdmin accepts only the admin capability header.
func requireAdmin(cfg *config.Config) func(http.Handler) http.Handler {
	return requireCapability(cfg, func(c Capability) bool { return c.Admin })
}

// requireEither accepts either capability header, per spec.md §6's
// "either" auth column (e.g. /score-pending).
func requireEither(cfg *config.Config) func(http.Handler) http.Handler {
	return requireCapability(cfg, func(c Capability) bool { return c.UI || c.Admin })
}

func requireCapability(cfg *config.Config, allowed func(Capability) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			granted := capabilityOf(cfg, r)
			if !allowed(granted) {
				writeEnvelopeError(w, apperr.AuthRequired())
				return
			}
			ctx := context.WithValue(r.Context(), CapabilityKey, granted)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeEnvelopeError writes the {ok:false, error, detail} envelope directly,
// used by middleware that runs before huma gets a chance to render a
// handler-returned error.
func writeEnvelopeError(w http.ResponseWriter, err error) {
	env, status := apperr.ToEnvelope(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = writeJSON(w, env)
}
