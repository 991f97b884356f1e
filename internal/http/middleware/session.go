package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/diagnosis/quickstay/internal/http/response"
	"github.com/diagnosis/quickstay/internal/platform/session"
	"github.com/diagnosis/quickstay/pkg/config"
	"github.com/diagnosis/quickstay/pkg/logger"
)

const sessionIDKey = "sid"

// NewCookieStore builds the signed cookie store that carries the session id.
func NewCookieStore(cfg config.SessionConfig) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(cfg.Secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.TTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// Session binds the caller's server-side session to the request context. The
// cookie only holds an opaque id; values live in store.
func Session(cookies sessions.Store, cookieName string, store session.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// a cookie that fails to decode yields a fresh session
			sess, err := cookies.Get(r, cookieName)
			if err != nil {
				logger.DebugContext(r.Context(), "Discarding unreadable session cookie", "error", err)
			}

			sid, _ := sess.Values[sessionIDKey].(string)
			if sid == "" {
				sid = uuid.NewString()
				sess.Values[sessionIDKey] = sid
			}
			// refresh the cookie expiry on every request
			if err := sess.Save(r, w); err != nil {
				logger.ErrorContext(r.Context(), "Failed to save session cookie", "error", err)
				response.InternalError(w, "Something went wrong, please try again")
				return
			}

			ctx := session.WithSession(r.Context(), store.Open(sid))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
