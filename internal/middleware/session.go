package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

type contextKey string

// ClientIDContextKey holds the browser's client ID in the request context
const ClientIDContextKey contextKey = "client_id"

const clientIDSessionKey = "client_id"

// SessionMiddleware identifies each browser by a client ID kept in a cookie session
type SessionMiddleware struct {
	store  sessions.Store
	name   string
	logger *zap.Logger
}

// NewSessionMiddleware creates a new session middleware
func NewSessionMiddleware(store sessions.Store, name string, logger *zap.Logger) *SessionMiddleware {
	if name == "" {
		name = "storefront"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionMiddleware{
		store:  store,
		name:   name,
		logger: logger,
	}
}

// NewCookieStore creates the cookie store backing the client session
func NewCookieStore(secret string, maxAge int, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// LoadClient attaches the client ID to the request, issuing a new one on first visit
func (m *SessionMiddleware) LoadClient(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := m.store.Get(r, m.name)
		if err != nil {
			// Tampered or rotated-key cookie: start over with a fresh session
			m.logger.Debug("discarding unreadable session cookie", zap.Error(err))
		}

		clientID, _ := session.Values[clientIDSessionKey].(string)
		if _, parseErr := uuid.Parse(clientID); parseErr != nil {
			clientID = uuid.NewString()
			session.Values[clientIDSessionKey] = clientID
			if err := session.Save(r, w); err != nil {
				m.logger.Error("failed to save client session", zap.Error(err))
				writeJSONError(w, http.StatusInternalServerError, "Session error")
				return
			}
		}

		next.ServeHTTP(w, r.WithContext(WithClientID(r.Context(), clientID)))
	})
}

// WithClientID returns a copy of ctx carrying clientID
func WithClientID(ctx context.Context, clientID string) context.Context {
	return context.WithValue(ctx, ClientIDContextKey, clientID)
}

// ClientIDFromContext extracts the client ID from the request context
func ClientIDFromContext(ctx context.Context) string {
	clientID, _ := ctx.Value(ClientIDContextKey).(string)
	return clientID
}
