package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveClient(t *testing.T, m *SessionMiddleware, cookies []*http.Cookie) (string, *httptest.ResponseRecorder) {
	t.Helper()

	var seen string
	handler := m.LoadClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ClientIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return seen, rr
}

func TestSessionMiddleware_IssuesAndReusesClientID(t *testing.T) {
	m := NewSessionMiddleware(NewCookieStore("test-secret-0123456789abcdef0123", 3600, false), "storefront", nil)

	first, rr := serveClient(t, m, nil)
	_, err := uuid.Parse(first)
	require.NoError(t, err)

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "storefront", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	second, rr := serveClient(t, m, cookies)
	assert.Equal(t, first, second)
	assert.Empty(t, rr.Result().Cookies(), "an existing session is not rewritten")
}

func TestSessionMiddleware_TamperedCookie(t *testing.T) {
	m := NewSessionMiddleware(NewCookieStore("test-secret-0123456789abcdef0123", 3600, false), "storefront", nil)

	clientID, rr := serveClient(t, m, []*http.Cookie{{Name: "storefront", Value: "garbage"}})

	_, err := uuid.Parse(clientID)
	assert.NoError(t, err)
	assert.Len(t, rr.Result().Cookies(), 1)
}

func TestSessionMiddleware_ForeignSecret(t *testing.T) {
	issuer := NewSessionMiddleware(NewCookieStore("first-secret-0123456789abcdef012", 3600, false), "storefront", nil)
	reader := NewSessionMiddleware(NewCookieStore("other-secret-0123456789abcdef012", 3600, false), "storefront", nil)

	original, rr := serveClient(t, issuer, nil)
	fresh, _ := serveClient(t, reader, rr.Result().Cookies())

	assert.NotEqual(t, original, fresh)
}

func TestClientIDFromContext(t *testing.T) {
	assert.Empty(t, ClientIDFromContext(context.Background()))
	assert.Equal(t, "abc", ClientIDFromContext(WithClientID(context.Background(), "abc")))
}
