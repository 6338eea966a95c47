package sessionstore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradeflow-dev/tradeflow"
)

func testSession() *tradeflow.Session {
	return &tradeflow.Session{
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		TokenExpiry:  time.Now().Add(time.Hour).UnixMilli(),
	}
}

// recordedCookies indexes the Set-Cookie headers of a recorded response.
func recordedCookies(t *testing.T, rec *httptest.ResponseRecorder) map[string]*http.Cookie {
	t.Helper()
	out := map[string]*http.Cookie{}
	for _, ck := range rec.Result().Cookies() {
		out[ck.Name] = ck
	}
	return out
}

func TestCookieStoreSetWritesContractCookies(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/session/login", nil)
	store := NewCookieStore(req, rec, tradeflow.DefaultCookiePolicy())

	require.NoError(t, store.Set(context.Background(), testSession()))

	cookies := recordedCookies(t, rec)
	require.Len(t, cookies, 3)

	access := cookies[tradeflow.CookieAccessToken]
	require.NotNil(t, access)
	assert.Equal(t, "access-token", access.Value)
	assert.True(t, access.HttpOnly)
	assert.True(t, access.Secure)
	assert.Equal(t, http.SameSiteLaxMode, access.SameSite)
	assert.Equal(t, int(time.Hour/time.Second), access.MaxAge)

	refresh := cookies[tradeflow.CookieRefreshToken]
	require.NotNil(t, refresh)
	assert.True(t, refresh.HttpOnly)
	assert.Equal(t, int((7*24*time.Hour)/time.Second), refresh.MaxAge)

	// The expiry poll on the frontend reads this one from script.
	expiry := cookies[tradeflow.CookieTokenExpiry]
	require.NotNil(t, expiry)
	assert.False(t, expiry.HttpOnly)
}

func TestCookieStoreRoundTrip(t *testing.T) {
	rec := httptest.NewRecorder()
	loginReq := httptest.NewRequest(http.MethodPost, "/session/login", nil)
	writer := NewCookieStore(loginReq, rec, tradeflow.DefaultCookiePolicy())

	want := testSession()
	require.NoError(t, writer.Set(context.Background(), want))

	// A follow-up request carrying the cookies the browser stored.
	next := httptest.NewRequest(http.MethodGet, "/session/status", nil)
	for _, ck := range rec.Result().Cookies() {
		next.AddCookie(&http.Cookie{Name: ck.Name, Value: ck.Value})
	}
	reader := NewCookieStore(next, httptest.NewRecorder(), tradeflow.DefaultCookiePolicy())

	got, err := reader.Get(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.AccessToken, got.AccessToken)
	assert.Equal(t, want.RefreshToken, got.RefreshToken)
	assert.Equal(t, want.TokenExpiry, got.TokenExpiry)
}

func TestCookieStoreReadsItsOwnWrites(t *testing.T) {
	ctx := context.Background()
	req := httptest.NewRequest(http.MethodGet, "/api/quotations", nil)
	req.AddCookie(&http.Cookie{Name: tradeflow.CookieAccessToken, Value: "stale-access"})
	req.AddCookie(&http.Cookie{Name: tradeflow.CookieRefreshToken, Value: "stale-refresh"})
	store := NewCookieStore(req, httptest.NewRecorder(), tradeflow.DefaultCookiePolicy())

	// A refresh mid-request replaces the session; later reads in the same
	// request must see the new tokens, not the ones the browser sent.
	rotated := &tradeflow.Session{
		AccessToken:  "fresh-access",
		RefreshToken: "fresh-refresh",
		TokenExpiry:  time.Now().Add(time.Hour).UnixMilli(),
	}
	require.NoError(t, store.Set(ctx, rotated))

	got, err := store.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "fresh-access", got.AccessToken)
	assert.Equal(t, "fresh-refresh", got.RefreshToken)

	// The handed-out copy must not alias the buffer.
	got.AccessToken = "mutated"
	again, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "fresh-access", again.AccessToken)

	// After Delete the request cookies stay dead for the rest of the request.
	require.NoError(t, store.Delete(ctx))
	got, err = store.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCookieStoreGetWithoutTokens(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/session/status", nil)
	store := NewCookieStore(req, httptest.NewRecorder(), tradeflow.DefaultCookiePolicy())

	got, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got, "no token cookies means no session")
}

func TestCookieStoreDeleteExpiresAllThree(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/session/logout", nil)
	store := NewCookieStore(req, rec, tradeflow.DefaultCookiePolicy())

	require.NoError(t, store.Delete(context.Background()))

	cookies := recordedCookies(t, rec)
	require.Len(t, cookies, 3)
	for name, ck := range cookies {
		assert.Equal(t, -1, ck.MaxAge, "cookie %s must be expired", name)
		assert.Empty(t, ck.Value)
	}
}

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	got, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	want := testSession()
	require.NoError(t, store.Set(ctx, want))

	got, err = store.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.AccessToken, got.AccessToken)

	// The copy handed out must not alias the stored session.
	got.AccessToken = "mutated"
	again, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, want.AccessToken, again.AccessToken)

	require.NoError(t, store.Delete(ctx))
	got, err = store.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFileStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	store := NewFileStore(path)

	got, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got, "missing file reads as no session")

	want := testSession()
	require.NoError(t, store.Set(ctx, want))

	got, err = store.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.AccessToken, got.AccessToken)
	assert.Equal(t, want.RefreshToken, got.RefreshToken)
	assert.Equal(t, want.TokenExpiry, got.TokenExpiry)

	require.NoError(t, store.Delete(ctx))
	got, err = store.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	// Deleting an already-missing file is not an error.
	assert.NoError(t, store.Delete(ctx))
}
