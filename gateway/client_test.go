package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradeflow-dev/tradeflow"
	"github.com/tradeflow-dev/tradeflow/authclient"
	"github.com/tradeflow-dev/tradeflow/dto"
	"github.com/tradeflow-dev/tradeflow/sessionstore"
)

// upstream is a scripted business API plus its auth endpoints, on one server.
type upstream struct {
	srv *httptest.Server

	refreshCalls   atomic.Int32
	quotationCalls atomic.Int32
	clientCalls    atomic.Int32

	// quotationStatuses is consumed one per /quotations hit; when exhausted
	// the endpoint answers 200 with an empty list.
	quotationStatuses []int

	// lastAuth records the Authorization header of the most recent
	// /quotations hit.
	lastAuth atomic.Value
}

func newUpstream(t *testing.T) *upstream {
	t.Helper()
	u := &upstream{}

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		n := u.refreshCalls.Add(1)
		writeJSON(w, http.StatusOK, dto.RefreshResponse{Tokens: &dto.TokenPair{
			AccessToken:  fmt.Sprintf("access-%d", n+1),
			RefreshToken: fmt.Sprintf("refresh-%d", n+1),
			ExpiresIn:    3600,
		}})
	})
	mux.HandleFunc("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/quotations", func(w http.ResponseWriter, r *http.Request) {
		hit := int(u.quotationCalls.Add(1))
		u.lastAuth.Store(r.Header.Get("Authorization"))
		if hit <= len(u.quotationStatuses) {
			status := u.quotationStatuses[hit-1]
			if status != http.StatusOK {
				writeJSON(w, status, dto.APIError{Message: http.StatusText(status)})
				return
			}
		}
		writeJSON(w, http.StatusOK, []dto.Quotation{{ID: "q-1", Number: "Q-2024-001", Status: "draft"}})
	})
	mux.HandleFunc("/clients", func(w http.ResponseWriter, r *http.Request) {
		u.clientCalls.Add(1)
		if r.Method != http.MethodGet {
			writeJSON(w, http.StatusCreated, dto.Client{ID: "c-2", Name: "New Trading Co"})
			return
		}
		writeJSON(w, http.StatusOK, []dto.Client{{ID: "c-1", Name: "Acme Trading"}})
	})

	u.srv = httptest.NewServer(mux)
	t.Cleanup(u.srv.Close)
	return u
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// newGateway wires a Client against the fake upstream with a live session
// whose access token is nowhere near expiry.
func newGateway(t *testing.T, u *upstream, opts Options) *Client {
	t.Helper()
	store := sessionstore.NewMemoryStore()
	err := store.Set(context.Background(), &tradeflow.Session{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		TokenExpiry:  time.Now().Add(time.Hour).UnixMilli(),
	})
	require.NoError(t, err)

	opts.BaseURL = u.srv.URL
	opts.Tokens = authclient.New(authclient.Options{
		BaseURL: u.srv.URL,
		Store:   store,
	})
	gw := New(opts)
	t.Cleanup(gw.Close)
	return gw
}

func TestPersistent401RefreshesOnceThenFails(t *testing.T) {
	u := newUpstream(t)
	u.quotationStatuses = []int{http.StatusUnauthorized, http.StatusUnauthorized}
	gw := newGateway(t, u, Options{})

	_, err := gw.Quotations().List(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, tradeflow.ErrUnauthorized)

	assert.Equal(t, int32(1), u.refreshCalls.Load(), "exactly one forced refresh")
	assert.Equal(t, int32(2), u.quotationCalls.Load(), "original call plus one retry")
}

func TestRetryAfter401UsesRefreshedToken(t *testing.T) {
	u := newUpstream(t)
	u.quotationStatuses = []int{http.StatusUnauthorized, http.StatusOK}
	gw := newGateway(t, u, Options{})

	quotes, err := gw.Quotations().List(context.Background())
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, "Q-2024-001", quotes[0].Number)

	assert.Equal(t, int32(1), u.refreshCalls.Load())
	assert.Equal(t, "Bearer access-2", u.lastAuth.Load(), "retry carries the refreshed token")
}

func TestErrorMessageFromJSONBody(t *testing.T) {
	u := newUpstream(t)
	gw := newGateway(t, u, Options{})

	mux := u.srv.Config.Handler.(*http.ServeMux)
	mux.HandleFunc("/quotations/q-1/convert", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, dto.APIError{Message: "quotation already converted"})
	})

	_, err := gw.Quotations().ConvertToOrder(context.Background(), "q-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quotation already converted")

	assert.Zero(t, u.refreshCalls.Load(), "non-401 failures never trigger a refresh")
}

func TestErrorFallbackToStatusLine(t *testing.T) {
	u := newUpstream(t)
	gw := newGateway(t, u, Options{})

	mux := u.srv.Config.Handler.(*http.ServeMux)
	mux.HandleFunc("/products", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	})

	_, err := gw.Products().List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP error! status: 502")
}

func TestEmptyResponseBodyDecodesToZero(t *testing.T) {
	u := newUpstream(t)
	gw := newGateway(t, u, Options{})

	mux := u.srv.Config.Handler.(*http.ServeMux)
	mux.HandleFunc("/clients/c-1", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	err := gw.Clients().Delete(context.Background(), "c-1")
	assert.NoError(t, err)
}

func TestReferenceCacheServesRepeatReads(t *testing.T) {
	u := newUpstream(t)
	gw := newGateway(t, u, Options{CacheTTL: time.Minute})

	ctx := context.Background()
	first, err := gw.Clients().List(ctx)
	require.NoError(t, err)
	second, err := gw.Clients().List(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), u.clientCalls.Load(), "second read is served from cache")
}

func TestWritesFlushReferenceCache(t *testing.T) {
	u := newUpstream(t)
	gw := newGateway(t, u, Options{CacheTTL: time.Minute})

	ctx := context.Background()
	_, err := gw.Clients().List(ctx)
	require.NoError(t, err)

	_, err = gw.Clients().Create(ctx, &dto.Client{Name: "New Trading Co"})
	require.NoError(t, err)

	_, err = gw.Clients().List(ctx)
	require.NoError(t, err)

	// List, Create, then a List that must bypass the flushed cache.
	assert.Equal(t, int32(3), u.clientCalls.Load())
}

func TestUploadSendsMultipartForm(t *testing.T) {
	u := newUpstream(t)
	gw := newGateway(t, u, Options{})

	var gotContentType, gotFileName, gotPayload string
	mux := u.srv.Config.Handler.(*http.ServeMux)
	mux.HandleFunc("/delivery-orders/do-1/signature", func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		file, header, err := r.FormFile("signature")
		require.NoError(t, err)
		defer file.Close()
		gotFileName = header.Filename
		buf, err := io.ReadAll(file)
		require.NoError(t, err)
		gotPayload = string(buf)
		writeJSON(w, http.StatusOK, dto.DeliveryOrder{ID: "do-1", SignatureURL: "/files/sig.png"})
	})

	do, err := gw.DeliveryOrders().UploadSignature(
		context.Background(), "do-1", "sig.png", strings.NewReader("png-bytes"))
	require.NoError(t, err)

	assert.Equal(t, "/files/sig.png", do.SignatureURL)
	assert.Contains(t, gotContentType, "multipart/form-data; boundary=")
	assert.Equal(t, "sig.png", gotFileName)
	assert.Equal(t, "png-bytes", gotPayload)
}

func TestForwardReturnsRawBody(t *testing.T) {
	u := newUpstream(t)
	gw := newGateway(t, u, Options{})

	var gotBody, gotContentType string
	mux := u.srv.Config.Handler.(*http.ServeMux)
	mux.HandleFunc("/invoices", func(w http.ResponseWriter, r *http.Request) {
		buf, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		gotBody = string(buf)
		gotContentType = r.Header.Get("Content-Type")
		writeJSON(w, http.StatusCreated, dto.Invoice{ID: "inv-1"})
	})

	payload := []byte(`{"clientId":"c-1","amount":120.5}`)
	raw, err := gw.Forward(context.Background(), http.MethodPost, "/invoices", "application/json", payload)
	require.NoError(t, err)

	assert.Equal(t, string(payload), gotBody)
	assert.Equal(t, "application/json", gotContentType)
	assert.Contains(t, string(raw), `"inv-1"`)
}
