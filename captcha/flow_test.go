package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradeflow-dev/tradeflow"
	"github.com/tradeflow-dev/tradeflow/dto"
)

// captchaBackend fakes the challenge endpoints. It issues sequentially
// numbered session ids and records every verify submission.
type captchaBackend struct {
	mu          sync.Mutex
	issued      int
	verified    map[string]int // sessionID -> verify call count
	targetPos   int
	partialResp bool

	server *httptest.Server
}

func newCaptchaBackend(t *testing.T) *captchaBackend {
	b := &captchaBackend{verified: map[string]int{}, targetPos: 137}
	mux := http.NewServeMux()

	mux.HandleFunc("/captcha/generate", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.issued++
		id := fmt.Sprintf("challenge-%d", b.issued)
		b.mu.Unlock()

		if b.partialResp {
			json.NewEncoder(w).Encode(map[string]string{"sessionId": id})
			return
		}
		json.NewEncoder(w).Encode(dto.CaptchaChallenge{
			SessionID:       id,
			BackgroundImage: "data:image/png;base64,bg",
			PuzzlePiece:     "data:image/png;base64,piece",
			PuzzleY:         80,
			PuzzleSize:      60,
			CanvasWidth:     400,
			CanvasHeight:    200,
			ExpiresIn:       120,
		})
	})

	mux.HandleFunc("/captcha/verify", func(w http.ResponseWriter, r *http.Request) {
		var req dto.CaptchaVerifyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		b.mu.Lock()
		b.verified[req.SessionID]++
		b.mu.Unlock()

		diff := req.SliderPosition - b.targetPos
		if diff < 0 {
			diff = -diff
		}
		if diff <= 5 {
			json.NewEncoder(w).Encode(dto.CaptchaVerifyResponse{Valid: true, Token: "proof-token"})
			return
		}
		json.NewEncoder(w).Encode(dto.CaptchaVerifyResponse{
			Valid:   false,
			Message: fmt.Sprintf("Off by %dpx", diff),
		})
	})

	b.server = httptest.NewServer(mux)
	t.Cleanup(b.server.Close)
	return b
}

func TestGenerateRejectsPartialChallenge(t *testing.T) {
	backend := newCaptchaBackend(t)
	backend.partialResp = true

	client := NewClient(backend.server.URL, nil)
	_, err := client.Generate(context.Background())
	assert.ErrorIs(t, err, tradeflow.ErrChallengeInvalid)
}

func TestGenerateReturnsFullChallenge(t *testing.T) {
	backend := newCaptchaBackend(t)
	client := NewClient(backend.server.URL, nil)

	challenge, err := client.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "challenge-1", challenge.SessionID)
	assert.Equal(t, 400, challenge.CanvasWidth)
}

func TestFlowSuccessfulAttempt(t *testing.T) {
	backend := newCaptchaBackend(t)
	client := NewClient(backend.server.URL, nil)
	flow := NewFlow(client)
	defer flow.Close()

	var gotSession string
	var gotPosition int
	flow.OnSuccess = func(sessionID string, position int) {
		gotSession = sessionID
		gotPosition = position
	}

	// Rendered at half the reference width.
	require.NoError(t, flow.Load(context.Background(), 200))
	require.Equal(t, StateReady, flow.State())

	// Drag the piece to the target: 137 original px is 68.5 scaled px.
	flow.BeginDrag(10)
	flow.Drag(10 + 68.5)
	require.Equal(t, StateDragging, flow.State())

	flow.Release(context.Background())

	assert.Equal(t, StateSuccess, flow.State())
	assert.Equal(t, "challenge-1", gotSession)
	assert.InDelta(t, 137, gotPosition, 1)
}

func TestFlowFailureDiscardsSession(t *testing.T) {
	backend := newCaptchaBackend(t)
	client := NewClient(backend.server.URL, nil)
	flow := NewFlow(client)
	flow.RetryDelay = 20 * time.Millisecond
	defer flow.Close()

	var lastErr string
	flow.OnError = func(message string) { lastErr = message }

	require.NoError(t, flow.Load(context.Background(), 200))
	flow.BeginDrag(0)
	flow.Drag(10) // nowhere near the target
	flow.Release(context.Background())

	assert.Equal(t, StateError, flow.State())
	assert.Contains(t, lastErr, "Off by", "the precision hint is surfaced")
	assert.Nil(t, flow.Challenge(), "a spent challenge is discarded immediately")

	// The error state auto-recovers with a brand-new challenge.
	require.Eventually(t, func() bool {
		return flow.State() == StateReady
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, "challenge-2", flow.Challenge().SessionID)
}

func TestFlowNeverReusesSessionID(t *testing.T) {
	backend := newCaptchaBackend(t)
	client := NewClient(backend.server.URL, nil)
	flow := NewFlow(client)
	flow.RetryDelay = 20 * time.Millisecond
	defer flow.Close()

	attempt := func(offset float64) {
		require.Eventually(t, func() bool {
			return flow.State() == StateReady
		}, time.Second, 10*time.Millisecond)
		flow.BeginDrag(0)
		flow.Drag(offset)
		flow.Release(context.Background())
	}

	require.NoError(t, flow.Load(context.Background(), 200))
	attempt(5)    // miss
	attempt(30)   // miss again, new challenge
	attempt(68.5) // hit

	backend.mu.Lock()
	defer backend.mu.Unlock()
	for id, calls := range backend.verified {
		assert.Equal(t, 1, calls, "session %s was verified more than once", id)
	}
	assert.Len(t, backend.verified, 3)
}

func TestFlowDragClamping(t *testing.T) {
	backend := newCaptchaBackend(t)
	client := NewClient(backend.server.URL, nil)
	flow := NewFlow(client)
	defer flow.Close()

	require.NoError(t, flow.Load(context.Background(), 200))
	flow.BeginDrag(0)

	flow.Drag(-50)
	assert.Equal(t, 0.0, flow.Position())

	// Travel range is (400-60) * 0.5 = 170 scaled px.
	flow.Drag(1000)
	assert.Equal(t, 170.0, flow.Position())
}

func TestFlowResizeKeepsReferencePosition(t *testing.T) {
	backend := newCaptchaBackend(t)
	client := NewClient(backend.server.URL, nil)
	flow := NewFlow(client)
	defer flow.Close()

	require.NoError(t, flow.Load(context.Background(), 200))
	flow.BeginDrag(0)
	flow.Drag(68.5) // 137 original px
	flow.Resize(400)

	// At full width the same reference position is 137 scaled px.
	assert.InDelta(t, 137, flow.Position(), 1)
}
