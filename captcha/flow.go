package captcha

import (
	"context"
	"sync"
	"time"

	"github.com/tradeflow-dev/tradeflow/dto"
)

// State is the phase of one verification attempt.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateDragging
	StateVerifying
	StateSuccess
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateDragging:
		return "dragging"
	case StateVerifying:
		return "verifying"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// defaultRetryDelay is how long an attempt sits in StateError before a fresh
// challenge is fetched.
const defaultRetryDelay = 1500 * time.Millisecond

// Flow runs the challenge lifecycle:
//
//	Idle → Loading → Ready → Dragging → Verifying → {Success | Error}
//
// Error re-enters Loading with a brand-new challenge after a short delay. A
// session id is consumed by exactly one verification attempt; the server
// discards it on verify, so the flow never resubmits one.
type Flow struct {
	client *Client

	// OnSuccess receives the verified (sessionID, originalPosition) pair that
	// the login call later attaches as proof of human verification.
	OnSuccess func(sessionID string, position int)
	// OnError receives the server's message, which may include a precision
	// hint such as "Off by 8px".
	OnError func(message string)

	RetryDelay time.Duration

	mu         sync.Mutex
	state      State
	challenge  *dto.CaptchaChallenge
	geom       Geometry
	factor     float64
	width      float64
	position   float64 // scaled-space slider offset
	dragOrigin float64
	reload     *time.Timer
}

// NewFlow builds a Flow over client.
func NewFlow(client *Client) *Flow {
	return &Flow{client: client, RetryDelay: defaultRetryDelay}
}

// State returns the current phase.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Position returns the current scaled-space slider offset.
func (f *Flow) Position() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.position
}

// Challenge returns the active challenge, or nil outside Ready/Dragging.
func (f *Flow) Challenge() *dto.CaptchaChallenge {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.challenge
}

// Load fetches a challenge and enters Ready. containerWidth is the on-screen
// render width used to derive the scale factor once the image dimensions are
// known.
func (f *Flow) Load(ctx context.Context, containerWidth float64) error {
	f.mu.Lock()
	if f.reload != nil {
		f.reload.Stop()
		f.reload = nil
	}
	f.state = StateLoading
	f.challenge = nil
	f.position = 0
	f.width = containerWidth
	f.mu.Unlock()

	challenge, err := f.client.Generate(ctx)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.state = StateError
		return err
	}
	f.challenge = challenge
	f.geom = Geometry{
		CanvasWidth:  challenge.CanvasWidth,
		CanvasHeight: challenge.CanvasHeight,
		PuzzleSize:   challenge.PuzzleSize,
		PuzzleY:      challenge.PuzzleY,
	}
	f.factor = ScaleFactor(containerWidth, challenge.CanvasWidth)
	f.state = StateReady
	return nil
}

// Resize recomputes the scale factor for a new render width, keeping the
// slider at the same reference-space position.
func (f *Flow) Resize(containerWidth float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.challenge == nil {
		f.width = containerWidth
		return
	}
	original := ToOriginal(f.position, f.factor)
	f.width = containerWidth
	f.factor = ScaleFactor(containerWidth, f.geom.CanvasWidth)
	f.position = f.geom.ClampScaled(ToScaled(original, f.factor), f.factor)
}

// BeginDrag records the pointer-down coordinate. Only valid in Ready.
func (f *Flow) BeginDrag(pointerX float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateReady {
		return
	}
	f.state = StateDragging
	f.dragOrigin = pointerX - f.position
}

// Drag updates the slider to the pointer position, clamped to the travel
// range in scaled space. Verification is not triggered here; only on release.
func (f *Flow) Drag(pointerX float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateDragging {
		return
	}
	f.position = f.geom.ClampScaled(pointerX-f.dragOrigin, f.factor)
}

// Release submits the attempt. Whatever the outcome, the current session id
// is spent: on success the pair is handed to OnSuccess, on failure the
// challenge is discarded and a fresh one is fetched after RetryDelay.
func (f *Flow) Release(ctx context.Context) {
	f.mu.Lock()
	if f.state != StateDragging {
		f.mu.Unlock()
		return
	}
	f.state = StateVerifying
	sessionID := f.challenge.SessionID
	original := ToOriginal(f.position, f.factor)
	f.mu.Unlock()

	result, err := f.client.Verify(ctx, sessionID, original)

	f.mu.Lock()
	// The attempt consumed the session id either way.
	f.challenge = nil

	if err == nil && result.Valid {
		f.state = StateSuccess
		f.mu.Unlock()
		if f.OnSuccess != nil {
			f.OnSuccess(sessionID, original)
		}
		return
	}

	f.state = StateError
	msg := "Verification failed"
	if err != nil {
		msg = err.Error()
	} else if result.Message != "" {
		msg = result.Message
	}
	f.scheduleReloadLocked(ctx)
	f.mu.Unlock()

	if f.OnError != nil {
		f.OnError(msg)
	}
}

// scheduleReloadLocked arms the Error → Loading transition. Caller holds mu.
func (f *Flow) scheduleReloadLocked(ctx context.Context) {
	if f.reload != nil {
		f.reload.Stop()
	}
	width := f.width
	f.reload = time.AfterFunc(f.RetryDelay, func() {
		if ctx.Err() != nil {
			return
		}
		//nolint:errcheck // a failed reload parks the flow in StateError
		f.Load(ctx, width)
	})
}

// Close stops any pending reload timer.
func (f *Flow) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reload != nil {
		f.reload.Stop()
		f.reload = nil
	}
}
