package authclient

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tradeflow-dev/tradeflow/log"
)

const (
	// refreshLead is how far before expiry the auto refresher fires.
	refreshLead = 10 * time.Minute

	// minRefreshDelay is the floor for the armed delay, so a nearly-expired
	// token still gets one prompt attempt rather than a zero-delay spin.
	minRefreshDelay = 5 * time.Second

	// checkWindow is the on-demand threshold: CheckAndRefresh refreshes when
	// less than this remains until expiry.
	checkWindow = 15 * time.Minute
)

// AutoRefresher proactively refreshes the access token before it expires. It
// is an explicit loop with a cancellation handle, so a pending refresh can be
// torn down deterministically.
//
// Its timer and CheckAndRefresh can race into Refresh concurrently; that is
// safe only because Refresh is single-flight.
type AutoRefresher struct {
	client *TokenClient
	logger log.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewAutoRefresher builds an AutoRefresher for client.
func NewAutoRefresher(client *TokenClient, logger log.Logger) *AutoRefresher {
	if logger == nil {
		logger = log.NewZerologAdapter(zerolog.Disabled, false)
	}
	return &AutoRefresher{client: client, logger: logger}
}

// Start arms the refresh loop. Calling Start on a running refresher is a
// no-op. The loop exits when Stop is called, ctx is done, the session
// disappears, or a refresh fails (a failed refresh has already destroyed the
// session, so re-arming would only spin against a dead credential chain).
func (a *AutoRefresher) Start(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	go a.loop(runCtx)
}

// Stop cancels the loop and any armed timer.
func (a *AutoRefresher) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
}

func (a *AutoRefresher) loop(ctx context.Context) {
	for {
		delay, ok := a.nextDelay(ctx)
		if !ok {
			a.logger.Debug(ctx, "auto refresh idle: no authenticated session")
			return
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if _, err := a.client.Refresh(ctx); err != nil {
			a.logger.Error(ctx, "scheduled token refresh failed", err)
			return
		}
		a.logger.Debug(ctx, "scheduled token refresh succeeded")
	}
}

// nextDelay computes how long to wait before the next refresh attempt, or
// reports false when there is no session to keep alive.
func (a *AutoRefresher) nextDelay(ctx context.Context) (time.Duration, bool) {
	sess, err := a.client.store.Get(ctx)
	if err != nil || !sess.Authenticated() || sess.TokenExpiry == 0 {
		return 0, false
	}
	delay := sess.ExpiresAt().Sub(a.client.now()) - refreshLead
	if delay < minRefreshDelay {
		delay = minRefreshDelay
	}
	return delay, true
}

// CheckAndRefresh is the on-demand companion used before outbound API calls,
// which keeps long-lived sessions alive across restarts where no timer
// survives. It refreshes when less than checkWindow remains and reports
// whether a refresh happened.
func (a *AutoRefresher) CheckAndRefresh(ctx context.Context) (bool, error) {
	sess, err := a.client.store.Get(ctx)
	if err != nil || !sess.Authenticated() || sess.TokenExpiry == 0 {
		return false, nil
	}
	if sess.ExpiresAt().Sub(a.client.now()) >= checkWindow {
		return false, nil
	}
	if _, err := a.client.Refresh(ctx); err != nil {
		return false, err
	}
	return true, nil
}
