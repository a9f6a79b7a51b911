package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"lifelog/internal/domain"
	"lifelog/internal/domain/models"
	"lifelog/internal/remote"
)

// SessionState is the explicit state of the access gate.
type SessionState string

const (
	StateLoading       SessionState = "loading"
	StateSetup         SessionState = "setup"
	StateLock          SessionState = "lock"
	StateAuthenticated SessionState = "authenticated"
)

// TransitionFunc observes gate transitions. The composition root uses it to
// start the reconciler on entering Authenticated and stop it on leaving.
type TransitionFunc func(from, to SessionState)

// SessionGate guards the session behind a six-digit numeric credential
// stored in the remote settings collection. Transitions:
//
//	Loading -> Setup            no stored credential
//	Loading -> Lock             credential exists
//	Setup   -> Authenticated    SubmitSetup succeeds
//	Lock    -> Authenticated    SubmitUnlock matches
//	Authenticated -> Lock       explicit Lock(), not a sign-out
//
// Nothing re-verifies after Authenticated. A PIN mismatch is a credential
// failure, not a system error: the gate stays in Lock untouched.
type SessionGate struct {
	store  remote.Store
	logger *slog.Logger

	mu           sync.Mutex
	state        SessionState
	onTransition TransitionFunc
}

func NewSessionGate(store remote.Store, logger *slog.Logger) *SessionGate {
	return &SessionGate{
		store:  store,
		logger: logger,
		state:  StateLoading,
	}
}

// OnTransition registers the transition observer. Set before Start. The
// callback runs inside the transition and must not call back into the gate.
func (g *SessionGate) OnTransition(fn TransitionFunc) {
	g.mu.Lock()
	g.onTransition = fn
	g.mu.Unlock()
}

func (g *SessionGate) State() SessionState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Start resolves Loading by probing for the stored credential: absent means
// first run (Setup), present means returning user (Lock). A remote failure
// leaves the gate in Loading so Start can be retried.
func (g *SessionGate) Start(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != StateLoading {
		return fmt.Errorf("gate already started in state %s: %w", g.state, domain.ErrConflict)
	}

	_, err := g.store.Get(ctx, remote.CollectionSettings, models.SecurityDocID)
	switch {
	case err == nil:
		g.transitionLocked(StateLock)
	case errors.Is(err, domain.ErrNotFound):
		g.transitionLocked(StateSetup)
	default:
		return fmt.Errorf("check stored credential: %w", err)
	}
	return nil
}

// SubmitSetup validates and stores a new credential. Validation failures
// (format, mismatched confirmation) return before any remote call.
func (g *SessionGate) SubmitSetup(ctx context.Context, pin, confirm string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != StateSetup {
		return fmt.Errorf("setup not available in state %s: %w", g.state, domain.ErrConflict)
	}
	if err := validatePIN(pin); err != nil {
		return err
	}
	if pin != confirm {
		return fmt.Errorf("confirmation does not match: %w", domain.ErrValidation)
	}

	settings := models.SecuritySettings{PIN: pin}
	if err := g.store.Set(ctx, remote.CollectionSettings, models.SecurityDocID, settings.SecurityDoc()); err != nil {
		return fmt.Errorf("store credential: %w", err)
	}

	g.logger.Info("credential configured")
	g.transitionLocked(StateAuthenticated)
	return nil
}

// SubmitUnlock compares the submitted PIN against the stored credential.
func (g *SessionGate) SubmitUnlock(ctx context.Context, pin string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state != StateLock {
		return fmt.Errorf("unlock not available in state %s: %w", g.state, domain.ErrConflict)
	}
	if err := validatePIN(pin); err != nil {
		return err
	}

	doc, err := g.store.Get(ctx, remote.CollectionSettings, models.SecurityDocID)
	if err != nil {
		return fmt.Errorf("read stored credential: %w", err)
	}

	stored := models.SecurityFromDoc(doc.Data, doc.CreatedAt)
	if stored.PIN != pin {
		g.logger.Info("unlock rejected")
		return fmt.Errorf("incorrect pin: %w", domain.ErrUnauthorized)
	}

	g.transitionLocked(StateAuthenticated)
	return nil
}

// Lock returns an authenticated session to Lock. Anywhere else it is a
// no-op: there is nothing to lock.
func (g *SessionGate) Lock() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != StateAuthenticated {
		return
	}
	g.transitionLocked(StateLock)
}

func (g *SessionGate) transitionLocked(to SessionState) {
	from := g.state
	g.state = to
	g.logger.Info("session state changed", "from", from, "to", to)
	if g.onTransition != nil {
		g.onTransition(from, to)
	}
}

// validatePIN enforces the credential format: exactly six decimal digits.
func validatePIN(pin string) error {
	err := validation.Validate(pin,
		validation.Required,
		validation.Length(6, 6),
		is.Digit,
	)
	if err != nil {
		return fmt.Errorf("pin must be exactly 6 digits: %w", domain.ErrValidation)
	}
	return nil
}
