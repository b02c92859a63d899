package services

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/tmkoushik/cfgvault-backend/internal/models"
)

// ErrSignInCancelled marks a sign-in flow the user abandoned (e.g. the client
// went away before the flow completed). Cancellation is never surfaced to the
// user as an error.
var ErrSignInCancelled = errors.New("sign-in cancelled by user")

// AuthStateListener is invoked after every confirmed auth state change.
// ident is nil on sign-out.
type AuthStateListener func(sessionToken string, ident *models.Identity)

// IdentityGateway wraps the account and session services behind the identity
// surface the dashboard needs: interactive sign-in/out, per-session identity
// resolution, and state-change notifications.
type IdentityGateway struct {
	users    *UserService
	sessions *SessionService

	mu        sync.RWMutex
	listeners []AuthStateListener
}

func NewIdentityGateway(users *UserService, sessions *SessionService) *IdentityGateway {
	return &IdentityGateway{users: users, sessions: sessions}
}

// OnAuthStateChanged registers a listener for sign-in/sign-out events.
func (g *IdentityGateway) OnAuthStateChanged(fn AuthStateListener) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listeners = append(g.listeners, fn)
}

func (g *IdentityGateway) notify(sessionToken string, ident *models.Identity) {
	g.mu.RLock()
	listeners := make([]AuthStateListener, len(g.listeners))
	copy(listeners, g.listeners)
	g.mu.RUnlock()

	for _, fn := range listeners {
		fn(sessionToken, ident)
	}
}

// SignIn authenticates the user and opens a session. A context cancelled by
// the client before completion is classified as ErrSignInCancelled so callers
// can skip the user-visible error.
func (g *IdentityGateway) SignIn(ctx context.Context, username, password string) (*models.Identity, string, error) {
	user, err := g.users.Authenticate(ctx, username, password)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, "", ErrSignInCancelled
		}
		return nil, "", err
	}

	token, err := g.sessions.Create(ctx, user.ID)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, "", ErrSignInCancelled
		}
		return nil, "", err
	}

	ident := identityFromUser(user)
	log.Printf("User signed in: %s", ident.Email)
	g.notify(token, ident)
	return ident, token, nil
}

// SignOut closes the session. The local identity is considered cleared only
// on confirmed success.
func (g *IdentityGateway) SignOut(ctx context.Context, sessionToken string) error {
	if err := g.sessions.Invalidate(ctx, sessionToken); err != nil {
		return err
	}
	log.Println("User signed out")
	g.notify(sessionToken, nil)
	return nil
}

// Resolve returns the identity bound to a session token, or ok=false when the
// token is missing, expired, or the account is gone.
func (g *IdentityGateway) Resolve(ctx context.Context, sessionToken string) (*models.Identity, bool, error) {
	userID, ok, err := g.sessions.Validate(ctx, sessionToken)
	if err != nil || !ok {
		return nil, false, err
	}

	user, err := g.users.GetByID(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	if user == nil {
		return nil, false, nil
	}

	return identityFromUser(user), true, nil
}

// CurrentUserID returns the user ID for a session, or "" when unauthenticated.
func (g *IdentityGateway) CurrentUserID(ctx context.Context, sessionToken string) string {
	ident, ok, _ := g.Resolve(ctx, sessionToken)
	if !ok {
		return ""
	}
	return ident.ID
}

// CurrentUserEmail returns the user email for a session, or "" when unauthenticated.
func (g *IdentityGateway) CurrentUserEmail(ctx context.Context, sessionToken string) string {
	ident, ok, _ := g.Resolve(ctx, sessionToken)
	if !ok {
		return ""
	}
	return ident.Email
}

// IsAuthenticated reports whether the session resolves to an identity.
func (g *IdentityGateway) IsAuthenticated(ctx context.Context, sessionToken string) bool {
	_, ok, _ := g.Resolve(ctx, sessionToken)
	return ok
}

func identityFromUser(user *models.User) *models.Identity {
	return &models.Identity{
		ID:          user.ID.String(),
		Username:    user.Username,
		Email:       user.Email,
		DisplayName: user.DisplayName,
	}
}
