package dashboard

import (
	"context"
	"log"
	"sync"

	"github.com/tmkoushik/cfgvault-backend/internal/models"
	"github.com/tmkoushik/cfgvault-backend/internal/services"
)

// Registry owns one Controller per signed-in session. Controllers are built
// lazily on first use and torn down when the session signs out.
type Registry struct {
	store      RecordStore
	challenges ChallengeService
	events     EventPublisher

	mu          sync.Mutex
	controllers map[string]*Controller // keyed by session token
}

func NewRegistry(store RecordStore, challenges ChallengeService, events EventPublisher) *Registry {
	return &Registry{
		store:       store,
		challenges:  challenges,
		events:      events,
		controllers: make(map[string]*Controller),
	}
}

// Attach subscribes the registry to gateway auth state changes: sign-in
// preloads the user's records, sign-out drops the session's controller.
func (r *Registry) Attach(gateway *services.IdentityGateway, events *services.EventBus) {
	gateway.OnAuthStateChanged(func(sessionToken string, ident *models.Identity) {
		ctx := context.Background()
		if ident == nil {
			r.Remove(sessionToken)
			return
		}

		ctrl := r.Controller(sessionToken, ident)
		if err := ctrl.Load(ctx); err != nil {
			log.Printf("failed to load records on sign-in: %v", err)
		}
		if events != nil {
			_ = events.Publish(ctx, services.DashboardEvent{
				Type:   services.EventTypeAuth,
				UserID: ident.ID,
				Action: "signed-in",
			})
		}
	})
}

// Controller returns the session's controller, creating it when absent.
func (r *Registry) Controller(sessionToken string, ident *models.Identity) *Controller {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ctrl, ok := r.controllers[sessionToken]; ok {
		return ctrl
	}
	ctrl := NewController(ident, r.store, r.challenges, r.events)
	r.controllers[sessionToken] = ctrl
	return ctrl
}

// Remove clears and drops the session's controller.
func (r *Registry) Remove(sessionToken string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ctrl, ok := r.controllers[sessionToken]; ok {
		ctrl.Clear()
		delete(r.controllers, sessionToken)
	}
}
