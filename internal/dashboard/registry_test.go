package dashboard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmkoushik/cfgvault-backend/internal/captcha"
)

func newTestRegistry(store *fakeStore) *Registry {
	return NewRegistry(store, captcha.NewService(captcha.NewMemoryStore()), &fakePublisher{})
}

func TestRegistryReusesControllerPerSession(t *testing.T) {
	reg := newTestRegistry(newFakeStore())
	ident := testIdentity()

	first := reg.Controller("sess-1", ident)
	second := reg.Controller("sess-1", ident)
	assert.Same(t, first, second)

	other := reg.Controller("sess-2", ident)
	assert.NotSame(t, first, other)
}

func TestRegistryRemoveClearsController(t *testing.T) {
	store := newFakeStore()
	reg := newTestRegistry(store)
	ident := testIdentity()

	ctrl := reg.Controller("sess-1", ident)
	input := submitValid(t, ctrl)
	_, err := ctrl.Submit(context.Background(), input)
	require.NoError(t, err)
	_, err = ctrl.DismissSuccess(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, ctrl.Records())

	reg.Remove("sess-1")
	assert.Empty(t, ctrl.Records(), "removal clears the dropped controller")

	// Removing an unknown session is a no-op.
	reg.Remove("sess-unknown")

	fresh := reg.Controller("sess-1", ident)
	assert.NotSame(t, ctrl, fresh)
}
