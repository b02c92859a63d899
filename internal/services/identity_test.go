package services

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmkoushik/cfgvault-backend/internal/models"
)

// openIdleDB returns a *sql.DB that never dials; queries issued with a
// cancelled context fail before any connection is attempted.
func openIdleDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("postgres", "postgres://localhost:1/unused?sslmode=disable")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSignInCancelledIsClassified(t *testing.T) {
	gateway := NewIdentityGateway(NewUserService(openIdleDB(t)), nil)

	notified := false
	gateway.OnAuthStateChanged(func(token string, ident *models.Identity) {
		notified = true
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := gateway.SignIn(ctx, "kay", "correct horse battery")
	assert.ErrorIs(t, err, ErrSignInCancelled)
	assert.False(t, notified, "an abandoned sign-in must not fire state listeners")
}

func TestNotifyReachesAllListeners(t *testing.T) {
	gateway := NewIdentityGateway(nil, nil)

	var got []string
	gateway.OnAuthStateChanged(func(token string, ident *models.Identity) {
		got = append(got, "first:"+token)
	})
	gateway.OnAuthStateChanged(func(token string, ident *models.Identity) {
		if ident == nil {
			got = append(got, "second:signed-out")
			return
		}
		got = append(got, "second:"+ident.Username)
	})

	gateway.notify("tok-1", &models.Identity{Username: "kay"})
	gateway.notify("tok-1", nil)

	assert.Equal(t, []string{
		"first:tok-1",
		"second:kay",
		"first:tok-1",
		"second:signed-out",
	}, got)
}

func TestIdentityFromUser(t *testing.T) {
	id := uuid.New()
	user := &models.User{
		ID:          id,
		Username:    "kay",
		Email:       "kay@example.com",
		DisplayName: "Kay",
	}

	ident := identityFromUser(user)
	assert.Equal(t, id.String(), ident.ID)
	assert.Equal(t, "kay", ident.Username)
	assert.Equal(t, "kay@example.com", ident.Email)
	assert.Equal(t, "Kay", ident.DisplayName)
}
