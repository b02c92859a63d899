package dashboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/tmkoushik/cfgvault-backend/internal/models"
)

func TestNewCardViewEscapesName(t *testing.T) {
	rec := &models.Record{
		ID:        primitive.NewObjectID(),
		Name:      `<script>alert(1)</script>`,
		AccessTyp: models.AccessNoPin,
		CreatedAt: time.Date(2026, time.March, 14, 10, 0, 0, 0, time.UTC),
	}

	card := NewCardView(rec)
	assert.Equal(t, "&lt;script&gt;alert(1)&lt;/script&gt;", card.Name)
	assert.Equal(t, "Public", card.AccessLabel)
	assert.Equal(t, "badge-public", card.BadgeClass)

	markup := card.HTML()
	assert.NotContains(t, markup, "<script>")
	assert.Contains(t, markup, "&lt;script&gt;alert(1)&lt;/script&gt;")
	assert.Contains(t, markup, rec.ID.Hex())
}

func TestNewCardViewExpiry(t *testing.T) {
	exp := time.Date(2026, time.December, 31, 23, 59, 0, 0, time.UTC)
	rec := &models.Record{
		ID:        primitive.NewObjectID(),
		Name:      "api keys",
		AccessTyp: models.AccessFixedPinExpiry,
		Pin:       "123456",
		ExpiresAt: &exp,
		CreatedAt: time.Now(),
	}

	card := NewCardView(rec)
	assert.Equal(t, "PIN + Expiry", card.AccessLabel)
	assert.Equal(t, "badge-pin", card.BadgeClass)
	assert.NotEmpty(t, card.Expires)
	assert.Contains(t, card.HTML(), "Expires:")

	// No expiry: the line is omitted entirely.
	plain := NewCardView(&models.Record{
		ID:        primitive.NewObjectID(),
		Name:      "plain",
		AccessTyp: models.AccessNoPin,
		CreatedAt: time.Now(),
	})
	assert.Empty(t, plain.Expires)
	assert.NotContains(t, plain.HTML(), "Expires:")
}

func TestNewCardViewZeroTimestamp(t *testing.T) {
	card := NewCardView(&models.Record{
		ID:        primitive.NewObjectID(),
		Name:      "legacy",
		AccessTyp: models.AccessNoPin,
	})
	assert.Equal(t, "N/A", card.Created)
}

func TestNewDetailViewSecretAndConfig(t *testing.T) {
	rec := &models.Record{
		ID:        primitive.NewObjectID(),
		Name:      "db & cache",
		AccessTyp: models.AccessFixedPinNoExpiry,
		Pin:       "123456",
		CreatedAt: time.Now(),
	}

	detail := NewDetailView(rec, `{"conn": "<redacted>"}`)
	assert.Equal(t, "db &amp; cache", detail.Name)
	assert.Equal(t, "Fixed PIN without Expiration", detail.AccessLabel)
	assert.Equal(t, "123456", detail.Secret)
	assert.NotContains(t, detail.Config, "<redacted>")
	assert.Contains(t, detail.Config, "&lt;redacted&gt;")
	assert.Empty(t, detail.Expires)
}

func TestNewDetailViewNoSecret(t *testing.T) {
	detail := NewDetailView(&models.Record{
		ID:        primitive.NewObjectID(),
		Name:      "open",
		AccessTyp: models.AccessNoPin,
		CreatedAt: time.Now(),
	}, "{}")
	assert.Empty(t, detail.Secret)
	assert.Equal(t, "No PIN (Public)", detail.AccessLabel)
}

func TestRenderCardsPreservesOrder(t *testing.T) {
	records := []models.Record{
		{ID: primitive.NewObjectID(), Name: "b", AccessTyp: models.AccessNoPin, CreatedAt: time.Now()},
		{ID: primitive.NewObjectID(), Name: "a", AccessTyp: models.AccessOTPExpiry, CreatedAt: time.Now()},
	}

	cards := RenderCards(records)
	require.Len(t, cards, 2)
	assert.Equal(t, "b", cards[0].Name)
	assert.Equal(t, "a", cards[1].Name)
	assert.Equal(t, "badge-otp", cards[1].BadgeClass)

	assert.Empty(t, RenderCards(nil))
}
