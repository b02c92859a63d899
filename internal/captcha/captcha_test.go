package captcha

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() *Service {
	return NewService(NewMemoryStore())
}

func TestGenerateTextShape(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		text, err := generate()
		require.NoError(t, err)
		assert.Len(t, text, ChallengeLength)
		for _, ch := range text {
			assert.True(t, strings.ContainsRune(Alphabet, ch),
				"character %q not in challenge alphabet", ch)
		}
		seen[text] = true
	}
	// 50 draws from a 33^6 space should essentially never collide.
	assert.Greater(t, len(seen), 45)
}

func TestAlphabetExcludesAmbiguousCharacters(t *testing.T) {
	for _, ch := range "IO01" {
		assert.NotContains(t, Alphabet, string(ch))
	}
}

func TestValidateCaseInsensitive(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	id, text, err := svc.New(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	ok, err := svc.Validate(ctx, id, strings.ToLower(text))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Validate(ctx, id, strings.ToUpper(text))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestValidateRejectsWrongInput(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	id, text, err := svc.New(ctx)
	require.NoError(t, err)

	// Truncated input fails even though it is a prefix of the answer.
	ok, err := svc.Validate(ctx, id, text[:ChallengeLength-1])
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.Validate(ctx, id, "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestValidateDoesNotConsumeChallenge(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	id, text, err := svc.New(ctx)
	require.NoError(t, err)

	ok, err := svc.Validate(ctx, id, "WRONG!")
	require.NoError(t, err)
	require.False(t, ok)

	// The same challenge is still answerable after a failed attempt.
	ok, err = svc.Validate(ctx, id, text)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRefreshReplacesAnswer(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	id, old, err := svc.New(ctx)
	require.NoError(t, err)

	fresh, err := svc.Refresh(ctx, id)
	require.NoError(t, err)
	assert.Len(t, fresh, ChallengeLength)

	current, err := svc.Current(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, fresh, current)

	if old != fresh {
		ok, err := svc.Validate(ctx, id, old)
		require.NoError(t, err)
		assert.False(t, ok, "old answer must stop working after refresh")
	}
}

func TestDiscardRemovesChallenge(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	id, text, err := svc.New(ctx)
	require.NoError(t, err)
	require.NoError(t, svc.Discard(ctx, id))

	_, err = svc.Validate(ctx, id, text)
	assert.ErrorIs(t, err, ErrChallengeNotFound)
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "id-1", "ABC234", 10*time.Millisecond))

	answer, err := store.Get(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, "ABC234", answer)

	time.Sleep(20 * time.Millisecond)
	_, err = store.Get(ctx, "id-1")
	assert.ErrorIs(t, err, ErrChallengeNotFound)
}
