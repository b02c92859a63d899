package captcha

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Alphabet excludes visually ambiguous characters (I, O, 0, 1).
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// ChallengeLength is the number of characters the user must retype.
const ChallengeLength = 6

// ChallengeTTL bounds how long an issued challenge stays valid.
const ChallengeTTL = 10 * time.Minute

// ErrChallengeNotFound is returned when a challenge ID is unknown or expired.
var ErrChallengeNotFound = errors.New("captcha: challenge not found or expired")

// Store holds issued challenge answers keyed by challenge ID.
type Store interface {
	Set(ctx context.Context, id, answer string, ttl time.Duration) error
	Get(ctx context.Context, id string) (string, error)
	Delete(ctx context.Context, id string) error
}

// Service issues and validates retype-to-confirm challenges. The check is a
// UX deterrent against casual form automation, not a security boundary.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// New issues a fresh challenge and returns its ID and display text.
func (s *Service) New(ctx context.Context) (id, text string, err error) {
	id = uuid.NewString()
	text, err = s.Refresh(ctx, id)
	return id, text, err
}

// Refresh replaces the challenge text held under an existing ID.
func (s *Service) Refresh(ctx context.Context, id string) (string, error) {
	text, err := generate()
	if err != nil {
		return "", err
	}
	if err := s.store.Set(ctx, id, text, ChallengeTTL); err != nil {
		return "", err
	}
	return text, nil
}

// Validate reports whether input matches the held challenge, case-insensitively.
// The challenge is not consumed; the caller decides when to refresh it.
func (s *Service) Validate(ctx context.Context, id, input string) (bool, error) {
	answer, err := s.store.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return strings.ToUpper(input) == answer, nil
}

// Current returns the active challenge text for display.
func (s *Service) Current(ctx context.Context, id string) (string, error) {
	return s.store.Get(ctx, id)
}

// Discard drops a challenge once its form is closed.
func (s *Service) Discard(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

func generate() (string, error) {
	var b strings.Builder
	b.Grow(ChallengeLength)
	max := big.NewInt(int64(len(Alphabet)))
	for i := 0; i < ChallengeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(Alphabet[n.Int64()])
	}
	return b.String(), nil
}
