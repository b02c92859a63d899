package dashboard

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"sync"

	"github.com/tmkoushik/cfgvault-backend/internal/models"
	"github.com/tmkoushik/cfgvault-backend/internal/services"
)

var (
	// ErrNotSignedIn means the controller has no resolved owner identity.
	ErrNotSignedIn = errors.New("no signed-in user")
	// ErrBadTransition means the requested action is not valid in the current phase.
	ErrBadTransition = errors.New("action not valid in current view state")
	// ErrOperationInFlight rejects a duplicate submit/delete while a store
	// round-trip is outstanding.
	ErrOperationInFlight = errors.New("operation already in flight")
	// ErrCaptchaMismatch means the retyped challenge did not match.
	ErrCaptchaMismatch = errors.New("captcha input does not match challenge")
	// ErrRecordNotFound means the referenced record is not in the loaded list.
	ErrRecordNotFound = errors.New("record not found")
)

// ValidationError carries the user-visible reason a submit was rejected.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

var pinPattern = regexp.MustCompile(`^\d{6}$`)

// RecordStore is the persistence surface the controller drives.
type RecordStore interface {
	Create(ctx context.Context, rec *models.Record) (string, error)
	ListByOwner(ctx context.Context, userID string) ([]models.Record, error)
	Update(ctx context.Context, id string, rec *models.Record) error
	Delete(ctx context.Context, id string) error
}

// ChallengeService issues and validates the form CAPTCHA.
type ChallengeService interface {
	New(ctx context.Context) (id, text string, err error)
	Refresh(ctx context.Context, id string) (string, error)
	Validate(ctx context.Context, id, input string) (bool, error)
	Discard(ctx context.Context, id string) error
}

// EventPublisher pushes refresh events to the owner's connected clients.
type EventPublisher interface {
	Publish(ctx context.Context, event services.DashboardEvent) error
}

// Controller owns one signed-in user's dashboard: the modal state machine,
// the record list cache, and the submit pipeline. All methods are safe for
// concurrent use; at most one store round-trip runs at a time.
type Controller struct {
	ident      *models.Identity
	store      RecordStore
	challenges ChallengeService
	events     EventPublisher

	mu       sync.Mutex
	state    State
	records  []models.Record
	inFlight bool
}

func NewController(ident *models.Identity, store RecordStore, challenges ChallengeService, events EventPublisher) *Controller {
	return &Controller{
		ident:      ident,
		store:      store,
		challenges: challenges,
		events:     events,
		state:      idleState(),
	}
}

// Identity returns the owner identity the controller was built for.
func (c *Controller) Identity() *models.Identity {
	return c.ident
}

// State returns a snapshot of the current view state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Records returns the cached record list in adapter order.
func (c *Controller) Records() []models.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Record, len(c.records))
	copy(out, c.records)
	return out
}

// Load fetches the owner's records and wholly replaces the cache.
func (c *Controller) Load(ctx context.Context) error {
	if c.ident == nil {
		return ErrNotSignedIn
	}

	records, err := c.store.ListByOwner(ctx, c.ident.ID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.records = records
	c.mu.Unlock()
	return nil
}

// OpenCreate transitions Idle -> FormOpen(Create) with an empty draft and a
// fresh challenge.
func (c *Controller) OpenCreate(ctx context.Context) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Phase != PhaseIdle {
		return c.state, ErrBadTransition
	}

	id, text, err := c.challenges.New(ctx)
	if err != nil {
		return c.state, err
	}

	c.state = State{
		Phase:         PhaseForm,
		Mode:          ModeCreate,
		Draft:         &FormDraft{AccessType: models.AccessNoPin},
		ChallengeID:   id,
		ChallengeText: text,
	}
	return c.state, nil
}

// OpenEdit transitions Idle/ViewOpen -> FormOpen(Edit) with a draft prefilled
// from the record's current values and a fresh challenge.
func (c *Controller) OpenEdit(ctx context.Context, recordID string) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Phase != PhaseIdle && c.state.Phase != PhaseView {
		return c.state, ErrBadTransition
	}

	rec := c.findRecordLocked(recordID)
	if rec == nil {
		return c.state, ErrRecordNotFound
	}

	id, text, err := c.challenges.New(ctx)
	if err != nil {
		return c.state, err
	}

	pretty, _ := json.MarshalIndent(rec.Config, "", "  ")
	c.state = State{
		Phase:         PhaseForm,
		Mode:          ModeEdit,
		Draft:         draftFromRecord(rec, string(pretty)),
		ChallengeID:   id,
		ChallengeText: text,
	}
	return c.state, nil
}

// Cancel discards the draft and returns to Idle.
func (c *Controller) Cancel(ctx context.Context) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Phase != PhaseForm {
		return c.state, ErrBadTransition
	}

	if c.state.ChallengeID != "" {
		_ = c.challenges.Discard(ctx, c.state.ChallengeID)
	}
	c.state = idleState()
	return c.state, nil
}

// RefreshChallenge replaces the open form's challenge text.
func (c *Controller) RefreshChallenge(ctx context.Context) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Phase != PhaseForm {
		return c.state, ErrBadTransition
	}

	text, err := c.challenges.Refresh(ctx, c.state.ChallengeID)
	if err != nil {
		return c.state, err
	}
	c.state.ChallengeText = text
	return c.state, nil
}

// SubmitInput carries the form's submitted field values.
type SubmitInput struct {
	Name         string            `json:"name"`
	ConfigText   string            `json:"config"`
	AccessType   models.AccessType `json:"access_type"`
	Pin          string            `json:"pin"`
	ExpiresAt    string            `json:"expires_at"`
	CaptchaInput string            `json:"captcha"`
}

// Submit validates the draft and dispatches it to the store: create in Create
// mode, update in Edit mode. On a validation failure the form stays open and
// the draft is preserved; only a CAPTCHA mismatch regenerates the challenge.
func (c *Controller) Submit(ctx context.Context, input SubmitInput) (State, error) {
	c.mu.Lock()
	if c.state.Phase != PhaseForm {
		st := c.state
		c.mu.Unlock()
		return st, ErrBadTransition
	}
	if c.inFlight {
		st := c.state
		c.mu.Unlock()
		return st, ErrOperationInFlight
	}
	if c.ident == nil {
		st := c.state
		c.mu.Unlock()
		return st, ErrNotSignedIn
	}

	// Claim the in-flight slot before the first round-trip, under the same
	// lock as the check, so a second submit entering during validation is
	// rejected rather than dispatched twice.
	c.inFlight = true
	defer func() {
		c.mu.Lock()
		c.inFlight = false
		c.mu.Unlock()
	}()

	mode := c.state.Mode
	recordID := ""
	if c.state.Draft != nil {
		recordID = c.state.Draft.RecordID
	}
	challengeID := c.state.ChallengeID

	// Keep the submitted values as the live draft so a rejection preserves them.
	c.state.Draft = &FormDraft{
		RecordID:   recordID,
		Name:       input.Name,
		ConfigText: input.ConfigText,
		AccessType: input.AccessType,
		Pin:        input.Pin,
		ExpiresAt:  input.ExpiresAt,
	}
	c.mu.Unlock()

	// Step 1: CAPTCHA. On mismatch the challenge is regenerated.
	ok, err := c.challenges.Validate(ctx, challengeID, input.CaptchaInput)
	if err != nil {
		return c.State(), err
	}
	if !ok {
		c.mu.Lock()
		if c.state.Phase == PhaseForm {
			if text, rerr := c.challenges.Refresh(ctx, challengeID); rerr == nil {
				c.state.ChallengeText = text
			}
		}
		st := c.state
		c.mu.Unlock()
		return st, ErrCaptchaMismatch
	}

	// Step 2: the configuration must be a JSON object. The challenge is NOT
	// regenerated for payload errors.
	cfg, err := parseConfigObject(input.ConfigText)
	if err != nil {
		return c.State(), &ValidationError{Message: "Invalid JSON format. Error: " + err.Error()}
	}

	// Step 3: PIN format, when the access type requires one.
	if input.AccessType.RequiresPIN() && !pinPattern.MatchString(strings.TrimSpace(input.Pin)) {
		return c.State(), &ValidationError{Message: "PIN must be exactly 6 digits."}
	}

	// Step 4: assemble the record per the access-type table; extraneous
	// fields on types that don't use them are dropped.
	rec, err := c.assembleRecord(input, cfg)
	if err != nil {
		return c.State(), err
	}

	// Step 5: dispatch.
	pretty, _ := json.MarshalIndent(rec.Config, "", "  ")

	if mode == ModeEdit {
		if err := c.store.Update(ctx, recordID, rec); err != nil {
			return c.State(), err
		}
		c.publish(ctx, "updated", recordID)

		if err := c.Load(ctx); err != nil {
			return c.State(), err
		}
		c.mu.Lock()
		_ = c.challenges.Discard(ctx, challengeID)
		c.state = idleState()
		st := c.state
		c.mu.Unlock()
		return st, nil
	}

	newID, err := c.store.Create(ctx, rec)
	if err != nil {
		return c.State(), err
	}
	c.publish(ctx, "created", newID)

	c.mu.Lock()
	_ = c.challenges.Discard(ctx, challengeID)
	c.state = State{
		Phase: PhaseSuccess,
		Success: &SuccessInfo{
			RecordID:     newID,
			Secret:       rec.Secret(),
			ConfigPretty: string(pretty),
		},
	}
	st := c.state
	c.mu.Unlock()
	return st, nil
}

// DismissSuccess transitions SuccessOpen -> Idle and reloads the list.
func (c *Controller) DismissSuccess(ctx context.Context) (State, error) {
	c.mu.Lock()
	if c.state.Phase != PhaseSuccess {
		st := c.state
		c.mu.Unlock()
		return st, ErrBadTransition
	}
	c.state = idleState()
	c.mu.Unlock()

	if err := c.Load(ctx); err != nil {
		return c.State(), err
	}
	return c.State(), nil
}

// OpenView transitions Idle -> ViewOpen for a record in the loaded list.
func (c *Controller) OpenView(ctx context.Context, recordID string) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Phase != PhaseIdle {
		return c.state, ErrBadTransition
	}

	rec := c.findRecordLocked(recordID)
	if rec == nil {
		return c.state, ErrRecordNotFound
	}

	c.state = State{Phase: PhaseView, Viewing: rec}
	return c.state, nil
}

// CloseView returns to Idle without touching the record.
func (c *Controller) CloseView() (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Phase != PhaseView {
		return c.state, ErrBadTransition
	}
	c.state = idleState()
	return c.state, nil
}

// DeleteViewed permanently removes the record in the view modal, returns to
// Idle, and reloads the list. Confirmation happens client-side.
func (c *Controller) DeleteViewed(ctx context.Context) (State, error) {
	c.mu.Lock()
	if c.state.Phase != PhaseView || c.state.Viewing == nil {
		st := c.state
		c.mu.Unlock()
		return st, ErrBadTransition
	}
	if c.inFlight {
		st := c.state
		c.mu.Unlock()
		return st, ErrOperationInFlight
	}
	c.inFlight = true
	recordID := c.state.Viewing.ID.Hex()
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.inFlight = false
		c.mu.Unlock()
	}()

	if err := c.store.Delete(ctx, recordID); err != nil {
		return c.State(), err
	}
	c.publish(ctx, "deleted", recordID)

	c.mu.Lock()
	c.state = idleState()
	c.mu.Unlock()

	if err := c.Load(ctx); err != nil {
		return c.State(), err
	}
	return c.State(), nil
}

// Clear drops the cache and resets to Idle; called on sign-out.
func (c *Controller) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = nil
	c.state = idleState()
}

func (c *Controller) findRecordLocked(recordID string) *models.Record {
	for i := range c.records {
		if c.records[i].ID.Hex() == recordID {
			rec := c.records[i]
			return &rec
		}
	}
	return nil
}

// assembleRecord builds the persisted document from validated input,
// stamping the owner identity. The identity snapshot taken here is used even
// if the user signs out while the write is outstanding.
func (c *Controller) assembleRecord(input SubmitInput, cfg map[string]interface{}) (*models.Record, error) {
	if !input.AccessType.Valid() {
		return nil, &ValidationError{Message: fmt.Sprintf("Unknown access type %q.", input.AccessType)}
	}

	rec := &models.Record{
		Name:      strings.TrimSpace(input.Name),
		Config:    cfg,
		AccessTyp: input.AccessType,
		UserID:    c.ident.ID,
		UserEmail: c.ident.Email,
	}
	if rec.Name == "" {
		return nil, &ValidationError{Message: "Name is required."}
	}

	if input.AccessType.RequiresPIN() {
		rec.Pin = strings.TrimSpace(input.Pin)
	}
	if input.AccessType.RequiresExpiry() {
		if strings.TrimSpace(input.ExpiresAt) == "" {
			return nil, &ValidationError{Message: "Expiration date is required."}
		}
		t, err := parseExpiry(strings.TrimSpace(input.ExpiresAt))
		if err != nil {
			return nil, &ValidationError{Message: "Invalid expiration date."}
		}
		utc := t.UTC()
		rec.ExpiresAt = &utc
	}
	if input.AccessType.GeneratesOTP() {
		otp, err := generateOTP()
		if err != nil {
			return nil, err
		}
		rec.Otp = otp
		used := false
		rec.OtpUsed = &used
	}

	if err := rec.ValidateAccessFields(); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}
	return rec, nil
}

func (c *Controller) publish(ctx context.Context, action, recordID string) {
	if c.events == nil || c.ident == nil {
		return
	}
	_ = c.events.Publish(ctx, services.DashboardEvent{
		Type:     services.EventTypeRecords,
		UserID:   c.ident.ID,
		Action:   action,
		RecordID: recordID,
	})
}

// parseConfigObject decodes the configuration text and requires a non-null,
// non-array JSON object.
func parseConfigObject(text string) (map[string]interface{}, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, errors.New("configuration is empty")
	}

	var raw interface{}
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return nil, err
	}

	obj, ok := raw.(map[string]interface{})
	if !ok || obj == nil {
		return nil, errors.New("configuration must be a JSON object")
	}
	return obj, nil
}

// generateOTP returns a 6-digit one-time code as a string.
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
