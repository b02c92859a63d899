package dashboard

import (
	"time"

	"github.com/tmkoushik/cfgvault-backend/internal/models"
)

// Phase is the dashboard's modal view state.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseForm    Phase = "form-open"
	PhaseView    Phase = "view-open"
	PhaseSuccess Phase = "success-open"
)

// Mode distinguishes create from edit inside the form phase.
type Mode string

const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
)

// dateTimeLocalLayout matches the value format of a datetime-local input.
const dateTimeLocalLayout = "2006-01-02T15:04"

// FormDraft holds the form's field values between transitions. Field values
// stay as submitted strings so a rejected submit preserves the user's input.
type FormDraft struct {
	RecordID   string            `json:"record_id,omitempty"` // set in edit mode
	Name       string            `json:"name"`
	ConfigText string            `json:"config_text"`
	AccessType models.AccessType `json:"access_type"`
	Pin        string            `json:"pin,omitempty"`
	ExpiresAt  string            `json:"expires_at,omitempty"` // datetime-local format
}

// SuccessInfo is shown once after a successful create: the assigned id, the
// plaintext secret when one exists, and a pretty-printed echo of the config.
type SuccessInfo struct {
	RecordID     string `json:"record_id"`
	Secret       string `json:"secret,omitempty"`
	ConfigPretty string `json:"config_pretty"`
}

// State is the controller's explicit view state: exactly one of the modal
// payloads is populated, matching the phase.
type State struct {
	Phase Phase `json:"phase"`

	Mode          Mode       `json:"mode,omitempty"`
	Draft         *FormDraft `json:"draft,omitempty"`
	ChallengeID   string     `json:"challenge_id,omitempty"`
	ChallengeText string     `json:"challenge_text,omitempty"`

	Viewing *models.Record `json:"viewing,omitempty"`
	Success *SuccessInfo   `json:"success,omitempty"`
}

func idleState() State {
	return State{Phase: PhaseIdle}
}

// draftFromRecord prefills an edit draft from a record's current values,
// reconstructing the date-picker value from the stored timestamp.
func draftFromRecord(rec *models.Record, configPretty string) *FormDraft {
	draft := &FormDraft{
		RecordID:   rec.ID.Hex(),
		Name:       rec.Name,
		ConfigText: configPretty,
		AccessType: rec.AccessTyp,
		Pin:        rec.Pin,
	}
	if rec.ExpiresAt != nil {
		draft.ExpiresAt = rec.ExpiresAt.Local().Format(dateTimeLocalLayout)
	}
	return draft
}

// parseExpiry accepts a datetime-local value or RFC 3339.
func parseExpiry(value string) (time.Time, error) {
	if t, err := time.ParseInLocation(dateTimeLocalLayout, value, time.Local); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}
