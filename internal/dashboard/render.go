package dashboard

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/tmkoushik/cfgvault-backend/internal/models"
)

// Badge CSS classes per access type, matching the dashboard stylesheet.
var badgeClasses = map[models.AccessType]string{
	models.AccessNoPin:            "badge-public",
	models.AccessFixedPinExpiry:   "badge-pin",
	models.AccessFixedPinNoExpiry: "badge-pin",
	models.AccessOTPExpiry:        "badge-otp",
}

// CardView is the escaped summary shown for one record in the list.
type CardView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AccessLabel string `json:"access_label"`
	BadgeClass  string `json:"badge_class"`
	Created     string `json:"created"`
	Expires     string `json:"expires,omitempty"`
}

// DetailView is the escaped full field set shown in the detail modal.
// Secret and Expires are present only when the record carries them.
type DetailView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AccessLabel string `json:"access_label"`
	Config      string `json:"config"`
	Created     string `json:"created"`
	Secret      string `json:"secret,omitempty"`
	Expires     string `json:"expires,omitempty"`
}

// NewCardView builds the summary view for a record. All user-supplied text is
// HTML-escaped here so rendered markup can never execute injected script.
func NewCardView(rec *models.Record) CardView {
	card := CardView{
		ID:          rec.ID.Hex(),
		Name:        html.EscapeString(rec.Name),
		AccessLabel: rec.AccessTyp.Label(),
		BadgeClass:  badgeClasses[rec.AccessTyp],
		Created:     formatDate(rec.CreatedAt),
	}
	if rec.ExpiresAt != nil {
		card.Expires = formatDate(*rec.ExpiresAt)
	}
	return card
}

// NewDetailView builds the detail view, including the plaintext secret and
// expiry when present.
func NewDetailView(rec *models.Record, configPretty string) DetailView {
	detail := DetailView{
		ID:          rec.ID.Hex(),
		Name:        html.EscapeString(rec.Name),
		AccessLabel: rec.AccessTyp.DetailLabel(),
		Config:      html.EscapeString(configPretty),
		Created:     formatDateTime(rec.CreatedAt),
	}
	if rec.HasSecret() {
		detail.Secret = rec.Secret()
	}
	if rec.ExpiresAt != nil {
		detail.Expires = formatDateTime(*rec.ExpiresAt)
	}
	return detail
}

// HTML renders the summary card fragment.
func (v CardView) HTML() string {
	var b strings.Builder
	fmt.Fprintf(&b, `<div class="record-card">`)
	fmt.Fprintf(&b, `<div class="record-card-header"><h3>%s</h3><span class="record-badge %s">%s</span></div>`,
		v.Name, v.BadgeClass, v.AccessLabel)
	fmt.Fprintf(&b, `<div class="record-uuid">%s</div>`, v.ID)
	fmt.Fprintf(&b, `<div class="record-meta"><span>Created: %s</span>`, v.Created)
	if v.Expires != "" {
		fmt.Fprintf(&b, `<span>Expires: %s</span>`, v.Expires)
	}
	b.WriteString(`</div></div>`)
	return b.String()
}

// RenderCards builds the card views for a record list, preserving order.
func RenderCards(records []models.Record) []CardView {
	cards := make([]CardView, 0, len(records))
	for i := range records {
		cards = append(cards, NewCardView(&records[i]))
	}
	return cards
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.Local().Format("Jan 2, 2006")
}

func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.Local().Format("Jan 2, 2006 3:04 PM")
}
