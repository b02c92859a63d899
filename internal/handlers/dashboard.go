package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tmkoushik/cfgvault-backend/internal/dashboard"
	"github.com/tmkoushik/cfgvault-backend/internal/models"
	"github.com/tmkoushik/cfgvault-backend/internal/services"
	"github.com/tmkoushik/cfgvault-backend/internal/store"
)

// DashboardHandler exposes the record lifecycle controller over HTTP. Every
// endpoint resolves the session to its per-user controller first; no record
// operation proceeds without a resolved identity.
type DashboardHandler struct {
	gateway  *services.IdentityGateway
	registry *dashboard.Registry
}

func NewDashboardHandler(gateway *services.IdentityGateway, registry *dashboard.Registry) *DashboardHandler {
	return &DashboardHandler{gateway: gateway, registry: registry}
}

type stateResponse struct {
	Success bool                  `json:"success"`
	Message string                `json:"message,omitempty"`
	State   dashboard.State       `json:"state"`
	Cards   []dashboard.CardView  `json:"cards"`
	Detail  *dashboard.DetailView `json:"detail,omitempty"`
}

type recordsResponse struct {
	Success bool                 `json:"success"`
	Message string               `json:"message,omitempty"`
	Records []models.Record      `json:"records"`
	Cards   []dashboard.CardView `json:"cards"`
	Total   int                  `json:"total"`
}

func (h *DashboardHandler) controller(w http.ResponseWriter, r *http.Request) (*dashboard.Controller, bool) {
	token := extractBearerToken(r.Header.Get("Authorization"))
	ident, ok, err := h.gateway.Resolve(r.Context(), token)
	if err != nil || !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return nil, false
	}
	return h.registry.Controller(token, ident), true
}

// GetState returns the current view state with rendered summary cards.
func (h *DashboardHandler) GetState(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	h.writeState(w, http.StatusOK, ctrl, "")
}

// ListRecords reloads and returns the user's records, newest first.
func (h *DashboardHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}

	if err := ctrl.Load(r.Context()); err != nil {
		h.writeOperationError(w, err)
		return
	}

	records := ctrl.Records()
	writeJSON(w, http.StatusOK, recordsResponse{
		Success: true,
		Records: records,
		Cards:   dashboard.RenderCards(records),
		Total:   len(records),
	})
}

type formOpenRequest struct {
	RecordID string `json:"record_id,omitempty"` // present -> edit mode
}

// FormOpen opens the create or edit form and issues a fresh challenge.
func (h *DashboardHandler) FormOpen(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}

	var req formOpenRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	var err error
	if req.RecordID != "" {
		_, err = ctrl.OpenEdit(r.Context(), req.RecordID)
	} else {
		_, err = ctrl.OpenCreate(r.Context())
	}
	if err != nil {
		h.writeOperationError(w, err)
		return
	}
	h.writeState(w, http.StatusOK, ctrl, "")
}

// FormCancel closes the form and discards the draft.
func (h *DashboardHandler) FormCancel(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	if _, err := ctrl.Cancel(r.Context()); err != nil {
		h.writeOperationError(w, err)
		return
	}
	h.writeState(w, http.StatusOK, ctrl, "")
}

// Challenge issues or refreshes the open form's challenge text.
func (h *DashboardHandler) Challenge(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	if _, err := ctrl.RefreshChallenge(r.Context()); err != nil {
		h.writeOperationError(w, err)
		return
	}
	h.writeState(w, http.StatusOK, ctrl, "")
}

// FormSubmit runs the submit pipeline: create in Create mode, update in Edit
// mode. Validation failures keep the form open with the draft preserved.
func (h *DashboardHandler) FormSubmit(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}

	var input dashboard.SubmitInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if _, err := ctrl.Submit(r.Context(), input); err != nil {
		var vErr *dashboard.ValidationError
		switch {
		case errors.Is(err, dashboard.ErrCaptchaMismatch):
			h.writeState(w, http.StatusBadRequest, ctrl, "Invalid CAPTCHA. Please try again.")
		case errors.As(err, &vErr):
			h.writeState(w, http.StatusBadRequest, ctrl, vErr.Message)
		default:
			h.writeOperationError(w, err)
		}
		return
	}
	h.writeState(w, http.StatusOK, ctrl, "")
}

// SuccessDismiss closes the success modal and reloads the list.
func (h *DashboardHandler) SuccessDismiss(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	if _, err := ctrl.DismissSuccess(r.Context()); err != nil {
		h.writeOperationError(w, err)
		return
	}
	h.writeState(w, http.StatusOK, ctrl, "")
}

type viewOpenRequest struct {
	RecordID string `json:"record_id"`
}

// ViewOpen opens the detail modal for a record in the loaded list.
func (h *DashboardHandler) ViewOpen(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}

	var req viewOpenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RecordID == "" {
		writeError(w, http.StatusBadRequest, "record_id is required")
		return
	}

	if _, err := ctrl.OpenView(r.Context(), req.RecordID); err != nil {
		h.writeOperationError(w, err)
		return
	}
	h.writeState(w, http.StatusOK, ctrl, "")
}

// ViewClose closes the detail modal.
func (h *DashboardHandler) ViewClose(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	if _, err := ctrl.CloseView(); err != nil {
		h.writeOperationError(w, err)
		return
	}
	h.writeState(w, http.StatusOK, ctrl, "")
}

// ViewDelete permanently deletes the viewed record.
func (h *DashboardHandler) ViewDelete(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	if _, err := ctrl.DeleteViewed(r.Context()); err != nil {
		h.writeOperationError(w, err)
		return
	}
	h.writeState(w, http.StatusOK, ctrl, "Record deleted successfully")
}

func (h *DashboardHandler) writeState(w http.ResponseWriter, status int, ctrl *dashboard.Controller, message string) {
	state := ctrl.State()

	resp := stateResponse{
		Success: status < http.StatusBadRequest,
		Message: message,
		State:   state,
		Cards:   dashboard.RenderCards(ctrl.Records()),
	}
	if state.Phase == dashboard.PhaseView && state.Viewing != nil {
		pretty, _ := json.MarshalIndent(state.Viewing.Config, "", "  ")
		detail := dashboard.NewDetailView(state.Viewing, string(pretty))
		resp.Detail = &detail
	}

	writeJSON(w, status, resp)
}

// writeOperationError maps controller and store failures to the error
// taxonomy: permission failures and index failures carry remediation hints,
// everything else surfaces its raw message.
func (h *DashboardHandler) writeOperationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, dashboard.ErrNotSignedIn):
		writeError(w, http.StatusUnauthorized, "Authentication required")
	case errors.Is(err, dashboard.ErrBadTransition):
		writeError(w, http.StatusConflict, "Action not valid in the current view state")
	case errors.Is(err, dashboard.ErrOperationInFlight):
		writeError(w, http.StatusConflict, "An operation is already in progress")
	case errors.Is(err, dashboard.ErrRecordNotFound):
		writeError(w, http.StatusNotFound, "Record not found")
	case store.IsPermissionDenied(err):
		writeError(w, http.StatusForbidden, err.Error())
	case store.IsIndexUnavailable(err):
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
