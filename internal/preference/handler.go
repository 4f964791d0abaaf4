package preference

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	idEntity "github.com/ovaphlow/pitchfork/service-accounts/internal/identity/entity"
	"github.com/ovaphlow/pitchfork/service-accounts/internal/onboarding"
	"github.com/ovaphlow/pitchfork/service-accounts/internal/preference/entity"
	"github.com/ovaphlow/pitchfork/service-accounts/internal/session"
	"github.com/ovaphlow/pitchfork/service-accounts/pkg/apperr"
	"github.com/ovaphlow/pitchfork/service-accounts/pkg/utilities"
)

// Handler exposes the onboarding setup, edit and dashboard endpoints. The
// routes are expected to be wrapped by the session gate; the conflict and
// not-found redirects here cover requests that race it.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// View is a preference record with display labels resolved.
type View struct {
	*entity.Record
	Labels map[string]string `json:"labels"`
}

func newView(r *entity.Record) View {
	return View{Record: r, Labels: map[string]string{
		entity.StudyFields.Field:     entity.StudyFields.LabelOf(r.StudyField),
		entity.DegreeTypes.Field:     entity.DegreeTypes.LabelOf(r.DegreeType),
		entity.CareerInterests.Field: entity.CareerInterests.LabelOf(r.CareerInterest),
	}}
}

type dashboardResponse struct {
	Identity    *idEntity.Identity `json:"identity"`
	DisplayName string             `json:"display_name"`
	Preferences View               `json:"preferences"`
}

func (h *Handler) Options(w http.ResponseWriter, r *http.Request) {
	utilities.WriteJSON(w, http.StatusOK, map[string]any{"fields": h.svc.Options()})
}

func (h *Handler) Setup(w http.ResponseWriter, r *http.Request) {
	ident, _ := session.IdentityFrom(r.Context())
	var req entity.Choices
	if err := utilities.DecodeJSON(r, &req); err != nil {
		utilities.WriteError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	_, err := h.svc.SetInitial(r.Context(), ident.ID, req)
	switch {
	case err == nil:
		utilities.WriteRedirect(w, http.StatusCreated, onboarding.Dashboard.String())
	case errors.Is(err, apperr.ErrConflict):
		utilities.WriteRedirect(w, http.StatusOK, onboarding.Route(onboarding.AuthenticatedWithPrefs, onboarding.PreferencesSetup).String())
	default:
		h.writeErr(w, r, err, ident.ID)
	}
}

func (h *Handler) Edit(w http.ResponseWriter, r *http.Request) {
	ident, _ := session.IdentityFrom(r.Context())
	var req entity.Patch
	if err := utilities.DecodeJSON(r, &req); err != nil {
		utilities.WriteError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	_, err := h.svc.Update(r.Context(), ident.ID, req)
	switch {
	case err == nil:
		utilities.WriteRedirect(w, http.StatusOK, onboarding.Dashboard.String())
	case errors.Is(err, apperr.ErrNotFound):
		utilities.WriteRedirect(w, http.StatusOK, onboarding.Route(onboarding.AuthenticatedNoPrefs, onboarding.PreferencesEdit).String())
	case errors.Is(err, apperr.ErrConflict):
		utilities.WriteError(w, http.StatusConflict, "preferences changed concurrently")
	default:
		h.writeErr(w, r, err, ident.ID)
	}
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ident, _ := session.IdentityFrom(r.Context())
	rec, err := h.svc.Get(r.Context(), ident.ID)
	if errors.Is(err, apperr.ErrNotFound) {
		utilities.WriteRedirect(w, http.StatusOK, onboarding.Landing(onboarding.AuthenticatedNoPrefs).String())
		return
	}
	if err != nil {
		h.writeErr(w, r, err, ident.ID)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, dashboardResponse{
		Identity:    ident,
		DisplayName: ident.DisplayName(),
		Preferences: newView(rec),
	})
}

func (h *Handler) writeErr(w http.ResponseWriter, r *http.Request, err error, identityID int64) {
	if ve, ok := apperr.AsValidation(err); ok {
		utilities.WriteValidation(w, ve)
		return
	}
	h.logger.Errorw("preferences request failed", "request_id", utilities.RequestID(r.Context()), "identity_id", identityID, "err", err)
	utilities.WriteError(w, http.StatusInternalServerError, "internal error")
}
