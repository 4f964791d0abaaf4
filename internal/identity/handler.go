package identity

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-accounts/internal/identity/entity"
	"github.com/ovaphlow/pitchfork/service-accounts/internal/onboarding"
	"github.com/ovaphlow/pitchfork/service-accounts/pkg/apperr"
	"github.com/ovaphlow/pitchfork/service-accounts/pkg/utilities"
)

const maxDocumentSize = 5 << 20

var allowedDocumentTypes = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"application/pdf": true,
}

// Handler exposes the registration endpoint.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// RegisterRequest is the registration form, sent as JSON or multipart.
type RegisterRequest struct {
	Email         string `json:"email" validate:"required,email,max=254"`
	Nom           string `json:"nom" validate:"required,max=100"`
	Prenom        string `json:"prenom" validate:"required,max=100"`
	NationalID    string `json:"national_id" validate:"required,max=20"`
	Secret        string `json:"secret" validate:"required,min=8"`
	SecretConfirm string `json:"secret_confirm" validate:"required,eqfield=Secret"`
}

// trim drops surrounding whitespace from the identifying fields. Secrets are
// taken verbatim.
func (req *RegisterRequest) trim() {
	req.Email = strings.TrimSpace(req.Email)
	req.Nom = strings.TrimSpace(req.Nom)
	req.Prenom = strings.TrimSpace(req.Prenom)
	req.NationalID = strings.TrimSpace(req.NationalID)
}

type registerResponse struct {
	Redirect string            `json:"redirect"`
	Warnings map[string]string `json:"warnings,omitempty"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	req, doc, err := h.decodeRegister(w, r)
	if err != nil {
		if ve, ok := apperr.AsValidation(err); ok {
			utilities.WriteValidation(w, ve)
			return
		}
		h.logger.Debugw("invalid register payload", "request_id", utilities.RequestID(r.Context()), "err", err)
		utilities.WriteError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := apperr.Validate(req); err != nil {
		if ve, ok := apperr.AsValidation(err); ok {
			utilities.WriteValidation(w, ve)
			return
		}
		utilities.WriteError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	ident, err := h.svc.CreateIdentity(r.Context(), NewIdentity{
		Email:      req.Email,
		Password:   req.Secret,
		Nom:        req.Nom,
		Prenom:     req.Prenom,
		NationalID: req.NationalID,
		Document:   doc,
	})
	resp := registerResponse{Redirect: onboarding.Login.String()}
	switch {
	case err == nil:
	case errors.Is(err, ErrDocumentNotAttached) && ident != nil:
		resp.Warnings = map[string]string{"id_document": "not_attached"}
	default:
		if ve, ok := apperr.AsValidation(err); ok {
			utilities.WriteValidation(w, ve)
			return
		}
		h.logger.Errorw("register failed", "request_id", utilities.RequestID(r.Context()), "err", err)
		utilities.WriteError(w, http.StatusInternalServerError, "register failed")
		return
	}
	utilities.WriteJSON(w, http.StatusCreated, resp)
}

func (h *Handler) decodeRegister(w http.ResponseWriter, r *http.Request) (RegisterRequest, *entity.Document, error) {
	var req RegisterRequest
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt != "multipart/form-data" {
		err := utilities.DecodeJSON(r, &req)
		req.trim()
		return req, nil, err
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxDocumentSize+1<<20)
	if err := r.ParseMultipartForm(maxDocumentSize); err != nil {
		return req, nil, err
	}
	req = RegisterRequest{
		Email:         r.FormValue("email"),
		Nom:           r.FormValue("nom"),
		Prenom:        r.FormValue("prenom"),
		NationalID:    r.FormValue("national_id"),
		Secret:        r.FormValue("secret"),
		SecretConfirm: r.FormValue("secret_confirm"),
	}
	req.trim()
	f, fh, err := r.FormFile("id_document")
	if errors.Is(err, http.ErrMissingFile) {
		return req, nil, nil
	}
	if err != nil {
		return req, nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxDocumentSize+1))
	if err != nil {
		return req, nil, err
	}
	if len(data) > maxDocumentSize {
		return req, nil, apperr.FieldError("id_document", apperr.CodeTooLong)
	}
	ct := strings.SplitN(http.DetectContentType(data), ";", 2)[0]
	if !allowedDocumentTypes[ct] {
		return req, nil, apperr.FieldError("id_document", apperr.CodeInvalid)
	}
	return req, &entity.Document{Filename: fh.Filename, ContentType: ct, Data: data}, nil
}
