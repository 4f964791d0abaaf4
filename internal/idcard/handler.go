package idcard

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-accounts/pkg/utilities"
)

type Handler struct {
	ex     Extractor
	logger *zap.SugaredLogger
}

func NewHandler(ex Extractor, logger *zap.SugaredLogger) *Handler {
	return &Handler{ex: ex, logger: logger}
}

type extractRequest struct {
	Image string `json:"image"`
}

type extractResponse struct {
	Result
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Extract always answers 200; success=false carries the reason.
func (h *Handler) Extract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := utilities.DecodeJSON(r, &req); err != nil {
		utilities.WriteJSON(w, http.StatusOK, extractResponse{Error: "invalid payload"})
		return
	}
	img, err := DecodeImage(req.Image)
	if err != nil {
		utilities.WriteJSON(w, http.StatusOK, extractResponse{Error: err.Error()})
		return
	}
	res, err := h.ex.Extract(r.Context(), img)
	if err != nil {
		h.logger.Warnw("id card extraction failed", "request_id", utilities.RequestID(r.Context()), "err", err)
		utilities.WriteJSON(w, http.StatusOK, extractResponse{Error: err.Error()})
		return
	}
	utilities.WriteJSON(w, http.StatusOK, extractResponse{Result: res, Success: true})
}
