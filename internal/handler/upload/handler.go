package upload

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	uploadService "github.com/zhouzirui/aura/backend/internal/service/upload"
	"github.com/zhouzirui/aura/backend/pkg/utils"
)

// Handler serves ImageKit authentication parameters.
type Handler struct {
	signer *uploadService.Signer
}

// New creates an upload handler.
func New(signer *uploadService.Signer) *Handler {
	return &Handler{signer: signer}
}

// RegisterRoutes mounts GET /upload.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/upload", h.handleAuth)
}

func (h *Handler) handleAuth(w http.ResponseWriter, r *http.Request) {
	params, err := h.signer.Sign()
	if err != nil {
		if errors.Is(err, uploadService.ErrNotConfigured) {
			utils.RespondError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "failed to sign upload")
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	utils.RespondJSON(w, http.StatusOK, params)
}
