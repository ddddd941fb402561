package chat

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/aura/backend/internal/middleware"
	"github.com/zhouzirui/aura/backend/internal/model/chat"
	chatService "github.com/zhouzirui/aura/backend/internal/service/chat"
	"github.com/zhouzirui/aura/backend/pkg/utils"
)

// DeletedMessage is the confirmation body of a successful delete.
const DeletedMessage = "Chat deleted successfully"

// Handler serves the conversation endpoints. Routes expect an owner id in the
// request context, set by middleware.Authenticator.
type Handler struct {
	chatSvc *chatService.Service
}

// New creates a chat handler.
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

// RegisterRoutes mounts the chat routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/chats", func(r chi.Router) {
		r.Get("/", h.handleListChats)
		r.Post("/", h.handleCreateChat)
		r.Get("/userchats", h.handleListChats)
		r.Get("/{chatID}", h.handleGetChat)
		r.Delete("/{chatID}", h.handleDeleteChat)
		r.Post("/{chatID}/messages", h.handleAppendTurn)
	})
}

// ChatDetail is the body of GET /chats/{id}.
type ChatDetail struct {
	Chat     chat.Chat      `json:"chat"`
	Messages []chat.Message `json:"messages"`
}

func (h *Handler) handleListChats(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	chats, err := h.chatSvc.ListChats(r.Context(), owner)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, chats)
}

func (h *Handler) handleCreateChat(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	var payload struct {
		Title string `json:"title"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.chatSvc.CreateChat(r.Context(), owner, payload.Title)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleGetChat(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	c, err := h.chatSvc.GetChat(r.Context(), owner, chi.URLParam(r, "chatID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, ChatDetail{Chat: c.Summary(), Messages: c.History})
}

func (h *Handler) handleAppendTurn(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	var payload struct {
		Text  string `json:"text"`
		Image string `json:"image"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	turn, err := h.chatSvc.AppendTurn(r.Context(), owner, chi.URLParam(r, "chatID"), chatService.AppendInput{
		Text:  payload.Text,
		Image: payload.Image,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, turn)
}

func (h *Handler) handleDeleteChat(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	if err := h.chatSvc.DeleteChat(r.Context(), owner, chi.URLParam(r, "chatID")); err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"message": DeletedMessage})
}

func requireOwner(w http.ResponseWriter, r *http.Request) (string, bool) {
	owner, ok := middleware.OwnerFromContext(r.Context())
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "unauthorized")
		return "", false
	}
	return owner, true
}

func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chatService.ErrValidation):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, chatService.ErrNotFound):
		utils.RespondError(w, http.StatusNotFound, "chat not found")
	default:
		utils.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}
