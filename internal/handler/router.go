package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/aura/backend/internal/handler/chat"
	"github.com/zhouzirui/aura/backend/internal/handler/upload"
	"github.com/zhouzirui/aura/backend/internal/logger"
	middlewarePkg "github.com/zhouzirui/aura/backend/internal/middleware"
	chatService "github.com/zhouzirui/aura/backend/internal/service/chat"
	uploadService "github.com/zhouzirui/aura/backend/internal/service/upload"
	"github.com/zhouzirui/aura/backend/pkg/utils"
)

// Dependencies are the services the HTTP layer routes to.
type Dependencies struct {
	Chat           *chatService.Service
	Uploads        *uploadService.Signer
	Auth           *middlewarePkg.Authenticator
	Log            *logger.Logger
	AllowedOrigins []string
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Dependencies) http.Handler {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(deps.AllowedOrigins))

	chatHandler := chat.New(deps.Chat)
	uploadHandler := upload.New(deps.Uploads)

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		api.Group(func(protected chi.Router) {
			protected.Use(deps.Auth.Require)

			chatHandler.RegisterRoutes(protected)
			uploadHandler.RegisterRoutes(protected)
		})
	})

	return r
}
