package handler_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/aura/backend/internal/config"
	"github.com/zhouzirui/aura/backend/internal/handler"
	"github.com/zhouzirui/aura/backend/internal/middleware"
	"github.com/zhouzirui/aura/backend/internal/service/ai"
	chatService "github.com/zhouzirui/aura/backend/internal/service/chat"
	uploadService "github.com/zhouzirui/aura/backend/internal/service/upload"
	"github.com/zhouzirui/aura/backend/internal/storage"
)

const secret = "router-secret"

func newRouter() http.Handler {
	responder := ai.NewResponder(nil, ai.NewFallbacks([]string{"fallback"}, nil), ai.ResponderConfig{}, nil)
	return handler.NewRouter(handler.Dependencies{
		Chat:           chatService.NewService(storage.NewMemoryStore(), responder, nil, chatService.Options{}),
		Uploads:        uploadService.NewSigner(config.UploadConfig{PrivateKey: "pk"}),
		Auth:           middleware.NewAuthenticator(secret, "jwt", nil),
		AllowedOrigins: []string{"http://localhost:5173"},
	})
}

func TestRouterRequiresAuth(t *testing.T) {
	r := newRouter()

	for _, path := range []string{"/api/chats", "/api/chats/userchats", "/api/upload"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestRouterHealthIsPublic(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	newRouter().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouterAuthenticatedFlow(t *testing.T) {
	r := newRouter()
	token, err := middleware.IssueToken(secret, "alice", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/chats", strings.NewReader(`{"title":"Hydration"}`))
	req.AddCookie(&http.Cookie{Name: "jwt", Value: token})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"title":"Hydration"`)

	req = httptest.NewRequest(http.MethodGet, "/api/upload", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"signature"`)
}
