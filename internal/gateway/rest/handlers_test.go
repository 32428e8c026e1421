package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swiftprosyssfdev3-star/Finetune-LLM-Using-CLI/internal/common/logger"
	"github.com/swiftprosyssfdev3-star/Finetune-LLM-Using-CLI/internal/project"
	"github.com/swiftprosyssfdev3-star/Finetune-LLM-Using-CLI/internal/settings"
	settingsstore "github.com/swiftprosyssfdev3-star/Finetune-LLM-Using-CLI/internal/settings/store"
	"github.com/swiftprosyssfdev3-star/Finetune-LLM-Using-CLI/internal/terminal"
)

func newTestRouter(t *testing.T) (*gin.Engine, *project.Manager, settingsstore.Repository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.NewNop()
	projects, err := project.NewManager(t.TempDir())
	require.NoError(t, err)
	store := settingsstore.NewMemoryRepository()
	registry := terminal.NewRegistry(terminal.RegistryOptions{
		Catalog:    terminal.NewCatalog(),
		Workspaces: projects,
		Logger:     log,
	})
	t.Cleanup(func() { registry.Shutdown(context.Background()) })

	router := gin.New()
	NewHandler(registry, projects, store, log).RegisterRoutes(router)
	return router, projects, store
}

func doRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := doRequest(router, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
	assert.Contains(t, w.Body.String(), "active_sessions")
}

func TestListTerminals_Empty(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := doRequest(router, http.MethodGet, "/api/terminals", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Sessions []json.RawMessage `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Empty(t, body.Sessions)
}

func TestKillTerminal_NotFound(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := doRequest(router, http.MethodDelete, "/api/terminals/nope_bash", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_FOUND")
}

func TestListProjects(t *testing.T) {
	router, projects, _ := newTestRouter(t)

	_, err := projects.EnsureWorkspace("beta")
	require.NoError(t, err)
	_, err = projects.EnsureWorkspace("alpha")
	require.NoError(t, err)

	w := doRequest(router, http.MethodGet, "/api/projects", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Projects []string `json:"projects"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []string{"alpha", "beta"}, body.Projects)
}

func TestGetSettings_MasksSecrets(t *testing.T) {
	router, _, store := newTestRouter(t)

	require.NoError(t, store.Put(context.Background(), settings.Settings{
		OpenAI: &settings.OpenAI{APIKey: "sk-live-abcdefgh-wxyz", Model: "gpt-4o"},
	}))

	w := doRequest(router, http.MethodGet, "/api/settings", "")
	require.Equal(t, http.StatusOK, w.Code)

	assert.Contains(t, w.Body.String(), "sk-live-...wxyz")
	assert.NotContains(t, w.Body.String(), "sk-live-abcdefgh-wxyz")
	assert.Contains(t, w.Body.String(), "gpt-4o")
}

func TestUpdateSettings_MaskedKeyDoesNotClobber(t *testing.T) {
	router, _, store := newTestRouter(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, settings.Settings{
		OpenAI: &settings.OpenAI{APIKey: "sk-live-abcdefgh-wxyz", Model: "gpt-4o"},
	}))

	// Client echoes the masked key back while changing the model.
	w := doRequest(router, http.MethodPost, "/api/settings",
		`{"openai": {"api_key": "sk-live-...wxyz", "model": "gpt-4o-mini"}}`)
	require.Equal(t, http.StatusOK, w.Code)

	stored, err := store.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, stored.OpenAI)
	assert.Equal(t, "sk-live-abcdefgh-wxyz", stored.OpenAI.APIKey)
	assert.Equal(t, "gpt-4o-mini", stored.OpenAI.Model)

	// The response itself must not leak the real key.
	assert.NotContains(t, w.Body.String(), "sk-live-abcdefgh-wxyz")
}

func TestUpdateSettings_InvalidPayload(t *testing.T) {
	router, _, _ := newTestRouter(t)

	w := doRequest(router, http.MethodPost, "/api/settings", `{"openai": "not-an-object"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
