//go:build !windows

package websocket

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swiftprosyssfdev3-star/Finetune-LLM-Using-CLI/internal/common/config"
	"github.com/swiftprosyssfdev3-star/Finetune-LLM-Using-CLI/internal/common/logger"
	"github.com/swiftprosyssfdev3-star/Finetune-LLM-Using-CLI/internal/project"
	"github.com/swiftprosyssfdev3-star/Finetune-LLM-Using-CLI/internal/settings"
	settingsstore "github.com/swiftprosyssfdev3-star/Finetune-LLM-Using-CLI/internal/settings/store"
	"github.com/swiftprosyssfdev3-star/Finetune-LLM-Using-CLI/internal/terminal"
)

// wireMessage is the loosely-typed view of anything the server sends.
type wireMessage struct {
	Type    string `json:"type"`
	Status  string `json:"status"`
	Data    string `json:"data"`
	Message string `json:"message"`
	Model   *struct {
		Model     string `json:"model"`
		HasAPIKey bool   `json:"has_api_key"`
	} `json:"model_config"`
}

func testTerminalConfig() config.TerminalConfig {
	return config.TerminalConfig{
		DefaultCols:     80,
		DefaultRows:     24,
		PollIntervalMs:  50,
		IdleSleepMs:     10,
		KillGraceMs:     100,
		SettleDelayMs:   50,
		KickoffDelayMs:  10,
		ReceiveWaitMs:   50,
		OutputChunkSize: 4096,
	}
}

func startTestServer(t *testing.T, store settingsstore.Repository) (*httptest.Server, *terminal.Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.NewNop()
	cfg := testTerminalConfig()
	projects, err := project.NewManager(t.TempDir())
	require.NoError(t, err)

	catalog := terminal.NewCatalog()
	registry := terminal.NewRegistry(terminal.RegistryOptions{
		Catalog:    catalog,
		Workspaces: projects,
		Logger:     log,
		Timings: terminal.Timings{
			PollInterval: cfg.PollInterval(),
			IdleSleep:    cfg.IdleSleep(),
			KillGrace:    cfg.KillGrace(),
			ChunkSize:    cfg.OutputChunkSize,
		},
	})
	t.Cleanup(func() { registry.Shutdown(context.Background()) })

	router := gin.New()
	NewHandler(registry, catalog, store, cfg, log).RegisterRoutes(router)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, registry
}

func dialTerminal(t *testing.T, server *httptest.Server, projectID, agent string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/terminal/" + projectID + "/" + agent
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func readMessage(t *testing.T, ws *websocket.Conn) wireMessage {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(10*time.Second)))
	var msg wireMessage
	require.NoError(t, ws.ReadJSON(&msg))
	return msg
}

// readUntil keeps reading until pred accepts a message, failing the test on
// timeout. Output frames arrive interleaved with everything else.
func readUntil(t *testing.T, ws *websocket.Conn, pred func(wireMessage) bool) wireMessage {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		msg := readMessage(t, ws)
		if pred(msg) {
			return msg
		}
	}
	t.Fatal("expected message never arrived")
	return wireMessage{}
}

func TestTerminalWS_LifecycleStatuses(t *testing.T) {
	server, registry := startTestServer(t, settingsstore.NewMemoryRepository())
	ws := dialTerminal(t, server, "proj1", "bash")

	first := readMessage(t, ws)
	assert.Equal(t, "status", first.Type)
	assert.Equal(t, "connecting", first.Status)

	second := readMessage(t, ws)
	assert.Equal(t, "status", second.Type)
	assert.Equal(t, "connected", second.Status)
	require.NotNil(t, second.Model)
	assert.Equal(t, "Not configured", second.Model.Model)
	assert.False(t, second.Model.HasAPIKey)

	require.Eventually(t, func() bool {
		_, ok := registry.Get("proj1_bash")
		return ok
	}, 5*time.Second, 20*time.Millisecond)
}

func TestTerminalWS_ConnectedStatusCarriesModelConfig(t *testing.T) {
	store := settingsstore.NewMemoryRepository()
	require.NoError(t, store.Put(context.Background(), settings.Settings{
		OpenAI: &settings.OpenAI{Model: "gpt-4o", APIKey: "sk-live-key"},
	}))
	server, _ := startTestServer(t, store)
	ws := dialTerminal(t, server, "proj1", "bash")

	connected := readUntil(t, ws, func(m wireMessage) bool {
		return m.Type == "status" && m.Status == "connected"
	})
	require.NotNil(t, connected.Model)
	assert.Equal(t, "gpt-4o", connected.Model.Model)
	assert.True(t, connected.Model.HasAPIKey)
}

func TestTerminalWS_PingPong(t *testing.T) {
	server, _ := startTestServer(t, settingsstore.NewMemoryRepository())
	ws := dialTerminal(t, server, "proj1", "bash")

	readUntil(t, ws, func(m wireMessage) bool {
		return m.Type == "status" && m.Status == "connected"
	})

	require.NoError(t, ws.WriteJSON(map[string]string{"type": "ping"}))
	readUntil(t, ws, func(m wireMessage) bool {
		return m.Type == "pong"
	})
}

func TestTerminalWS_CommandProducesOutput(t *testing.T) {
	server, _ := startTestServer(t, settingsstore.NewMemoryRepository())
	ws := dialTerminal(t, server, "proj1", "bash")

	readUntil(t, ws, func(m wireMessage) bool {
		return m.Type == "status" && m.Status == "connected"
	})

	require.NoError(t, ws.WriteJSON(map[string]string{
		"type":    "command",
		"command": "echo marker-$((40+2))",
	}))

	readUntil(t, ws, func(m wireMessage) bool {
		return m.Type == "output" && strings.Contains(m.Data, "marker-42")
	})
}

func TestTerminalWS_MalformedMessagesAreIgnored(t *testing.T) {
	server, _ := startTestServer(t, settingsstore.NewMemoryRepository())
	ws := dialTerminal(t, server, "proj1", "bash")

	readUntil(t, ws, func(m wireMessage) bool {
		return m.Type == "status" && m.Status == "connected"
	})

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("{not json")))
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"type": 42}`)))

	// The session survives; a ping still gets answered.
	require.NoError(t, ws.WriteJSON(map[string]string{"type": "ping"}))
	readUntil(t, ws, func(m wireMessage) bool {
		return m.Type == "pong"
	})
}

func TestTerminalWS_KillTearsDownSession(t *testing.T) {
	server, registry := startTestServer(t, settingsstore.NewMemoryRepository())
	ws := dialTerminal(t, server, "proj1", "bash")

	readUntil(t, ws, func(m wireMessage) bool {
		return m.Type == "status" && m.Status == "connected"
	})

	require.NoError(t, ws.WriteJSON(map[string]string{"type": "kill"}))

	require.Eventually(t, func() bool {
		_, ok := registry.Get("proj1_bash")
		return !ok
	}, 5*time.Second, 20*time.Millisecond)
}

func TestTerminalWS_DisconnectTearsDownSession(t *testing.T) {
	server, registry := startTestServer(t, settingsstore.NewMemoryRepository())
	ws := dialTerminal(t, server, "proj1", "bash")

	readUntil(t, ws, func(m wireMessage) bool {
		return m.Type == "status" && m.Status == "connected"
	})
	require.Eventually(t, func() bool {
		_, ok := registry.Get("proj1_bash")
		return ok
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, ws.Close())

	require.Eventually(t, func() bool {
		_, ok := registry.Get("proj1_bash")
		return !ok
	}, 5*time.Second, 20*time.Millisecond)
}

func TestTerminalWS_ReconnectReplacesSession(t *testing.T) {
	server, registry := startTestServer(t, settingsstore.NewMemoryRepository())

	first := dialTerminal(t, server, "proj1", "bash")
	readUntil(t, first, func(m wireMessage) bool {
		return m.Type == "status" && m.Status == "connected"
	})

	second := dialTerminal(t, server, "proj1", "bash")
	readUntil(t, second, func(m wireMessage) bool {
		return m.Type == "status" && m.Status == "connected"
	})

	// One live session per (project, agent) identity.
	require.Eventually(t, func() bool {
		return len(registry.List()) == 1
	}, 5*time.Second, 20*time.Millisecond)
}
