// Package websocket bridges browser terminal connections to PTY-backed agent
// sessions.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/swiftprosyssfdev3-star/Finetune-LLM-Using-CLI/internal/common/config"
	"github.com/swiftprosyssfdev3-star/Finetune-LLM-Using-CLI/internal/common/logger"
	settingsstore "github.com/swiftprosyssfdev3-star/Finetune-LLM-Using-CLI/internal/settings/store"
	"github.com/swiftprosyssfdev3-star/Finetune-LLM-Using-CLI/internal/terminal"
	v1 "github.com/swiftprosyssfdev3-star/Finetune-LLM-Using-CLI/pkg/api/v1"
)

// conn wraps a websocket connection with a write mutex so the output reader
// and the message loop can both send without interleaving frames.
type conn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
}

func (c *conn) Send(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	// A stalled client must not wedge the output reader.
	_ = c.ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.ws.WriteJSON(v)
}

// Handler serves the terminal websocket endpoint.
type Handler struct {
	registry *terminal.Registry
	catalog  *terminal.Catalog
	settings settingsstore.Repository
	cfg      config.TerminalConfig
	log      *logger.Logger

	upgrader websocket.Upgrader
}

// NewHandler creates the terminal websocket handler.
func NewHandler(registry *terminal.Registry, catalog *terminal.Catalog, settings settingsstore.Repository, cfg config.TerminalConfig, log *logger.Logger) *Handler {
	return &Handler{
		registry: registry,
		catalog:  catalog,
		settings: settings,
		cfg:      cfg,
		log:      log.WithFields(zap.String("component", "terminal-ws")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// The frontend is served from a different port in development.
				return true
			},
		},
	}
}

// RegisterRoutes mounts the websocket endpoint on the router.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/ws/terminal/:projectId/:agent", h.handleTerminal)
}

func (h *Handler) handleTerminal(c *gin.Context) {
	projectID := c.Param("projectId")
	agent := c.Param("agent")

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer ws.Close()

	sessionID := terminal.SessionID(projectID, agent)
	client := &conn{ws: ws}
	log := h.log.WithSession(sessionID)

	_ = client.Send(v1.NewStatus(v1.SessionStatusConnecting, sessionID, agent))

	model := h.lookupModelConfig(c.Request.Context())

	session, err := h.registry.Create(c.Request.Context(), terminal.CreateOptions{
		ProjectID: projectID,
		Agent:     agent,
		Sender:    client,
		Model:     model,
	})
	if err != nil {
		log.Error("session create failed", zap.Error(err))
		_ = client.Send(v1.NewError(err.Error()))
		return
	}
	// Teardown runs no matter how the loop exits, and targets this exact
	// session instance so a reconnect that already replaced it is untouched.
	defer h.registry.DestroySession(context.Background(), session)

	connected := v1.NewStatus(v1.SessionStatusConnected, sessionID, agent)
	running := true
	connected.Running = &running
	connected.Model = &v1.ModelStatus{
		Model:     modelLabel(model),
		HasAPIKey: model.APIKey != "",
	}
	_ = client.Send(connected)

	h.kickoff(session, client, agent, log)
	h.messageLoop(session, client, ws, log)
}

// lookupModelConfig reads the configured model settings; a missing or broken
// settings store degrades to an unconfigured session, never a failed one.
func (h *Handler) lookupModelConfig(ctx context.Context) terminal.ModelConfig {
	if h.settings == nil {
		return terminal.ModelConfig{}
	}
	s, err := h.settings.Get(ctx)
	if err != nil {
		h.log.Warn("settings lookup failed", zap.Error(err))
		return terminal.ModelConfig{}
	}
	modelName, apiKey, baseURL := s.ModelDefaults()
	return terminal.ModelConfig{DefaultModel: modelName, APIKey: apiKey, BaseURL: baseURL}
}

func modelLabel(model terminal.ModelConfig) string {
	if model.DefaultModel == "" {
		return "Not configured"
	}
	return model.DefaultModel
}

// kickoff waits for the agent to settle, then sends its unattended-mode
// prompt. Agents without a registered prompt just get the settle delay.
func (h *Handler) kickoff(session *terminal.Session, client *conn, agent string, log *logger.Logger) {
	time.Sleep(h.cfg.SettleDelay())
	if !session.Running() {
		return
	}
	prompt, ok := h.catalog.KickoffPrompt(agent)
	if !ok {
		return
	}
	time.Sleep(h.cfg.KickoffDelay())
	if err := session.SendCommand(prompt); err != nil {
		log.Warn("kickoff prompt failed", zap.Error(err))
		return
	}
	msg := v1.NewStatus(v1.SessionStatusAutonomous, session.ID, agent)
	msg.Message = fmt.Sprintf("%s started in autonomous mode", agent)
	_ = client.Send(msg)
}

// messageLoop dispatches inbound control messages until the client
// disconnects, the process exits, or a kill message arrives.
//
// Reads happen on a dedicated goroutine because a read deadline would poison
// the websocket; the loop instead selects between inbound messages and a
// ticker that watches the running flag.
func (h *Handler) messageLoop(session *terminal.Session, client *conn, ws *websocket.Conn, log *logger.Logger) {
	msgCh := make(chan v1.ClientMessage)
	done := make(chan struct{})
	defer close(done)

	go func() {
		defer close(msgCh)
		for {
			_, payload, err := ws.ReadMessage()
			if err != nil {
				return
			}
			var msg v1.ClientMessage
			if err := json.Unmarshal(payload, &msg); err != nil {
				// Malformed frames are dropped, never fatal.
				continue
			}
			select {
			case msgCh <- msg:
			case <-done:
				return
			}
		}
	}()

	ticker := time.NewTicker(h.cfg.ReceiveWait())
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-msgCh:
			if !ok {
				log.Debug("client disconnected")
				return
			}
			if h.dispatch(session, client, msg, log) {
				return
			}
		case <-ticker.C:
			if !session.Running() {
				log.Debug("process exited, closing connection")
				return
			}
		}
	}
}

// dispatch handles one control message. Returns true when the loop should
// exit.
func (h *Handler) dispatch(session *terminal.Session, client *conn, msg v1.ClientMessage, log *logger.Logger) bool {
	switch msg.Type {
	case v1.MessageTypeInput:
		if err := session.WriteInput(msg.Data); err != nil {
			log.Debug("input write failed", zap.Error(err))
		}
	case v1.MessageTypeCommand:
		if err := session.SendCommand(msg.Command); err != nil {
			log.Debug("command write failed", zap.Error(err))
		}
	case v1.MessageTypeResize:
		cols, rows := msg.Cols, msg.Rows
		if cols <= 0 {
			cols = h.cfg.DefaultCols
		}
		if rows <= 0 {
			rows = h.cfg.DefaultRows
		}
		if err := session.Resize(uint16(cols), uint16(rows)); err != nil {
			log.Debug("resize failed", zap.Error(err))
		}
	case v1.MessageTypeStop:
		if err := session.Interrupt(); err != nil {
			log.Debug("interrupt failed", zap.Error(err))
		}
	case v1.MessageTypeSignal:
		sig := msg.Signal
		if sig == 0 {
			sig = terminal.DefaultSignal
		}
		if err := session.Signal(sig); err != nil {
			log.Debug("signal delivery failed", zap.Error(err))
		}
	case v1.MessageTypeKill:
		return true
	case v1.MessageTypePing:
		_ = client.Send(v1.NewPong())
	}
	return false
}
