package terminal

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/swiftprosyssfdev3-star/Finetune-LLM-Using-CLI/internal/common/logger"
	"github.com/swiftprosyssfdev3-star/Finetune-LLM-Using-CLI/internal/events"
	"github.com/swiftprosyssfdev3-star/Finetune-LLM-Using-CLI/internal/events/bus"
	v1 "github.com/swiftprosyssfdev3-star/Finetune-LLM-Using-CLI/pkg/api/v1"
)

// WorkspaceProvider resolves a project identifier to a working directory,
// creating it if needed.
type WorkspaceProvider interface {
	EnsureWorkspace(projectID string) (string, error)
}

// SessionID derives the deterministic identity of a session. One project can
// run at most one live session per agent kind.
func SessionID(projectID, agent string) string {
	return projectID + "_" + agent
}

// Registry owns all live terminal sessions.
type Registry struct {
	catalog    *Catalog
	workspaces WorkspaceProvider
	eventBus   bus.EventBus
	log        *logger.Logger

	timings     Timings
	defaultCols uint16
	defaultRows uint16

	mu       sync.RWMutex
	sessions map[string]*Session

	// spawnMu serializes Create per identity. Without it two concurrent
	// connects for the same (project, agent) could both spawn, and one
	// live process would be silently dropped from the map.
	spawnMu sync.Mutex
	spawns  map[string]*sync.Mutex
}

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	Catalog     *Catalog
	Workspaces  WorkspaceProvider
	EventBus    bus.EventBus
	Logger      *logger.Logger
	Timings     Timings
	DefaultCols uint16
	DefaultRows uint16
}

// NewRegistry creates an empty session registry.
func NewRegistry(opts RegistryOptions) *Registry {
	if opts.DefaultCols == 0 {
		opts.DefaultCols = 80
	}
	if opts.DefaultRows == 0 {
		opts.DefaultRows = 24
	}
	return &Registry{
		catalog:     opts.Catalog,
		workspaces:  opts.Workspaces,
		eventBus:    opts.EventBus,
		log:         opts.Logger,
		timings:     opts.Timings,
		defaultCols: opts.DefaultCols,
		defaultRows: opts.DefaultRows,
		sessions:    make(map[string]*Session),
		spawns:      make(map[string]*sync.Mutex),
	}
}

// CreateOptions carries the per-request parameters of a new session.
type CreateOptions struct {
	ProjectID string
	Agent     string
	Sender    Sender
	Model     ModelConfig

	// ExtraEnv is appended last, so it wins over the agent's static and
	// model-derived variables.
	ExtraEnv map[string]string

	Cols uint16
	Rows uint16
}

// Create starts a new session for (project, agent). Any existing session with
// the same identity is torn down first, synchronously, so its PTY and process
// are fully released before the replacement spawns. Concurrent creates for the
// same identity are serialized; the last one to run wins.
func (r *Registry) Create(ctx context.Context, opts CreateOptions) (*Session, error) {
	id := SessionID(opts.ProjectID, opts.Agent)

	unlock := r.lockSpawn(id)
	defer unlock()

	if existing := r.take(id); existing != nil {
		r.log.Info("replacing existing session", zap.String("session_id", id))
		existing.Close()
		r.publishEnded(ctx, existing)
	}

	// A broken workspace must not block the session; fall back to the
	// server's working directory.
	workDir, err := r.workspaces.EnsureWorkspace(opts.ProjectID)
	if err != nil {
		r.log.Warn("workspace unavailable, using current directory",
			zap.String("project_id", opts.ProjectID), zap.Error(err))
		workDir = ""
	}

	cols, rows := opts.Cols, opts.Rows
	if cols == 0 {
		cols = r.defaultCols
	}
	if rows == 0 {
		rows = r.defaultRows
	}

	command := r.catalog.ResolveCommand(opts.Agent)
	environ := buildEnviron(
		r.catalog.StaticEnv(opts.Agent),
		BuildAgentEnv(opts.Agent, opts.Model),
		opts.ExtraEnv,
	)

	session, err := Spawn(SpawnOptions{
		SessionID: id,
		ProjectID: opts.ProjectID,
		Agent:     opts.Agent,
		WorkDir:   workDir,
		Command:   command,
		Env:       environ,
		Cols:      cols,
		Rows:      rows,
		Sender:    opts.Sender,
		Timings:   r.timings,
		Logger:    r.log,
	})
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.sessions[id] = session
	r.mu.Unlock()

	session.StartReader()
	r.publish(ctx, events.SessionStarted, session)
	return session, nil
}

// Get returns the live session with the given identity, if any.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// List returns summaries of all registered sessions.
func (r *Registry) List() []v1.SessionSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]v1.SessionSummary, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s.Summary())
	}
	return out
}

// Destroy tears down the session with the given identity. Destroying a
// session that does not exist is a no-op.
func (r *Registry) Destroy(ctx context.Context, id string) {
	session := r.take(id)
	if session == nil {
		return
	}
	session.Close()
	r.publishEnded(ctx, session)
}

// DestroySession tears down a specific session instance. If the identity has
// already been taken over by a replacement session, the replacement is left
// alone; only s itself is closed. Connection handlers use this for their
// final cleanup so a reconnect cannot be killed by the old handler's exit.
func (r *Registry) DestroySession(ctx context.Context, s *Session) {
	r.mu.Lock()
	owned := r.sessions[s.ID] == s
	if owned {
		delete(r.sessions, s.ID)
	}
	r.mu.Unlock()

	s.Close()
	if owned {
		r.publishEnded(ctx, s)
	}
}

// Shutdown tears down every live session. Used on server exit.
func (r *Registry) Shutdown(ctx context.Context) {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Close()
		r.publishEnded(ctx, s)
	}
}

// lockSpawn acquires the creation lock for an identity. The per-identity
// mutexes persist for the registry's lifetime; the identity space is bounded
// by projects times agent kinds.
func (r *Registry) lockSpawn(id string) func() {
	r.spawnMu.Lock()
	l, ok := r.spawns[id]
	if !ok {
		l = &sync.Mutex{}
		r.spawns[id] = l
	}
	r.spawnMu.Unlock()

	l.Lock()
	return l.Unlock
}

// take removes and returns a session, or nil if absent.
func (r *Registry) take(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil
	}
	delete(r.sessions, id)
	return s
}

func (r *Registry) publishEnded(ctx context.Context, s *Session) {
	r.publish(ctx, events.SessionEnded, s)
}

func (r *Registry) publish(ctx context.Context, eventType string, s *Session) {
	if r.eventBus == nil {
		return
	}
	event := bus.NewEvent(eventType, "terminal-registry", map[string]interface{}{
		"session_id": s.ID,
		"project_id": s.ProjectID,
		"agent":      s.Agent,
	})
	if err := r.eventBus.Publish(ctx, eventType, event); err != nil {
		r.log.Warn("event publish failed",
			zap.String("event", eventType), zap.Error(err))
	}
}
