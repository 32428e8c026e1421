// Package project manages on-disk project workspaces.
package project

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	apperrors "github.com/swiftprosyssfdev3-star/Finetune-LLM-Using-CLI/internal/common/errors"
)

// Manager creates and lists project workspace directories under a single
// root. Project identifiers become directory names, so they are validated
// against path traversal before touching the filesystem.
type Manager struct {
	root string
}

// NewManager creates a workspace manager rooted at dir.
func NewManager(dir string) (*Manager, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving projects dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("creating projects dir: %w", err)
	}
	return &Manager{root: abs}, nil
}

// Root returns the absolute projects directory.
func (m *Manager) Root() string {
	return m.root
}

// EnsureWorkspace returns the workspace directory for a project, creating it
// on first use.
func (m *Manager) EnsureWorkspace(projectID string) (string, error) {
	if err := validateID(projectID); err != nil {
		return "", err
	}
	dir := filepath.Join(m.root, projectID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating workspace %s: %w", projectID, err)
	}
	return dir, nil
}

// List returns the identifiers of all existing project workspaces, sorted.
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		return nil, fmt.Errorf("reading projects dir: %w", err)
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// validateID rejects identifiers that would escape the projects root or
// produce surprising directory names.
func validateID(id string) error {
	if id == "" {
		return apperrors.BadRequest("project id is required")
	}
	if strings.ContainsAny(id, "/\\") || strings.Contains(id, "..") {
		return apperrors.BadRequest("invalid project id")
	}
	if strings.HasPrefix(id, ".") {
		return apperrors.BadRequest("invalid project id")
	}
	return nil
}
