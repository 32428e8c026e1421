package store

import (
	"context"
	"sync"

	"github.com/swiftprosyssfdev3-star/Finetune-LLM-Using-CLI/internal/settings"
)

// MemoryRepository keeps settings in memory. Used in tests and when no
// database path is configured.
type MemoryRepository struct {
	mu   sync.RWMutex
	data settings.Settings
}

var _ Repository = (*MemoryRepository)(nil)

// NewMemoryRepository creates an empty in-memory settings store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Get(ctx context.Context) (settings.Settings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.data, nil
}

func (r *MemoryRepository) Put(ctx context.Context, s settings.Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data = s
	return nil
}

func (r *MemoryRepository) Close() error {
	return nil
}
