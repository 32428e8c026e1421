// Package store persists application settings.
package store

import (
	"context"

	"github.com/swiftprosyssfdev3-star/Finetune-LLM-Using-CLI/internal/settings"
)

// Repository persists the settings document. There is exactly one document;
// Get on an empty store returns the zero value, not an error.
type Repository interface {
	Get(ctx context.Context) (settings.Settings, error)
	Put(ctx context.Context, s settings.Settings) error
	Close() error
}
