package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swiftprosyssfdev3-star/Finetune-LLM-Using-CLI/internal/settings"
)

func newTestSQLiteRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "settings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestSQLiteRepository_EmptyStoreReturnsZeroValue(t *testing.T) {
	repo := newTestSQLiteRepo(t)

	got, err := repo.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, settings.Settings{}, got)
}

func TestSQLiteRepository_PutThenGet(t *testing.T) {
	repo := newTestSQLiteRepo(t)
	ctx := context.Background()

	want := settings.Settings{
		OpenAI:      &settings.OpenAI{BaseURL: "https://api.example.com/v1", APIKey: "sk-key", Model: "gpt-4o"},
		HuggingFace: &settings.HuggingFace{Token: "hf_token"},
		Training:    &settings.Training{Method: "lora", BatchSize: 4, LearningRate: "2e-5", Epochs: 3},
	}
	require.NoError(t, repo.Put(ctx, want))

	got, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSQLiteRepository_PutOverwrites(t *testing.T) {
	repo := newTestSQLiteRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Put(ctx, settings.Settings{
		OpenAI: &settings.OpenAI{Model: "gpt-4o"},
	}))
	require.NoError(t, repo.Put(ctx, settings.Settings{
		OpenAI: &settings.OpenAI{Model: "gpt-4o-mini"},
	}))

	got, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", got.OpenAI.Model)
}

func TestSQLiteRepository_PersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "settings.db")
	ctx := context.Background()

	repo, err := NewSQLiteRepository(dbPath)
	require.NoError(t, err)
	require.NoError(t, repo.Put(ctx, settings.Settings{
		HuggingFace: &settings.HuggingFace{Token: "hf_persisted"},
	}))
	require.NoError(t, repo.Close())

	reopened, err := NewSQLiteRepository(dbPath)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, got.HuggingFace)
	assert.Equal(t, "hf_persisted", got.HuggingFace.Token)
}

func TestMemoryRepository_RoundTrip(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	got, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, settings.Settings{}, got)

	want := settings.Settings{OpenAI: &settings.OpenAI{Model: "gpt-4o"}}
	require.NoError(t, repo.Put(ctx, want))

	got, err = repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
