package settings

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"extension-hub/internal/kv"
)

func TestReadProviderMissingKeysFallBack(t *testing.T) {
	cfg, err := ReadProvider(context.Background(), kv.NewMemory(), ProviderKeys{
		APIKey: KeyOpenAIAPIKey,
		Model:  KeyOpenAIModel,
	})
	require.NoError(t, err)
	assert.Equal(t, "", cfg.APIKey)
	assert.Equal(t, "gpt-4o", cfg.ModelOr("gpt-4o"))
}

func TestReadProviderReadsEveryKey(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	require.NoError(t, kv.SetString(ctx, store, KeyHuggingFaceAPIKey, "hf_x"))
	require.NoError(t, kv.SetString(ctx, store, KeyHuggingFaceModel, "Qwen/Qwen2.5-7B-Instruct"))
	require.NoError(t, kv.SetString(ctx, store, KeyHuggingFaceProvider, "together"))

	cfg, err := ReadProvider(ctx, store, ProviderKeys{
		APIKey: KeyHuggingFaceAPIKey,
		Model:  KeyHuggingFaceModel,
		Extra:  []string{KeyHuggingFaceProvider},
	})
	require.NoError(t, err)
	assert.Equal(t, "hf_x", cfg.APIKey)
	assert.Equal(t, "Qwen/Qwen2.5-7B-Instruct", cfg.ModelOr("default"))
	assert.Equal(t, "together", cfg.ExtraOr(KeyHuggingFaceProvider, "auto"))
}

func TestReadProviderJoinsStoreErrors(t *testing.T) {
	m := new(kv.MockStore)
	m.On("Get", mock.Anything, KeyTogetherAPIKey).Return([]byte("tg"), nil).Once()
	m.On("Get", mock.Anything, KeyTogetherModel).Return(nil, errors.New("timeout")).Once()

	cfg, err := ReadProvider(context.Background(), m, ProviderKeys{
		APIKey: KeyTogetherAPIKey,
		Model:  KeyTogetherModel,
	})
	assert.Error(t, err)
	assert.Equal(t, "tg", cfg.APIKey)
	assert.Equal(t, "deepseek-ai/DeepSeek-V3", cfg.ModelOr("deepseek-ai/DeepSeek-V3"))
	m.AssertExpectations(t)
}
