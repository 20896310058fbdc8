package openai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewEmbedderOptionsOverrideDefaults(t *testing.T) {
	embedder := NewEmbedder("dummy-key",
		WithEmbeddingModel("custom-model"),
		WithEmbeddingDimension(42),
	)

	assert.Equal(t, "custom-model", embedder.ModelName())
	assert.Equal(t, 42, embedder.Dimension())
}

func TestNewEmbedderDefaults(t *testing.T) {
	embedder := NewEmbedder("dummy-key")

	assert.Equal(t, DefaultEmbeddingModel, embedder.ModelName())
	assert.Equal(t, DefaultEmbeddingDimension, embedder.Dimension())
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient("")

	assert.ErrorIs(t, err, ErrAPIKeyNotSet)
}

func TestNewClientOptions(t *testing.T) {
	client, err := NewClient("dummy-key", WithModel("gpt-4o"), WithVisionModel("gpt-4o"))

	assert.NoError(t, err)
	assert.Equal(t, "gpt-4o", client.ModelName())
}
