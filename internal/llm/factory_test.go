package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewProviderFromConfig_Ollama(t *testing.T) {
	p, err := NewProviderFromConfig("ollama", "http://localhost:11434/api/generate", "llama3.2:latest", 20*time.Second)
	assert.NoError(t, err)
	assert.Equal(t, "ollama", p.Name())

	client, ok := p.(*Client)
	assert.True(t, ok)
	assert.Equal(t, "llama3.2:latest", client.Model)
}

func TestNewProviderFromConfig_EmptyDefaultsToOllama(t *testing.T) {
	p, err := NewProviderFromConfig("", "http://localhost:11434/api/generate", "m", 0)
	assert.NoError(t, err)
	assert.Equal(t, "ollama", p.Name())
}

func TestNewProviderFromConfig_Unsupported(t *testing.T) {
	_, err := NewProviderFromConfig("openai", "", "m", 0)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported LLM provider")
}
