package llm

import (
	"fmt"
	"time"
)

// NewProviderFromConfig creates a Provider from config fields. For ollama
// the arg is the generate endpoint URL; for bedrock it is the AWS region.
func NewProviderFromConfig(provider, arg, model string, timeout time.Duration) (Provider, error) {
	switch provider {
	case "ollama", "":
		return NewClient(arg, model, timeout), nil
	case "bedrock":
		return NewBedrock(arg, model, timeout)
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", provider)
	}
}
