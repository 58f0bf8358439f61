package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client represents an Ollama client for local LLM interactions
type Client struct {
	Endpoint string
	Model    string
	Timeout  time.Duration
}

// NewClient creates a new Ollama client
func NewClient(endpoint, model string, timeout time.Duration) *Client {
	return &Client{
		Endpoint: endpoint,
		Model:    model,
		Timeout:  timeout,
	}
}

// Request represents the JSON structure expected by Ollama
type Request struct {
	Model   string                 `json:"model"`
	Prompt  string                 `json:"prompt"`
	Stream  bool                   `json:"stream"`
	Format  map[string]any         `json:"format,omitempty"`
	Options map[string]interface{} `json:"options,omitempty"`
}

// Response represents the response from Ollama
type Response struct {
	Response string `json:"response"`
}

// Name returns provider name
func (c *Client) Name() string { return "ollama" }

// Generate sends a prompt to Ollama and returns the generated text
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	out, err := c.complete(ctx, Request{
		Model:  c.Model,
		Prompt: prompt,
		Stream: false,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// GenerateObject sends a prompt with a response schema and returns the
// decoded structured result. Ollama enforces the schema natively through
// the request's format field.
func (c *Client) GenerateObject(ctx context.Context, prompt string, schema Schema) (map[string]any, error) {
	out, err := c.complete(ctx, Request{
		Model:  c.Model,
		Prompt: prompt,
		Stream: false,
		Format: schema.JSONMap(),
	})
	if err != nil {
		return nil, err
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(extractJSON(out)), &obj); err != nil {
		return nil, fmt.Errorf("could not decode structured response: %w", err)
	}
	if err := schema.Validate(obj); err != nil {
		return nil, err
	}
	return obj, nil
}

func (c *Client) complete(ctx context.Context, reqBody Request) (string, error) {
	data, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("could not encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("could not build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: c.Timeout}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama returned status %s", resp.Status)
	}

	var response Response
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(&response); err != nil {
		return "", fmt.Errorf("could not decode ollama response: %w", err)
	}

	return response.Response, nil
}

// IsAvailable checks if the Ollama service is available
func (c *Client) IsAvailable() bool {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(strings.Replace(c.Endpoint, "/api/generate", "/api/tags", 1))
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
