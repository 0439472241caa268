// Package embedding turns query text into a vector using a remote
// embedding provider chosen by the current settings.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/starford/moonshine/internal/apperr"
)

// Provider names as stored in the embedding_provider setting.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Provider calls one remote embedding API.
type Provider interface {
	// Name is the settings value that selects this provider.
	Name() string
	// DefaultModel is used when the embedding_model setting is empty.
	DefaultModel() string
	// Embed issues exactly one request and returns the vector.
	Embed(ctx context.Context, apiKey, model, text string) ([]float32, error)
}

// postJSON sends body as JSON and decodes a 2xx response into out.
// Non-2xx responses become upstream errors labelled with label.
func postJSON(ctx context.Context, client *http.Client, label, url string, header http.Header, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("embedding: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("embedding: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return apperr.Upstream("%s embedding API request failed: %v", label, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return apperr.Upstream("%s embedding API error: %d %s", label, resp.StatusCode, string(raw))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.Upstream("%s embedding API returned malformed JSON: %v", label, err)
	}
	return nil
}
