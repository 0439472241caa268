package embedding

import (
	"context"
	"net/http"
	"strings"

	"github.com/starford/moonshine/internal/apperr"
)

// DefaultOpenAIBaseURL is the public OpenAI API endpoint.
const DefaultOpenAIBaseURL = "https://api.openai.com"

// OpenAI calls the OpenAI embeddings endpoint.
type OpenAI struct {
	baseURL string
	client  *http.Client
}

// NewOpenAI returns an OpenAI provider. An empty baseURL selects the public API.
func NewOpenAI(baseURL string, client *http.Client) *OpenAI {
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &OpenAI{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (p *OpenAI) Name() string { return ProviderOpenAI }

func (p *OpenAI) DefaultModel() string { return "text-embedding-3-small" }

type openAIRequest struct {
	Input string `json:"input"`
	Model string `json:"model"`
}

type openAIResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (p *OpenAI) Embed(ctx context.Context, apiKey, model, text string) ([]float32, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+apiKey)

	var out openAIResponse
	if err := postJSON(ctx, p.client, "OpenAI", p.baseURL+"/v1/embeddings", header,
		openAIRequest{Input: text, Model: model}, &out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		return nil, apperr.Upstream("OpenAI embedding API returned no data")
	}
	return out.Data[0].Embedding, nil
}
