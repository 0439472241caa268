package embedding

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/starford/moonshine/internal/apperr"
)

// DefaultGeminiBaseURL is the public Generative Language API endpoint.
const DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

// Gemini calls the Gemini embedContent endpoint.
type Gemini struct {
	baseURL string
	client  *http.Client
}

// NewGemini returns a Gemini provider. An empty baseURL selects the public API.
func NewGemini(baseURL string, client *http.Client) *Gemini {
	if baseURL == "" {
		baseURL = DefaultGeminiBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Gemini{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (p *Gemini) Name() string { return ProviderGemini }

func (p *Gemini) DefaultModel() string { return "gemini-embedding-001" }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiRequest struct {
	Model   string `json:"model"`
	Content struct {
		Parts []geminiPart `json:"parts"`
	} `json:"content"`
	TaskType string `json:"taskType"`
}

type geminiResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

func (p *Gemini) Embed(ctx context.Context, apiKey, model, text string) ([]float32, error) {
	body := geminiRequest{Model: "models/" + model, TaskType: "RETRIEVAL_QUERY"}
	body.Content.Parts = []geminiPart{{Text: text}}

	endpoint := p.baseURL + "/v1beta/models/" + model + ":embedContent?key=" + url.QueryEscape(apiKey)

	var out geminiResponse
	if err := postJSON(ctx, p.client, "Gemini", endpoint, nil, body, &out); err != nil {
		return nil, err
	}
	if len(out.Embedding.Values) == 0 {
		return nil, apperr.Upstream("Gemini embedding API returned no values")
	}
	return out.Embedding.Values, nil
}
