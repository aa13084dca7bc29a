package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultOllamaBaseURL = "http://localhost:11434"

type ollamaConfig struct {
	BaseURL      string `json:"base_url"`
	Timeout      int    `json:"timeout"`
	ProbeTimeout int    `json:"probe_timeout"`
}

type ollamaProvider struct {
	baseURL      string
	client       *http.Client
	timeout      time.Duration
	probeTimeout time.Duration
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaChatMsg `json:"messages"`
	Stream   bool            `json:"stream"`
}

type ollamaChatMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

func (p *ollamaProvider) Name() string {
	return "ollama"
}

func (p *ollamaProvider) Generate(ctx context.Context, model string, system string, messages []ChatMessage) (string, error) {
	msgs := make([]ollamaChatMsg, 0, len(messages)+1)
	if system != "" {
		msgs = append(msgs, ollamaChatMsg{Role: "system", Content: system})
	}
	for _, m := range messages {
		msgs = append(msgs, ollamaChatMsg{Role: m.Role, Content: m.Content})
	}
	reqBody := ollamaChatRequest{Model: model, Messages: msgs, Stream: false}
	var out ollamaChatResponse
	if err := p.post(ctx, "/api/chat", reqBody, &out, p.timeout); err != nil {
		return "", err
	}
	return strings.TrimSpace(out.Message.Content), nil
}

func (p *ollamaProvider) Embed(ctx context.Context, model string, text string) ([]float32, error) {
	reqBody := ollamaEmbedRequest{Model: model, Prompt: text}
	var out ollamaEmbedResponse
	if err := p.post(ctx, "/api/embeddings", reqBody, &out, p.timeout); err != nil {
		return nil, err
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding", ErrEmbedFailed)
	}
	return out.Embedding, nil
}

// IsAvailable lists installed models and checks the embedding model is among
// them. Any transport or decode failure reads as "not available".
func (p *ollamaProvider) IsAvailable(ctx context.Context, model string) bool {
	ctx, cancel := context.WithTimeout(ctx, p.probeTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false
	}
	var out ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false
	}
	for _, m := range out.Models {
		if strings.HasPrefix(m.Name, model) {
			return true
		}
	}
	return false
}

func (p *ollamaProvider) post(ctx context.Context, path string, reqBody interface{}, out interface{}, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	data, err := json.Marshal(reqBody)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: ollama request failed: %s: %s", ErrEmbedFailed, resp.Status, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func createOllamaProvider(args interface{}) (*ollamaProvider, error) {
	cfg := &ollamaConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	timeout := 10 * time.Second
	if cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Second
	}
	probeTimeout := 3 * time.Second
	if cfg.ProbeTimeout > 0 {
		probeTimeout = time.Duration(cfg.ProbeTimeout) * time.Second
	}
	return &ollamaProvider{
		baseURL:      baseURL,
		client:       &http.Client{},
		timeout:      timeout,
		probeTimeout: probeTimeout,
	}, nil
}

func createOllamaFactory(args interface{}) (IAIProvider, error) {
	return createOllamaProvider(args)
}

func createOllamaEmbedFactory(args interface{}) (IEmbedProvider, error) {
	return createOllamaProvider(args)
}

func init() {
	Register("ollama", createOllamaFactory)
	RegisterEmbed("ollama", createOllamaEmbedFactory)
}
