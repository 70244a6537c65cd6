package generate

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mvelez/jobdeck/internal/model"
)

// draftSchema is the JSON Schema enforced server-side via OpenAI structured
// outputs. It matches InferredDraft exactly so the response parses directly.
var draftSchema = map[string]any{
	"type":                 "object",
	"additionalProperties": false,
	"properties": map[string]any{
		"title":       map[string]any{"type": "string"},
		"company":     map[string]any{"type": "string"},
		"location":    map[string]any{"type": "string"},
		"url":         map[string]any{"type": "string"},
		"description": map[string]any{"type": "string"},
	},
	"required": []string{"title", "company", "location", "url", "description"},
}

// OpenAIClient talks to an OpenAI-compatible /v1/chat/completions endpoint.
// It implements both Generator (streamed application material) and
// DraftInferrer (structured extraction from pasted text).
type OpenAIClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewOpenAIClient(baseURL, apiKey, model string, httpClient *http.Client) *OpenAIClient {
	return &OpenAIClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		httpClient: httpClient,
	}
}

// chatRequest mirrors the /v1/chat/completions request body.
type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens"`
	Stream         bool            `json:"stream,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type       string         `json:"type"`
	JSONSchema jsonSchemaSpec `json:"json_schema"`
}

type jsonSchemaSpec struct {
	Name   string         `json:"name"`
	Schema map[string]any `json:"schema"`
}

// chatResponse mirrors the relevant fields of a non-streamed response.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// streamChunk mirrors one SSE data payload of a streamed response.
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Generate streams application material for the posting, invoking onDelta
// for each content delta in arrival order. Returns the accumulated text.
func (c *OpenAIClient) Generate(ctx context.Context, p model.Posting, onDelta func(delta string)) (string, error) {
	var promptBuf bytes.Buffer
	if err := ApplicationTemplate.Execute(&promptBuf, struct {
		Title, Company, Location, Description string
	}{p.Title, p.Company, p.Location, p.Description}); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}

	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: "You are a precise assistant drafting tailored job application material."},
			{Role: "user", Content: promptBuf.String()},
		},
		Temperature: 0.4,
		MaxTokens:   2048,
		Stream:      true,
	}

	resp, err := c.post(ctx, reqBody, "text/event-stream")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var full strings.Builder
	err = streamSSE(resp.Body, func(data string) error {
		if data == "[DONE]" {
			return nil
		}
		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			// Skip unparseable keep-alive frames.
			return nil
		}
		if chunk.Error != nil {
			return fmt.Errorf("llm stream error (%s): %s", chunk.Error.Type, chunk.Error.Message)
		}
		if len(chunk.Choices) == 0 {
			return nil
		}
		if delta := chunk.Choices[0].Delta.Content; delta != "" {
			full.WriteString(delta)
			onDelta(delta)
		}
		return nil
	})
	if err != nil {
		return full.String(), err
	}
	return full.String(), nil
}

// InferDraft extracts posting fields from pasted job-ad text using
// structured outputs, so the response is guaranteed-valid JSON conforming
// to draftSchema.
func (c *OpenAIClient) InferDraft(ctx context.Context, pasted string) (InferredDraft, error) {
	var promptBuf bytes.Buffer
	if err := DraftInferenceTemplate.Execute(&promptBuf, struct{ Pasted string }{pasted}); err != nil {
		return InferredDraft{}, fmt.Errorf("render prompt: %w", err)
	}

	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: "You are a precise structured data extractor for job postings."},
			{Role: "user", Content: promptBuf.String()},
		},
		Temperature: 0,
		MaxTokens:   1024,
		ResponseFormat: &responseFormat{
			Type: "json_schema",
			JSONSchema: jsonSchemaSpec{
				Name:   "posting_draft",
				Schema: draftSchema,
			},
		},
	}

	resp, err := c.post(ctx, reqBody, "application/json")
	if err != nil {
		return InferredDraft{}, err
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return InferredDraft{}, fmt.Errorf("read llm response: %w", err)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBytes, &chatResp); err != nil {
		return InferredDraft{}, fmt.Errorf("parse llm response: %w", err)
	}
	if chatResp.Error != nil {
		return InferredDraft{}, fmt.Errorf("llm error (%s): %s", chatResp.Error.Type, chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return InferredDraft{}, fmt.Errorf("llm returned no choices")
	}

	var draft InferredDraft
	if err := json.Unmarshal([]byte(chatResp.Choices[0].Message.Content), &draft); err != nil {
		return InferredDraft{}, fmt.Errorf("unmarshal draft JSON: %w", err)
	}
	return draft, nil
}

func (c *OpenAIClient) post(ctx context.Context, reqBody chatRequest, accept string) (*http.Response, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal llm request: %w", err)
	}

	url := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create llm request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", accept)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("llm request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("llm returned HTTP %d: %s", resp.StatusCode, string(raw))
	}
	return resp, nil
}

// streamSSE reads server-sent events from r and invokes onData with each
// data payload. Comment lines and event names are skipped; the chat
// completions stream only carries data frames.
func streamSSE(r io.Reader, onData func(data string) error) error {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		line = strings.TrimRight(line, "\r\n")

		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		if strings.HasPrefix(line, "data:") {
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if err := onData(data); err != nil {
				return err
			}
		}
	}
}
