package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"danang-green/llm"
	"danang-green/models"
	"danang-green/parser"
)

const openAIEndpoint = "https://api.openai.com/v1/chat/completions"

type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type TextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type ImageURL struct {
	URL string `json:"url"`
}

type ImageContent struct {
	Type     string   `json:"type"`
	ImageURL ImageURL `json:"image_url"`
}

type ResponseFormat struct {
	Type string `json:"type"`
}

type ChatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

type ChatResponse struct {
	Choices []struct {
		Message struct {
			Content any `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Client represents an OpenAI API client
type Client struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewClient creates a new OpenAI client
func NewClient(apiKey, model string) *Client {
	return NewClientWithEndpoint(apiKey, model, openAIEndpoint)
}

// NewClientWithEndpoint creates a client posting to a custom chat completions URL
func NewClientWithEndpoint(apiKey, model, endpoint string) *Client {
	return &Client{
		apiKey:   apiKey,
		model:    model,
		endpoint: endpoint,
		client:   &http.Client{},
	}
}

// SourceName identifies this provider in logs and metrics
func (c *Client) SourceName() string {
	return "ChatGPT"
}

// encodeImageToDataURL converts image bytes to a base64 data URL
func encodeImageToDataURL(imageData []byte, mimeType string) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(imageData))
}

func (c *Client) visionRequest(prompt string, imageData []byte, mimeType string) ChatRequest {
	return ChatRequest{
		Model: c.model,
		Messages: []Message{
			{
				Role:    "system",
				Content: []any{TextContent{Type: "text", Text: prompt}},
			},
			{
				Role: "user",
				Content: []any{
					ImageContent{Type: "image_url", ImageURL: ImageURL{URL: encodeImageToDataURL(imageData, mimeType)}},
				},
			},
		},
	}
}

// Analyze classifies an image using OpenAI's vision API
func (c *Client) Analyze(ctx context.Context, imageData []byte, mimeType string) (*models.AIAnalysis, error) {
	reqBody := c.visionRequest(llm.AnalysisInstruction, imageData, mimeType)
	reqBody.ResponseFormat = &ResponseFormat{Type: "json_object"}
	text, err := c.complete(ctx, reqBody)
	if err != nil {
		return nil, err
	}
	return parser.ParseAnalysis(text)
}

// CheckIssue asks the yes/no question about the image
func (c *Client) CheckIssue(ctx context.Context, imageData []byte, mimeType string) (bool, error) {
	text, err := c.complete(ctx, c.visionRequest(llm.CheckIssueInstruction, imageData, mimeType))
	if err != nil {
		return false, err
	}
	return parser.ParseAffirmative(text), nil
}

func (c *Client) complete(ctx context.Context, reqBody ChatRequest) (string, error) {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	content := chatResp.Choices[0].Message.Content
	if contentStr, ok := content.(string); ok {
		return contentStr, nil
	}

	// If content is not a string, try to marshal it back to JSON
	contentJSON, err := json.Marshal(content)
	if err != nil {
		return "", fmt.Errorf("failed to marshal content: %w", err)
	}

	return string(contentJSON), nil
}
