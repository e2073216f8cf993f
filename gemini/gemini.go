package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"danang-green/llm"
	"danang-green/models"
	"danang-green/parser"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type schema struct {
	Type        string            `json:"type"`
	Description string            `json:"description,omitempty"`
	Enum        []string          `json:"enum,omitempty"`
	Properties  map[string]schema `json:"properties,omitempty"`
	Required    []string          `json:"required,omitempty"`
}

type generationConfig struct {
	ResponseMimeType string  `json:"response_mime_type,omitempty"`
	ResponseSchema   *schema `json:"response_schema,omitempty"`
}

type geminiRequest struct {
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
	Contents         []content         `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text,omitempty"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// analysisSchema constrains the JSON the model returns for Analyze
var analysisSchema = &schema{
	Type: "OBJECT",
	Properties: map[string]schema{
		"isIssuePresent": {Type: "BOOLEAN", Description: "Hình ảnh có chứa một sự cố môi trường đáng báo cáo không?"},
		"issueType":      {Type: "STRING", Enum: llm.IssueTypeLabels},
		"description":    {Type: "STRING"},
		"priority":       {Type: "STRING", Enum: llm.PriorityLabels},
		"solution":       {Type: "STRING"},
	},
	Required: []string{"isIssuePresent", "issueType", "description", "priority", "solution"},
}

// Client talks to the Gemini generateContent REST endpoint
type Client struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
}

func NewClient(apiKey, model string) *Client {
	return NewClientWithBaseURL(apiKey, model, defaultBaseURL)
}

// NewClientWithBaseURL points the client at a different host, e.g. a test server
func NewClientWithBaseURL(apiKey, model, baseURL string) *Client {
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
	}
}

func (c *Client) SourceName() string {
	return "Gemini"
}

func imageParts(prompt string, imageData []byte, mimeType string) []part {
	parts := []part{{
		InlineData: &inlineData{
			MimeType: mimeType,
			Data:     base64.StdEncoding.EncodeToString(imageData),
		},
	}}
	return append(parts, part{Text: prompt})
}

// Analyze classifies the frame with a response schema and parses the result
func (c *Client) Analyze(ctx context.Context, imageData []byte, mimeType string) (*models.AIAnalysis, error) {
	reqBody := geminiRequest{
		GenerationConfig: &generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   analysisSchema,
		},
		Contents: []content{{Role: "user", Parts: imageParts(llm.AnalysisInstruction, imageData, mimeType)}},
	}
	text, err := c.generateContent(ctx, reqBody)
	if err != nil {
		return nil, err
	}
	return parser.ParseAnalysis(text)
}

// CheckIssue asks the yes/no question about the frame
func (c *Client) CheckIssue(ctx context.Context, imageData []byte, mimeType string) (bool, error) {
	reqBody := geminiRequest{
		Contents: []content{{Role: "user", Parts: imageParts(llm.CheckIssueInstruction, imageData, mimeType)}},
	}
	text, err := c.generateContent(ctx, reqBody)
	if err != nil {
		return false, err
	}
	return parser.ParseAffirmative(text), nil
}

func (c *Client) generateContent(ctx context.Context, body geminiRequest) (string, error) {
	// try v1beta first, then v1
	endpoints := []string{
		fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey),
		fmt.Sprintf("%s/v1/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey),
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for _, ep := range endpoints {
		text, err := c.post(ctx, ep, data)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return "", lastErr
}

func (c *Client) post(ctx context.Context, endpoint string, data []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(bodyBytes))
	}
	var gr geminiResponse
	if err := json.Unmarshal(bodyBytes, &gr); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(gr.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}
	for _, p := range gr.Candidates[0].Content.Parts {
		if p.Text != "" {
			return p.Text, nil
		}
	}
	return "", fmt.Errorf("no text part in response")
}
