package stubllm

import (
	"context"
	"crypto/sha256"
	"encoding/json"

	"danang-green/llm"
	"danang-green/models"
	"danang-green/parser"
)

// Client is a deterministic, no-network classifier intended for CI and local end-to-end runs.
// It emits schema-valid JSON so the parser and the whole pipeline are exercised.
type Client struct{}

func NewClient() *Client { return &Client{} }

func (c *Client) SourceName() string { return "Stub" }

// Analyze derives the judgment from a hash of the frame so the same input always gets the same answer.
// Roughly one frame in eight is judged clean.
func (c *Client) Analyze(ctx context.Context, imageData []byte, mimeType string) (*models.AIAnalysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sum := sha256.Sum256(append([]byte(mimeType), imageData...))

	present := sum[0]%8 != 0
	issueType := llm.IssueTypeLabels[int(sum[1])%5]
	if !present {
		issueType = "Không có sự cố"
	}
	out := map[string]any{
		"isIssuePresent": present,
		"issueType":      issueType,
		"description":    "Phân tích giả lập cho môi trường kiểm thử.",
		"priority":       llm.PriorityLabels[int(sum[2])%len(llm.PriorityLabels)],
		"solution":       "Kiểm tra hiện trường và xử lý.",
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	return parser.ParseAnalysis(string(b))
}

func (c *Client) CheckIssue(ctx context.Context, imageData []byte, mimeType string) (bool, error) {
	a, err := c.Analyze(ctx, imageData, mimeType)
	if err != nil {
		return false, err
	}
	if a.IssuePresent {
		return parser.ParseAffirmative("có"), nil
	}
	return parser.ParseAffirmative("không"), nil
}
