package gemini

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"danang-green/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textResponse(text string) string {
	b, _ := json.Marshal(map[string]any{
		"candidates": []any{
			map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": text}}}},
		},
	})
	return string(b)
}

func TestAnalyzeFallsBackToV1(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if strings.HasPrefix(r.URL.Path, "/v1beta/") {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"response_mime_type":"application/json"`)
		assert.Contains(t, string(body), `"mime_type":"image/jpeg"`)
		io.WriteString(w, textResponse(`{"isIssuePresent":true,"issueType":"Ngập lụt","description":"Flooded street","priority":"Cao","solution":"Pump water"}`))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("k", "gemini-2.5-flash", srv.URL)
	a, err := c.Analyze(context.Background(), []byte{0xff, 0xd8}, "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, models.IssueFlooding, a.IssueType)
	assert.Equal(t, models.PriorityHigh, a.Priority)
	assert.True(t, a.IssuePresent)
	assert.Equal(t, []string{"/v1beta/models/gemini-2.5-flash:generateContent", "/v1/models/gemini-2.5-flash:generateContent"}, paths)
}

func TestAnalyzeMissingField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, textResponse(`{"isIssuePresent":true,"issueType":"Ngập lụt"}`))
	}))
	defer srv.Close()

	_, err := NewClientWithBaseURL("k", "m", srv.URL).Analyze(context.Background(), []byte{1}, "image/png")
	assert.Error(t, err)
}

func TestCheckIssue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, textResponse("Có."))
	}))
	defer srv.Close()

	ok, err := NewClientWithBaseURL("k", "m", srv.URL).CheckIssue(context.Background(), []byte{1}, "image/png")
	require.NoError(t, err)
	assert.True(t, ok)
}
