package parser

import (
	"testing"

	"danang-green/models"
)

func TestParseAnalysis(t *testing.T) {
	tests := []struct {
		name     string
		response string
		wantErr  bool
		expected *models.AIAnalysis
	}{
		{
			name: "valid JSON response",
			response: `{
				"isIssuePresent": true,
				"issueType": "Xả rác không đúng nơi quy định",
				"description": "Túi rác bị vứt bên lề đường gần cầu Rồng.",
				"priority": "Cao",
				"solution": "Tổ chức thu gom và lắp thêm thùng rác."
			}`,
			expected: &models.AIAnalysis{
				IssueType:    models.IssueLittering,
				Description:  "Túi rác bị vứt bên lề đường gần cầu Rồng.",
				Priority:     models.PriorityHigh,
				Remedy:       "Tổ chức thu gom và lắp thêm thùng rác.",
				IssuePresent: true,
			},
		},
		{
			name: "JSON in markdown code block",
			response: "Here is the analysis:\n```json\n" + `{
				"isIssuePresent": true,
				"issueType": "Ngập lụt",
				"description": "Street under water",
				"priority": "Trung bình",
				"solution": "Clear the drains"
			}` + "\n```\nThanks",
			expected: &models.AIAnalysis{
				IssueType:    models.IssueFlooding,
				Description:  "Street under water",
				Priority:     models.PriorityMedium,
				Remedy:       "Clear the drains",
				IssuePresent: true,
			},
		},
		{
			name:     "english labels",
			response: `{"isIssuePresent": true, "issueType": "Landslide", "description": "Slope collapse", "priority": "low", "solution": "Fence off"}`,
			expected: &models.AIAnalysis{
				IssueType:    models.IssueLandslide,
				Description:  "Slope collapse",
				Priority:     models.PriorityLow,
				Remedy:       "Fence off",
				IssuePresent: true,
			},
		},
		{
			name:     "no issue is normalised to other",
			response: `{"isIssuePresent": false, "issueType": "Không có sự cố", "description": "Bãi biển sạch", "priority": "Thấp", "solution": "Không cần hành động."}`,
			expected: &models.AIAnalysis{
				IssueType:    models.IssueOther,
				Description:  "Bãi biển sạch",
				Priority:     models.PriorityLow,
				Remedy:       "Không cần hành động.",
				IssuePresent: false,
			},
		},
		{
			name:     "none contradicts issue present",
			response: `{"isIssuePresent": true, "issueType": "none", "description": "x", "priority": "Low", "solution": "y"}`,
			wantErr:  true,
		},
		{
			name:     "invalid JSON",
			response: `{"isIssuePresent": true`,
			wantErr:  true,
		},
		{
			name:     "missing isIssuePresent",
			response: `{"issueType": "Ngập lụt", "description": "x", "priority": "Cao", "solution": "y"}`,
			wantErr:  true,
		},
		{
			name:     "missing solution",
			response: `{"isIssuePresent": true, "issueType": "Ngập lụt", "description": "x", "priority": "Cao"}`,
			wantErr:  true,
		},
		{
			name:     "missing description",
			response: `{"isIssuePresent": true, "issueType": "Ngập lụt", "description": "", "priority": "Cao", "solution": "y"}`,
			wantErr:  true,
		},
		{
			name:     "unknown category",
			response: `{"isIssuePresent": true, "issueType": "Volcano", "description": "x", "priority": "Cao", "solution": "y"}`,
			wantErr:  true,
		},
		{
			name:     "unknown priority",
			response: `{"isIssuePresent": true, "issueType": "Khác", "description": "x", "priority": "Urgent", "solution": "y"}`,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseAnalysis(tt.response)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseAnalysis() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}
			if *result != *tt.expected {
				t.Errorf("ParseAnalysis() = %+v, want %+v", *result, *tt.expected)
			}
		})
	}
}

func TestExtractJSONFromMarkdown(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain object", `{"a":1}`, `{"a":1}`},
		{"object with prose", `Sure! {"a":1} done`, `{"a":1}`},
		{"fenced json", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"fenced without language", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"no json", "nothing here", "nothing here"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractJSONFromMarkdown(tt.input); got != tt.expected {
				t.Errorf("extractJSONFromMarkdown() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestParseAffirmative(t *testing.T) {
	tests := []struct {
		answer string
		want   bool
	}{
		{"yes", true},
		{"Yes.", true},
		{"TRUE", true},
		{"Có", true},
		{"có, có rác", true},
		{"không", false},
		{"no", false},
		{"", false},
		{"maybe yes", true},
		{"The answer is yes.", true},
		{"I think it is true", true},
		{"Không có rác", false},
		{"No, that is not true", false},
		{"unsure", false},
	}
	for _, tt := range tests {
		if got := ParseAffirmative(tt.answer); got != tt.want {
			t.Errorf("ParseAffirmative(%q) = %v, want %v", tt.answer, got, tt.want)
		}
	}
}
