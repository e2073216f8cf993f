package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"danang-green/models"
)

// AnalysisResult is the raw classifier response before normalisation
type AnalysisResult struct {
	IsIssuePresent *bool  `json:"isIssuePresent"`
	IssueType      string `json:"issueType"`
	Description    string `json:"description"`
	Priority       string `json:"priority"`
	Solution       string `json:"solution"`
}

var issueTypeAliases = map[string]models.IssueType{
	"xả rác không đúng nơi quy định": models.IssueLittering,
	"xả rác":                         models.IssueLittering,
	"littering":                      models.IssueLittering,
	"ngập lụt":                       models.IssueFlooding,
	"flooding":                       models.IssueFlooding,
	"sạt lở đất":                     models.IssueLandslide,
	"landslide":                      models.IssueLandslide,
	"cần chăm sóc cây xanh":          models.IssueVegetation,
	"vegetation":                     models.IssueVegetation,
	"khác":                           models.IssueOther,
	"other":                          models.IssueOther,
}

// labels meaning "no issue"; only valid together with isIssuePresent=false
var noneAliases = map[string]bool{
	"không có sự cố": true,
	"none":           true,
}

var priorityAliases = map[string]models.Priority{
	"cao":        models.PriorityHigh,
	"high":       models.PriorityHigh,
	"trung bình": models.PriorityMedium,
	"medium":     models.PriorityMedium,
	"thấp":       models.PriorityLow,
	"low":        models.PriorityLow,
}

// extractJSONFromMarkdown extracts JSON from markdown code blocks
func extractJSONFromMarkdown(response string) string {
	marker := "```"

	startIdx := strings.Index(response, marker)
	if startIdx == -1 {
		// No code block found, try to find JSON object directly
		startIdx = strings.Index(response, "{")
		if startIdx == -1 {
			return response
		}
		endIdx := strings.LastIndex(response, "}")
		if endIdx == -1 || endIdx < startIdx {
			return response
		}
		return strings.TrimSpace(response[startIdx : endIdx+1])
	}

	endIdx := strings.Index(response[startIdx+len(marker):], marker)
	if endIdx == -1 {
		return response
	}
	endIdx += startIdx + len(marker)

	content := response[startIdx+len(marker) : endIdx]

	// Remove the language identifier if present (e.g., "json")
	lines := strings.Split(strings.TrimSpace(content), "\n")
	if len(lines) > 0 && (strings.TrimSpace(lines[0]) == "json" || strings.TrimSpace(lines[0]) == "") {
		content = strings.Join(lines[1:], "\n")
	}

	return strings.TrimSpace(content)
}

// ParseAnalysis parses a classifier response and maps it onto the closed category set.
// Every field of the response schema is required.
func ParseAnalysis(response string) (*models.AIAnalysis, error) {
	jsonContent := extractJSONFromMarkdown(strings.TrimSpace(response))

	var result AnalysisResult
	if err := json.Unmarshal([]byte(jsonContent), &result); err != nil {
		return nil, errors.New("failed to parse JSON response: " + err.Error())
	}

	if result.IsIssuePresent == nil {
		return nil, errors.New("isIssuePresent is required")
	}
	if strings.TrimSpace(result.IssueType) == "" {
		return nil, errors.New("issueType is required")
	}
	if strings.TrimSpace(result.Description) == "" {
		return nil, errors.New("description is required")
	}
	if strings.TrimSpace(result.Priority) == "" {
		return nil, errors.New("priority is required")
	}
	if strings.TrimSpace(result.Solution) == "" {
		return nil, errors.New("solution is required")
	}

	present := *result.IsIssuePresent
	issueType, err := normalizeIssueType(result.IssueType, present)
	if err != nil {
		return nil, err
	}
	priority, ok := priorityAliases[strings.ToLower(strings.TrimSpace(result.Priority))]
	if !ok {
		return nil, fmt.Errorf("unknown priority %q", result.Priority)
	}

	return &models.AIAnalysis{
		IssueType:    issueType,
		Description:  strings.TrimSpace(result.Description),
		Priority:     priority,
		Remedy:       strings.TrimSpace(result.Solution),
		IssuePresent: present,
	}, nil
}

func normalizeIssueType(label string, present bool) (models.IssueType, error) {
	key := strings.ToLower(strings.TrimSpace(label))
	if noneAliases[key] {
		if present {
			return "", fmt.Errorf("issueType %q contradicts isIssuePresent=true", label)
		}
		return models.IssueOther, nil
	}
	if t, ok := issueTypeAliases[key]; ok {
		return t, nil
	}
	return "", fmt.Errorf("unknown issueType %q", label)
}

// ParseAffirmative reads a free-text yes/no answer case-insensitively. The first
// decisive token wins: "yes", "true" and "có" are affirmative, "no", "false" and
// "không" are negative. An answer with neither is negative.
func ParseAffirmative(answer string) bool {
	fields := strings.FieldsFunc(strings.ToLower(answer), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, f := range fields {
		switch f {
		case "yes", "true", "có":
			return true
		case "no", "false", "không":
			return false
		}
	}
	return false
}
