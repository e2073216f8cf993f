package llm

import (
	"context"

	"danang-green/models"
)

// Classifier abstracts the content validation provider used by the submission pipeline.
// Implementations must be concurrency-safe: Analyze and CheckIssue are called in parallel.
type Classifier interface {
	// Analyze classifies one still frame and returns the structured judgment.
	// Transport failures and responses missing a required field are returned as errors.
	Analyze(ctx context.Context, image []byte, mimeType string) (*models.AIAnalysis, error)
	// CheckIssue asks a yes/no question about the same frame and reports whether the answer is affirmative.
	CheckIssue(ctx context.Context, image []byte, mimeType string) (bool, error)
	// SourceName returns a short provider label for logs and metrics (e.g., "Gemini", "ChatGPT").
	SourceName() string
}

// AnalysisInstruction is the prompt sent with every frame.
const AnalysisInstruction = `Bạn là một chuyên gia giám sát môi trường bằng AI cho thành phố Đà Nẵng, Việt Nam. Phân tích hình ảnh này và trả về một đối tượng JSON.
1. Đầu tiên, xác định xem hình ảnh có chứa một sự cố môi trường thực sự như rác thải, ngập lụt, hoặc sạt lở đất không ('isIssuePresent').
2. Nếu có sự cố, hãy phân tích chi tiết: xác định loại sự cố ('issueType'), cung cấp mô tả ('description'), phân loại mức độ ưu tiên ('priority'), và đề xuất một giải pháp cụ thể ('solution').
3. Nếu không có sự cố, hãy trả về 'isIssuePresent: false' và điền các trường còn lại với giá trị mặc định phù hợp (ví dụ: issueType: 'Không có sự cố').
Trả về JSON với các trường: isIssuePresent (boolean), issueType (một trong: "Xả rác không đúng nơi quy định", "Ngập lụt", "Sạt lở đất", "Cần chăm sóc cây xanh", "Khác", "Không có sự cố"), description, priority (một trong: "Cao", "Trung bình", "Thấp"), solution.`

// CheckIssueInstruction is the auxiliary binary question.
const CheckIssueInstruction = `Hình ảnh này có chứa rác thải hoặc một sự cố môi trường cần báo cáo không? Chỉ trả lời "có" hoặc "không".`

// IssueTypeLabels are the category labels the provider is asked to pick from
var IssueTypeLabels = []string{
	"Xả rác không đúng nơi quy định",
	"Ngập lụt",
	"Sạt lở đất",
	"Cần chăm sóc cây xanh",
	"Khác",
	"Không có sự cố",
}

// PriorityLabels are the priority labels the provider is asked to pick from
var PriorityLabels = []string{"Cao", "Trung bình", "Thấp"}
