package service

import (
	"fmt"

	"danang-green/config"
	"danang-green/gemini"
	"danang-green/llm"
	"danang-green/openai"
	"danang-green/stubllm"

	"github.com/apex/log"
)

// NewClassifier builds the provider named by cfg.LLMProvider
func NewClassifier(cfg *config.Config) (llm.Classifier, error) {
	var (
		client llm.Classifier
		model  string
	)
	switch cfg.LLMProvider {
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for LLM_PROVIDER=gemini")
		}
		client, model = gemini.NewClient(cfg.GeminiAPIKey, cfg.GeminiModel), cfg.GeminiModel
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for LLM_PROVIDER=openai")
		}
		client, model = openai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIModel), cfg.OpenAIModel
	case "stub":
		client, model = stubllm.NewClient(), "deterministic"
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}
	log.Infof("Classifier provider=%s model=%s", client.SourceName(), model)
	return client, nil
}
