package factory

import (
	"fmt"

	"resume-qa-be/pkg/llm"
	"resume-qa-be/pkg/llm/ollama"
	"resume-qa-be/pkg/llm/openai"
)

func NewLLMProvider(providerType, modelName, baseURL, apiKey string) (llm.LLMProvider, error) {
	switch providerType {
	case "ollama":
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		return ollama.NewOllamaProvider(baseURL, modelName), nil
	case "openai", "huggingface":
		if apiKey == "" {
			return nil, fmt.Errorf("%s provider requires an API key", providerType)
		}
		return openai.NewProvider(apiKey, baseURL, modelName), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
