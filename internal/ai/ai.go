// Package ai builds multimodal model requests from a conversion result. It
// never talks to a provider itself.
package ai

import (
	"github.com/google/generative-ai-go/genai"
	"github.com/sashabaranov/go-openai"

	"github.com/gnemet/SlideLens/internal/pipeline"
)

// DefaultModel is used when a caller does not pick one.
const DefaultModel = "meta-llama/llama-4-maverick:free"

type Model struct {
	Label string `json:"label"`
	ID    string `json:"id"`
}

// Models are the selectable OpenRouter vision models, in display order.
var Models = []Model{
	{"Meta: Llama 4 Maverick", "meta-llama/llama-4-maverick:free"},
	{"Meta: Llama 4 Scout", "meta-llama/llama-4-scout:free"},
	{"Mistral: Mistral Small 3.1 24B", "mistralai/mistral-small-3.1-24b-instruct:free"},
	{"Google: Gemma 3 27B", "google/gemma-3-27b-it:free"},
	{"Qwen: Qwen2.5 VL 72B Instruct", "qwen/qwen2.5-vl-72b-instruct:free"},
	{"Google: Gemini 2.5 Pro Experimental", "google/gemini-2.5-pro-exp-03-25"},
}

// LookupModel resolves a model by id or label.
func LookupModel(name string) (Model, bool) {
	for _, m := range Models {
		if m.ID == name || m.Label == name {
			return m, true
		}
	}
	return Model{}, false
}

// PromptText appends the font report to prompt. PDFs carry no font data, so
// the prompt is returned as is.
func PromptText(prompt string, res *pipeline.Result) string {
	if res == nil || res.Format != pipeline.FormatPPTX || len(res.Fonts) == 0 {
		return prompt
	}
	return prompt + "\n\nFonts per slide:\n" + res.Fonts.String()
}

// OpenAIMessage is a single user message with the prompt and the composite image.
func OpenAIMessage(prompt string, res *pipeline.Result) openai.ChatCompletionMessage {
	parts := []openai.ChatMessagePart{{
		Type: openai.ChatMessagePartTypeText,
		Text: PromptText(prompt, res),
	}}
	if res != nil && res.Encoded != nil {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    res.Encoded.DataURL(),
				Detail: openai.ImageURLDetailAuto,
			},
		})
	}
	return openai.ChatCompletionMessage{
		Role:         openai.ChatMessageRoleUser,
		MultiContent: parts,
	}
}

// OpenAIRequest wraps OpenAIMessage into a chat completion request. model may
// be a listed id or its display label; anything unlisted is sent as given.
func OpenAIRequest(model, prompt string, res *pipeline.Result) openai.ChatCompletionRequest {
	if model == "" {
		model = DefaultModel
	}
	if m, ok := LookupModel(model); ok {
		model = m.ID
	}
	return openai.ChatCompletionRequest{
		Model:    model,
		Messages: []openai.ChatCompletionMessage{OpenAIMessage(prompt, res)},
	}
}

// GeminiParts is the content for a Gemini GenerateContent call.
func GeminiParts(prompt string, res *pipeline.Result) []genai.Part {
	parts := []genai.Part{genai.Text(PromptText(prompt, res))}
	if res != nil && res.Encoded != nil {
		parts = append(parts, genai.ImageData("jpeg", res.Encoded.Bytes()))
	}
	return parts
}
