package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const geminiModel = "gemini-2.5-flash"

type GeminiProvider struct {
	client *genai.Client
}

func NewGeminiProvider(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiProvider{client: client}, nil
}

func (p *GeminiProvider) Name() string {
	return geminiModel
}

func (p *GeminiProvider) SuggestClusterName(ctx context.Context, faceImages [][]byte, existingNames []string) (*NameSuggestion, error) {
	const maxRetries = 3

	if len(faceImages) == 0 {
		return nil, errors.New("no face images provided")
	}

	parts := []*genai.Part{
		{Text: buildClusterNamePrompt(existingNames) + "\n\nSuggest a name for the person in these face crops."},
	}
	for _, data := range faceImages {
		resized, err := shrinkThumb(data, 512)
		if err != nil {
			return nil, fmt.Errorf("failed to resize face image: %w", err)
		}
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{Data: resized, MIMEType: "image/jpeg"}})
	}

	contents := []*genai.Content{
		{Role: "user", Parts: parts},
	}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}

	var lastError error
	var lastResponse string

	for range maxRetries {
		result, err := p.client.Models.GenerateContent(ctx, geminiModel, contents, config)
		if err != nil {
			return nil, fmt.Errorf("gemini API error: %w", err)
		}

		content := result.Text()
		if content == "" {
			return nil, errors.New("no response from Gemini")
		}
		lastResponse = content

		var suggestion NameSuggestion
		if err := json.Unmarshal([]byte(content), &suggestion); err != nil {
			lastError = err
			contents = append(contents,
				&genai.Content{
					Role:  "model",
					Parts: []*genai.Part{{Text: content}},
				},
				&genai.Content{
					Role:  "user",
					Parts: []*genai.Part{{Text: fmt.Sprintf("JSON parse error: %v. Please fix the JSON and try again.", err)}},
				},
			)
			continue
		}
		return &suggestion, nil
	}

	return nil, fmt.Errorf("failed to parse suggestion JSON after %d attempts: %w (last response: %s)", maxRetries, lastError, lastResponse)
}
