package openai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/mikey/email-crm-sync/internal/core"
	"github.com/mikey/email-crm-sync/internal/utils"
)

// Extractor pulls CRM-relevant fields out of an email using the OpenAI chat
// completion API. It implements core.Extractor.
type Extractor struct {
	client        *openai.Client
	modelName     string
	maxTokens     int
	temperature   float32
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
	promptFormat  string
}

// NewExtractor creates a new OpenAI extractor
func NewExtractor(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *Extractor {
	client := openai.NewClient(apiKey)

	return &Extractor{
		client:        client,
		modelName:     modelName,
		maxTokens:     maxTokens,
		temperature:   temperature,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
		promptFormat: `You are an assistant that extracts CRM-relevant details from property development emails.
Analyze the email and respond with a JSON object containing:
- property_address: string (the property address mentioned, or empty string)
- development_name: string (the development or project name, or empty string)
- client_name: string (the client or contact's organisation, or empty string)
- company_name: string (the sender's company, or empty string)
- summary: string (2-3 sentence summary of the email)
- confidence_score: number between 0 and 1 (how confident you are in the extracted fields)

Email:
Subject: %s
Body:
%s

Respond only with the JSON object and nothing else.`,
	}
}

// Extract analyzes an email and returns the structured fields
func (e *Extractor) Extract(ctx context.Context, subject, body string) (*core.ExtractedFields, error) {
	processedBody := e.textProcessor.ProcessText(body, e.maxBodySize)
	prompt := fmt.Sprintf(e.promptFormat, subject, processedBody)

	req := openai.ChatCompletionRequest{
		Model: e.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You extract structured data from emails. Respond only with JSON.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   e.maxTokens,
		Temperature: e.temperature,
	}
	responseFormat := openai.ChatCompletionResponseFormat{
		Type: "json_object",
	}
	req.ResponseFormat = &responseFormat

	resp, err := e.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from OpenAI")
	}

	fields, err := parseExtractionResponse(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("Extracted fields from email",
		zap.String("model", e.modelName),
		zap.Float64("confidence", fields.ConfidenceScore))
	return fields, nil
}

// parseExtractionResponse decodes the model's JSON reply, tolerating prose
// around the object by cutting out the outermost brace pair.
func parseExtractionResponse(responseText string) (*core.ExtractedFields, error) {
	var fields core.ExtractedFields
	if err := json.Unmarshal([]byte(responseText), &fields); err == nil {
		return &fields, nil
	}

	jsonStart := -1
	jsonEnd := -1
	for i := 0; i < len(responseText); i++ {
		if responseText[i] == '{' {
			jsonStart = i
			break
		}
	}
	for i := len(responseText) - 1; i >= 0; i-- {
		if responseText[i] == '}' {
			jsonEnd = i + 1
			break
		}
	}
	if jsonStart < 0 || jsonEnd <= jsonStart {
		return nil, fmt.Errorf("no JSON object in model response")
	}

	if err := json.Unmarshal([]byte(responseText[jsonStart:jsonEnd]), &fields); err != nil {
		return nil, fmt.Errorf("failed to parse model response as JSON: %w", err)
	}
	return &fields, nil
}
