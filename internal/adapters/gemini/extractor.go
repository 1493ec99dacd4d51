package gemini

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/mikey/email-crm-sync/internal/core"
	"github.com/mikey/email-crm-sync/internal/utils"
)

// Extractor pulls CRM-relevant fields out of an email using Google Gemini.
// It implements core.Extractor.
type Extractor struct {
	client        *genai.Client
	model         *genai.GenerativeModel
	modelName     string
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
	promptFormat  string
}

// NewExtractor creates a new Gemini extractor
func NewExtractor(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) (*Extractor, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(temperature)
	model.SetMaxOutputTokens(int32(maxTokens))
	model.ResponseMIMEType = "application/json"

	return &Extractor{
		client:        client,
		model:         model,
		modelName:     modelName,
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
	}, nil
}

// Close closes the Gemini client
func (e *Extractor) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

// Extract analyzes an email and returns the structured fields
func (e *Extractor) Extract(ctx context.Context, subject, body string) (*core.ExtractedFields, error) {
	processedBody := e.textProcessor.ProcessText(body, e.maxBodySize)
	prompt := fmt.Sprintf(e.promptFormat, subject, processedBody)

	resp, err := e.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content with Gemini: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty response from Gemini")
	}

	responseText := fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])
	fields, err := parseExtractionResponse(responseText)
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
