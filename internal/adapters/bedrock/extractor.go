package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"go.uber.org/zap"

	"github.com/mikey/email-crm-sync/internal/core"
	"github.com/mikey/email-crm-sync/internal/utils"
)

// Extractor pulls CRM-relevant fields out of an email using Amazon Bedrock.
// The request and response shapes vary per model family, so both are switched
// on the model id prefix. It implements core.Extractor.
type Extractor struct {
	client        *bedrockruntime.Client
	modelID       string
	maxTokens     int
	temperature   float32
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
	promptFormat  string
}

// NewExtractor creates a new Bedrock extractor
func NewExtractor(
	client *bedrockruntime.Client,
	modelID string,
	maxTokens int,
	temperature float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *Extractor {
	return &Extractor{
		client:        client,
		modelID:       modelID,
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

	var payload []byte
	var err error
	if e.isAnthropicModel() {
		payload, err = json.Marshal(map[string]interface{}{
			"prompt":               prompt,
			"max_tokens_to_sample": e.maxTokens,
			"temperature":          e.temperature,
		})
	} else if e.isAmazonTitanModel() {
		payload, err = json.Marshal(map[string]interface{}{
			"inputText": prompt,
			"textGenerationConfig": map[string]interface{}{
				"maxTokenCount": e.maxTokens,
				"temperature":   e.temperature,
			},
		})
	} else {
		payload, err = json.Marshal(map[string]interface{}{
			"prompt":      prompt,
			"max_tokens":  e.maxTokens,
			"temperature": e.temperature,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	resp, err := e.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     &e.modelID,
		Body:        payload,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to invoke Bedrock model: %w", err)
	}

	responseText, err := e.responseText(resp.Body)
	if err != nil {
		return nil, err
	}

	fields, err := parseExtractionResponse(responseText)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("Extracted fields from email",
		zap.String("model", e.modelID),
		zap.Float64("confidence", fields.ConfidenceScore))
	return fields, nil
}

// responseText unwraps the model-family-specific response envelope.
func (e *Extractor) responseText(body []byte) (string, error) {
	if e.isAnthropicModel() {
		var claudeResp struct {
			Completion string `json:"completion"`
		}
		if err := json.Unmarshal(body, &claudeResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Claude response: %w", err)
		}
		return claudeResp.Completion, nil
	}

	if e.isAmazonTitanModel() {
		var titanResp struct {
			Results []struct {
				OutputText string `json:"outputText"`
			} `json:"results"`
		}
		if err := json.Unmarshal(body, &titanResp); err != nil {
			return "", fmt.Errorf("failed to unmarshal Titan response: %w", err)
		}
		if len(titanResp.Results) == 0 {
			return "", fmt.Errorf("empty response from Titan model")
		}
		return titanResp.Results[0].OutputText, nil
	}

	var genericResp struct {
		Output   string `json:"output"`
		Text     string `json:"text"`
		Response string `json:"response"`
	}
	if err := json.Unmarshal(body, &genericResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal generic response: %w", err)
	}
	switch {
	case genericResp.Output != "":
		return genericResp.Output, nil
	case genericResp.Text != "":
		return genericResp.Text, nil
	case genericResp.Response != "":
		return genericResp.Response, nil
	default:
		return string(body), nil
	}
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

// isAnthropicModel checks if the model is an Anthropic Claude model
func (e *Extractor) isAnthropicModel() bool {
	return strings.HasPrefix(e.modelID, "anthropic.claude")
}

// isAmazonTitanModel checks if the model is an Amazon Titan model
func (e *Extractor) isAmazonTitanModel() bool {
	return strings.HasPrefix(e.modelID, "amazon.titan")
}
