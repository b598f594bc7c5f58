// Package receipt proposes expense fields from a receipt image or PDF.
// The proposal is untrusted pre-fill for the submission form; nothing
// here writes to the store and callers are free to override every field.
package receipt

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// maxPDFPages caps how many PDF pages are sent to the vision model
const maxPDFPages = 2

// ScanResult is the set of fields the model proposes for an expense
type ScanResult struct {
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Date        string          `json:"date"` // YYYY-MM-DD
	Merchant    string          `json:"merchant"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
}

// Scanner extracts expense fields from receipts using a vision model
type Scanner struct {
	client      *openai.Client
	model       string
	temperature float32
	logger      *zap.Logger
}

// NewScanner creates a new receipt scanner
func NewScanner(apiKey, model string, temperature float32, logger *zap.Logger) *Scanner {
	return &Scanner{
		client:      openai.NewClient(apiKey),
		model:       model,
		temperature: temperature,
		logger:      logger,
	}
}

// Scan sends the receipt to the vision model and returns the proposed
// fields. PDF receipts are rasterized first; anything else is assumed
// to be an image the model can read directly.
func (s *Scanner) Scan(ctx context.Context, data []byte, filename string) (*ScanResult, error) {
	images := [][]byte{data}
	if strings.EqualFold(filepath.Ext(filename), ".pdf") {
		pages, err := renderPDFPages(data, maxPDFPages)
		if err != nil {
			s.logger.Error("Failed to rasterize PDF receipt", zap.String("filename", filename), zap.Error(err))
			return nil, fmt.Errorf("failed to read PDF receipt: %w", err)
		}
		images = pages
	}

	contentParts := []openai.ChatMessagePart{{
		Type: openai.ChatMessagePartTypeText,
		Text: scanPrompt,
	}}
	for _, img := range images {
		contentParts = append(contentParts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    fmt.Sprintf("data:image/jpeg;base64,%s", base64.StdEncoding.EncodeToString(img)),
				Detail: openai.ImageURLDetailHigh,
			},
		})
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Temperature: s.temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You read receipts and respond with valid JSON only.",
			},
			{
				Role:         openai.ChatMessageRoleUser,
				MultiContent: contentParts,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		s.logger.Error("Receipt scan request failed", zap.Error(err))
		return nil, fmt.Errorf("receipt scan failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from vision model")
	}

	result, err := parseScanResult(resp.Choices[0].Message.Content)
	if err != nil {
		s.logger.Error("Failed to parse scan result",
			zap.Error(err),
			zap.String("content", resp.Choices[0].Message.Content))
		return nil, err
	}

	s.logger.Info("Receipt scanned",
		zap.String("merchant", result.Merchant),
		zap.String("amount", result.Amount.String()),
		zap.String("currency", result.Currency))

	return result, nil
}

// parseScanResult decodes the model's JSON answer
func parseScanResult(content string) (*ScanResult, error) {
	var result ScanResult
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, fmt.Errorf("failed to parse scan result: %w", err)
	}
	return &result, nil
}

const scanPrompt = `Examine this receipt and extract the expense fields.

Return a JSON object with this exact structure:
{
  "amount": number,
  "currency": "ISO 4217 code, e.g. USD",
  "date": "YYYY-MM-DD",
  "merchant": "string",
  "category": "one of: Meals, Travel, Accommodation, Software, Office Supplies, Entertainment, Other",
  "description": "one short line describing the purchase"
}

Extract exactly what you see. If a field is not visible, use an empty
string for text fields and 0 for the amount.`
