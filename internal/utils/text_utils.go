package utils

import (
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

// TextProcessor prepares raw email bodies for prompting. Bodies arrive from
// MIME decoding and can carry invalid byte sequences, runaway whitespace from
// HTML-to-text conversion, and sizes far beyond what a prompt budget allows.
type TextProcessor struct {
	logger *zap.Logger
}

// NewTextProcessor creates a new TextProcessor
func NewTextProcessor(logger *zap.Logger) *TextProcessor {
	return &TextProcessor{
		logger: logger,
	}
}

// TruncateText truncates text to maxSize bytes without splitting a UTF-8
// sequence, appending a marker so the model knows the body was cut.
func (tp *TextProcessor) TruncateText(text string, maxSize int) string {
	if maxSize <= 0 || len(text) <= maxSize {
		return text
	}

	truncated := text[:maxSize]
	for !utf8.ValidString(truncated) && len(truncated) > 0 {
		truncated = truncated[:len(truncated)-1]
	}

	tp.logger.Debug("Email body truncated for prompt",
		zap.Int("original_size", len(text)),
		zap.Int("truncated_size", len(truncated)),
		zap.Int("max_size", maxSize))

	return truncated + "\n[... email body truncated ...]"
}

// SanitizeUTF8 drops invalid UTF-8 sequences from the text.
func (tp *TextProcessor) SanitizeUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}

	result := make([]rune, 0, len(text))
	for i, r := range text {
		if r == utf8.RuneError {
			_, size := utf8.DecodeRuneInString(text[i:])
			if size == 1 {
				continue
			}
		}
		result = append(result, r)
	}

	tp.logger.Debug("Email body sanitized",
		zap.Int("original_size", len(text)),
		zap.Int("sanitized_size", len(string(result))))

	return string(result)
}

// CollapseWhitespace squeezes blank-line runs left behind by HTML-to-text
// conversion so the prompt budget is spent on content.
func (tp *TextProcessor) CollapseWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		trimmed := strings.TrimRight(line, " \t\r")
		if trimmed == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, trimmed)
	}
	return strings.Join(out, "\n")
}

// ProcessText runs the full pipeline: collapse, sanitize, then truncate.
func (tp *TextProcessor) ProcessText(text string, maxSize int) string {
	collapsed := tp.CollapseWhitespace(text)
	sanitized := tp.SanitizeUTF8(collapsed)
	return tp.TruncateText(sanitized, maxSize)
}
