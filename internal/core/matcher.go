package core

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// categoryOrder fixes the precedence of signal categories. The first
// category to hit determines the confidence tier, so terms are probed
// category by category rather than flattened into one pass.
var categoryOrder = [][]TermSource{
	{SourceDomain, SourceUsername},
	{SourceAddressPart},
	{SourceCompanyPart},
	{SourceDevelopmentPart},
	{SourceSubjectKeyword},
}

// MatchingEngine drives extracted search terms through the query cascade in
// strategy order, stopping at the first hit. The search is greedy and
// non-backtracking: once a category yields a result it is final, even if a
// later category might have matched better. Precision is traded for call
// count because every probe is a remote round-trip.
type MatchingEngine struct {
	extractor *SignalExtractor
	cascade   *QueryCascade
	module    string
	logger    *zap.Logger
}

// NewMatchingEngine creates a new matching engine
func NewMatchingEngine(extractor *SignalExtractor, cascade *QueryCascade, module string, logger *zap.Logger) *MatchingEngine {
	return &MatchingEngine{
		extractor: extractor,
		cascade:   cascade,
		module:    module,
		logger:    logger,
	}
}

// Match finds the best candidate record for an email. It returns a no-match
// result rather than an error when every category misses; only
// non-recoverable failures (permission problems) surface as errors.
func (m *MatchingEngine) Match(ctx context.Context, email *EmailSignal, fields *ExtractedFields) (*MatchResult, error) {
	terms := m.extractor.Extract(email, fields)
	if len(terms) == 0 {
		m.logger.Info("No usable search signals in email",
			zap.String("message_id", email.MessageID))
		return NoMatch(), nil
	}

	for _, category := range categoryOrder {
		categoryTerms := filterBySources(terms, category)
		if len(categoryTerms) == 0 {
			continue
		}

		records, hit, err := m.cascade.ProbeMany(ctx, categoryTerms, m.module, 0)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			continue
		}

		result := &MatchResult{
			Found:       true,
			RecordID:    records[0].ID,
			RecordLabel: records[0].Name,
			Method:      methodFor(*hit),
			Confidence:  confidenceFor(*hit),
		}
		m.logger.Info("Matched email to record",
			zap.String("message_id", email.MessageID),
			zap.String("record_id", result.RecordID),
			zap.String("method", result.Method),
			zap.String("confidence", string(result.Confidence)))
		return result, nil
	}

	m.logger.Info("No record matched email",
		zap.String("message_id", email.MessageID))
	return NoMatch(), nil
}

func filterBySources(terms []SearchTerm, sources []TermSource) []SearchTerm {
	var out []SearchTerm
	for _, term := range terms {
		for _, source := range sources {
			if term.Source == source {
				out = append(out, term)
				break
			}
		}
	}
	return out
}

// confidenceFor assigns the tier from the term that produced the hit: the
// sender domain and the first address token are high, later tokens and the
// sender username are medium, subject keywords are low.
func confidenceFor(term SearchTerm) Confidence {
	switch term.Source {
	case SourceDomain:
		return ConfidenceHigh
	case SourceUsername:
		return ConfidenceMedium
	case SourceAddressPart:
		if term.Rank == 2 {
			return ConfidenceHigh
		}
		return ConfidenceMedium
	case SourceCompanyPart:
		if term.Rank == 5 {
			return ConfidenceHigh
		}
		return ConfidenceMedium
	case SourceDevelopmentPart:
		if term.Rank == 7 {
			return ConfidenceHigh
		}
		return ConfidenceMedium
	case SourceSubjectKeyword:
		return ConfidenceLow
	default:
		return ConfidenceNone
	}
}

// methodFor builds the human-readable provenance string recorded in notes.
func methodFor(term SearchTerm) string {
	switch term.Source {
	case SourceDomain:
		return fmt.Sprintf("Email domain: %s", term.Value)
	case SourceUsername:
		return fmt.Sprintf("Email username: %s", term.Value)
	case SourceAddressPart:
		return fmt.Sprintf("Address part: %s", term.Value)
	case SourceCompanyPart:
		return fmt.Sprintf("Company part: %s", term.Value)
	case SourceDevelopmentPart:
		return fmt.Sprintf("Development part: %s", term.Value)
	case SourceSubjectKeyword:
		return fmt.Sprintf("Subject keyword: %s", term.Value)
	default:
		return string(term.Source)
	}
}
