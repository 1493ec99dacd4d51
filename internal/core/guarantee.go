package core

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

// maxTitleLength bounds note titles below the remote field limit of 120.
const maxTitleLength = 110

const timestampLayout = "2006-01-02 15:04:05"

// GuaranteeEngine ensures every processed email produces exactly one
// traceable side effect: a note on the matched record, or on a deterministic
// fallback record when matching failed or the matched record rejected the
// note. The only unrecoverable outcome is the fallback target itself
// rejecting note creation.
type GuaranteeEngine struct {
	store  RecordStore
	logger *zap.Logger
	module string

	// pinnedFallbackID, when configured, overrides listing-based fallback
	// resolution so the fallback target survives remote reordering.
	pinnedFallbackID string

	// fallback is resolved once per run and reused.
	fallback *Record

	now func() time.Time
}

// NewGuaranteeEngine creates a new guarantee engine
func NewGuaranteeEngine(store RecordStore, module, pinnedFallbackID string, logger *zap.Logger) *GuaranteeEngine {
	return &GuaranteeEngine{
		store:            store,
		logger:           logger,
		module:           module,
		pinnedFallbackID: pinnedFallbackID,
		now:              time.Now,
	}
}

// CreateNoteFor attaches the email's note to the matched record, or to the
// fallback record when there is no match or the matched record rejects the
// note. The returned outcome always has Success set; no path returns without
// reaching a terminal state.
func (g *GuaranteeEngine) CreateNoteFor(ctx context.Context, match *MatchResult, email *EmailSignal, summary string) *ProcessingOutcome {
	if match.Found {
		title := truncateTitle(fmt.Sprintf("Email: %s", email.Subject))
		content := g.matchedNoteContent(summary, match.Method, email.MessageID)

		noteID, err := g.store.CreateNote(ctx, g.module, match.RecordID, title, content)
		if err == nil {
			g.logger.Info("Note created on matched record",
				zap.String("record_id", match.RecordID),
				zap.String("note_id", noteID),
				zap.String("method", match.Method))
			return &ProcessingOutcome{
				EmailID:        email.MessageID,
				Success:        true,
				TargetRecordID: match.RecordID,
				NoteID:         noteID,
				Strategy:       match.Method,
			}
		}

		// Never retried on the same record; retarget to the fallback.
		g.logger.Warn("Note creation failed on matched record, using fallback",
			zap.String("record_id", match.RecordID),
			zap.Error(err))
	}

	return g.createFallbackNote(ctx, email, summary, match.Method)
}

// createFallbackNote creates an explicitly-marked unmatched note on the
// fallback record so a human reviewer can re-triage.
func (g *GuaranteeEngine) createFallbackNote(ctx context.Context, email *EmailSignal, summary, attemptedMethod string) *ProcessingOutcome {
	target, err := g.resolveFallbackTarget(ctx)
	if err != nil {
		g.logger.Error("No fallback target available", zap.Error(err))
		return &ProcessingOutcome{
			EmailID:  email.MessageID,
			Success:  false,
			Strategy: attemptedMethod,
			Fallback: true,
			Err:      fmt.Errorf("no fallback target for note creation: %w", err),
		}
	}

	title := truncateTitle(fmt.Sprintf("Email (Unmatched): %s", email.Subject))
	content := g.fallbackNoteContent(summary, attemptedMethod, email.MessageID)

	noteID, err := g.store.CreateNote(ctx, g.module, target.ID, title, content)
	if err != nil {
		// Terminal failure: the one outcome that must surface to the caller.
		g.logger.Error("Fallback note creation failed",
			zap.String("record_id", target.ID),
			zap.Error(err))
		return &ProcessingOutcome{
			EmailID:        email.MessageID,
			Success:        false,
			TargetRecordID: target.ID,
			Strategy:       attemptedMethod,
			Fallback:       true,
			Err:            fmt.Errorf("fallback note creation failed: %w", err),
		}
	}

	g.logger.Info("Fallback note created",
		zap.String("record_id", target.ID),
		zap.String("record_name", target.Name),
		zap.String("note_id", noteID))
	return &ProcessingOutcome{
		EmailID:        email.MessageID,
		Success:        true,
		TargetRecordID: target.ID,
		NoteID:         noteID,
		Strategy:       attemptedMethod,
		Fallback:       true,
	}
}

// resolveFallbackTarget picks the fallback record: the pinned id when
// configured, otherwise the first record of a stable unfiltered listing.
// The target is cached for the rest of the run.
func (g *GuaranteeEngine) resolveFallbackTarget(ctx context.Context) (*Record, error) {
	if g.fallback != nil {
		return g.fallback, nil
	}

	if g.pinnedFallbackID != "" {
		record, err := g.store.GetRecord(ctx, g.module, g.pinnedFallbackID)
		if err != nil {
			return nil, fmt.Errorf("pinned fallback record %s: %w", g.pinnedFallbackID, err)
		}
		g.fallback = record
		return g.fallback, nil
	}

	records, err := g.store.ListRecords(ctx, g.module, 10)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("module %s has no records: %w", g.module, ErrNotFound)
	}
	g.fallback = &records[0]
	return g.fallback, nil
}

// matchedNoteContent embeds the summary, the matching method, and the source
// message id. The message id embedding supports later duplicate detection by
// text search.
func (g *GuaranteeEngine) matchedNoteContent(summary, method, messageID string) string {
	return fmt.Sprintf(`Email Summary:
%s

Matching Method: %s
Message ID: %s
Processed: %s
`, summary, method, messageID, g.now().Format(timestampLayout))
}

func (g *GuaranteeEngine) fallbackNoteContent(summary, attemptedMethod, messageID string) string {
	return fmt.Sprintf(`Email Summary:
%s

FALLBACK NOTE: no matching record was found for this email.
Attempted Method: %s
Message ID: %s
Processed: %s

Please review and reassign this note if needed.
`, summary, attemptedMethod, messageID, g.now().Format(timestampLayout))
}

// truncateTitle bounds a note title to the remote field limit, marking the
// cut with an ellipsis. The cut backs off to a rune boundary so the title is
// always valid UTF-8.
func truncateTitle(title string) string {
	if len(title) <= maxTitleLength {
		return title
	}
	cut := title[:maxTitleLength-3]
	for len(cut) > 0 && !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut + "..."
}
