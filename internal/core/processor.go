package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EmailProcessor orchestrates one full pass over the mailbox: idempotency
// check, AI extraction, matching, guaranteed note creation, attachment relay,
// and completion marking. Emails are processed strictly one at a time; a
// failed email is logged and skipped without being marked done, so the next
// poll retries it.
type EmailProcessor struct {
	mailbox   Mailbox
	extractor Extractor
	matcher   *MatchingEngine
	guarantee *GuaranteeEngine
	tracker   ProcessedTracker
	store     RecordStore
	module    string
	logger    *zap.Logger
	now       func() time.Time
}

// NewEmailProcessor creates a new email processor
func NewEmailProcessor(
	mailbox Mailbox,
	extractor Extractor,
	matcher *MatchingEngine,
	guarantee *GuaranteeEngine,
	tracker ProcessedTracker,
	store RecordStore,
	module string,
	logger *zap.Logger,
) *EmailProcessor {
	return &EmailProcessor{
		mailbox:   mailbox,
		extractor: extractor,
		matcher:   matcher,
		guarantee: guarantee,
		tracker:   tracker,
		store:     store,
		module:    module,
		logger:    logger,
		now:       time.Now,
	}
}

// ProcessBatch fetches candidate messages and processes each to a terminal
// outcome. Cancellation is cooperative: the current email finishes before
// the loop exits.
func (p *EmailProcessor) ProcessBatch(ctx context.Context) (*BatchReport, error) {
	refs, err := p.mailbox.ListCandidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidate messages: %w", err)
	}

	report := &BatchReport{RunID: uuid.NewString()}
	p.logger.Info("Starting processing run",
		zap.String("run_id", report.RunID),
		zap.Int("candidates", len(refs)))

	for _, ref := range refs {
		if ctx.Err() != nil {
			p.logger.Info("Processing run cancelled",
				zap.String("run_id", report.RunID))
			break
		}

		outcome, duplicate, err := p.processOne(ctx, ref.ID)
		switch {
		case duplicate:
			report.Duplicates++
		case err != nil:
			report.Failed++
			p.logger.Error("Failed to process email",
				zap.String("message_id", ref.ID),
				zap.Error(err))
		case outcome.Fallback:
			report.Processed++
			report.Fallback++
		default:
			report.Processed++
			report.Matched++
		}
	}

	p.logger.Info("Processing run complete",
		zap.String("run_id", report.RunID),
		zap.Int("processed", report.Processed),
		zap.Int("matched", report.Matched),
		zap.Int("fallback", report.Fallback),
		zap.Int("duplicates", report.Duplicates),
		zap.Int("failed", report.Failed))
	return report, nil
}

// processOne drives a single email to a terminal outcome.
func (p *EmailProcessor) processOne(ctx context.Context, id string) (*ProcessingOutcome, bool, error) {
	msg, err := p.mailbox.FetchMessage(ctx, id)
	if err != nil {
		return nil, false, fmt.Errorf("failed to fetch message: %w", err)
	}

	processed, err := p.tracker.IsProcessed(ctx, msg.MessageID)
	if err != nil {
		// An unreadable tracker must not lose mail; assume unprocessed.
		p.logger.Warn("Processed check failed, assuming unprocessed",
			zap.String("message_id", msg.MessageID),
			zap.Error(err))
	} else if processed {
		p.logger.Info("Email already processed, skipping",
			zap.String("message_id", msg.MessageID))
		return nil, true, nil
	}

	email := &EmailSignal{
		MessageID: msg.MessageID,
		Subject:   msg.Subject,
		Body:      msg.Body,
		Sender:    ExtractSenderAddress(msg.Sender),
	}

	fields, err := p.extractor.Extract(ctx, msg.Subject, msg.Body)
	if err != nil {
		// Extraction is best-effort; matching still has the sender and
		// subject signals, and the guarantee still holds.
		p.logger.Warn("AI extraction failed, continuing with header signals only",
			zap.String("message_id", msg.MessageID),
			zap.Error(err))
		fields = &ExtractedFields{}
	}

	summary := fields.Summary
	if summary == "" {
		summary = fmt.Sprintf("Email: %s", msg.Subject)
	}

	match, err := p.matcher.Match(ctx, email, fields)
	if err != nil {
		return nil, false, fmt.Errorf("matching failed: %w", err)
	}

	outcome := p.guarantee.CreateNoteFor(ctx, match, email, summary)
	if !outcome.Success {
		return outcome, false, outcome.Err
	}

	p.relayAttachments(ctx, msg, outcome.TargetRecordID)

	if err := p.tracker.MarkProcessed(ctx, msg.MessageID, outcome.TargetRecordID, p.now()); err != nil {
		p.logger.Warn("Failed to record processed message id",
			zap.String("message_id", msg.MessageID),
			zap.Error(err))
	}
	if err := p.mailbox.MarkDone(ctx, id); err != nil {
		p.logger.Warn("Failed to mark message done",
			zap.String("message_id", msg.MessageID),
			zap.Error(err))
	}

	return outcome, false, nil
}

// relayAttachments uploads the email's attachments to the note's target
// record. Per-attachment failures are logged and never fail the email.
func (p *EmailProcessor) relayAttachments(ctx context.Context, msg *InboundEmail, recordID string) {
	for _, att := range msg.Attachments {
		if err := p.store.UploadAttachment(ctx, p.module, recordID, att.Filename, att.Content); err != nil {
			p.logger.Error("Failed to upload attachment",
				zap.String("message_id", msg.MessageID),
				zap.String("filename", att.Filename),
				zap.Error(err))
			continue
		}
		p.logger.Info("Uploaded attachment",
			zap.String("message_id", msg.MessageID),
			zap.String("filename", att.Filename))
	}
}

// HealthCheck verifies the record store is reachable, the target module
// exists, and word search answers.
func (p *EmailProcessor) HealthCheck(ctx context.Context) error {
	if err := p.store.CheckHealth(ctx, p.module); err != nil {
		return fmt.Errorf("record store health check failed: %w", err)
	}
	if _, err := p.store.SearchByWord(ctx, p.module, "test", 1); err != nil {
		return fmt.Errorf("word search health check failed: %w", err)
	}
	return nil
}
