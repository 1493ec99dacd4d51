package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeMailbox struct {
	messages map[string]*InboundEmail
	order    []string
	done     []string
	listErr  error
}

func (m *fakeMailbox) ListCandidates(ctx context.Context) ([]MessageRef, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	refs := make([]MessageRef, 0, len(m.order))
	for _, id := range m.order {
		refs = append(refs, MessageRef{ID: id})
	}
	return refs, nil
}

func (m *fakeMailbox) FetchMessage(ctx context.Context, id string) (*InboundEmail, error) {
	msg, ok := m.messages[id]
	if !ok {
		return nil, ErrNotFound
	}
	return msg, nil
}

func (m *fakeMailbox) MarkDone(ctx context.Context, id string) error {
	m.done = append(m.done, id)
	return nil
}

type fakeExtractor struct {
	fields *ExtractedFields
	err    error
}

func (e *fakeExtractor) Extract(ctx context.Context, subject, body string) (*ExtractedFields, error) {
	if e.err != nil {
		return nil, e.err
	}
	if e.fields != nil {
		return e.fields, nil
	}
	return &ExtractedFields{Summary: "summary of " + subject}, nil
}

type fakeTracker struct {
	processed map[string]bool
	marked    []string
	checkErr  error
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{processed: make(map[string]bool)}
}

func (t *fakeTracker) IsProcessed(ctx context.Context, messageID string) (bool, error) {
	if t.checkErr != nil {
		return false, t.checkErr
	}
	return t.processed[messageID], nil
}

func (t *fakeTracker) MarkProcessed(ctx context.Context, messageID, recordID string, processedAt time.Time) error {
	t.processed[messageID] = true
	t.marked = append(t.marked, messageID)
	return nil
}

func newTestProcessor(mailbox *fakeMailbox, extractor *fakeExtractor, tracker *fakeTracker, store *fakeStore) *EmailProcessor {
	logger := zap.NewNop()
	matcher := NewMatchingEngine(
		NewSignalExtractor(nil, logger),
		NewQueryCascade(store, logger, 5),
		"Developments",
		logger,
	)
	guarantee := NewGuaranteeEngine(store, "Developments", "", logger)
	return NewEmailProcessor(mailbox, extractor, matcher, guarantee, tracker, store, "Developments", logger)
}

func matchingStore() *fakeStore {
	return &fakeStore{
		queryRecords: func(ctx context.Context, query string) ([]Record, error) {
			return []Record{{ID: "dev-1", Name: "Oakwood Estates"}}, nil
		},
	}
}

func oneMessageMailbox() *fakeMailbox {
	return &fakeMailbox{
		order: []string{"101"},
		messages: map[string]*InboundEmail{
			"101": {
				MessageID: "<m1@mail>",
				Subject:   "Planning approval",
				Body:      "The council approved the plans.",
				Sender:    "John <john@oakwood-estates.co.uk>",
			},
		},
	}
}

func TestProcessBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("matched email is noted, tracked, and marked done", func(t *testing.T) {
		mailbox := oneMessageMailbox()
		tracker := newFakeTracker()
		store := matchingStore()
		processor := newTestProcessor(mailbox, &fakeExtractor{}, tracker, store)

		report, err := processor.ProcessBatch(ctx)
		require.NoError(t, err)
		assert.NotEmpty(t, report.RunID)
		assert.Equal(t, 1, report.Processed)
		assert.Equal(t, 1, report.Matched)
		assert.Zero(t, report.Failed)

		require.Len(t, store.notesCreated, 1)
		assert.Equal(t, "dev-1", store.notesCreated[0].parentID)
		assert.Equal(t, []string{"<m1@mail>"}, tracker.marked)
		assert.Equal(t, []string{"101"}, mailbox.done)
	})

	t.Run("already processed email is skipped", func(t *testing.T) {
		mailbox := oneMessageMailbox()
		tracker := newFakeTracker()
		tracker.processed["<m1@mail>"] = true
		store := matchingStore()
		processor := newTestProcessor(mailbox, &fakeExtractor{}, tracker, store)

		report, err := processor.ProcessBatch(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Duplicates)
		assert.Zero(t, report.Processed)
		assert.Empty(t, store.notesCreated)
		assert.Empty(t, mailbox.done)
	})

	t.Run("extraction failure still produces a note", func(t *testing.T) {
		mailbox := oneMessageMailbox()
		tracker := newFakeTracker()
		store := matchingStore()
		processor := newTestProcessor(mailbox, &fakeExtractor{err: errors.New("model unavailable")}, tracker, store)

		report, err := processor.ProcessBatch(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Processed)
		require.Len(t, store.notesCreated, 1)
		assert.Contains(t, store.notesCreated[0].content, "Email: Planning approval")
	})

	t.Run("unmatched email counts as fallback", func(t *testing.T) {
		mailbox := oneMessageMailbox()
		tracker := newFakeTracker()
		store := &fakeStore{
			hasField: func(ctx context.Context, module, apiName string) (bool, error) {
				return false, nil
			},
			listRecords: func(ctx context.Context, module string, limit int) ([]Record, error) {
				return []Record{{ID: "fb-1", Name: "General Inbox"}}, nil
			},
		}
		processor := newTestProcessor(mailbox, &fakeExtractor{}, tracker, store)

		report, err := processor.ProcessBatch(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Processed)
		assert.Equal(t, 1, report.Fallback)
		assert.Equal(t, []string{"101"}, mailbox.done)
	})

	t.Run("failed email is not marked done", func(t *testing.T) {
		mailbox := oneMessageMailbox()
		tracker := newFakeTracker()
		store := &fakeStore{
			hasField: func(ctx context.Context, module, apiName string) (bool, error) {
				return false, nil
			},
			listRecords: func(ctx context.Context, module string, limit int) ([]Record, error) {
				return nil, ErrTransient
			},
		}
		processor := newTestProcessor(mailbox, &fakeExtractor{}, tracker, store)

		report, err := processor.ProcessBatch(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Failed)
		assert.Empty(t, mailbox.done)
		assert.Empty(t, tracker.marked)
	})

	t.Run("attachments relayed to the target record", func(t *testing.T) {
		mailbox := oneMessageMailbox()
		mailbox.messages["101"].Attachments = []Attachment{
			{Filename: "plans.pdf", Content: []byte("pdf")},
		}
		tracker := newFakeTracker()
		store := matchingStore()
		processor := newTestProcessor(mailbox, &fakeExtractor{}, tracker, store)

		_, err := processor.ProcessBatch(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"plans.pdf"}, store.uploadedFiles)
	})

	t.Run("cancelled context stops between emails", func(t *testing.T) {
		mailbox := oneMessageMailbox()
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		processor := newTestProcessor(mailbox, &fakeExtractor{}, newFakeTracker(), matchingStore())

		report, err := processor.ProcessBatch(cancelled)
		require.NoError(t, err)
		assert.Zero(t, report.Processed)
	})

	t.Run("listing failure aborts the run", func(t *testing.T) {
		mailbox := &fakeMailbox{listErr: errors.New("connection lost")}
		processor := newTestProcessor(mailbox, &fakeExtractor{}, newFakeTracker(), matchingStore())

		_, err := processor.ProcessBatch(ctx)
		require.Error(t, err)
	})
}

func TestHealthCheck(t *testing.T) {
	ctx := context.Background()

	store := matchingStore()
	processor := newTestProcessor(oneMessageMailbox(), &fakeExtractor{}, newFakeTracker(), store)

	require.NoError(t, processor.HealthCheck(ctx))
	assert.Equal(t, 1, store.healthChecks)
	assert.Equal(t, []string{"test"}, store.wordSearches)
}
