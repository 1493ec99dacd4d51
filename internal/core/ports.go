package core

import (
	"context"
	"time"
)

// RecordStore is the façade over the remote record system. Query methods are
// read-only and may be served through the metadata cache where noted; all
// mutating calls bypass the cache entirely.
type RecordStore interface {
	// QueryRecords executes a structured query-language lookup and returns
	// the matching records. The query string is interpolated by the caller;
	// values must already be escaped.
	QueryRecords(ctx context.Context, query string) ([]Record, error)

	// SearchByCriteria searches a module with a field criteria expression,
	// e.g. "(Account_Name:contains:Oakwood)".
	SearchByCriteria(ctx context.Context, module, criteria string) ([]Record, error)

	// SearchByWord performs the schema-agnostic free-word search. An empty
	// result is not an error.
	SearchByWord(ctx context.Context, module, word string, perPage int) ([]Record, error)

	// ListRecords returns up to limit records from a stable unfiltered
	// listing of the module.
	ListRecords(ctx context.Context, module string, limit int) ([]Record, error)

	// GetRecord fetches a single record by id.
	GetRecord(ctx context.Context, module, id string) (*Record, error)

	// CreateRecord creates a record with the given display name and returns
	// its id.
	CreateRecord(ctx context.Context, module, name string) (string, error)

	// CreateNote attaches a note to a record and returns the note id.
	CreateNote(ctx context.Context, module, parentID, title, content string) (string, error)

	// ListNotes returns the notes attached to a record.
	ListNotes(ctx context.Context, module, parentID string) ([]Note, error)

	// UploadAttachment relays a file to a record.
	UploadAttachment(ctx context.Context, module, parentID, filename string, content []byte) error

	// HasField reports whether the module's schema defines a field with the
	// given API name. Served from the field-descriptor cache.
	HasField(ctx context.Context, module, apiName string) (bool, error)

	// CheckHealth verifies connectivity and that the target module exists.
	CheckHealth(ctx context.Context, module string) error
}

// Extractor derives structured fields and a summary from an email. Missing
// fields come back empty rather than as errors.
type Extractor interface {
	Extract(ctx context.Context, subject, body string) (*ExtractedFields, error)
}

// Mailbox is the mail-provider collaborator. Message content is returned
// already MIME-decoded.
type Mailbox interface {
	ListCandidates(ctx context.Context) ([]MessageRef, error)
	FetchMessage(ctx context.Context, id string) (*InboundEmail, error)
	MarkDone(ctx context.Context, id string) error
}

// ProcessedTracker records which message ids have already produced a note,
// so a re-polled message is not processed twice.
type ProcessedTracker interface {
	IsProcessed(ctx context.Context, messageID string) (bool, error)
	MarkProcessed(ctx context.Context, messageID, recordID string, processedAt time.Time) error
}
