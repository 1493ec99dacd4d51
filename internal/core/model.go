package core

import (
	"time"
)

// EmailSignal is the immutable per-email input to matching. It is built once
// at the start of a processing pass and discarded afterwards.
type EmailSignal struct {
	MessageID string
	Subject   string
	Body      string
	Sender    string
}

// ExtractedFields is the structured output of the AI extraction call.
// Missing fields are empty strings, never errors.
type ExtractedFields struct {
	PropertyAddress string  `json:"property_address"`
	DevelopmentName string  `json:"development_name"`
	ClientName      string  `json:"client_name"`
	CompanyName     string  `json:"company_name"`
	Summary         string  `json:"summary"`
	ConfidenceScore float64 `json:"confidence_score"`
}

// TermSource identifies which signal a search term was derived from.
type TermSource string

const (
	SourceDomain          TermSource = "domain"
	SourceUsername        TermSource = "username"
	SourceAddressPart     TermSource = "address_part"
	SourceCompanyPart     TermSource = "company_part"
	SourceDevelopmentPart TermSource = "development_part"
	SourceSubjectKeyword  TermSource = "subject_keyword"
)

// SearchTerm is a single candidate probe value. Rank determines probe order
// within a pass; lower rank is tried first.
type SearchTerm struct {
	Value  string
	Source TermSource
	Rank   int
}

// Confidence is a coarse tier derived from which signal category produced a
// hit, not a numeric probability.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
	ConfidenceNone   Confidence = "none"
)

// MatchResult is the outcome of the matching engine for one email.
type MatchResult struct {
	Found       bool
	RecordID    string
	RecordLabel string
	Method      string
	Confidence  Confidence
}

// NoMatch is the terminal result when every category has been exhausted.
func NoMatch() *MatchResult {
	return &MatchResult{Found: false, Method: "no_match", Confidence: ConfidenceNone}
}

// Record is the validated form of a remote record row. Only the fields the
// sync needs cross the adapter boundary.
type Record struct {
	ID   string
	Name string
}

// Note is a timestamped text attachment linked to exactly one record.
type Note struct {
	ID        string
	Title     string
	Content   string
	CreatedAt time.Time
}

// ProcessingOutcome is the durable per-email artifact produced by the
// guarantee engine. Success is always set one way or the other.
type ProcessingOutcome struct {
	EmailID        string
	Success        bool
	TargetRecordID string
	NoteID         string
	Strategy       string
	Fallback       bool
	Err            error
}

// MessageRef identifies one candidate message in the mailbox.
type MessageRef struct {
	ID string
}

// Attachment is a decoded mail attachment ready for relay to the record store.
type Attachment struct {
	Filename string
	Content  []byte
}

// InboundEmail is a fetched, MIME-decoded message.
type InboundEmail struct {
	MessageID   string
	Subject     string
	Body        string
	Sender      string
	Attachments []Attachment
}

// BatchReport summarizes one processing run.
type BatchReport struct {
	RunID      string
	Processed  int
	Matched    int
	Fallback   int
	Duplicates int
	Failed     int
}
