package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func extractTerms(t *testing.T, email *EmailSignal, fields *ExtractedFields) []SearchTerm {
	t.Helper()
	return NewSignalExtractor(nil, zap.NewNop()).Extract(email, fields)
}

func termValues(terms []SearchTerm, source TermSource) []string {
	var out []string
	for _, term := range terms {
		if term.Source == source {
			out = append(out, term.Value)
		}
	}
	return out
}

func TestSignalExtractor(t *testing.T) {
	t.Run("extracts domain and username from sender", func(t *testing.T) {
		terms := extractTerms(t,
			&EmailSignal{Sender: "john.smith@oakwood-estates.co.uk"},
			&ExtractedFields{})

		require.NotEmpty(t, terms)
		assert.Equal(t, "oakwood-estates.co.uk", terms[0].Value)
		assert.Equal(t, SourceDomain, terms[0].Source)
		assert.Equal(t, 0, terms[0].Rank)

		usernames := termValues(terms, SourceUsername)
		assert.Equal(t, []string{"john.smith"}, usernames)
	})

	t.Run("generic provider domain skipped, username kept", func(t *testing.T) {
		extractor := NewSignalExtractor([]string{"gmail.com"}, zap.NewNop())
		terms := extractor.Extract(
			&EmailSignal{Sender: "john.smith@Gmail.com"},
			&ExtractedFields{})

		assert.Empty(t, termValues(terms, SourceDomain))
		assert.Equal(t, []string{"john.smith"}, termValues(terms, SourceUsername))
	})

	t.Run("short usernames are skipped", func(t *testing.T) {
		terms := extractTerms(t,
			&EmailSignal{Sender: "bob@example.com"},
			&ExtractedFields{})
		assert.Empty(t, termValues(terms, SourceUsername))
	})

	t.Run("address tokens drop stop words and numbers", func(t *testing.T) {
		terms := extractTerms(t,
			&EmailSignal{Sender: "x@y.com"},
			&ExtractedFields{PropertyAddress: "42 Oakwood Road, Richmond"})

		assert.Equal(t, []string{"Oakwood", "Richmond"}, termValues(terms, SourceAddressPart))
	})

	t.Run("address tokens capped at three", func(t *testing.T) {
		terms := extractTerms(t,
			&EmailSignal{Sender: "x@y.com"},
			&ExtractedFields{PropertyAddress: "Alpha Bravo Charlie Delta Echo"})
		assert.Len(t, termValues(terms, SourceAddressPart), 3)
	})

	t.Run("client name preferred over company name", func(t *testing.T) {
		terms := extractTerms(t,
			&EmailSignal{Sender: "x@y.com"},
			&ExtractedFields{ClientName: "Sterling Homes Ltd", CompanyName: "Other Corp"})

		assert.Equal(t, []string{"Sterling", "Homes"}, termValues(terms, SourceCompanyPart))
	})

	t.Run("company suffixes are stop words", func(t *testing.T) {
		terms := extractTerms(t,
			&EmailSignal{Sender: "x@y.com"},
			&ExtractedFields{CompanyName: "Ltd Limited Holdings"})
		assert.Empty(t, termValues(terms, SourceCompanyPart))
	})

	t.Run("subject keywords after stripping reply prefixes", func(t *testing.T) {
		terms := extractTerms(t,
			&EmailSignal{Sender: "x@y.com", Subject: "Re: Fwd: Oakwood planning update"},
			&ExtractedFields{})

		// "update" is a subject stop word.
		assert.Equal(t, []string{"Oakwood", "Planning"}, termValues(terms, SourceSubjectKeyword))
	})

	t.Run("duplicate values are deduplicated case-insensitively", func(t *testing.T) {
		terms := extractTerms(t,
			&EmailSignal{Sender: "x@y.com", Subject: "Oakwood"},
			&ExtractedFields{PropertyAddress: "oakwood"})

		var count int
		for _, term := range terms {
			if term.Value == "Oakwood" || term.Value == "oakwood" {
				count++
			}
		}
		assert.Equal(t, 1, count)
	})

	t.Run("no signals yields empty slice", func(t *testing.T) {
		terms := extractTerms(t, &EmailSignal{Sender: "not-an-address"}, &ExtractedFields{})
		assert.Empty(t, terms)
	})
}

func TestStripSubjectPrefixes(t *testing.T) {
	assert.Equal(t, "Oakwood update", stripSubjectPrefixes("Re: Fwd: Oakwood update"))
	assert.Equal(t, "oakwood", stripSubjectPrefixes("RE: oakwood"))
	assert.Equal(t, "plain subject", stripSubjectPrefixes("plain subject"))
}

func TestExtractSenderAddress(t *testing.T) {
	assert.Equal(t, "john@example.com", ExtractSenderAddress("John Smith <john@example.com>"))
	assert.Equal(t, "john@example.com", ExtractSenderAddress("john@example.com"))
	assert.Equal(t, "a@b.com", ExtractSenderAddress("  <a@b.com>  "))
}
