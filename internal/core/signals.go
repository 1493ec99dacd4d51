package core

import (
	"strings"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Stop-lists for token extraction. Generic words never identify a record and
// only waste probe calls.
var (
	addressStopWords = map[string]bool{
		"road": true, "street": true, "avenue": true, "lane": true,
		"drive": true, "close": true, "gardens": true, "estate": true,
		"of": true, "the": true, "and": true, "house": true,
		"flat": true, "apartment": true,
	}

	companyStopWords = map[string]bool{
		"ltd": true, "limited": true, "plc": true, "llc": true,
		"inc": true, "corp": true, "corporation": true, "company": true,
		"co": true, "group": true, "holdings": true,
		"development": true, "developments": true,
	}

	subjectStopWords = map[string]bool{
		"re": true, "fwd": true, "fw": true, "reply": true,
		"regarding": true, "about": true, "email": true, "message": true,
		"urgent": true, "important": true, "please": true, "thanks": true,
		"thank": true, "you": true, "update": true, "regards": true,
	}

	subjectPrefixes = []string{"re:", "fwd:", "fw:"}
)

// SignalExtractor derives ranked candidate search terms from an email's
// sender address, AI-extracted fields, and subject line. Free-mail provider
// domains identify nobody, so they never become domain terms.
type SignalExtractor struct {
	genericDomains map[string]bool
	logger         *zap.Logger
}

// NewSignalExtractor creates a new signal extractor
func NewSignalExtractor(genericDomains []string, logger *zap.Logger) *SignalExtractor {
	generic := make(map[string]bool, len(genericDomains))
	for _, domain := range genericDomains {
		generic[strings.ToLower(domain)] = true
	}
	return &SignalExtractor{genericDomains: generic, logger: logger}
}

// Extract returns the ordered search terms for one email. Strategies run in
// fixed precedence; a strategy with no usable source contributes nothing.
// Terms are deduplicated case-insensitively across the whole pass.
func (e *SignalExtractor) Extract(email *EmailSignal, fields *ExtractedFields) []SearchTerm {
	var terms []SearchTerm
	seen := make(map[string]bool)

	add := func(value string, source TermSource, rank int) {
		key := strings.ToLower(value)
		if value == "" || len(value) <= 2 || seen[key] {
			return
		}
		seen[key] = true
		terms = append(terms, SearchTerm{Value: value, Source: source, Rank: rank})
	}

	// Strategy 1+2: sender domain and local part. A generic provider domain
	// is skipped; the local part may still identify a person.
	if at := strings.Index(email.Sender, "@"); at > 0 && at < len(email.Sender)-1 {
		domain := email.Sender[at+1:]
		if !e.genericDomains[strings.ToLower(domain)] {
			add(domain, SourceDomain, 0)
		}

		username := email.Sender[:at]
		if len(username) > 3 {
			add(username, SourceUsername, 1)
		}
	}

	// Strategy 3: property address tokens, ranks 2-4.
	for i, tok := range tokenize(fields.PropertyAddress, addressStopWords, 2, true, 3) {
		add(tok, SourceAddressPart, 2+i)
	}

	// Strategy 4: client/company name tokens, ranks 5-6.
	company := fields.ClientName
	if company == "" {
		company = fields.CompanyName
	}
	for i, tok := range tokenize(company, companyStopWords, 2, false, 2) {
		add(tok, SourceCompanyPart, 5+i)
	}

	// Strategy 5: development name tokens, ranks 7-8.
	for i, tok := range tokenize(fields.DevelopmentName, companyStopWords, 2, false, 2) {
		add(tok, SourceDevelopmentPart, 7+i)
	}

	// Strategy 6: subject keywords, ranks 9-11.
	subject := stripSubjectPrefixes(email.Subject)
	for i, tok := range tokenize(subject, subjectStopWords, 3, true, 3) {
		add(tok, SourceSubjectKeyword, 9+i)
	}

	e.logger.Debug("Extracted search terms",
		zap.String("message_id", email.MessageID),
		zap.Int("term_count", len(terms)))

	return terms
}

// tokenize lowercases, splits on whitespace/commas/hyphens, drops stop words
// and short or numeric tokens, title-cases the survivors, and keeps the
// first max tokens in source order.
func tokenize(text string, stopWords map[string]bool, minLen int, skipNumeric bool, max int) []string {
	if text == "" {
		return nil
	}

	cleaned := strings.NewReplacer(",", " ", "-", " ").Replace(strings.ToLower(text))
	titler := cases.Title(language.English)

	var tokens []string
	for _, word := range strings.Fields(cleaned) {
		if len(word) <= minLen || stopWords[word] {
			continue
		}
		if skipNumeric && isNumeric(word) {
			continue
		}
		tokens = append(tokens, titler.String(word))
		if len(tokens) == max {
			break
		}
	}
	return tokens
}

// stripSubjectPrefixes removes leading reply/forward markers, repeatedly so
// that "Re: Fwd: x" reduces to "x".
func stripSubjectPrefixes(subject string) string {
	s := strings.TrimSpace(subject)
	for {
		stripped := false
		lower := strings.ToLower(s)
		for _, prefix := range subjectPrefixes {
			if strings.HasPrefix(lower, prefix) {
				s = strings.TrimSpace(s[len(prefix):])
				stripped = true
				break
			}
		}
		if !stripped {
			return s
		}
	}
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(s) > 0
}

// ExtractSenderAddress pulls the bare address out of a "Name <addr>" header
// value; a bare address passes through unchanged.
func ExtractSenderAddress(sender string) string {
	start := strings.Index(sender, "<")
	end := strings.LastIndex(sender, ">")
	if start >= 0 && end > start {
		return strings.TrimSpace(sender[start+1 : end])
	}
	return strings.TrimSpace(sender)
}
