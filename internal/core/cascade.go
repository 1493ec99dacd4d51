package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// structuredFields maps a term source to the schema fields a structured
// query can target. Sources without an entry only ever use word search.
var structuredFields = map[TermSource][]string{
	SourceDomain:          {"Email"},
	SourceAddressPart:     {"Property_Address", "Name"},
	SourceCompanyPart:     {"Account_Name", "Name"},
	SourceDevelopmentPart: {"Account_Name", "Name"},
}

// QueryCascade wraps the record store to try query strategies in a fixed
// order, classifying failures and falling back instead of propagating.
// The remote API has no bulk-query primitive and per-call latency dominates,
// so the cascade short-circuits aggressively.
type QueryCascade struct {
	store      RecordStore
	logger     *zap.Logger
	perTermMax int
}

// NewQueryCascade creates a new query cascade
func NewQueryCascade(store RecordStore, logger *zap.Logger, perTermMax int) *QueryCascade {
	if perTermMax <= 0 {
		perTermMax = 5
	}
	return &QueryCascade{store: store, logger: logger, perTermMax: perTermMax}
}

// Probe runs one term through the strategy cascade: a structured query when
// the term's source maps onto known schema fields, then the free-word search
// as the universal fallback. Recoverable errors never escape; permission
// errors always do.
func (c *QueryCascade) Probe(ctx context.Context, term SearchTerm, module string) ([]Record, error) {
	if fields := c.availableFields(ctx, term, module); len(fields) > 0 {
		records, err := c.store.QueryRecords(ctx, BuildStructuredQuery(module, fields, term.Value, c.perTermMax))
		switch {
		case err == nil && len(records) > 0:
			// Structured hit: the word fallback is never issued.
			return capRecords(records, c.perTermMax), nil
		case errors.Is(err, ErrPermission):
			return nil, err
		case err != nil:
			c.logger.Warn("Structured query failed, falling back to word search",
				zap.String("term", term.Value),
				zap.Error(err))
		}
	}

	records, err := c.store.SearchByWord(ctx, module, term.Value, c.perTermMax)
	if err == nil {
		return capRecords(records, c.perTermMax), nil
	}
	if errors.Is(err, ErrPermission) {
		return nil, err
	}

	// Last resort: a criteria search against the primary label field. One
	// substitution only; the same query form is never repeated.
	c.logger.Warn("Word search failed, falling back to criteria search",
		zap.String("term", term.Value),
		zap.Error(err))
	records, err = c.store.SearchByCriteria(ctx, module, fmt.Sprintf("(Account_Name:contains:%s)", term.Value))
	if err != nil {
		if errors.Is(err, ErrPermission) {
			return nil, err
		}
		c.logger.Warn("Criteria search failed, treating term as a miss",
			zap.String("term", term.Value),
			zap.Error(err))
		return nil, nil
	}
	return capRecords(records, c.perTermMax), nil
}

// ProbeMany probes terms in rank order and stops at the first term that
// returns at least one record. It reports which term hit so the caller can
// assign confidence; results across terms are never merged.
func (c *QueryCascade) ProbeMany(ctx context.Context, terms []SearchTerm, module string, maxPerTerm int) ([]Record, *SearchTerm, error) {
	if maxPerTerm <= 0 || maxPerTerm > c.perTermMax {
		maxPerTerm = c.perTermMax
	}

	ordered := make([]SearchTerm, len(terms))
	copy(ordered, terms)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Rank < ordered[j].Rank })

	for _, term := range ordered {
		records, err := c.Probe(ctx, term, module)
		if err != nil {
			return nil, nil, err
		}
		if len(records) > 0 {
			hit := term
			return capRecords(records, maxPerTerm), &hit, nil
		}
	}
	return nil, nil, nil
}

// availableFields filters the term's candidate schema fields down to those
// the target module actually defines. Schema field names are not guaranteed
// to exist across deployments, so a missing field silently disables the
// structured path for that term.
func (c *QueryCascade) availableFields(ctx context.Context, term SearchTerm, module string) []string {
	candidates, ok := structuredFields[term.Source]
	if !ok {
		return nil
	}

	var fields []string
	for _, field := range candidates {
		has, err := c.store.HasField(ctx, module, field)
		if err != nil {
			c.logger.Warn("Field metadata lookup failed, skipping structured path",
				zap.String("field", field),
				zap.Error(err))
			return nil
		}
		if has {
			fields = append(fields, field)
		}
	}
	return fields
}

// BuildStructuredQuery builds a query-language SELECT for a substring match
// against the given fields. Values are escaped before interpolation.
func BuildStructuredQuery(module string, fields []string, value string, limit int) string {
	escaped := EscapeQueryValue(value)
	conditions := make([]string, len(fields))
	for i, field := range fields {
		conditions[i] = fmt.Sprintf("%s like '%%%s%%'", field, escaped)
	}
	return fmt.Sprintf("SELECT id, Account_Name FROM %s WHERE %s LIMIT %d",
		module, strings.Join(conditions, " OR "), limit)
}

// EscapeQueryValue escapes single quotes in a query value so that free-text
// input cannot break the generated query.
func EscapeQueryValue(value string) string {
	return strings.ReplaceAll(value, "'", `\'`)
}

func capRecords(records []Record, max int) []Record {
	if max > 0 && len(records) > max {
		return records[:max]
	}
	return records
}
