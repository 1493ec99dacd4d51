package zoho

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/mikey/email-crm-sync/internal/core"
)

// QueryRecords runs a COQL select statement. A 204 means the query matched
// nothing and yields an empty slice, not an error.
func (c *Client) QueryRecords(ctx context.Context, query string) ([]core.Record, error) {
	body := map[string]string{"select_query": query}

	var page recordPage
	status, err := c.doJSON(ctx, http.MethodPost, "/coql", body, &page)
	if err != nil {
		return nil, fmt.Errorf("coql query failed: %w", err)
	}
	if status == http.StatusNoContent {
		return nil, nil
	}

	c.logger.Debug("COQL query returned",
		zap.Int("records", len(page.Data)))
	return toRecords(page.Data), nil
}

// SearchByCriteria runs a field-criteria search, e.g.
// "(Account_Name:contains:Oakwood)".
func (c *Client) SearchByCriteria(ctx context.Context, module, criteria string) ([]core.Record, error) {
	path := fmt.Sprintf("/%s/search?criteria=%s", url.PathEscape(module), url.QueryEscape(criteria))

	var page recordPage
	status, err := c.doJSON(ctx, http.MethodGet, path, nil, &page)
	if err != nil {
		return nil, fmt.Errorf("criteria search failed: %w", err)
	}
	if status == http.StatusNoContent {
		return nil, nil
	}
	return toRecords(page.Data), nil
}

// SearchByWord runs the free-text word search across a module's indexed
// fields, capped at perPage results.
func (c *Client) SearchByWord(ctx context.Context, module, word string, perPage int) ([]core.Record, error) {
	if perPage <= 0 {
		perPage = 5
	}
	path := fmt.Sprintf("/%s/search?word=%s&per_page=%d",
		url.PathEscape(module), url.QueryEscape(word), perPage)

	var page recordPage
	status, err := c.doJSON(ctx, http.MethodGet, path, nil, &page)
	if err != nil {
		return nil, fmt.Errorf("word search failed: %w", err)
	}
	if status == http.StatusNoContent {
		return nil, nil
	}
	return toRecords(page.Data), nil
}

func toRecords(rows []recordRow) []core.Record {
	records := make([]core.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, core.Record{ID: row.ID, Name: row.label()})
	}
	return records
}
