package zoho

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/mikey/email-crm-sync/internal/core"
)

// ListRecords returns up to limit records from a module, in the API's stable
// default ordering.
func (c *Client) ListRecords(ctx context.Context, module string, limit int) ([]core.Record, error) {
	if limit <= 0 {
		limit = 10
	}
	path := fmt.Sprintf("/%s?fields=id,Account_Name,Name&per_page=%d", url.PathEscape(module), limit)

	var page recordPage
	status, err := c.doJSON(ctx, http.MethodGet, path, nil, &page)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	if status == http.StatusNoContent {
		return nil, nil
	}
	return toRecords(page.Data), nil
}

// GetRecord fetches a single record by id.
func (c *Client) GetRecord(ctx context.Context, module, id string) (*core.Record, error) {
	path := fmt.Sprintf("/%s/%s?fields=id,Account_Name,Name", url.PathEscape(module), url.PathEscape(id))

	var page recordPage
	status, err := c.doJSON(ctx, http.MethodGet, path, nil, &page)
	if err != nil {
		return nil, fmt.Errorf("failed to get record %s: %w", id, err)
	}
	if status == http.StatusNoContent || len(page.Data) == 0 {
		return nil, fmt.Errorf("record %s: %w", id, core.ErrNotFound)
	}

	row := page.Data[0]
	return &core.Record{ID: row.ID, Name: row.label()}, nil
}

// CreateRecord creates a minimally-populated record and returns its id.
func (c *Client) CreateRecord(ctx context.Context, module, name string) (string, error) {
	path := "/" + url.PathEscape(module)
	body := map[string]interface{}{
		"data": []map[string]string{
			{"Account_Name": name, "Name": name},
		},
	}

	var resp mutationResponse
	if _, err := c.doJSON(ctx, http.MethodPost, path, body, &resp); err != nil {
		return "", fmt.Errorf("record creation request failed: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].Code != "SUCCESS" {
		code, message := "EMPTY_RESPONSE", "no result returned"
		if len(resp.Data) > 0 {
			code, message = resp.Data[0].Code, resp.Data[0].Message
		}
		return "", fmt.Errorf("record creation rejected: %s (%s)", message, code)
	}

	c.logger.Info("Record created",
		zap.String("module", module),
		zap.String("record_id", resp.Data[0].Details.ID))
	return resp.Data[0].Details.ID, nil
}

// UploadAttachment uploads a file against a record using the multipart
// attachment endpoint.
func (c *Client) UploadAttachment(ctx context.Context, module, parentID, filename string, content []byte) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("failed to build upload form: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return fmt.Errorf("failed to write upload body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize upload form: %w", err)
	}

	path := fmt.Sprintf("%s/%s/%s/Attachments", c.baseURL, url.PathEscape(module), url.PathEscape(parentID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, path, &buf)
	if err != nil {
		return fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Authorization", "Zoho-oauthtoken "+c.token)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrTransient, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading upload response: %v", core.ErrTransient, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("attachment upload failed: %w", c.classifyError(resp.StatusCode, data))
	}

	c.logger.Debug("Attachment uploaded",
		zap.String("record_id", parentID),
		zap.String("filename", filename))
	return nil
}
