package zoho

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/email-crm-sync/internal/core"
)

// CreateNote attaches a note to a record. The API reports per-item results
// even on HTTP 201, so success is judged on the item code, not the status.
func (c *Client) CreateNote(ctx context.Context, module, parentID, title, content string) (string, error) {
	path := fmt.Sprintf("/%s/%s/Notes", url.PathEscape(module), url.PathEscape(parentID))
	body := map[string]interface{}{
		"data": []map[string]string{
			{
				"Note_Title":   title,
				"Note_Content": content,
			},
		},
	}

	var resp mutationResponse
	if _, err := c.doJSON(ctx, http.MethodPost, path, body, &resp); err != nil {
		return "", fmt.Errorf("note creation request failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return "", fmt.Errorf("%w: empty response", core.ErrNoteRejected)
	}

	result := resp.Data[0]
	if result.Code != "SUCCESS" {
		return "", fmt.Errorf("%w: %s (%s)", core.ErrNoteRejected, result.Message, result.Code)
	}

	c.logger.Debug("Note created",
		zap.String("record_id", parentID),
		zap.String("note_id", result.Details.ID))
	return result.Details.ID, nil
}

// ListNotes returns the notes attached to a record, newest first as the API
// orders them.
func (c *Client) ListNotes(ctx context.Context, module, parentID string) ([]core.Note, error) {
	path := fmt.Sprintf("/%s/%s/Notes?fields=id,Note_Title,Note_Content,Created_Time",
		url.PathEscape(module), url.PathEscape(parentID))

	var page notesPage
	status, err := c.doJSON(ctx, http.MethodGet, path, nil, &page)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	if status == http.StatusNoContent {
		return nil, nil
	}

	notes := make([]core.Note, 0, len(page.Data))
	for _, row := range page.Data {
		created, _ := time.Parse(time.RFC3339, row.CreatedTime)
		notes = append(notes, core.Note{
			ID:        row.ID,
			Title:     row.NoteTitle,
			Content:   row.NoteContent,
			CreatedAt: created,
		})
	}
	return notes, nil
}
