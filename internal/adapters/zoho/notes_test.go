package zoho

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/email-crm-sync/internal/cache"
	"github.com/mikey/email-crm-sync/internal/core"
)

func TestCreateNote(t *testing.T) {
	ctx := context.Background()

	t.Run("success returns the new note id", func(t *testing.T) {
		var gotPath string
		var gotBody map[string]interface{}
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			_ = json.NewDecoder(r.Body).Decode(&gotBody)
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"data":[{"code":"SUCCESS","details":{"id":"note-77"},"message":"record added","status":"success"}]}`))
		}))

		noteID, err := client.CreateNote(ctx, "Developments", "dev-1", "Email: Planning approval", "content")
		require.NoError(t, err)
		assert.Equal(t, "note-77", noteID)
		assert.Equal(t, "/Developments/dev-1/Notes", gotPath)

		data := gotBody["data"].([]interface{})
		note := data[0].(map[string]interface{})
		assert.Equal(t, "Email: Planning approval", note["Note_Title"])
		assert.Equal(t, "content", note["Note_Content"])
	})

	t.Run("non-success item code is a rejection", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"data":[{"code":"INVALID_DATA","message":"invalid content","status":"error"}]}`))
		}))

		_, err := client.CreateNote(ctx, "Developments", "dev-1", "title", "content")
		require.Error(t, err)
		assert.True(t, errors.Is(err, core.ErrNoteRejected))
	})

	t.Run("empty data array is a rejection", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"data":[]}`))
		}))

		_, err := client.CreateNote(ctx, "Developments", "dev-1", "title", "content")
		require.Error(t, err)
		assert.True(t, errors.Is(err, core.ErrNoteRejected))
	})
}

func TestListNotes(t *testing.T) {
	ctx := context.Background()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"id":"n1","Note_Title":"Email: hello","Note_Content":"body","Created_Time":"2025-03-14T09:26:53Z"}]}`))
	}))

	notes, err := client.ListNotes(ctx, "Developments", "dev-1")
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "Email: hello", notes[0].Title)
	assert.Equal(t, 2025, notes[0].CreatedAt.Year())
}

func TestHasField(t *testing.T) {
	ctx := context.Background()
	fieldsBody := `{"fields":[{"api_name":"Account_Name","data_type":"text"},{"api_name":"Email","data_type":"email"}]}`

	t.Run("repeated lookups served from the metadata cache", func(t *testing.T) {
		calls := 0
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			_, _ = w.Write([]byte(fieldsBody))
		}))

		has, err := client.HasField(ctx, "Developments", "Email")
		require.NoError(t, err)
		assert.True(t, has)

		has, err = client.HasField(ctx, "Developments", "Nonexistent")
		require.NoError(t, err)
		assert.False(t, has)

		assert.Equal(t, 1, calls)
	})

	t.Run("expired field metadata is refetched once", func(t *testing.T) {
		calls := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			_, _ = w.Write([]byte(fieldsBody))
		}))
		t.Cleanup(server.Close)

		now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
		metadata := cache.NewMetadataCache(0, 12*time.Hour).WithClock(func() time.Time { return now })
		client, err := NewClient(Config{
			AccessToken: "token-123",
			BaseURL:     server.URL,
		}, metadata, zap.NewNop())
		require.NoError(t, err)

		_, err = client.HasField(ctx, "Developments", "Email")
		require.NoError(t, err)
		_, err = client.HasField(ctx, "Developments", "Account_Name")
		require.NoError(t, err)
		assert.Equal(t, 1, calls)

		now = now.Add(12 * time.Hour)
		_, err = client.HasField(ctx, "Developments", "Email")
		require.NoError(t, err)
		assert.Equal(t, 2, calls)

		// The refetch re-primed the cache for subsequent lookups.
		_, err = client.HasField(ctx, "Developments", "Nonexistent")
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
	})
}
