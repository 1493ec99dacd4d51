package zoho

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/email-crm-sync/internal/cache"
	"github.com/mikey/email-crm-sync/internal/core"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{
		AccessToken: "token-123",
		BaseURL:     server.URL,
	}, cache.NewMetadataCache(0, 0), zap.NewNop())
	require.NoError(t, err)
	return client, server
}

func TestNewClient(t *testing.T) {
	t.Run("missing token is a configuration error", func(t *testing.T) {
		_, err := NewClient(Config{DataCenter: "eu"}, cache.NewMetadataCache(0, 0), zap.NewNop())
		require.Error(t, err)
		var cfgErr *core.ConfigurationError
		assert.True(t, errors.As(err, &cfgErr))
	})

	t.Run("unknown data center is rejected", func(t *testing.T) {
		_, err := NewClient(Config{AccessToken: "t", DataCenter: "mars"}, cache.NewMetadataCache(0, 0), zap.NewNop())
		require.Error(t, err)
	})

	t.Run("known data centers resolve", func(t *testing.T) {
		client, err := NewClient(Config{AccessToken: "t", DataCenter: "eu"}, cache.NewMetadataCache(0, 0), zap.NewNop())
		require.NoError(t, err)
		assert.Equal(t, "https://www.zohoapis.eu/crm/v8", client.baseURL)
	})
}

func TestQueryRecords(t *testing.T) {
	ctx := context.Background()

	t.Run("sends token and decodes records", func(t *testing.T) {
		var gotAuth, gotQuery string
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			var body struct {
				SelectQuery string `json:"select_query"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			gotQuery = body.SelectQuery

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"data":[{"id":"1","Account_Name":"Oakwood Estates"}]}`))
		}))

		records, err := client.QueryRecords(ctx, "SELECT id FROM Developments")
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "Oakwood Estates", records[0].Name)
		assert.Equal(t, "Zoho-oauthtoken token-123", gotAuth)
		assert.Equal(t, "SELECT id FROM Developments", gotQuery)
	})

	t.Run("204 means empty result", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))

		records, err := client.QueryRecords(ctx, "SELECT id FROM Developments")
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("syntax error maps to malformed query", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"code":"SYNTAX_ERROR","message":"unexpected token"}`))
		}))

		_, err := client.QueryRecords(ctx, "SELEKT")
		require.Error(t, err)
		assert.True(t, errors.Is(err, core.ErrQueryMalformed))
	})

	t.Run("401 maps to permission error", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"code":"INVALID_TOKEN","message":"invalid oauth token"}`))
		}))

		_, err := client.QueryRecords(ctx, "SELECT id FROM Developments")
		require.Error(t, err)
		assert.True(t, errors.Is(err, core.ErrPermission))
	})

	t.Run("429 maps to transient error", func(t *testing.T) {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))

		_, err := client.QueryRecords(ctx, "SELECT id FROM Developments")
		require.Error(t, err)
		assert.True(t, errors.Is(err, core.ErrTransient))
	})
}

func TestSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("word search passes word and per_page", func(t *testing.T) {
		var gotWord, gotPerPage string
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotWord = r.URL.Query().Get("word")
			gotPerPage = r.URL.Query().Get("per_page")
			_, _ = w.Write([]byte(`{"data":[{"id":"2","Name":"Richmond Gardens"}]}`))
		}))

		records, err := client.SearchByWord(ctx, "Developments", "Richmond", 5)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "Richmond Gardens", records[0].Name)
		assert.Equal(t, "Richmond", gotWord)
		assert.Equal(t, "5", gotPerPage)
	})

	t.Run("criteria search passes criteria", func(t *testing.T) {
		var gotCriteria string
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotCriteria = r.URL.Query().Get("criteria")
			w.WriteHeader(http.StatusNoContent)
		}))

		records, err := client.SearchByCriteria(ctx, "Developments", "(Account_Name:contains:Oakwood)")
		require.NoError(t, err)
		assert.Empty(t, records)
		assert.Equal(t, "(Account_Name:contains:Oakwood)", gotCriteria)
	})
}
