package registry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetvault/internal/model"
)

func TestClient_Record(t *testing.T) {
	var got entry
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/archives", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second)
	rec := model.ArchiveRecord{
		ID:          "1700000000000-aabbccdd",
		FileName:    "orders.xlsx",
		UploadDate:  time.Now().UTC().Truncate(time.Second),
		FileSize:    512,
		ContentType: "application/vnd.ms-excel",
		RemotePath:  "1700000000000-aabbccdd/orders.xlsx",
		Payload:     model.InlineRef([]byte("secret bytes"), "application/vnd.ms-excel"),
	}

	require.NoError(t, c.Record(context.Background(), rec))
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, rec.RemotePath, got.RemotePath)
}

func TestClient_RecordOmitsPayloadBytes(t *testing.T) {
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second)
	rec := model.ArchiveRecord{
		ID:      "x",
		Payload: model.InlineRef([]byte("do not ship these bytes"), "text/csv"),
	}
	require.NoError(t, c.Record(context.Background(), rec))

	_, hasPayload := raw["payload"]
	assert.False(t, hasPayload)
}

func TestClient_RecordNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second)
	err := c.Record(context.Background(), model.ArchiveRecord{ID: "x"})
	assert.ErrorContains(t, err, "HTTP 500")
}

func TestClient_NilIsNoop(t *testing.T) {
	var c *Client
	assert.NoError(t, c.Record(context.Background(), model.ArchiveRecord{ID: "x"}))
	assert.Nil(t, New("", time.Second))
}
