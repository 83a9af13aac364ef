package activity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPSink_Record(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := NewHTTPSink(srv.URL, zerolog.Nop())
	s.Record(context.Background(), "archive_created", map[string]any{"archive_id": "a1"})

	assert.Equal(t, "archive_created", got["event"])
	props, ok := got["properties"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "a1", props["archive_id"])
}

func TestHTTPSink_SwallowsFailures(t *testing.T) {
	s := NewHTTPSink("http://127.0.0.1:0", zerolog.Nop())
	// Must not panic or block; the send error is dropped.
	s.Record(context.Background(), "archive_deleted", nil)
}

func TestNop(t *testing.T) {
	Nop{}.Record(context.Background(), "archive_created", nil)
}
