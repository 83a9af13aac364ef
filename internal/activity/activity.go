package activity

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Sink records user-facing events after successful operations. Calls are
// fire-and-forget: implementations never return errors to the caller.
type Sink interface {
	Record(ctx context.Context, event string, props map[string]any)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Record(context.Context, string, map[string]any) {}

// HTTPSink posts events to a collector endpoint. Failures are logged at
// debug level and otherwise dropped.
type HTTPSink struct {
	endpoint   string
	httpClient *http.Client
	log        zerolog.Logger
}

func NewHTTPSink(endpoint string, log zerolog.Logger) *HTTPSink {
	return &HTTPSink{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		log:        log,
	}
}

func (s *HTTPSink) Record(ctx context.Context, event string, props map[string]any) {
	body, err := json.Marshal(map[string]any{"event": event, "properties": props})
	if err != nil {
		s.log.Debug().Err(err).Str("event", event).Msg("activity event marshal failed")
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		s.log.Debug().Err(err).Str("event", event).Msg("activity event request failed")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.log.Debug().Err(err).Str("event", event).Msg("activity event send failed")
		return
	}
	resp.Body.Close()
}
