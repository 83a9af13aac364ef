package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"sheetvault/internal/model"
)

// Client records archive metadata in the server-side registry so archives
// are listable across devices. The write is advisory: callers log failures
// and move on, the local index remains the durability guarantee.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New returns a registry client, or nil when baseURL is empty or the
// registry is disabled. A nil *Client is safe to call.
func New(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		return nil
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// entry is the wire shape of POST /archives. Inline payloads are never sent;
// only the reference fields travel.
type entry struct {
	ID          string         `json:"id"`
	FileName    string         `json:"fileName"`
	UploadDate  time.Time      `json:"uploadDate"`
	FileSize    int64          `json:"fileSize"`
	ContentType string         `json:"contentType"`
	RemotePath  string         `json:"remotePath,omitempty"`
	Metadata    model.Metadata `json:"metadata"`
}

// Record sends the archive's metadata to the registry. The response body is
// ignored; a non-2xx status is returned as an error for the caller to log.
func (c *Client) Record(ctx context.Context, rec model.ArchiveRecord) error {
	if c == nil {
		return nil
	}

	body, err := json.Marshal(entry{
		ID:          rec.ID,
		FileName:    rec.FileName,
		UploadDate:  rec.UploadDate,
		FileSize:    rec.FileSize,
		ContentType: rec.ContentType,
		RemotePath:  rec.RemotePath,
		Metadata:    rec.Metadata,
	})
	if err != nil {
		return fmt.Errorf("marshal registry entry: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/archives", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create registry request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("registry request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("registry returned HTTP %d", resp.StatusCode)
	}
	return nil
}
