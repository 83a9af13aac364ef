package model

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// PayloadKind distinguishes the two ways an archive's bytes can be referenced.
type PayloadKind int

const (
	// PayloadRemoteURL means the bytes live in the remote blob store and the
	// ref carries a (possibly time-limited) download URL.
	PayloadRemoteURL PayloadKind = iota
	// PayloadInline means the upload never reached the remote store and the
	// bytes are kept locally, base64-encoded.
	PayloadInline
)

// inlineMarker is the substring that distinguishes an inline data URI from a
// plain download URL in the flattened on-disk form.
const inlineMarker = ";base64,"

// PayloadRef is a tagged union: exactly one of URL or Data is populated,
// selected by Kind. It serializes to a single JSON string — either the raw
// URL or a data URI — so persisted index entries stay flat.
type PayloadRef struct {
	Kind        PayloadKind
	URL         string
	Data        []byte
	ContentType string
}

// RemoteRef builds a reference to remotely stored bytes.
func RemoteRef(url string) PayloadRef {
	return PayloadRef{Kind: PayloadRemoteURL, URL: url}
}

// InlineRef builds a local fallback reference carrying the bytes themselves.
func InlineRef(data []byte, contentType string) PayloadRef {
	return PayloadRef{Kind: PayloadInline, Data: data, ContentType: contentType}
}

// IsInline reports whether the ref carries the payload bytes locally.
func (p PayloadRef) IsInline() bool {
	return p.Kind == PayloadInline
}

func (p PayloadRef) MarshalJSON() ([]byte, error) {
	switch p.Kind {
	case PayloadRemoteURL:
		return json.Marshal(p.URL)
	case PayloadInline:
		uri := fmt.Sprintf("data:%s%s%s", p.ContentType, inlineMarker, base64.StdEncoding.EncodeToString(p.Data))
		return json.Marshal(uri)
	default:
		return nil, fmt.Errorf("unknown payload kind %d", p.Kind)
	}
}

func (p *PayloadRef) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if !strings.HasPrefix(s, "data:") || !strings.Contains(s, inlineMarker) {
		*p = RemoteRef(s)
		return nil
	}
	rest := strings.TrimPrefix(s, "data:")
	idx := strings.Index(rest, inlineMarker)
	contentType := rest[:idx]
	data, err := base64.StdEncoding.DecodeString(rest[idx+len(inlineMarker):])
	if err != nil {
		return fmt.Errorf("decode inline payload: %w", err)
	}
	*p = InlineRef(data, contentType)
	return nil
}

// Metadata carries optional descriptive attributes for an archive. None of
// the fields are computed automatically; they are set only when the caller
// supplies them.
type Metadata struct {
	RowCount    *int     `json:"row_count,omitempty"`
	ColumnCount *int     `json:"column_count,omitempty"`
	Sheets      []string `json:"sheets,omitempty"`
	Description string   `json:"description,omitempty"`
}

// ArchiveRecord represents one archived spreadsheet. ID, FileName,
// UploadDate, FileSize and ContentType are immutable after creation;
// Metadata may be updated and Payload may be promoted from inline to remote
// by a later successful upload.
type ArchiveRecord struct {
	ID          string     `json:"id"`
	FileName    string     `json:"file_name"`
	UploadDate  time.Time  `json:"upload_date"`
	FileSize    int64      `json:"file_size"`
	ContentType string     `json:"content_type"`
	Payload     PayloadRef `json:"payload"`
	// RemotePath is the object-store key, present whenever a remote upload
	// succeeded. It is the merge and deletion key.
	RemotePath string   `json:"remote_path,omitempty"`
	Metadata   Metadata `json:"metadata"`
}

// OrderRow is a validated domain record extracted from an archived
// spreadsheet.
type OrderRow struct {
	OrderID  string  `json:"order_id"`
	Customer string  `json:"customer"`
	Product  string  `json:"product"`
	Quantity int     `json:"quantity"`
	Total    float64 `json:"total"`
}

// RowSet is the cached output of the extraction pipeline for one archive.
// It is derivable at any time by re-running extraction; the cached copy is a
// performance optimization and offline fallback, not a source of truth.
type RowSet struct {
	ArchiveID   string     `json:"archive_id"`
	Rows        []OrderRow `json:"rows"`
	ExtractedAt time.Time  `json:"extracted_at"`
}

// ErrNoPayload is returned when a record's payload cannot be resolved.
var ErrNoPayload = errors.New("archive record has no resolvable payload")
