package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"sheetvault/internal/cache"
	"sheetvault/internal/model"
)

var (
	// ErrNoValidRows is returned when validation drops every decoded row.
	ErrNoValidRows = errors.New("no valid rows after validation")
)

// RowValidator is the downstream cleaning collaborator. It owns the policy
// of silently dropping malformed rows and returns only the accepted records.
type RowValidator interface {
	CleanAndValidate(rows []map[string]string) []model.OrderRow
}

// Doer is the minimal HTTP client surface needed to fetch remote payloads.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Pipeline turns an archived spreadsheet into validated domain rows and
// caches the result keyed by archive id. The cache doubles as an offline
// fallback when the remote fetch fails.
type Pipeline struct {
	index      *cache.Index
	validator  RowValidator
	httpClient Doer
	log        zerolog.Logger
}

func NewPipeline(index *cache.Index, validator RowValidator, httpClient Doer, log zerolog.Logger) *Pipeline {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Pipeline{index: index, validator: validator, httpClient: httpClient, log: log}
}

// Extract resolves the archive's bytes, decodes the first sheet, validates
// the rows and caches the accepted records. A previously cached row set
// rescues fetch, decode and validation failures.
func (p *Pipeline) Extract(ctx context.Context, rec *model.ArchiveRecord) ([]model.OrderRow, error) {
	data, err := p.resolveBytes(ctx, rec)
	if err != nil {
		return p.rescue(rec.ID, err)
	}

	rows, err := decodeRows(data)
	if err != nil {
		return p.rescue(rec.ID, fmt.Errorf("decode %s: %w", rec.FileName, err))
	}

	accepted := p.validator.CleanAndValidate(rows)
	if len(accepted) == 0 {
		return p.rescue(rec.ID, ErrNoValidRows)
	}

	if err := p.index.SaveRows(model.RowSet{
		ArchiveID:   rec.ID,
		Rows:        accepted,
		ExtractedAt: time.Now().UTC(),
	}); err != nil {
		p.log.Warn().Err(err).Str("archive_id", rec.ID).Msg("row cache write failed")
	}

	return accepted, nil
}

// resolveBytes fetches remote payloads over the network and decodes inline
// payloads in-process. A non-success HTTP status is a retrieval error and is
// not retried.
func (p *Pipeline) resolveBytes(ctx context.Context, rec *model.ArchiveRecord) ([]byte, error) {
	if rec.Payload.IsInline() {
		if len(rec.Payload.Data) == 0 {
			return nil, model.ErrNoPayload
		}
		return rec.Payload.Data, nil
	}
	if rec.Payload.URL == "" {
		return nil, model.ErrNoPayload
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rec.Payload.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build fetch request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch archive bytes: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch archive bytes: HTTP %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// rescue serves the cached row set for the archive when one exists,
// otherwise propagates cause.
func (p *Pipeline) rescue(archiveID string, cause error) ([]model.OrderRow, error) {
	rs, ok, err := p.index.LoadRows(archiveID)
	if err == nil && ok {
		p.log.Info().Err(cause).Str("archive_id", archiveID).Msg("serving cached rows after extraction failure")
		return rs.Rows, nil
	}
	return nil, cause
}
