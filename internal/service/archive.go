package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"sheetvault/internal/activity"
	"sheetvault/internal/cache"
	"sheetvault/internal/model"
	"sheetvault/internal/registry"
	"sheetvault/internal/storage"
)

var (
	ErrIDRequired   = errors.New("id is required")
	ErrFileRequired = errors.New("file name and content are required")
)

const (
	uploadAttempts = 3
	retryDelay     = time.Second
)

// ArchiveInput is the caller-supplied payload for Archive. The caller must
// have already obtained the file bytes; no size limit is enforced here.
type ArchiveInput struct {
	FileName    string
	ContentType string
	Data        []byte
	Metadata    model.Metadata
}

// ArchiveService coordinates the remote blob store, the local durable cache
// and the metadata registry to implement the archive lifecycle. Consistency
// between the two backends is best-effort: remote failures degrade to a
// local inline fallback, and only local persistence failures are surfaced.
type ArchiveService interface {
	// Archive uploads the file (with retries), falls back to an inline
	// payload when the remote store is unreachable, prepends the record to
	// the local index and best-effort registers its metadata server-side.
	Archive(ctx context.Context, in ArchiveInput) (*model.ArchiveRecord, error)

	// List merges the remote bucket listing with the local index,
	// most-recent-first. Remote-only objects are synthesized into minimal
	// records and appended, newest object first.
	List(ctx context.Context) ([]model.ArchiveRecord, error)

	// Get returns the local record for id with a freshly resolved download
	// URL when one is available. It returns (nil, nil) when no local entry
	// exists; no remote-only lookup is attempted.
	Get(ctx context.Context, id string) (*model.ArchiveRecord, error)

	// Delete removes the record from both backends. It reports whether a
	// local entry existed; remote delete failures do not affect the result.
	Delete(ctx context.Context, id string) (bool, error)

	// ClearAll bulk-deletes every remote object referenced by the index and
	// empties the local index. The remote delete is best-effort.
	ClearAll(ctx context.Context) (bool, error)
}

type archiveService struct {
	store     storage.RemoteStore
	index     *cache.Index
	registry  *registry.Client
	activity  activity.Sink
	urlExpiry time.Duration
	log       zerolog.Logger

	// sleep is swapped out by tests to avoid real retry delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewArchiveService constructs an ArchiveService. registry may be nil and
// sink may be activity.Nop{} when those collaborators are disabled.
func NewArchiveService(store storage.RemoteStore, index *cache.Index, reg *registry.Client, sink activity.Sink, urlExpiry time.Duration, log zerolog.Logger) ArchiveService {
	if sink == nil {
		sink = activity.Nop{}
	}
	return &archiveService{
		store:     store,
		index:     index,
		registry:  reg,
		activity:  sink,
		urlExpiry: urlExpiry,
		log:       log,
		sleep:     sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// newArchiveID builds a time-based id with a random suffix, so ids sort
// roughly by creation time while staying globally unique.
func newArchiveID(now time.Time) string {
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("%d-%s", now.UnixMilli(), suffix)
}

func (s *archiveService) Archive(ctx context.Context, in ArchiveInput) (*model.ArchiveRecord, error) {
	if in.FileName == "" || len(in.Data) == 0 {
		return nil, ErrFileRequired
	}
	contentType := in.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	now := time.Now().UTC()
	id := newArchiveID(now)
	remotePath := id + "/" + in.FileName

	rec := model.ArchiveRecord{
		ID:          id,
		FileName:    in.FileName,
		UploadDate:  now,
		FileSize:    int64(len(in.Data)),
		ContentType: contentType,
		Metadata:    in.Metadata,
	}

	if url, ok := s.uploadWithRetry(ctx, remotePath, in.Data, contentType); ok {
		rec.RemotePath = remotePath
		if url != "" {
			rec.Payload = model.RemoteRef(url)
		} else {
			// Upload landed but URL resolution failed; keep the bytes
			// locally so the record stays retrievable.
			rec.Payload = model.InlineRef(in.Data, contentType)
		}
	} else {
		rec.Payload = model.InlineRef(in.Data, contentType)
	}

	// The local index write is the only durability guarantee; its failure
	// is the only hard failure of this operation.
	if err := s.index.Prepend(rec); err != nil {
		return nil, fmt.Errorf("persist archive index: %w", err)
	}

	if err := s.registry.Record(ctx, rec); err != nil {
		s.log.Warn().Err(err).Str("archive_id", rec.ID).Msg("metadata registry write failed")
	}
	s.activity.Record(ctx, "archive_created", map[string]any{
		"archive_id": rec.ID,
		"file_name":  rec.FileName,
		"inline":     rec.Payload.IsInline(),
	})

	return &rec, nil
}

// uploadWithRetry attempts the remote upload up to uploadAttempts times with
// a fixed delay between failures. It returns the resolved download URL and
// whether the upload itself succeeded.
func (s *archiveService) uploadWithRetry(ctx context.Context, key string, data []byte, contentType string) (string, bool) {
	if err := s.store.EnsureBucket(ctx); err != nil {
		s.log.Warn().Err(err).Msg("ensure bucket failed")
	}

	for attempt := 1; attempt <= uploadAttempts; attempt++ {
		_, err := s.store.Upload(ctx, key, bytes.NewReader(data), storage.UploadOptions{
			Size:        int64(len(data)),
			ContentType: contentType,
		})
		if err == nil {
			url, uerr := s.store.PublicURL(ctx, key, s.urlExpiry)
			if uerr != nil {
				s.log.Warn().Err(uerr).Str("key", key).Msg("resolve download url failed")
				return "", true
			}
			return url, true
		}

		s.log.Warn().Err(err).Str("key", key).Int("attempt", attempt).Msg("remote upload failed")
		if attempt < uploadAttempts {
			if serr := s.sleep(ctx, retryDelay); serr != nil {
				break
			}
		}
	}
	return "", false
}

func (s *archiveService) List(ctx context.Context) ([]model.ArchiveRecord, error) {
	local, err := s.index.Load()
	if err != nil {
		return nil, fmt.Errorf("load archive index: %w", err)
	}

	objs, err := s.store.List(ctx)
	if err != nil {
		// Remote listing is an enrichment; the local index alone is a
		// complete answer for everything archived from this client.
		s.log.Warn().Err(err).Msg("remote listing failed, serving local index")
		return local, nil
	}
	if len(objs) == 0 && len(local) > 0 {
		return local, nil
	}

	known := make(map[string]struct{}, len(local))
	for _, r := range local {
		if r.RemotePath != "" {
			known[r.RemotePath] = struct{}{}
		}
	}

	var synthesized []model.ArchiveRecord
	for _, obj := range objs {
		if _, ok := known[obj.Key]; ok {
			continue
		}
		synthesized = append(synthesized, s.synthesize(ctx, obj))
	}
	// Remote-only entries carry no index position; order them newest object
	// first and append after the local, most-recent-first entries.
	sort.Slice(synthesized, func(a, b int) bool {
		return synthesized[a].UploadDate.After(synthesized[b].UploadDate)
	})

	return append(local, synthesized...), nil
}

// synthesize builds a minimal record from a remote listing entry alone: the
// id is the key's first path segment and no descriptive metadata is known.
func (s *archiveService) synthesize(ctx context.Context, obj storage.ObjectInfo) model.ArchiveRecord {
	id := obj.Key
	if i := strings.IndexByte(obj.Key, '/'); i > 0 {
		id = obj.Key[:i]
	}

	url, err := s.store.PublicURL(ctx, obj.Key, s.urlExpiry)
	if err != nil {
		s.log.Warn().Err(err).Str("key", obj.Key).Msg("resolve download url failed")
	}

	return model.ArchiveRecord{
		ID:          id,
		FileName:    path.Base(obj.Key),
		UploadDate:  obj.LastModified,
		FileSize:    obj.Size,
		ContentType: obj.ContentType,
		Payload:     model.RemoteRef(url),
		RemotePath:  obj.Key,
	}
}

func (s *archiveService) Get(ctx context.Context, id string) (*model.ArchiveRecord, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	rec, err := s.index.Find(id)
	if err != nil {
		return nil, fmt.Errorf("load archive index: %w", err)
	}
	if rec == nil {
		return nil, nil
	}

	// Download URLs are time-limited; refresh on every lookup. A failed
	// refresh returns the cached record as-is.
	if rec.RemotePath != "" {
		if url, uerr := s.store.PublicURL(ctx, rec.RemotePath, s.urlExpiry); uerr == nil {
			rec.Payload = model.RemoteRef(url)
		} else {
			s.log.Debug().Err(uerr).Str("archive_id", id).Msg("url refresh failed")
		}
	}
	return rec, nil
}

func (s *archiveService) Delete(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, ErrIDRequired
	}
	rec, err := s.index.Find(id)
	if err != nil {
		return false, fmt.Errorf("load archive index: %w", err)
	}
	if rec == nil {
		return false, nil
	}

	if rec.RemotePath != "" {
		if rerr := s.store.Remove(ctx, rec.RemotePath); rerr != nil {
			s.log.Warn().Err(rerr).Str("archive_id", id).Msg("remote delete failed")
		}
	}

	// Local index consistency is the success criterion.
	if _, err := s.index.Remove(id); err != nil {
		return false, fmt.Errorf("persist archive index: %w", err)
	}
	if err := s.index.DeleteRows(id); err != nil {
		s.log.Warn().Err(err).Str("archive_id", id).Msg("row cache purge failed")
	}

	s.activity.Record(ctx, "archive_deleted", map[string]any{"archive_id": id})
	return true, nil
}

func (s *archiveService) ClearAll(ctx context.Context) (bool, error) {
	recs, err := s.index.Load()
	if err != nil {
		return false, fmt.Errorf("load archive index: %w", err)
	}

	var keys []string
	for _, r := range recs {
		if r.RemotePath != "" {
			keys = append(keys, r.RemotePath)
		}
	}
	if len(keys) > 0 {
		if rerr := s.store.RemoveAll(ctx, keys); rerr != nil {
			s.log.Warn().Err(rerr).Int("objects", len(keys)).Msg("remote bulk delete failed")
		}
	}

	for _, r := range recs {
		if derr := s.index.DeleteRows(r.ID); derr != nil {
			s.log.Warn().Err(derr).Str("archive_id", r.ID).Msg("row cache purge failed")
		}
	}
	if err := s.index.Clear(); err != nil {
		return false, fmt.Errorf("persist archive index: %w", err)
	}
	return true, nil
}
