package extract

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"sheetvault/internal/cache"
	"sheetvault/internal/model"
	"sheetvault/internal/orders"
)

// workbookBytes builds an in-memory xlsx whose first sheet holds the given
// rows (first row is the header).
func workbookBytes(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func ordersWorkbook(t *testing.T) []byte {
	return workbookBytes(t, [][]any{
		{"Order_ID", "Customer", "Product"},
		{"o-1", "Acme", "Widget"},
		{"o-2", "Globex", "Sprocket"},
	})
}

func newTestPipeline(httpClient Doer) (*Pipeline, *cache.Index) {
	idx := cache.NewIndex(cache.NewMemoryStore())
	return NewPipeline(idx, orders.NewValidator(), httpClient, zerolog.Nop()), idx
}

func TestPipeline_ExtractInlinePayload(t *testing.T) {
	p, idx := newTestPipeline(nil)
	rec := &model.ArchiveRecord{
		ID:       "a1",
		FileName: "orders.xlsx",
		Payload:  model.InlineRef(ordersWorkbook(t), "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"),
	}

	rows, err := p.Extract(context.Background(), rec)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "o-1", rows[0].OrderID)
	assert.Equal(t, "Globex", rows[1].Customer)

	// The accepted rows are cached keyed by archive id.
	rs, ok, err := idx.LoadRows("a1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rows, rs.Rows)
}

func TestPipeline_ExtractRemotePayload(t *testing.T) {
	wb := ordersWorkbook(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(wb)
	}))
	defer srv.Close()

	p, _ := newTestPipeline(srv.Client())
	rec := &model.ArchiveRecord{ID: "a1", FileName: "orders.xlsx", Payload: model.RemoteRef(srv.URL + "/orders.xlsx")}

	rows, err := p.Extract(context.Background(), rec)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestPipeline_FetchFailureServesCachedRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p, idx := newTestPipeline(srv.Client())
	cached := model.RowSet{
		ArchiveID:   "a1",
		Rows:        []model.OrderRow{{OrderID: "o-9", Customer: "Cached Co", Quantity: 1}},
		ExtractedAt: time.Now().UTC(),
	}
	require.NoError(t, idx.SaveRows(cached))

	rec := &model.ArchiveRecord{ID: "a1", Payload: model.RemoteRef(srv.URL + "/gone.xlsx")}
	rows, err := p.Extract(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, cached.Rows, rows)
}

func TestPipeline_FetchFailureWithoutCachePropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	p, _ := newTestPipeline(srv.Client())
	rec := &model.ArchiveRecord{ID: "a1", Payload: model.RemoteRef(srv.URL + "/gone.xlsx")}

	_, err := p.Extract(context.Background(), rec)
	assert.ErrorContains(t, err, "HTTP 404")
}

func TestPipeline_DecodeFailureServesCachedRows(t *testing.T) {
	p, idx := newTestPipeline(nil)
	cached := model.RowSet{ArchiveID: "a1", Rows: []model.OrderRow{{OrderID: "o-9", Customer: "Cached Co"}}}
	require.NoError(t, idx.SaveRows(cached))

	rec := &model.ArchiveRecord{ID: "a1", FileName: "broken.xlsx", Payload: model.InlineRef([]byte("not a workbook"), "text/plain")}
	rows, err := p.Extract(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, cached.Rows, rows)
}

func TestPipeline_DecodeFailureWithoutCachePropagates(t *testing.T) {
	p, _ := newTestPipeline(nil)
	rec := &model.ArchiveRecord{ID: "a1", FileName: "broken.xlsx", Payload: model.InlineRef([]byte("not a workbook"), "text/plain")}

	_, err := p.Extract(context.Background(), rec)
	assert.ErrorContains(t, err, "decode broken.xlsx")
}

func TestPipeline_HeaderOnlyWorkbook(t *testing.T) {
	p, _ := newTestPipeline(nil)
	wb := workbookBytes(t, [][]any{{"Order_ID", "Customer"}})
	rec := &model.ArchiveRecord{ID: "a1", FileName: "empty.xlsx", Payload: model.InlineRef(wb, "application/vnd.ms-excel")}

	_, err := p.Extract(context.Background(), rec)
	assert.ErrorIs(t, err, ErrNoRows)
}

func TestPipeline_AllRowsRejected(t *testing.T) {
	p, idx := newTestPipeline(nil)
	wb := workbookBytes(t, [][]any{
		{"Order_ID", "Customer"},
		{"", "missing id"},
	})
	rec := &model.ArchiveRecord{ID: "a1", FileName: "bad.xlsx", Payload: model.InlineRef(wb, "application/vnd.ms-excel")}

	_, err := p.Extract(context.Background(), rec)
	assert.ErrorIs(t, err, ErrNoValidRows)

	_, ok, err := idx.LoadRows("a1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPipeline_AllRowsRejectedServesCachedRows(t *testing.T) {
	p, idx := newTestPipeline(nil)
	cached := model.RowSet{ArchiveID: "a1", Rows: []model.OrderRow{{OrderID: "o-9", Customer: "Cached Co"}}}
	require.NoError(t, idx.SaveRows(cached))

	wb := workbookBytes(t, [][]any{
		{"Order_ID", "Customer"},
		{"", "missing id"},
	})
	rec := &model.ArchiveRecord{ID: "a1", FileName: "bad.xlsx", Payload: model.InlineRef(wb, "application/vnd.ms-excel")}

	rows, err := p.Extract(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, cached.Rows, rows)
}

func TestPipeline_MissingPayload(t *testing.T) {
	p, _ := newTestPipeline(nil)
	rec := &model.ArchiveRecord{ID: "a1", Payload: model.PayloadRef{}}

	_, err := p.Extract(context.Background(), rec)
	assert.ErrorIs(t, err, model.ErrNoPayload)
}
