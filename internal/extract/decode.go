package extract

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	ErrNoSheets = errors.New("workbook has no sheets")
	ErrNoRows   = errors.New("sheet has no data rows")
)

// decodeRows opens the workbook, takes its first sheet and converts every
// data row into a map keyed by the normalized header names. Cells beyond the
// header width are dropped; missing trailing cells read as "".
func decodeRows(data []byte) ([]map[string]string, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheets
	}

	rows, err := file.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	if len(rows) < 2 { // header plus at least one data row
		return nil, ErrNoRows
	}

	header := make([]string, len(rows[0]))
	for i, col := range rows[0] {
		header[i] = strings.ToLower(strings.TrimSpace(col))
	}

	out := make([]map[string]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		m := make(map[string]string, len(header))
		empty := true
		for i, name := range header {
			if name == "" {
				continue
			}
			var v string
			if i < len(row) {
				v = strings.TrimSpace(row[i])
			}
			if v != "" {
				empty = false
			}
			m[name] = v
		}
		if empty {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}
