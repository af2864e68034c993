package corpus

import (
	"context"

	"github.com/xuri/excelize/v2"

	"github.com/creditrust/credirag/internal/core/domain"
	"github.com/creditrust/credirag/internal/core/ports/driven"
)

// Ensure XLSXLoader implements the interface.
var _ driven.CorpusLoader = (*XLSXLoader)(nil)

// XLSXLoader reads the first sheet of an Excel workbook.
type XLSXLoader struct {
	columns driven.CorpusColumns
}

// NewXLSXLoader creates a workbook loader.
func NewXLSXLoader(columns driven.CorpusColumns) *XLSXLoader {
	return &XLSXLoader{columns: columns}
}

// Load streams the rows of the first sheet.
func (l *XLSXLoader) Load(ctx context.Context, path string) ([]domain.CorpusRecord, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &domain.IngestionError{Source: path, Reason: "open workbook", Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &domain.IngestionError{Source: path, Reason: "workbook has no sheets"}
	}

	rows, err := f.Rows(sheets[0])
	if err != nil {
		return nil, &domain.IngestionError{Source: path, Reason: "read sheet " + sheets[0], Err: err}
	}
	defer rows.Close()

	var h *header
	var records []domain.CorpusRecord
	row := 0
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cells, err := rows.Columns()
		if err != nil {
			return nil, &domain.IngestionError{Source: path, Row: row, Reason: "malformed row", Err: err}
		}

		if h == nil {
			if blank(cells) {
				continue
			}
			if h, err = newHeader(path, cells, l.columns); err != nil {
				return nil, err
			}
			continue
		}

		row++
		if blank(cells) {
			continue
		}
		records = append(records, h.record(row, cells))
	}
	if err := rows.Error(); err != nil {
		return nil, &domain.IngestionError{Source: path, Reason: "read rows", Err: err}
	}

	if h == nil {
		return nil, &domain.IngestionError{Source: path, Reason: "missing header row"}
	}
	if len(records) == 0 {
		return nil, noRows(path)
	}
	return records, nil
}
