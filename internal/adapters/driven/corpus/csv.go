package corpus

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"

	"github.com/creditrust/credirag/internal/core/domain"
	"github.com/creditrust/credirag/internal/core/ports/driven"
)

// Ensure CSVLoader implements the interface.
var _ driven.CorpusLoader = (*CSVLoader)(nil)

// CSVLoader reads delimited text exports.
type CSVLoader struct {
	columns driven.CorpusColumns
	comma   rune
}

// NewCSVLoader creates a loader for the given delimiter.
func NewCSVLoader(columns driven.CorpusColumns, comma rune) *CSVLoader {
	return &CSVLoader{columns: columns, comma: comma}
}

// Load reads every data row from path.
func (l *CSVLoader) Load(ctx context.Context, path string) ([]domain.CorpusRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &domain.IngestionError{Source: path, Reason: "open", Err: err}
	}
	defer f.Close()

	return l.Read(ctx, path, f)
}

// Read parses records from r. source names the input in errors.
func (l *CSVLoader) Read(ctx context.Context, source string, r io.Reader) ([]domain.CorpusRecord, error) {
	reader := csv.NewReader(r)
	reader.Comma = l.comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = false

	first, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, &domain.IngestionError{Source: source, Reason: "missing header row"}
	}
	if err != nil {
		return nil, &domain.IngestionError{Source: source, Reason: "read header", Err: err}
	}

	h, err := newHeader(source, first, l.columns)
	if err != nil {
		return nil, err
	}

	var records []domain.CorpusRecord
	for row := 1; ; row++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cells, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &domain.IngestionError{Source: source, Row: row, Reason: "malformed row", Err: err}
		}
		if blank(cells) {
			continue
		}
		records = append(records, h.record(row, cells))
	}

	if len(records) == 0 {
		return nil, noRows(source)
	}
	return records, nil
}
