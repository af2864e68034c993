// Package corpus reads tabular complaint exports into corpus records.
package corpus

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/creditrust/credirag/internal/core/domain"
	"github.com/creditrust/credirag/internal/core/ports/driven"
)

// Ensure Loader implements the interface.
var _ driven.CorpusLoader = (*Loader)(nil)

// Loader selects a format reader from the file extension.
type Loader struct {
	columns driven.CorpusColumns
}

// New creates a loader that maps the given header names.
func New(columns driven.CorpusColumns) *Loader {
	return &Loader{columns: columns}
}

// Load reads the corpus at path.
func (l *Loader) Load(ctx context.Context, path string) ([]domain.CorpusRecord, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return NewCSVLoader(l.columns, ',').Load(ctx, path)
	case ".tsv":
		return NewCSVLoader(l.columns, '\t').Load(ctx, path)
	case ".xlsx":
		return NewXLSXLoader(l.columns).Load(ctx, path)
	default:
		return nil, &domain.IngestionError{
			Source: path,
			Reason: fmt.Sprintf("file type %q", ext),
			Err:    domain.ErrUnsupportedType,
		}
	}
}

// header resolves column names to cell positions.
type header struct {
	source    string
	names     []string
	id        int
	category  int
	narrative int
	date      int
}

func newHeader(source string, cells []string, cols driven.CorpusColumns) (*header, error) {
	index := make(map[string]int, len(cells))
	names := make([]string, len(cells))
	for i, cell := range cells {
		name := strings.TrimSpace(strings.TrimPrefix(cell, "\ufeff"))
		names[i] = name
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	h := &header{source: source, names: names, date: -1}

	var missing []string
	for _, col := range []struct {
		name string
		dst  *int
	}{
		{cols.ID, &h.id},
		{cols.Category, &h.category},
		{cols.Narrative, &h.narrative},
	} {
		pos, ok := index[col.name]
		if !ok || col.name == "" {
			missing = append(missing, fmt.Sprintf("%q", col.name))
			continue
		}
		*col.dst = pos
	}
	if len(missing) > 0 {
		return nil, &domain.IngestionError{
			Source: source,
			Reason: "missing required column " + strings.Join(missing, ", "),
		}
	}

	if pos, ok := index[cols.Date]; ok && cols.Date != "" {
		h.date = pos
	}
	return h, nil
}

// record maps a data row. Short rows read missing cells as empty.
func (h *header) record(row int, cells []string) domain.CorpusRecord {
	cell := func(i int) string {
		if i < 0 || i >= len(cells) {
			return ""
		}
		return strings.TrimSpace(cells[i])
	}

	rec := domain.CorpusRecord{
		Row:       row,
		ID:        cell(h.id),
		Category:  cell(h.category),
		Narrative: cell(h.narrative),
		Received:  cell(h.date),
	}

	for i, name := range h.names {
		if name == "" || i == h.id || i == h.category || i == h.narrative || i == h.date {
			continue
		}
		if v := cell(i); v != "" {
			if rec.Extra == nil {
				rec.Extra = make(map[string]string)
			}
			rec.Extra[name] = v
		}
	}
	return rec
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func noRows(source string) error {
	return &domain.IngestionError{Source: source, Reason: "no data rows"}
}
