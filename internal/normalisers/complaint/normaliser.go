// Package complaint cleans consumer complaint narratives.
package complaint

import (
	"context"
	"html"
	"maps"
	"regexp"
	"strings"
	"time"

	"github.com/creditrust/credirag/internal/core/domain"
	"github.com/creditrust/credirag/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser cleans complaint narratives according to a CleaningMode.
type Normaliser struct {
	mode domain.CleaningMode
}

// New creates a normaliser. An unknown mode falls back to basic cleaning.
func New(mode domain.CleaningMode) *Normaliser {
	if !mode.IsValid() {
		mode = domain.CleaningBasic
	}
	return &Normaliser{mode: mode}
}

// Name returns the normaliser name.
func (n *Normaliser) Name() string {
	return "complaint/" + string(n.mode)
}

// Normalise converts a corpus record into a Document.
func (n *Normaliser) Normalise(_ context.Context, rec domain.CorpusRecord) (*domain.Document, error) {
	if rec.ID == "" {
		return nil, domain.ErrInvalidInput
	}

	return &domain.Document{
		ID:         rec.ID,
		Category:   strings.TrimSpace(rec.Category),
		Text:       n.Clean(rec.Narrative),
		ReceivedAt: ParseDate(rec.Received),
		Extra:      maps.Clone(rec.Extra),
	}, nil
}

// Clean applies the configured cleaning mode to text.
func (n *Normaliser) Clean(text string) string {
	switch n.mode {
	case domain.CleaningNone:
		return text
	case domain.CleaningAggressive:
		return aggressive(basic(text))
	default:
		return basic(text)
	}
}

// Pre-compiled regular expressions for narrative cleaning.
var (
	urls          = regexp.MustCompile(`https?://\S+|www\.\S+`)
	htmlTags      = regexp.MustCompile(`<[^>]*>`)
	redactedDates = regexp.MustCompile(`\b(?:XX|xx)/(?:XX|xx)/(?:XXXX|xxxx|\d{4})\b`)
	redactedRuns  = regexp.MustCompile(`\b(?:X{2,}|x{4,})\b`)
	emptyBraces   = regexp.MustCompile(`\{\s*\$?\s*\}`)
	multiSpaces   = regexp.MustCompile(`[ \t\r\f\v]+`)
	multiNewlines = regexp.MustCompile(`\n{3,}`)
	punctuation   = regexp.MustCompile(`[[:punct:]]+`)
	boilerplate   = regexp.MustCompile(`(?i)\b(?:` + strings.Join([]string{
		`i am writing to file a complaint(?: regarding)?`,
		`to whom it may concern`,
		`please find attached`,
		`thank you for your time`,
		`i want to start out this complaint by stating`,
		`i had a friend help me write this complaint`,
		`i(?: a| |')?m writing to complain about`,
	}, "|") + `)[,:]?`)
)

// basic strips markup, links, redaction placeholders and boilerplate while
// keeping paragraph structure for the segmenter.
func basic(text string) string {
	text = html.UnescapeString(text)
	text = htmlTags.ReplaceAllString(text, " ")
	text = urls.ReplaceAllString(text, " ")
	text = redactedDates.ReplaceAllString(text, " ")
	text = redactedRuns.ReplaceAllString(text, " ")
	text = emptyBraces.ReplaceAllString(text, " ")
	text = boilerplate.ReplaceAllString(text, " ")
	text = multiSpaces.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")
	text = multiNewlines.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}

// aggressive lowercases, removes punctuation and flattens whitespace.
func aggressive(text string) string {
	text = strings.ToLower(text)
	text = punctuation.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(text), " ")
}

var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ParseDate parses the corpus date formats. Unparseable input yields the zero time.
func ParseDate(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
