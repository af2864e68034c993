package complaint

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creditrust/credirag/internal/core/domain"
)

func TestNormaliser_Basic(t *testing.T) {
	n := New(domain.CleaningBasic)

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "strips urls and tags",
			input:    "See <b>https://bank.example/fees</b> for details.",
			expected: "See for details.",
		},
		{
			name:     "removes redaction placeholders",
			input:    "On XX/XX/2022 I paid {$500.00} to XXXX XXXX bank.",
			expected: "On I paid {$500.00} to bank.",
		},
		{
			name:     "removes boilerplate",
			input:    "To whom it may concern, my card was declined.",
			expected: "my card was declined.",
		},
		{
			name:     "keeps paragraphs",
			input:    "First   paragraph.\n\n\n\n  Second paragraph.  ",
			expected: "First paragraph.\n\nSecond paragraph.",
		},
		{
			name:     "unescapes entities",
			input:    "Fees &amp; charges",
			expected: "Fees & charges",
		},
		{
			name:     "whitespace only",
			input:    " \n\t ",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, n.Clean(tt.input))
		})
	}
}

func TestNormaliser_Aggressive(t *testing.T) {
	n := New(domain.CleaningAggressive)
	got := n.Clean("I am writing to file a complaint regarding my OVERDRAFT fee!\n\nIt's unfair.")
	assert.Equal(t, "my overdraft fee it s unfair", got)
}

func TestNormaliser_None(t *testing.T) {
	n := New(domain.CleaningNone)
	assert.Equal(t, "  <b>raw</b>  ", n.Clean("  <b>raw</b>  "))
}

func TestNormaliser_UnknownModeFallsBackToBasic(t *testing.T) {
	n := New(domain.CleaningMode("weird"))
	assert.Equal(t, "complaint/basic", n.Name())
}

func TestNormaliser_Deterministic(t *testing.T) {
	n := New(domain.CleaningBasic)
	in := "XXXX charged me <i>twice</i> www.example.com  ok"
	assert.Equal(t, n.Clean(in), n.Clean(in))
}

func TestNormaliser_Normalise(t *testing.T) {
	n := New(domain.CleaningBasic)
	rec := domain.CorpusRecord{
		Row:       3,
		ID:        "4417",
		Category:  " Credit card ",
		Narrative: "The   bank charged me.",
		Received:  "2023-05-01",
		Extra:     map[string]string{"Issue": "Fees"},
	}

	doc, err := n.Normalise(context.Background(), rec)
	require.NoError(t, err)

	assert.Equal(t, "4417", doc.ID)
	assert.Equal(t, "Credit card", doc.Category)
	assert.Equal(t, "The bank charged me.", doc.Text)
	assert.Equal(t, time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC), doc.ReceivedAt)
	assert.Equal(t, "Fees", doc.Extra["Issue"])

	rec.Extra["Issue"] = "changed"
	assert.Equal(t, "Fees", doc.Extra["Issue"], "extra map must be copied")
}

func TestNormaliser_Normalise_MissingID(t *testing.T) {
	_, err := New(domain.CleaningBasic).Normalise(context.Background(), domain.CorpusRecord{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
	}{
		{"2021-11-30", time.Date(2021, 11, 30, 0, 0, 0, 0, time.UTC)},
		{"11/30/2021", time.Date(2021, 11, 30, 0, 0, 0, 0, time.UTC)},
		{"", time.Time{}},
		{"yesterday", time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDate(tt.input))
		})
	}
}
