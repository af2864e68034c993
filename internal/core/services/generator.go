package services

import (
	"context"
	"fmt"
	"strings"
	"text/template"
	"time"
	"unicode/utf8"

	"github.com/creditrust/credirag/internal/core/domain"
	"github.com/creditrust/credirag/internal/core/ports/driven"
	"github.com/creditrust/credirag/internal/core/ports/driving"
	"github.com/creditrust/credirag/internal/logger"
)

// Ensure GeneratorService implements the interface.
var _ driving.AnswerGenerator = (*GeneratorService)(nil)

const (
	blockSeparator = "\n\n"
	excerptLength  = 240
)

// GeneratorConfig holds prompt and model parameters.
type GeneratorConfig struct {
	// MaxContextChars bounds the CONTEXT block, counted in characters.
	MaxContextChars int

	Temperature float64
	MaxTokens   int

	// Timeout bounds the model call. Zero means no timeout.
	Timeout time.Duration
}

// GeneratorService assembles grounded prompts and calls the language model once.
type GeneratorService struct {
	llm     driven.LLMService
	prompts driven.PromptStore
	cfg     GeneratorConfig
}

// NewGenerator creates a generator. llm may be nil, in which case Compose
// works and Generate fails with domain.ErrLLMUnavailable. prompts may be nil.
func NewGenerator(llm driven.LLMService, prompts driven.PromptStore, cfg GeneratorConfig) *GeneratorService {
	if cfg.MaxContextChars <= 0 {
		cfg.MaxContextChars = domain.DefaultMaxContextChars
	}
	return &GeneratorService{llm: llm, prompts: prompts, cfg: cfg}
}

type promptData struct {
	Context  string
	Question string
}

// Compose builds the prompt. Context blocks are added in rank order until the
// next one would exceed the budget; the rest are dropped whole.
func (g *GeneratorService) Compose(query string, retrieved *domain.RetrievalResult) (*domain.Prompt, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.ErrEmptyQuery
	}
	if retrieved == nil || retrieved.Empty() {
		return nil, domain.ErrNoRelevantContext
	}

	tmpl, err := g.template()
	if err != nil {
		return nil, err
	}

	var blocks []string
	used := 0
	for i, hit := range retrieved.Hits {
		block := formatBlock(i+1, hit)
		size := utf8.RuneCountInString(block)
		if len(blocks) > 0 {
			size += len(blockSeparator)
		}
		if used+size > g.cfg.MaxContextChars {
			break
		}
		blocks = append(blocks, block)
		used += size
	}

	if len(blocks) == 0 {
		return nil, fmt.Errorf("%w: top source needs %d characters, budget is %d",
			domain.ErrContextBudget, utf8.RuneCountInString(formatBlock(1, retrieved.Hits[0])), g.cfg.MaxContextChars)
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, promptData{
		Context:  strings.Join(blocks, blockSeparator),
		Question: query,
	}); err != nil {
		return nil, fmt.Errorf("render answer prompt: %w", err)
	}

	dropped := len(retrieved.Hits) - len(blocks)
	if dropped > 0 {
		logger.Debug("compose: dropped %d lowest-ranked sources to fit %d characters", dropped, g.cfg.MaxContextChars)
	}

	return &domain.Prompt{
		Text:         sb.String(),
		Used:         retrieved.Hits[:len(blocks)],
		Dropped:      dropped,
		ContextChars: used,
	}, nil
}

// Generate composes the prompt and makes exactly one model call.
func (g *GeneratorService) Generate(
	ctx context.Context, query string, retrieved *domain.RetrievalResult,
) (*domain.Answer, error) {
	if g.llm == nil {
		return nil, domain.ErrLLMUnavailable
	}

	prompt, err := g.Compose(query, retrieved)
	if err != nil {
		return nil, err
	}

	stageFrom(ctx).enter(domain.TurnInvoking)

	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	done := logger.Timed("generate")
	text, err := g.llm.Generate(ctx, prompt.Text, driven.GenerateOptions{
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
	})
	done()
	if err != nil {
		return nil, &domain.GenerationError{Model: g.llm.ModelName(), Err: err}
	}

	return &domain.Answer{
		Text:          strings.TrimSpace(text),
		Sources:       Citations(prompt.Used),
		Model:         g.llm.ModelName(),
		DroppedChunks: prompt.Dropped,
		IndexVersion:  retrieved.IndexVersion,
	}, nil
}

func (g *GeneratorService) template() (*template.Template, error) {
	text := driven.DefaultAnswerPrompt
	if g.prompts != nil {
		loaded, err := g.prompts.Load(driven.PromptAnswer)
		if err != nil {
			logger.Warn("loading answer prompt, using built-in template: %v", err)
		} else {
			text = loaded
		}
	}

	tmpl, err := template.New(driven.PromptAnswer).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse answer prompt: %w", err)
	}
	return tmpl, nil
}

// formatBlock renders one tagged context block. Rank is 1-based.
func formatBlock(rank int, hit domain.Hit) string {
	return fmt.Sprintf("[Source %d | Complaint %s | Product: %s]\n%s",
		rank, hit.Chunk.DocumentID, hit.Chunk.Category, strings.TrimSpace(hit.Chunk.Text))
}

// Citations converts hits into source citations in rank order.
func Citations(hits []domain.Hit) []domain.Citation {
	out := make([]domain.Citation, len(hits))
	for i, h := range hits {
		out[i] = domain.Citation{
			Rank:       i + 1,
			DocumentID: h.Chunk.DocumentID,
			Category:   h.Chunk.Category,
			Excerpt:    Excerpt(h.Chunk.Text, excerptLength),
			Score:      h.Score,
		}
	}
	return out
}

// Excerpt shortens text to at most n characters on a word boundary.
func Excerpt(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	cut := string(runes[:n])
	if runes[n] != ' ' {
		if i := strings.LastIndexByte(cut, ' '); i > len(cut)/2 {
			cut = cut[:i]
		}
	}
	return cut + "..."
}
