// Package hashing provides an offline embedding service based on feature hashing.
//
// Text is lowercased, split into words, stripped of stopwords and reduced to
// Porter stems. Each stem and each adjacent stem pair is hashed into a fixed
// number of buckets with a sign bit, and the result is L2-normalised. The
// vectors are deterministic and need no model download, which makes them a
// reasonable default for lexical similarity over complaint narratives.
package hashing

import (
	"context"
	"math"
	"strings"
	"unicode"

	"github.com/blevesearch/go-porterstemmer"
	"github.com/cespare/xxhash/v2"

	"github.com/creditrust/credirag/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultModel      = "hashing-v1"
	DefaultDimensions = 384

	bigramWeight = 0.5
)

// Config holds configuration for the hashing embedder.
type Config struct {
	// Model names the vector space. Changing it invalidates existing indexes.
	Model string

	// Dimensions is the number of hash buckets (default: 384).
	Dimensions int
}

// EmbeddingService hashes text features into dense vectors.
type EmbeddingService struct {
	model      string
	dimensions int
}

// NewEmbeddingService creates a new hashing embedder.
func NewEmbeddingService(cfg Config) *EmbeddingService {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}
	return &EmbeddingService{model: cfg.Model, dimensions: cfg.Dimensions}
}

// Embed generates a vector for text. Text without features yields a zero vector.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float64, s.dimensions)
	terms := Terms(text)
	for i, term := range terms {
		s.add(vec, term, 1)
		if i > 0 {
			s.add(vec, terms[i-1]+" "+term, bigramWeight)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	out := make([]float32, s.dimensions)
	if norm == 0 {
		return out, nil
	}
	norm = math.Sqrt(norm)
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out, nil
}

func (s *EmbeddingService) add(vec []float64, feature string, weight float64) {
	h := xxhash.Sum64String(feature)
	sign := 1.0
	if h>>63 == 1 {
		sign = -1
	}
	vec[h%uint64(s.dimensions)] += sign * weight
}

// EmbedBatch embeds each text in order.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := s.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping always succeeds.
func (s *EmbeddingService) Ping(context.Context) error {
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}

// Terms returns the stemmed, stopword-free words of text in order.
func Terms(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	terms := make([]string, 0, len(words))
	for _, w := range words {
		if len(w) < 2 || stopwords[w] || isRedaction(w) {
			continue
		}
		terms = append(terms, porterstemmer.StemString(w))
	}
	return terms
}

// isRedaction reports runs like "xxxx" used to mask personal data.
func isRedaction(w string) bool {
	return len(w) >= 2 && strings.Trim(w, "x") == ""
}

var stopwords = func() map[string]bool {
	words := strings.Fields(`a about above after again against all am an and any are as at be
		because been before being below between both but by can could did do does doing
		down during each few for from further had has have having he her here hers herself
		him himself his how i if in into is it its itself just me more most my myself no
		nor not now of off on once only or other our ours ourselves out over own same she
		should so some such than that the their theirs them themselves then there these they
		this those through to too under until up very was we were what when where which
		while who whom why will with would you your yours yourself yourselves`)
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}()
