package ai

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/creditrust/credirag/internal/core/ports/driven"
)

// throttledEmbedding waits on a token bucket before each upstream call.
type throttledEmbedding struct {
	driven.EmbeddingService
	limiter *rate.Limiter
}

// ThrottleEmbedding limits svc to perSecond requests. Non-positive rates return svc unchanged.
func ThrottleEmbedding(svc driven.EmbeddingService, perSecond float64) driven.EmbeddingService {
	if perSecond <= 0 || svc == nil {
		return svc
	}
	return &throttledEmbedding{EmbeddingService: svc, limiter: newLimiter(perSecond)}
}

func (t *throttledEmbedding) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return t.EmbeddingService.Embed(ctx, text)
}

func (t *throttledEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return t.EmbeddingService.EmbedBatch(ctx, texts)
}

// throttledLLM waits on a token bucket before each generation.
type throttledLLM struct {
	driven.LLMService
	limiter *rate.Limiter
}

// ThrottleLLM limits svc to perSecond requests. Non-positive rates return svc unchanged.
func ThrottleLLM(svc driven.LLMService, perSecond float64) driven.LLMService {
	if perSecond <= 0 || svc == nil {
		return svc
	}
	return &throttledLLM{LLMService: svc, limiter: newLimiter(perSecond)}
}

func (t *throttledLLM) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return t.LLMService.Generate(ctx, prompt, opts)
}

// newLimiter allows a burst of one second's worth of requests.
func newLimiter(perSecond float64) *rate.Limiter {
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}
