// Package ragtest holds deterministic collaborators for pipeline tests.
package ragtest

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"strings"
	"sync"

	"resume-qa-be/internal/entity"
	"resume-qa-be/pkg/embedding"
	"resume-qa-be/pkg/index"
	"resume-qa-be/pkg/llm"
)

var ErrInjected = errors.New("injected failure")

// Embedder returns fixed vectors for known texts and a hashed bag-of-words vector otherwise.
type Embedder struct {
	mu       sync.Mutex
	Vectors  map[string][]float32
	FailNext int // number of upcoming calls that fail
	Calls    int
}

func NewEmbedder() *Embedder {
	return &Embedder{Vectors: map[string][]float32{}}
}

func (e *Embedder) Set(text string, vec ...float32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Vectors[text] = vec
}

func (e *Embedder) Generate(ctx context.Context, text string, taskType string) (*embedding.EmbeddingResponse, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Calls++
	if e.FailNext > 0 {
		e.FailNext--
		return nil, ErrInjected
	}
	if v, ok := e.Vectors[text]; ok {
		return &embedding.EmbeddingResponse{Embedding: embedding.EmbeddingResponseEmbedding{Values: v}}, nil
	}
	return &embedding.EmbeddingResponse{Embedding: embedding.EmbeddingResponseEmbedding{Values: BagOfWords(text)}}, nil
}

// BagOfWords hashes tokens into a small unit vector.
func BagOfWords(text string) []float32 {
	vec := make([]float32, 16)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		vec[h.Sum32()%16]++
	}
	return embedding.Normalize(vec)
}

// UnitAt returns a 2-d unit vector whose cosine with (1,0) is sim.
func UnitAt(sim float64) []float32 {
	return []float32{float32(sim), float32(math.Sqrt(1 - sim*sim))}
}

// Index wraps a SimilarityIndex and injects failures or latency per operation.
type Index struct {
	index.SimilarityIndex

	mu          sync.Mutex
	FailQueries int // upcoming Query calls that fail; negative fails forever
	FailUpserts bool
	QueryBlock  bool // Query blocks until ctx is done
	CountBlock  bool // Count blocks until ctx is done
	Queries     int
	Upserts     int
	Counts      int
}

func WrapIndex(inner index.SimilarityIndex) *Index {
	return &Index{SimilarityIndex: inner}
}

func (i *Index) Query(ctx context.Context, collection string, vector []float32, topK int) ([]index.Hit, error) {
	i.mu.Lock()
	i.Queries++
	block := i.QueryBlock
	fail := i.FailQueries != 0
	if i.FailQueries > 0 {
		i.FailQueries--
	}
	i.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if fail {
		return nil, ErrInjected
	}
	return i.SimilarityIndex.Query(ctx, collection, vector, topK)
}

func (i *Index) Count(ctx context.Context, collection string) (int64, error) {
	i.mu.Lock()
	i.Counts++
	block := i.CountBlock
	i.mu.Unlock()

	if block {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	return i.SimilarityIndex.Count(ctx, collection)
}

func (i *Index) Upsert(ctx context.Context, entry *entity.VectorEntry) error {
	i.mu.Lock()
	i.Upserts++
	fail := i.FailUpserts
	i.mu.Unlock()
	if fail {
		return ErrInjected
	}
	return i.SimilarityIndex.Upsert(ctx, entry)
}

// LLM replays scripted responses in order and records every call.
type LLM struct {
	mu        sync.Mutex
	Responses []string
	Errors    []error
	Prompts   []string
	Options   []llm.Options
	// Respond, when set, overrides the scripted responses.
	Respond func(prompt string, opts llm.Options) (string, error)
}

var _ llm.LLMProvider = &LLM{}

func (l *LLM) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.Prompts)
}

func (l *LLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return l.Generate(ctx, history[len(history)-1].Content, options...)
}

func (l *LLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	opts := llm.Apply(llm.Options{Temperature: 0.7}, options...)

	l.mu.Lock()
	defer l.mu.Unlock()
	n := len(l.Prompts)
	l.Prompts = append(l.Prompts, prompt)
	l.Options = append(l.Options, opts)

	if l.Respond != nil {
		return l.Respond(prompt, opts)
	}
	if n < len(l.Errors) && l.Errors[n] != nil {
		return "", l.Errors[n]
	}
	if n < len(l.Responses) {
		return l.Responses[n], nil
	}
	return "", errors.New("ragtest: no scripted response")
}
