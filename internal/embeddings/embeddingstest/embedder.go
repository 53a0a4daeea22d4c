// Package embeddingstest provides a deterministic offline embedder for tests.
package embeddingstest

import (
	"context"
	"strings"
	"sync"
	"unicode"
)

// Dimension of every vector produced by Embedder
const Dimension = 27

// Embedder maps text to letter-frequency vectors so that texts sharing words
// land close together. It never fails unless Err is set.
type Embedder struct {
	mu    sync.Mutex
	Err   error
	Calls int
}

// Embed embeds a single text
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.Calls++
	err := e.Err
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return Vector(text), nil
}

// EmbedBatch embeds texts in order
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// GetDimension returns Dimension
func (e *Embedder) GetDimension() int { return Dimension }

// Vector returns the letter-frequency vector for text. The last component is
// constant so that no vector is zero.
func Vector(text string) []float32 {
	v := make([]float32, Dimension)
	for _, r := range strings.ToLower(text) {
		if r < unicode.MaxASCII && r >= 'a' && r <= 'z' {
			v[r-'a']++
		}
	}
	v[Dimension-1] = 1
	return v
}
