// Package hashing provides a deterministic embedder used when no embedding
// model is configured. It projects the raw bytes of the text through a seeded
// random matrix, so identical input always yields bit-identical vectors.
package hashing

import (
	"context"
	"math"
	"math/rand/v2"
)

const (
	DefaultDimensions = 384
	DefaultSeed       = 42
	inputWidth        = 1024
)

type Embedder struct {
	dims       int
	projection [][]float32
}

// New builds the projection once. dims <= 0 selects DefaultDimensions.
func New(dims int, seed uint64) *Embedder {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	rng := rand.New(rand.NewPCG(seed, seed))
	projection := make([][]float32, inputWidth)
	for i := range projection {
		row := make([]float32, dims)
		for j := range row {
			row[j] = float32(rng.NormFloat64())
		}
		projection[i] = row
	}
	return &Embedder{dims: dims, projection: projection}
}

func (e *Embedder) Dimensions() int { return e.dims }

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = append(out, e.vector(text))
	}
	return out, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.vector(text), nil
}

func (e *Embedder) vector(text string) []float32 {
	input := cycledBytes(text)
	vec := make([]float64, e.dims)
	for i, b := range input {
		if b == 0 {
			continue
		}
		weight := float64(b) / 255.0
		for j, p := range e.projection[i] {
			vec[j] += weight * float64(p)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	out := make([]float32, e.dims)
	for j, v := range vec {
		if norm > 0 {
			v /= norm
		}
		out[j] = float32(v)
	}
	return out
}

// cycledBytes repeats the text bytes until they fill the projection width.
// Empty text becomes a single zero byte followed by padding.
func cycledBytes(text string) []byte {
	src := []byte(text)
	if len(src) == 0 {
		src = []byte{0}
	}
	out := make([]byte, inputWidth)
	for i := range out {
		out[i] = src[i%len(src)]
	}
	return out
}
