package id

import (
	"context"
	"math/rand/v2"
	"strings"
	"sync"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Alphabet is the base-36 character set used for IDs and edit codes.
const Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

const (
	defaultIDLength   = 5
	defaultCodeLength = 8
)

// Generator produces short entry IDs and edit codes.
type Generator struct {
	idLength   int
	codeLength int
	generate   func(alphabet string, size int) (string, error)
}

// New returns a Generator backed by crypto entropy. Lengths <= 0 fall back to
// the defaults (5 for IDs, 8 for edit codes).
func New(idLength, codeLength int) *Generator {
	return &Generator{
		idLength:   orDefault(idLength, defaultIDLength),
		codeLength: orDefault(codeLength, defaultCodeLength),
		generate:   gonanoid.Generate,
	}
}

// NewSeeded returns a Generator with a deterministic random source. Two
// generators built from the same seed yield the same sequence.
func NewSeeded(seed uint64, idLength, codeLength int) *Generator {
	src := &seededSource{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
	return &Generator{
		idLength:   orDefault(idLength, defaultIDLength),
		codeLength: orDefault(codeLength, defaultCodeLength),
		generate:   src.generate,
	}
}

// ID returns a new short entry identifier. Uniqueness is not guaranteed.
func (g *Generator) ID(ctx context.Context) (string, error) {
	return g.token(ctx, g.idLength)
}

// EditCode returns a new default edit code.
func (g *Generator) EditCode(ctx context.Context) (string, error) {
	return g.token(ctx, g.codeLength)
}

func (g *Generator) token(ctx context.Context, size int) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}
	return g.generate(Alphabet, size)
}

type seededSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func (s *seededSource) generate(alphabet string, size int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var b strings.Builder
	b.Grow(size)
	for i := 0; i < size; i++ {
		b.WriteByte(alphabet[s.rng.IntN(len(alphabet))])
	}
	return b.String(), nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
