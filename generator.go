package shorty

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/xerrors"
)

const (
	DefaultAlphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz1234567890"
	DefaultCodeLength = 6
)

// Generator produces candidate codes. It makes no uniqueness promise; the
// index retries until it finds an unused code.
type Generator interface {
	Generate() (code string, err error)
}

// GeneratorFunc adapts a plain function to the Generator interface.
type GeneratorFunc func() (string, error)

func (f GeneratorFunc) Generate() (string, error) { return f() }

// RandomGenerator draws fixed-length codes uniformly from an alphabet using
// a cryptographically secure source.
type RandomGenerator struct {
	alphabet string
	length   int
}

// compile-time assertion that we implement Generator
var _ Generator = &RandomGenerator{}

// NewRandomGenerator returns a generator for codes of the given length over
// alphabet. An empty alphabet or a zero length selects the default.
func NewRandomGenerator(alphabet string, length int) (*RandomGenerator, error) {
	if alphabet == "" {
		alphabet = DefaultAlphabet
	}
	if length == 0 {
		length = DefaultCodeLength
	}
	if length < 0 {
		return nil, xerrors.Errorf("code length must be positive, got %d: %w", length, ErrInvalidConfig)
	}
	if err := validateAlphabet(alphabet); err != nil {
		return nil, err
	}

	return &RandomGenerator{
		alphabet: alphabet,
		length:   length,
	}, nil
}

// validateAlphabet makes sure every symbol is an unreserved URL character and
// occurs only once, so codes are drawn uniformly and fit in a single path
// segment.
func validateAlphabet(alphabet string) error {
	if n := len(alphabet); n > 255 {
		return xerrors.Errorf("alphabet has %d symbols, at most 255 allowed: %w", n, ErrInvalidConfig)
	}

	seen := make(map[rune]bool, len(alphabet))
	for _, r := range alphabet {
		unreserved := 'a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || '0' <= r && r <= '9' ||
			r == '-' || r == '.' || r == '_' || r == '~'
		if !unreserved {
			return xerrors.Errorf("alphabet symbol %q is not allowed in a short URL path: %w", r, ErrInvalidConfig)
		}
		if seen[r] {
			return xerrors.Errorf("alphabet symbol %q occurs more than once: %w", r, ErrInvalidConfig)
		}
		seen[r] = true
	}
	return nil
}

// Generate returns a new random code.
func (g *RandomGenerator) Generate() (string, error) {
	code, err := gonanoid.Generate(g.alphabet, g.length)
	if err != nil {
		return "", xerrors.Errorf("error generating code: %w", err)
	}
	return code, nil
}
