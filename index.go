package shorty

import (
	"context"
	"errors"
)

// Index keeps track of the URL <-> code mapping.
type Index interface {
	// Shorten returns the short URL for longURL, creating a new mapping if
	// none exists yet.
	Shorten(ctx context.Context, longURL string) (shortURL string, err error)
	// Resolve returns the URL mapped to code.
	Resolve(ctx context.Context, code string) (longURL string, err error)
}

var (
	ErrNotFound           = errors.New("not found in index")
	ErrInvalidURL         = errors.New("invalid URL")
	ErrCodeSpaceExhausted = errors.New("no free code available")
)
