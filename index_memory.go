package shorty

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/xerrors"
)

const (
	DefaultSweepInterval = 5 * time.Second
	DefaultMaxAttempts   = 100
)

// MemoryIndex is an Index held in memory. Entries expire after a fixed TTL
// and are removed by a background sweep.
//
// Both directions of the mapping live behind a single lock, so every
// mutation updates them together.
type MemoryIndex struct {
	mu     sync.RWMutex
	byURL  map[string]Entry  // canonical URL -> entry
	byCode map[string]string // code -> canonical URL

	domain      string
	ttl         time.Duration
	gen         Generator
	maxAttempts int
	clock       func() time.Time
	logger      *slog.Logger

	scheduler *Scheduler
}

// compile-time assertions that we implement Index and Sweeper
var (
	_ Index   = &MemoryIndex{}
	_ Sweeper = &MemoryIndex{}
)

type memoryIndexOpts struct {
	gen           Generator
	sweepInterval time.Duration
	maxAttempts   int
	clock         func() time.Time
	logger        *slog.Logger
}

// Option configures a MemoryIndex.
type Option func(*memoryIndexOpts)

// WithGenerator sets the code generator. The default is a RandomGenerator
// with DefaultAlphabet and DefaultCodeLength.
func WithGenerator(g Generator) Option {
	return func(o *memoryIndexOpts) { o.gen = g }
}

// WithSweepInterval sets how often expired entries are removed. A
// non-positive interval disables the background sweep.
func WithSweepInterval(d time.Duration) Option {
	return func(o *memoryIndexOpts) { o.sweepInterval = d }
}

// WithMaxAttempts bounds the number of generated codes tried per insert.
func WithMaxAttempts(n int) Option {
	return func(o *memoryIndexOpts) { o.maxAttempts = n }
}

// WithClock replaces time.Now as the source of creation and sweep times.
func WithClock(clock func() time.Time) Option {
	return func(o *memoryIndexOpts) { o.clock = clock }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *memoryIndexOpts) { o.logger = l }
}

// NewMemoryIndex returns an empty index issuing short URLs on domain whose
// entries live for ttl. The eviction sweep starts right away; call Close to
// stop it.
func NewMemoryIndex(domain string, ttl time.Duration, opts ...Option) (*MemoryIndex, error) {
	o := memoryIndexOpts{
		sweepInterval: DefaultSweepInterval,
		maxAttempts:   DefaultMaxAttempts,
		clock:         time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if strings.TrimSpace(domain) == "" {
		return nil, xerrors.Errorf("domain must not be empty: %w", ErrInvalidConfig)
	}
	if ttl <= 0 {
		return nil, xerrors.Errorf("ttl must be positive, got %s: %w", ttl, ErrInvalidConfig)
	}
	if o.maxAttempts <= 0 {
		return nil, xerrors.Errorf("max attempts must be positive, got %d: %w", o.maxAttempts, ErrInvalidConfig)
	}
	if o.gen == nil {
		gen, err := NewRandomGenerator(DefaultAlphabet, DefaultCodeLength)
		if err != nil {
			return nil, err
		}
		o.gen = gen
	}
	if o.clock == nil {
		o.clock = time.Now
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	i := &MemoryIndex{
		byURL:       make(map[string]Entry),
		byCode:      make(map[string]string),
		domain:      domain,
		ttl:         ttl,
		gen:         o.gen,
		maxAttempts: o.maxAttempts,
		clock:       o.clock,
		logger:      o.logger.With(slog.String("component", "index")),
	}

	i.scheduler = NewScheduler(i, o.sweepInterval, o.clock, o.logger)
	i.scheduler.Start()

	return i, nil
}

// Shorten returns the short URL for longURL. Submitting the same URL again,
// in any letter case, returns the same short URL for as long as the entry
// lives. ErrInvalidURL is returned if longURL is not an absolute URL.
func (i *MemoryIndex) Shorten(ctx context.Context, longURL string) (string, error) {
	canonical := strings.ToLower(longURL)

	u, err := url.Parse(canonical)
	if err != nil {
		return "", xerrors.Errorf("could not parse '%s' as URL: %v: %w", longURL, err, ErrInvalidURL)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", xerrors.Errorf("'%s' is not an absolute URL: %w", longURL, ErrInvalidURL)
	}
	if pos := invalidURIByte(canonical); pos >= 0 {
		return "", xerrors.Errorf("'%s' contains an illegal character at index %d: %w", longURL, pos, ErrInvalidURL)
	}

	// fast path: most submissions are for URLs we already know
	i.mu.RLock()
	e, ok := i.byURL[canonical]
	i.mu.RUnlock()
	if ok {
		i.logger.DebugContext(ctx, "found existing entry", slog.String("url", canonical), slog.String("short_url", e.ShortURL))
		return e.ShortURL, nil
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	// another writer may have inserted canonical since we released the read lock
	if e, ok := i.byURL[canonical]; ok {
		i.logger.DebugContext(ctx, "found existing entry", slog.String("url", canonical), slog.String("short_url", e.ShortURL))
		return e.ShortURL, nil
	}

	code, err := i.uniqueCodeLocked()
	if err != nil {
		return "", err
	}

	e = Entry{
		URL:       canonical,
		ShortURL:  u.Scheme + "://" + i.domain + "/" + code,
		Code:      code,
		CreatedAt: i.clock(),
	}
	i.byURL[canonical] = e
	i.byCode[code] = canonical

	i.logger.DebugContext(ctx, "cached new entry", slog.String("url", canonical), slog.String("short_url", e.ShortURL))

	return e.ShortURL, nil
}

// invalidURIByte returns the index of the first byte of s that RFC 3986 does
// not allow in a URI, or -1. A '%' must start a two digit hex escape.
func invalidURIByte(s string) int {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		case strings.IndexByte("-._~:/?#[]@!$&'()*+,;=", c) >= 0:
		case c == '%':
			if i+2 >= len(s) || !isHex(s[i+1]) || !isHex(s[i+2]) {
				return i
			}
			i += 2
		default:
			return i
		}
	}
	return -1
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

// uniqueCodeLocked draws codes until one is unused. Callers must hold the
// write lock, so no other writer can claim the code before it is inserted.
func (i *MemoryIndex) uniqueCodeLocked() (string, error) {
	var lastErr error
	for attempt := 0; attempt < i.maxAttempts; attempt++ {
		code, err := i.gen.Generate()
		if err != nil {
			lastErr = err
			continue
		}
		if code == "" {
			continue
		}
		if _, taken := i.byCode[code]; !taken {
			return code, nil
		}
	}

	if lastErr != nil {
		return "", xerrors.Errorf("gave up after %d attempts (last generator error: %v): %w", i.maxAttempts, lastErr, ErrCodeSpaceExhausted)
	}
	return "", xerrors.Errorf("gave up after %d attempts with %d codes in use: %w", i.maxAttempts, len(i.byCode), ErrCodeSpaceExhausted)
}

// Resolve returns the URL mapped to code, or ErrNotFound. Expiry is not
// checked here; expired entries disappear with the next sweep.
func (i *MemoryIndex) Resolve(ctx context.Context, code string) (string, error) {
	i.mu.RLock()
	longURL, ok := i.byCode[code]
	i.mu.RUnlock()

	if !ok {
		return "", ErrNotFound
	}

	i.logger.DebugContext(ctx, "resolved code", slog.String("code", code), slog.String("url", longURL))
	return longURL, nil
}

// Sweep removes every entry created more than the TTL before now and returns
// the number of entries removed.
func (i *MemoryIndex) Sweep(now time.Time) int {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.logger.Debug("scanning for expired entries", slog.Int("entries", len(i.byURL)))

	removed := 0
	for key, e := range i.byURL {
		if !e.Expired(now, i.ttl) {
			continue
		}
		delete(i.byURL, key)
		delete(i.byCode, e.Code)
		removed++
		i.logger.Debug("evicted expired entry", slog.String("url", e.URL), slog.String("code", e.Code))
	}

	if removed > 0 {
		i.logger.Info("evicted expired entries", slog.Int("evicted", removed), slog.Int("remaining", len(i.byURL)))
	}

	return removed
}

// Len returns the number of entries, including expired ones not swept yet.
func (i *MemoryIndex) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.byURL)
}

// IsEmpty reports whether the index holds no entries.
func (i *MemoryIndex) IsEmpty() bool {
	return i.Len() == 0
}

// Close stops the eviction sweep. The entries stay, and the index keeps
// serving Shorten and Resolve. Close is safe to call multiple times.
func (i *MemoryIndex) Close() error {
	i.logger.Info("shutting down the index")
	i.scheduler.Stop()
	return nil
}
