package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/sifan077/shortlink/config"
	"github.com/sifan077/shortlink/internal/app/repository"
	infraPrometheus "github.com/sifan077/shortlink/internal/infra/prometheus"
	"go.uber.org/zap"
)

const (
	slugAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	DefaultSlugLength      = 6
	DefaultSlugMaxLength   = 20
	DefaultSlugMaxAttempts = 100
)

// reservedSlugs collide with fixed routes served next to /:slug.
var reservedSlugs = map[string]bool{
	"api":     true,
	"health":  true,
	"ready":   true,
	"metrics": true,
}

// ErrSlugSpaceExhausted means every attempt up to the maximum length collided.
var ErrSlugSpaceExhausted = errors.New("slug space exhausted")

// SlugChecker reports whether a slug is already stored.
type SlugChecker interface {
	SlugExists(ctx context.Context, slug string) (bool, error)
}

// SlugSource produces one random candidate of the given length.
type SlugSource func(length int) (string, error)

// SlugGeneratorDeps groups collaborators of the slug generator.
type SlugGeneratorDeps struct {
	Checker SlugChecker
	Source  SlugSource
	Logger  *zap.Logger
	Metrics *infraPrometheus.Metrics
}

// SlugGenerator draws random slugs and retries on collision, growing the length once
// MaxAttempts candidates in a row were taken.
type SlugGenerator struct {
	checker     SlugChecker
	source      SlugSource
	logger      *zap.Logger
	metrics     *infraPrometheus.Metrics
	length      int
	maxLength   int
	maxAttempts int
}

// NewSlugGenerator builds a generator; zero config values fall back to the defaults.
func NewSlugGenerator(cfg config.SlugConfig, deps SlugGeneratorDeps) *SlugGenerator {
	g := &SlugGenerator{
		checker:     deps.Checker,
		source:      deps.Source,
		logger:      deps.Logger,
		metrics:     deps.Metrics,
		length:      cfg.Length,
		maxLength:   cfg.MaxLength,
		maxAttempts: cfg.MaxAttempts,
	}
	if g.source == nil {
		g.source = RandomSlug
	}
	if g.logger == nil {
		g.logger = zap.NewNop()
	}
	if g.length <= 0 {
		g.length = DefaultSlugLength
	}
	if g.maxLength < g.length {
		g.maxLength = max(DefaultSlugMaxLength, g.length)
	}
	// Slugs longer than the column would fail on insert instead of exhausting the space.
	g.maxLength = min(g.maxLength, config.SlugColumnSize)
	g.length = min(g.length, g.maxLength)
	if g.maxAttempts <= 0 {
		g.maxAttempts = DefaultSlugMaxAttempts
	}
	return g
}

// Generate returns a slug that was not stored at the time of the check.
// The caller's insert may still lose a race; use CreateUnique to retry that case.
func (g *SlugGenerator) Generate(ctx context.Context) (string, error) {
	return g.CreateUnique(ctx, nil)
}

// CreateUnique draws candidates and hands each free one to insert. An insert failing with
// repository.ErrDuplicateSlug counts as a collision and the loop continues; any other
// insert error is returned as is.
func (g *SlugGenerator) CreateUnique(ctx context.Context, insert func(ctx context.Context, slug string) error) (string, error) {
	for length := g.length; length <= g.maxLength; length++ {
		if length > g.length {
			g.metrics.IncSlugLengthBumps()
			g.logger.Warn("slug attempts exhausted, increasing length",
				zap.Int("length", length),
				zap.Int("attempts", g.maxAttempts),
			)
		}

		for attempt := 1; attempt <= g.maxAttempts; attempt++ {
			if err := ctx.Err(); err != nil {
				return "", err
			}

			slug, err := g.source(length)
			if err != nil {
				return "", fmt.Errorf("generate slug: %w", err)
			}

			if reservedSlugs[strings.ToLower(slug)] {
				g.collision(slug, length, attempt, "reserved")
				continue
			}

			exists, err := g.checker.SlugExists(ctx, slug)
			if err != nil {
				return "", fmt.Errorf("check slug: %w", err)
			}
			if exists {
				g.collision(slug, length, attempt, "exists")
				continue
			}

			if insert == nil {
				return slug, nil
			}
			err = insert(ctx, slug)
			if err == nil {
				return slug, nil
			}
			if !errors.Is(err, repository.ErrDuplicateSlug) {
				return "", err
			}
			g.collision(slug, length, attempt, "insert")
		}
	}

	return "", fmt.Errorf("%w: %d attempts per length up to %d", ErrSlugSpaceExhausted, g.maxAttempts, g.maxLength)
}

func (g *SlugGenerator) collision(slug string, length, attempt int, stage string) {
	g.metrics.IncSlugCollisions()
	g.logger.Debug("slug collision",
		zap.String("slug", slug),
		zap.Int("length", length),
		zap.Int("attempt", attempt),
		zap.String("stage", stage),
	)
}

// RandomSlug samples length symbols uniformly from [a-zA-Z0-9] using crypto/rand.
func RandomSlug(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("slug length must be positive")
	}

	limit := big.NewInt(int64(len(slugAlphabet)))
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b[i] = slugAlphabet[n.Int64()]
	}
	return string(b), nil
}
