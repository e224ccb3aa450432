package registry

import (
	"context"
	"strings"
	"time"

	"github.com/medguard/medguard-backend/pkg/logger"
	"github.com/medguard/medguard-backend/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// Chain is an ordered list of sources. The order is the priority used to pick
// a single winner when several registries know a medicine.
type Chain struct {
	sources    []Source
	sequential bool
	metrics    *metrics.VerificationMetrics
	logger     *logger.Logger
}

// ChainOption configures a Chain
type ChainOption func(*Chain)

// WithSequential makes Resolve try sources one at a time, stopping at the first hit
func WithSequential(sequential bool) ChainOption {
	return func(c *Chain) { c.sequential = sequential }
}

// WithMetrics records every lookup outcome
func WithMetrics(m *metrics.VerificationMetrics) ChainOption {
	return func(c *Chain) { c.metrics = m }
}

// NewChain orders sources by priority. Sources missing from priority keep
// their given order after the prioritised ones; unknown names are ignored.
func NewChain(sources []Source, priority []string, log *logger.Logger, opts ...ChainOption) *Chain {
	ordered := make([]Source, 0, len(sources))
	used := make(map[int]bool, len(sources))

	for _, name := range priority {
		for i, s := range sources {
			if !used[i] && strings.EqualFold(s.Name(), strings.TrimSpace(name)) {
				ordered = append(ordered, s)
				used[i] = true
				break
			}
		}
	}
	for i, s := range sources {
		if !used[i] {
			ordered = append(ordered, s)
		}
	}

	c := &Chain{
		sources: ordered,
		logger:  log.WithComponent("registry"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Names returns source names in priority order
func (c *Chain) Names() []string {
	names := make([]string, len(c.sources))
	for i, s := range c.sources {
		names[i] = s.Name()
	}
	return names
}

// LookupAll queries every source concurrently and waits for all of them.
// The result is index-aligned with Names; a failed or empty lookup is nil.
func (c *Chain) LookupAll(ctx context.Context, medicineName string) []*Match {
	results := make([]*Match, len(c.sources))

	var g errgroup.Group
	for i, s := range c.sources {
		i, s := i, s
		g.Go(func() error {
			results[i] = c.lookup(ctx, s, medicineName)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Select returns the first non-nil match in priority order
func (c *Chain) Select(results []*Match) *Match {
	for _, m := range results {
		if m != nil {
			return m
		}
	}
	return nil
}

// Resolve finds the winning match for a medicine, or nil when no registry knows it
func (c *Chain) Resolve(ctx context.Context, medicineName string) *Match {
	if !c.sequential {
		return c.Select(c.LookupAll(ctx, medicineName))
	}

	for _, s := range c.sources {
		if m := c.lookup(ctx, s, medicineName); m != nil {
			return m
		}
	}
	return nil
}

// lookup calls one source, converting failures into "no data"
func (c *Chain) lookup(ctx context.Context, s Source, medicineName string) *Match {
	start := time.Now()
	m, err := s.Lookup(ctx, medicineName)
	elapsed := time.Since(start)

	switch {
	case err != nil:
		c.metrics.RecordRegistryLookup(s.Name(), metrics.OutcomeError, elapsed)
		c.logger.Warn().
			Err(err).
			Str("source", s.Name()).
			Str("medicine_name", medicineName).
			Msg("registry lookup failed")
		return nil
	case m == nil:
		c.metrics.RecordRegistryLookup(s.Name(), metrics.OutcomeMiss, elapsed)
		return nil
	default:
		c.metrics.RecordRegistryLookup(s.Name(), metrics.OutcomeHit, elapsed)
		c.logger.Debug().
			Str("source", s.Name()).
			Str("medicine_name", medicineName).
			Str("generic_name", m.GenericName).
			Msg("registry match")
		return m
	}
}
