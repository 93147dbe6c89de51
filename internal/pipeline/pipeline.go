// Package pipeline orchestrates a discovery run: free-text interpretation,
// place discovery, and concurrent contact-channel enrichment.
package pipeline

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/contactloop/leadscout/internal/config"
	"github.com/contactloop/leadscout/internal/enrich"
	"github.com/contactloop/leadscout/internal/finder"
	"github.com/contactloop/leadscout/internal/interpret"
	"github.com/contactloop/leadscout/internal/model"
	"github.com/contactloop/leadscout/internal/store"
)

const (
	minWorkers = 4
	maxWorkers = 8
)

// Pipeline wires the discovery stages together. The store is optional: a
// nil store runs discovery without persisting results.
type Pipeline struct {
	interpreter *interpret.Interpreter
	finder      *finder.Finder
	enricher    *enrich.SiteEnricher
	fallback    *enrich.FallbackSearcher
	store       store.Store

	workers            int
	maxFallbackQueries int64
	runTimeout         time.Duration
}

// New assembles a Pipeline from its stages. The enrichment worker count is
// clamped to [4, 8].
func New(
	interpreter *interpret.Interpreter,
	f *finder.Finder,
	enricher *enrich.SiteEnricher,
	fallback *enrich.FallbackSearcher,
	st store.Store,
	cfg config.EnrichConfig,
) *Pipeline {
	workers := cfg.Concurrency
	if workers < minWorkers {
		workers = minWorkers
	}
	if workers > maxWorkers {
		workers = maxWorkers
	}

	return &Pipeline{
		interpreter:        interpreter,
		finder:             f,
		enricher:           enricher,
		fallback:           fallback,
		store:              st,
		workers:            workers,
		maxFallbackQueries: int64(cfg.MaxFallbackQueries),
		runTimeout:         time.Duration(cfg.RunTimeoutSecs) * time.Second,
	}
}

// Run executes a full discovery for the given free-text query. It always
// returns a result: an uninterpretable query or an unresolvable city yields
// the parsed fields with an empty company list. Result order matches
// provider order.
func (p *Pipeline) Run(ctx context.Context, rawText string) model.DiscoveryResult {
	if p.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.runTimeout)
		defer cancel()
	}

	query := p.interpreter.Interpret(ctx, rawText)
	result := model.DiscoveryResult{Query: query, Companies: []model.EnrichedCompany{}}

	log := zap.L().With(
		zap.String("city", query.City),
		zap.String("industry", query.Industry),
	)

	if query.City == model.Unknown {
		log.Warn("pipeline: city could not be determined, skipping discovery")
		return result
	}

	keyword := query.Industry
	if keyword == model.Unknown {
		keyword = ""
	}

	candidates := p.finder.FindPlaces(ctx, query.City, keyword)
	if len(candidates) == 0 {
		log.Info("pipeline: no places found")
		return result
	}

	result.Companies = p.enrichAll(ctx, candidates)

	if p.store != nil {
		for _, c := range result.Companies {
			if _, err := p.store.UpsertCompany(ctx, c); err != nil {
				log.Warn("pipeline: persisting company failed",
					zap.String("company", c.Name),
					zap.Error(err),
				)
			}
		}
	}

	log.Info("pipeline: run complete", zap.Int("companies", len(result.Companies)))
	return result
}

// enrichAll fans candidate enrichment out over a bounded worker pool,
// preserving input order. A panic or failure in one worker never disturbs
// the others.
func (p *Pipeline) enrichAll(ctx context.Context, candidates []model.PlaceCandidate) []model.EnrichedCompany {
	companies := make([]model.EnrichedCompany, len(candidates))

	var fallbackBudget atomic.Int64
	fallbackBudget.Store(p.maxFallbackQueries)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i, candidate := range candidates {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					zap.L().Error("pipeline: enrichment panicked",
						zap.String("company", candidate.Name),
						zap.Any("panic", r),
					)
					companies[i] = model.EnrichedCompany{PlaceCandidate: candidate}
				}
			}()
			companies[i] = p.enrichOne(gctx, candidate, &fallbackBudget)
			return nil
		})
	}
	g.Wait() //nolint:errcheck

	return companies
}

// enrichOne scans the candidate's website and fills whatever channels
// remain unknown through fallback search, within the run's query budget.
func (p *Pipeline) enrichOne(ctx context.Context, candidate model.PlaceCandidate, budget *atomic.Int64) model.EnrichedCompany {
	company := model.EnrichedCompany{PlaceCandidate: candidate}

	if candidate.Website != nil {
		company.ChannelSet = p.enricher.Scan(ctx, *candidate.Website)
	}

	for _, field := range company.Missing() {
		if budget.Add(-1) < 0 {
			break
		}
		if found := p.fallback.Find(ctx, candidate.Name, field); found != nil {
			company.Fill(field, *found)
		}
	}

	return company
}
