package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/contactloop/leadscout/internal/dispatch"
	"github.com/contactloop/leadscout/internal/enrich"
	"github.com/contactloop/leadscout/internal/finder"
	"github.com/contactloop/leadscout/internal/geocode"
	"github.com/contactloop/leadscout/internal/interpret"
	"github.com/contactloop/leadscout/internal/pipeline"
	"github.com/contactloop/leadscout/internal/store"
	anthropicpkg "github.com/contactloop/leadscout/pkg/anthropic"
	"github.com/contactloop/leadscout/pkg/gemini"
	"github.com/contactloop/leadscout/pkg/places"
	"github.com/contactloop/leadscout/pkg/twilio"
	"github.com/contactloop/leadscout/pkg/websearch"
)

// appEnv holds all initialized clients and the assembled pipeline for the
// discover/serve/contact commands.
type appEnv struct {
	Store      store.Store
	Pipeline   *pipeline.Pipeline
	Dispatcher *dispatch.Dispatcher
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initApp sets up the store, all API clients, and builds the discovery
// pipeline. Callers should defer env.Close().
func initApp(ctx context.Context) (*appEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	gen, err := initTextGenerator()
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	interpreter := interpret.New(gen, cfg.Interpreter)

	placesClient := places.NewClient(cfg.Places.Key, places.WithBaseURL(cfg.Places.BaseURL))
	geocoder := geocode.New(placesClient, cfg.Places.Key, cfg.Places.GeocodeCacheSize)
	f := finder.New(geocoder, placesClient, cfg.Places, finder.WithMaxPlaces(cfg.Enrich.MaxPlaces))

	rules, err := enrich.LoadRules(cfg.Enrich.RulesPath)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	enricher := enrich.NewSiteEnricher(
		enrich.WithRules(rules),
		enrich.WithTimeout(time.Duration(cfg.Enrich.SiteTimeoutSecs)*time.Second),
	)

	searchClient := websearch.NewClient(cfg.Search.Key, websearch.WithBaseURL(cfg.Search.BaseURL))
	fallback := enrich.NewFallbackSearcher(searchClient)

	p := pipeline.New(interpreter, f, enricher, fallback, st, cfg.Enrich)

	var tw twilio.Client
	if cfg.Twilio.SID != "" {
		tw = twilio.NewClient(cfg.Twilio.SID, cfg.Twilio.AuthToken)
	} else {
		zap.L().Debug("LEADSCOUT_TWILIO_SID not set, phone channels disabled")
	}
	dispatcher := dispatch.New(tw, st, cfg.Twilio)

	return &appEnv{
		Store:      st,
		Pipeline:   p,
		Dispatcher: dispatcher,
	}, nil
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "leadscout.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initTextGenerator() (interpret.TextGenerator, error) {
	switch cfg.Interpreter.Provider {
	case "gemini":
		return gemini.NewClient(cfg.Gemini.Key,
			gemini.WithEndpoint(cfg.Gemini.Endpoint),
			gemini.WithModel(cfg.Gemini.Model),
			gemini.WithMaxTokens(cfg.Interpreter.MaxTokens),
		), nil
	case "anthropic":
		return anthropicpkg.NewClient(cfg.Anthropic.Key,
			anthropicpkg.WithModel(cfg.Anthropic.Model),
			anthropicpkg.WithMaxTokens(int64(cfg.Interpreter.MaxTokens)),
		), nil
	default:
		return nil, eris.Errorf("unsupported interpreter provider: %s", cfg.Interpreter.Provider)
	}
}
