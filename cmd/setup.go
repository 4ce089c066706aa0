package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/PolicyEngine/spm-calculator/internal/baseline"
	"github.com/PolicyEngine/spm-calculator/internal/config"
	"github.com/PolicyEngine/spm-calculator/internal/engine"
	"github.com/PolicyEngine/spm-calculator/internal/geoadj"
	"github.com/PolicyEngine/spm-calculator/internal/ingest"
	"github.com/PolicyEngine/spm-calculator/internal/store"
	"github.com/PolicyEngine/spm-calculator/pkg/acs"
)

// buildEngine wires the threshold engine from configuration. The returned
// cleanup closes the persistent store when one is configured.
func buildEngine(ctx context.Context, cfg *config.Config) (*engine.Engine, func(), error) {
	base, err := buildBaseline(cfg)
	if err != nil {
		return nil, nil, err
	}

	source := buildRentSource(cfg)

	st, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	geo := geoadj.New(source, geoadj.Options{
		MaxTables: cfg.Cache.MaxTables,
		Store:     st,
	})

	cleanup := func() {
		if st != nil {
			if err := st.Close(); err != nil {
				zap.L().Warn("store: close failed", zap.Error(err))
			}
		}
	}

	return engine.New(base, geo), cleanup, nil
}

func buildBaseline(cfg *config.Config) (*baseline.Resolver, error) {
	opts := baseline.Options{ProjectionRate: cfg.Thresholds.ProjectionRate}

	if cfg.Thresholds.PublishedXLSX != "" {
		published, err := ingest.ReadPublishedThresholds(cfg.Thresholds.PublishedXLSX, ingest.XLSXOptions{})
		if err != nil {
			return nil, eris.Wrapf(err, "load published workbook %s", cfg.Thresholds.PublishedXLSX)
		}
		opts.Published = published
		zap.L().Info("baseline: published table loaded from workbook",
			zap.String("path", cfg.Thresholds.PublishedXLSX),
			zap.Int("years", len(published)),
		)
	}

	return baseline.New(opts)
}

// buildRentSource picks the median-rent backend: the Census FTP summary
// archive when a URL template is configured, otherwise the ACS API.
func buildRentSource(cfg *config.Config) geoadj.RentSource {
	if cfg.ACS.SummaryURLTemplate != "" {
		fetcher := ingest.NewFTPFetcher(ingest.FTPOptions{
			Timeout: time.Duration(cfg.ACS.TimeoutSecs) * time.Second,
		})
		return ingest.NewSummarySource(fetcher, cfg.ACS.SummaryURLTemplate)
	}

	return acs.NewClient(acs.Options{
		BaseURL:   cfg.ACS.BaseURL,
		Dataset:   cfg.ACS.Dataset,
		Key:       cfg.ACS.Key,
		RateLimit: cfg.ACS.RateLimit,
		Timeout:   time.Duration(cfg.ACS.TimeoutSecs) * time.Second,
	})
}

func buildStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Driver {
	case "", "none":
		return nil, nil
	case "sqlite":
		s, err := store.NewSQLite(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
		return s, nil
	case "postgres":
		s, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
		return s, nil
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
