package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/PolicyEngine/spm-calculator/internal/config"
	"github.com/PolicyEngine/spm-calculator/internal/gazetteer"
	"github.com/PolicyEngine/spm-calculator/internal/geoadj"
	"github.com/PolicyEngine/spm-calculator/internal/model"
)

var (
	geoadjGetType   string
	geoadjTableType string
	geoadjID        string
	geoadjYear      int
	geoadjGazetteer string
	warmLevels      []string
)

var geoadjCmd = &cobra.Command{
	Use:   "geoadj",
	Short: "Inspect geographic adjustment factors",
}

// buildGeoResolver wires a standalone geoadj resolver for inspection
// commands that bypass the full engine.
func buildGeoResolver(ctx context.Context, cfg *config.Config) (*geoadj.Resolver, func(), error) {
	st, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	resolver := geoadj.New(buildRentSource(cfg), geoadj.Options{
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
	return resolver, cleanup, nil
}

var geoadjGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Resolve the adjustment factor for one geography",
	RunE: func(cmd *cobra.Command, args []string) error {
		geoType, err := model.ParseGeographyType(geoadjGetType)
		if err != nil {
			return err
		}

		resolver, cleanup, err := buildGeoResolver(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		adj, err := resolver.GeoAdj(cmd.Context(), geoType, geoadjID, geoadjYear)
		if err != nil {
			return err
		}

		fmt.Printf("%s %s (%d): GEOADJ %.4f\n", geoType, geoadjID, geoadjYear, adj)
		return nil
	},
}

var geoadjTableCmd = &cobra.Command{
	Use:   "table",
	Short: "Print the full adjustment table for one geography level",
	RunE: func(cmd *cobra.Command, args []string) error {
		geoType, err := model.ParseGeographyType(geoadjTableType)
		if err != nil {
			return err
		}

		var gaz *gazetteer.Gazetteer
		if geoadjGazetteer != "" {
			gaz, err = gazetteer.Load(geoadjGazetteer)
			if err != nil {
				return err
			}
			zap.L().Info("gazetteer loaded",
				zap.String("path", geoadjGazetteer),
				zap.Int("names", gaz.Len()),
			)
		}

		resolver, cleanup, err := buildGeoResolver(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		entries, err := resolver.Table(cmd.Context(), geoType, geoadjYear)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tName\tLocal rent\tGEOADJ")
		for _, e := range entries {
			name := e.Name
			if name == "" && gaz != nil {
				name = gaz.Name(e.ID)
			}
			fmt.Fprintf(w, "%s\t%s\t%.0f\t%.4f\n", e.ID, name, e.LocalRent, e.GeoAdj)
		}
		w.Flush()
		return nil
	},
}

var geoadjWarmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Pre-fetch rent tables for one or more geography levels",
	Long: `Pre-fetch and persist rent tables so later lookups hit the cache.
Levels load concurrently; each level is a single upstream fetch.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		levels := make([]model.GeographyType, 0, len(warmLevels))
		for _, raw := range warmLevels {
			geoType, err := model.ParseGeographyType(raw)
			if err != nil {
				return err
			}
			levels = append(levels, geoType)
		}

		resolver, cleanup, err := buildGeoResolver(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		g, ctx := errgroup.WithContext(cmd.Context())
		for _, level := range levels {
			level := level
			g.Go(func() error {
				rows, err := resolver.Warm(ctx, level, geoadjYear)
				if err != nil {
					return err
				}
				zap.L().Info("warmed rent table",
					zap.String("geo_type", string(level)),
					zap.Int("year", geoadjYear),
					zap.Int("rows", rows),
				)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		stats := resolver.CacheStats()
		fmt.Printf("Warmed %d level(s); cache holds %d table(s)\n", len(levels), stats.Tables)
		return nil
	},
}

var fetchesLimit int

var geoadjFetchesCmd = &cobra.Command{
	Use:   "fetches",
	Short: "List recent upstream rent-table fetches",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := buildStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		if st == nil {
			return fmt.Errorf("no store configured (store.driver is %q)", cfg.Store.Driver)
		}
		defer func() { _ = st.Close() }()

		fetches, err := st.ListFetches(cmd.Context(), fetchesLimit)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "Fetched at\tLevel\tYear\tSource\tRows")
		for _, f := range fetches {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%d\n",
				f.FetchedAt.Format("2006-01-02 15:04:05"), f.GeoType, f.Year, f.Source, f.RowCount)
		}
		w.Flush()
		return nil
	},
}

func init() {
	geoadjCmd.PersistentFlags().IntVar(&geoadjYear, "year", 2024, "ACS survey year")

	geoadjGetCmd.Flags().StringVar(&geoadjGetType, "geo-type", string(model.GeoCounty), "geography level")
	geoadjGetCmd.Flags().StringVar(&geoadjID, "geo-id", "", "geography id (FIPS code)")
	_ = geoadjGetCmd.MarkFlagRequired("geo-id")

	geoadjTableCmd.Flags().StringVar(&geoadjTableType, "geo-type", string(model.GeoState), "geography level")
	geoadjTableCmd.Flags().StringVar(&geoadjGazetteer, "gazetteer", "", "TIGER/Line shapefile for geography names")

	geoadjWarmCmd.Flags().StringSliceVar(&warmLevels, "levels", []string{string(model.GeoState), string(model.GeoCounty)}, "geography levels to warm")

	geoadjFetchesCmd.Flags().IntVar(&fetchesLimit, "limit", 20, "maximum records to list")

	geoadjCmd.AddCommand(geoadjGetCmd)
	geoadjCmd.AddCommand(geoadjTableCmd)
	geoadjCmd.AddCommand(geoadjWarmCmd)
	geoadjCmd.AddCommand(geoadjFetchesCmd)
	rootCmd.AddCommand(geoadjCmd)
}
