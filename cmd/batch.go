package main

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/PolicyEngine/spm-calculator/internal/engine"
	"github.com/PolicyEngine/spm-calculator/internal/ingest"
	"github.com/PolicyEngine/spm-calculator/internal/model"
)

var (
	batchInput  string
	batchOutput string
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Calculate thresholds for a CSV of households",
	Long: `Calculate thresholds for every household in an input CSV with columns
adults,children,tenure,geography_type,geography_id,year. Output rows are in
input order, one per household, with the threshold and its factors. Use "-"
for stdin/stdout.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		in := os.Stdin
		if batchInput != "-" {
			f, err := os.Open(batchInput)
			if err != nil {
				return eris.Wrapf(err, "open input %s", batchInput)
			}
			defer f.Close() //nolint:errcheck
			in = f
		}

		rows, err := ingest.ReadHouseholds(cmd.Context(), in)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return eris.New("input has no household rows")
		}

		eng, cleanup, err := buildEngine(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		batch := engine.BatchInput{
			Adults:         make([]int, len(rows)),
			Children:       make([]int, len(rows)),
			Tenures:        make([]model.Tenure, len(rows)),
			GeographyTypes: make([]model.GeographyType, len(rows)),
			GeographyIDs:   make([]string, len(rows)),
			Years:          make([]int, len(rows)),
		}
		for i, row := range rows {
			batch.Adults[i] = row.Adults
			batch.Children[i] = row.Children
			batch.Tenures[i] = row.Tenure
			batch.GeographyTypes[i] = row.GeographyType
			batch.GeographyIDs[i] = row.GeographyID
			batch.Years[i] = row.Year
		}

		thresholds, err := eng.CalculateAll(cmd.Context(), batch)
		if err != nil {
			return err
		}

		var out io.Writer = os.Stdout
		if batchOutput != "-" {
			f, err := os.Create(batchOutput)
			if err != nil {
				return eris.Wrapf(err, "create output %s", batchOutput)
			}
			defer f.Close() //nolint:errcheck
			out = f
		}

		w := csv.NewWriter(out)
		header := []string{"adults", "children", "tenure", "geography_type", "geography_id", "year", "threshold", "base", "scale", "geoadj", "source"}
		if err := w.Write(header); err != nil {
			return eris.Wrap(err, "write output header")
		}
		for i, t := range thresholds {
			source := string(t.Base.Source)
			record := []string{
				strconv.Itoa(rows[i].Adults),
				strconv.Itoa(rows[i].Children),
				string(t.Tenure),
				string(t.GeographyType),
				t.GeographyID,
				strconv.Itoa(t.Year),
				strconv.FormatFloat(t.Amount, 'f', 2, 64),
				strconv.FormatFloat(t.Base.Amount, 'f', 2, 64),
				strconv.FormatFloat(t.Scale, 'f', 6, 64),
				strconv.FormatFloat(t.GeoAdj, 'f', 6, 64),
				source,
			}
			if err := w.Write(record); err != nil {
				return eris.Wrap(err, "write output row")
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return eris.Wrap(err, "flush output")
		}

		zap.L().Info("batch complete", zap.Int("households", len(thresholds)))
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchInput, "input", "-", "input CSV path, or - for stdin")
	batchCmd.Flags().StringVar(&batchOutput, "output", "-", "output CSV path, or - for stdout")

	rootCmd.AddCommand(batchCmd)
}
