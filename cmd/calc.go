package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/PolicyEngine/spm-calculator/internal/engine"
	"github.com/PolicyEngine/spm-calculator/internal/model"
)

var (
	calcAdults   int
	calcChildren int
	calcTenure   string
	calcGeoType  string
	calcGeoID    string
	calcYear     int
	calcCompare  bool
)

// compareAdjustments spans the observed GEOADJ range, from the cheapest
// nonmetro areas to the most expensive metros.
var compareAdjustments = []float64{0.84, 0.92, 1.00, 1.10, 1.20, 1.27}

var calcCmd = &cobra.Command{
	Use:   "calc",
	Short: "Calculate the SPM threshold for one household",
	Long: `Calculate the SPM threshold for one household as
base threshold × equivalence scale × geographic adjustment.

Examples:
  spm calc --adults 2 --children 2 --tenure renter --year 2024
  spm calc --adults 1 --tenure owner_without_mortgage --geo-type county --geo-id 06075 --year 2024`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tenure, err := model.ParseTenure(calcTenure)
		if err != nil {
			return err
		}
		geoType, err := model.ParseGeographyType(calcGeoType)
		if err != nil {
			return err
		}

		eng, cleanup, err := buildEngine(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		result, err := eng.Calculate(cmd.Context(), engine.CalcInput{
			Adults:        calcAdults,
			Children:      calcChildren,
			Tenure:        tenure,
			GeographyType: geoType,
			GeographyID:   calcGeoID,
			Year:          calcYear,
		})
		if err != nil {
			return err
		}

		printThreshold(result)

		if calcCompare {
			printComparison(result)
		}
		return nil
	},
}

func printThreshold(t model.Threshold) {
	p := message.NewPrinter(language.AmericanEnglish)

	source := "published"
	if t.Forecast {
		source = p.Sprintf("forecast (%.1f%%/yr from %d)", t.Base.Rate*100, t.Base.Year)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Threshold:\t%s\n", p.Sprintf("$%.2f", t.Amount))
	fmt.Fprintf(w, "Base (%s, %d):\t%s\t%s\n", t.Tenure, t.Year, p.Sprintf("$%.2f", t.Base.Amount), source)
	fmt.Fprintf(w, "Equivalence scale:\t%.4f\n", t.Scale)
	fmt.Fprintf(w, "Geo adjustment (%s %s):\t%.4f\n", t.GeographyType, t.GeographyID, t.GeoAdj)
	w.Flush()
}

// printComparison shows what the same household's threshold looks like
// across the national cost-of-housing range.
func printComparison(t model.Threshold) {
	p := message.NewPrinter(language.AmericanEnglish)
	unadjusted := t.Base.Amount * t.Scale

	fmt.Println()
	fmt.Println("Across the geographic adjustment range:")
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "GEOADJ\tThreshold")
	for _, adj := range compareAdjustments {
		marker := ""
		if adj == 1.00 {
			marker = "  (national)"
		}
		fmt.Fprintf(w, "%.2f\t%s%s\n", adj, p.Sprintf("$%.2f", unadjusted*adj), marker)
	}
	w.Flush()
}

func init() {
	calcCmd.Flags().IntVar(&calcAdults, "adults", 2, "number of adults in the household")
	calcCmd.Flags().IntVar(&calcChildren, "children", 2, "number of children in the household")
	calcCmd.Flags().StringVar(&calcTenure, "tenure", string(model.TenureRenter), "housing tenure: renter, owner_with_mortgage, owner_without_mortgage")
	calcCmd.Flags().StringVar(&calcGeoType, "geo-type", string(model.GeoNation), "geography level")
	calcCmd.Flags().StringVar(&calcGeoID, "geo-id", model.NationID, "geography id (FIPS code, or US for nation)")
	calcCmd.Flags().IntVar(&calcYear, "year", 2024, "threshold year")
	calcCmd.Flags().BoolVar(&calcCompare, "compare", false, "also show the threshold across the geographic adjustment range")

	rootCmd.AddCommand(calcCmd)
}
