package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/zfogg/hushmap/internal/kernel"
	"github.com/zfogg/hushmap/internal/util"
)

var (
	refreshLat     float64
	refreshLng     float64
	classifySource string
)

var poisCmd = &cobra.Command{
	Use:   "pois",
	Short: "Manage the points-of-interest cache",
}

var poisRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Fetch an area from the places provider now, ignoring freshness",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := util.CheckLatLng(refreshLat, refreshLng); err != nil {
			return err
		}

		k, err := kernel.Build(cfg)
		if err != nil {
			return err
		}
		defer k.Cleanup(context.Background())

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*cfg.POI.FetchTimeout+5*time.Second)
		defer cancel()

		svc := k.POIs()
		wasStale := svc.ShouldFetch(ctx, refreshLat, refreshLng)
		written, err := svc.Refresh(ctx, refreshLat, refreshLng)
		if err != nil {
			return fmt.Errorf("refresh failed: %w", err)
		}

		result := map[string]interface{}{
			"source":    svc.Source(),
			"lat":       refreshLat,
			"lng":       refreshLng,
			"was_stale": wasStale,
			"written":   written,
		}
		return printResult(result, func() {
			success.Printf("✓ Refreshed %.5f, %.5f from %s\n", refreshLat, refreshLng, svc.Source())
			fmt.Printf("  places written: %d (area was stale: %t)\n", written, wasStale)
		})
	},
}

var poisClassifyCmd = &cobra.Command{
	Use:   "classify <type> [type...]",
	Short: "Show which category a set of provider types maps to",
	Example: `  hushmap pois classify --source google_places cafe bakery
  hushmap pois classify --source openstreetmap amenity=pub`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source := classifySource
		if source == "" {
			source = cfg.POI.Source
		}
		classifier, err := kernel.NewClassifier(cfg.POI, source)
		if err != nil {
			return err
		}

		category := classifier.Classify(args)
		return printResult(map[string]interface{}{"source": source, "types": args, "category": category}, func() {
			bold.Print("Category: ")
			info.Println(category)
		})
	},
}

func init() {
	poisRefreshCmd.Flags().Float64Var(&refreshLat, "lat", 0, "Latitude of the area center")
	poisRefreshCmd.Flags().Float64Var(&refreshLng, "lng", 0, "Longitude of the area center")
	_ = poisRefreshCmd.MarkFlagRequired("lat")
	_ = poisRefreshCmd.MarkFlagRequired("lng")

	poisClassifyCmd.Flags().StringVar(&classifySource, "source", "", "Rule set to use: google_places or openstreetmap (default POI_SOURCE)")

	poisCmd.AddCommand(poisRefreshCmd)
	poisCmd.AddCommand(poisClassifyCmd)
}
