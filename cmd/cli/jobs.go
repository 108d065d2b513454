package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/zfogg/hushmap/internal/kernel"
	"github.com/zfogg/hushmap/internal/scheduler"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Run scheduled maintenance jobs on demand",
}

var jobsRunCmd = &cobra.Command{
	Use:       "run <job>",
	Short:     "Run one job now: poi-warm or reward-expiry",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{scheduler.JobPOIWarm, scheduler.JobRewardExpiry},
	RunE: func(cmd *cobra.Command, args []string) error {
		k, err := kernel.Build(cfg)
		if err != nil {
			return err
		}
		defer k.Cleanup(context.Background())

		var job scheduler.Job
		switch args[0] {
		case scheduler.JobPOIWarm:
			job = scheduler.POIWarmJob(k.Repos().Posts, k.POIs(), scheduler.DefaultWarmConfig())
		case scheduler.JobRewardExpiry:
			job = scheduler.RewardExpiryJob(k.Circles())
		default:
			return fmt.Errorf("unknown job %q", args[0])
		}

		start := time.Now()
		if err := scheduler.New(10*time.Minute).RunNow(args[0], job); err != nil {
			return fmt.Errorf("%s failed: %w", args[0], err)
		}
		elapsed := time.Since(start).Round(time.Millisecond)

		return printResult(map[string]interface{}{"job": args[0], "duration": elapsed.String()}, func() {
			success.Printf("✓ %s finished in %s\n", args[0], elapsed)
		})
	},
}

func init() {
	jobsCmd.AddCommand(jobsRunCmd)
}
