package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/zfogg/hushmap/internal/threads"
)

var previewCount int

var threadsCmd = &cobra.Command{
	Use:   "threads",
	Short: "Thread id tools",
}

var threadsPreviewCmd = &cobra.Command{
	Use:   "preview <post-id> <user-id>",
	Short: "List the thread id candidates a user would try on a post",
	Long: `Lists the deterministic candidates the allocator tries, in order, before
falling back to random ids. The first free candidate is the one assigned.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, id := range args {
			if _, err := uuid.Parse(id); err != nil {
				return fmt.Errorf("%q is not a valid id", id)
			}
		}
		if previewCount < 1 {
			return fmt.Errorf("--count must be at least 1")
		}

		tc := threads.Config{Min: cfg.Threads.Min, Max: cfg.Threads.Max, RetryBudget: cfg.Threads.RetryBudget}
		candidates := make([]int, 0, previewCount)
		for attempt := 0; attempt < previewCount; attempt++ {
			candidates = append(candidates, threads.Candidate(args[0], args[1], attempt, tc))
		}

		return printResult(map[string]interface{}{"post_id": args[0], "user_id": args[1], "candidates": candidates}, func() {
			bold.Printf("Candidates in [%d, %d]:\n", tc.Min, tc.Max)
			for i, c := range candidates {
				marker := " "
				if i < tc.RetryBudget {
					marker = "*"
				}
				info.Printf("  %s %d. %d\n", marker, i+1, c)
			}
			fmt.Printf("  (* within the retry budget of %d)\n", tc.RetryBudget)
		})
	},
}

func init() {
	threadsPreviewCmd.Flags().IntVarP(&previewCount, "count", "n", 5, "Number of candidates to list")
	threadsCmd.AddCommand(threadsPreviewCmd)
}
