package main

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zfogg/hushmap/internal/validation"
)

var contentCmd = &cobra.Command{
	Use:   "content",
	Short: "Content rule tools",
}

var contentCheckCmd = &cobra.Command{
	Use:   "check <text>",
	Short: "Check text against the post and reply content rules",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		err := validation.Validate(text)

		var rejection *validation.Rejection
		if err != nil && !errors.As(err, &rejection) {
			return err
		}

		result := map[string]interface{}{"accepted": err == nil}
		if rejection != nil {
			result["reason"] = rejection.Reason
			result["message"] = rejection.Message
		}
		if perr := printResult(result, func() {
			if rejection == nil {
				success.Println("✓ Accepted")
				return
			}
			failure.Printf("✗ Rejected (%s): ", rejection.Reason)
			bold.Println(rejection.Message)
		}); perr != nil {
			return perr
		}
		if rejection != nil {
			cmd.SilenceErrors = true
			return errors.New("content rejected")
		}
		return nil
	},
}

func init() {
	contentCmd.AddCommand(contentCheckCmd)
}
