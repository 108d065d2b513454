package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	json "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/zfogg/hushmap/internal/config"
	"github.com/zfogg/hushmap/internal/logger"
)

var (
	verbose bool
	output  = "text" // "text" or "json"
	cfg     *config.Config
)

var (
	bold    = color.New(color.Bold)
	success = color.New(color.FgGreen)
	failure = color.New(color.FgRed)
	info    = color.New(color.FgCyan)
)

var rootCmd = &cobra.Command{
	Use:   "hushmap",
	Short: "hushmap operator CLI",
	Long: `Operator tooling for the hushmap API: refresh and classify points of
interest, check confession text against the content rules, preview thread
ids, run scheduled jobs on demand and mint development tokens.

Configuration is read from the same environment (and .env) as the server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := "warn"
		if verbose {
			level = "debug"
		}
		logger.InitializeConsole(level)

		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		cfg = loaded
		output = viper.GetString("output")
		return nil
	},
}

func init() {
	viper.SetEnvPrefix("HUSHMAP_CLI")
	viper.AutomaticEnv()

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&output, "output", output, "Output format: text or json (env HUSHMAP_CLI_OUTPUT)")
	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))

	rootCmd.AddCommand(poisCmd)
	rootCmd.AddCommand(contentCmd)
	rootCmd.AddCommand(threadsCmd)
	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		failure.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// printResult writes v as JSON in json mode, otherwise runs text
func printResult(v interface{}, text func()) error {
	if output == "json" {
		enc := json.NewEncoder(color.Output)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text()
	return nil
}
