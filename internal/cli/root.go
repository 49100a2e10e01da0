package cli

import (
	"github.com/spf13/cobra"
)

const version = "0.1.0"

var logLevel string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "amparo",
	Short: "Amparo - assistente virtual de saúde",
	Long: `Amparo runs the clinic's conversational assistant: one host
orchestrator that talks to the patient, and four domain agents (scheduling,
cancellation, payment, exam) each exposed as its own HTTP gateway.`,
	Version: version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides AMPARO_LOG_LEVEL")

	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s" .Version}}
`)
}

// GetRootCmd returns the root command for testing
func GetRootCmd() *cobra.Command {
	return rootCmd
}
