package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "alertgroupserver",
	Short: "The alert grouping service.",
	Long: `The alert grouping service.

Groups newly detected anomalies and periodically runs each active group
through triage, for example:

	alertgroupserver run --config_filename=instance_config.json

`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	initSubCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func initSubCommands() {
	runInit()
	validateInit()
}
