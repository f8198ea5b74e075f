package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.skia.org/alertgroups/alertgroup/go/config"
	"go.skia.org/alertgroups/alertgroup/go/sheriffconfig"
)

// validateCmd checks configs without starting anything.
var validateCmd = &cobra.Command{
	Use:   "validate [instance config]",
	Short: "Validate an instance config and the sheriff config it points at.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		instanceConfig, err := config.InstanceConfigFromFile(context.Background(), args[0])
		if err != nil {
			return err
		}
		if _, err := sheriffconfig.NewFromFile(instanceConfig.SheriffConfig.Path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s is valid.\n", args[0])
		return nil
	},
}

func validateInit() {
	rootCmd.AddCommand(validateCmd)
}
