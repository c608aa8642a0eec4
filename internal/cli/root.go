package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// version can be overridden at build time via:
	// go build -ldflags "-X github.com/crewcall/crewcall/internal/cli.version=1.2.3"
	version = "0.3.0"
	logo    = "\n" +
		"   ___ _ __ _____      _____ __ _| | |\n" +
		"  / __| '__/ _ \\ \\ /\\ / / __/ _` | | |\n" +
		" | (__| | |  __/\\ V  V / (_| (_| | | |\n" +
		"  \\___|_|  \\___| \\_/\\_/ \\___\\__,_|_|_|\n"
)

var rootCmd = &cobra.Command{
	Use:   "crewcall",
	Short: "crewcall - event production timeline manager",
	Long:  color.CyanString(logo) + "\nScheduling, conflicts, dependencies and notifications for event production crews.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the crewcall version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "crewcall", version)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
