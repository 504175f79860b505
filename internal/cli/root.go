// Package cli provides the command-line interface for stash4me.
package cli

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Version and Commit are set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
)

// log writes to stderr; stdout is reserved for command output and the MCP
// transport.
var log = logrus.New()

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "stash4me",
	Short: "Collect and search your saved Reddit posts and X bookmarks",
	Long: "stash4me pulls your saved Reddit posts and comments and your X bookmarks " +
		"into one searchable feed, served locally over MCP or printed as JSON.",
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if verbose {
			log.SetLevel(logrus.DebugLevel)
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("stash4me %s (%s)\n", Version, Commit)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
