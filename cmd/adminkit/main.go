// Adminkit is a terminal client and development backend for admin APIs.
//
// It signs in to an admin backend, checks permissions, and creates or edits
// records through schema-driven forms. Dialogs render in a full-screen
// terminal UI, or as plain prompts when stdin is not a terminal or --line
// is given.
//
// Usage:
//
//	adminkit [command] [flags]
//
// Running without arguments opens the interactive demo.
// See 'adminkit --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/adminkit/internal/logging"
	"github.com/muurk/adminkit/internal/overlay"
	"github.com/muurk/adminkit/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		if overlay.IsCancelled(err) {
			fmt.Fprintln(os.Stderr, "Cancelled")
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// Global flags
var (
	backendName string
	backendURL  string
	configPath  string
	logLevel    string
	lineMode    bool
	language    string
)

var rootCmd = &cobra.Command{
	Use:   "adminkit",
	Short: "Admin backend client",
	Long: `A terminal client for admin backends.

Signs in, checks sessions and permissions, and creates or edits records
through forms rendered as terminal dialogs. 'adminkit serve' runs a local
development backend to try it against.

If no command is specified, the interactive demo will launch.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Initialize(logLevel)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDemo(cmd, args)
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&backendName, "backend", "", "Configured backend to use (default: current backend)")
	rootCmd.PersistentFlags().StringVar(&backendURL, "url", "", "Backend URL, overrides the configured one")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: config.yaml in the adminkit config directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); silent when unset")
	rootCmd.PersistentFlags().BoolVar(&lineMode, "line", false, "Render dialogs as plain prompts instead of the terminal UI")
	rootCmd.PersistentFlags().StringVar(&language, "lang", "", "Message language, e.g. en or de")

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("adminkit %s (commit: %s)\n", version.Version, version.Commit)
	},
}
