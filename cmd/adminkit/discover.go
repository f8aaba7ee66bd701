package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/adminkit/internal/discovery"
)

// Discover command flags
var (
	scanTimeout int
	scanSave    bool
)

func init() {
	rootCmd.AddCommand(discoverCmd)

	discoverCmd.Flags().IntVar(&scanTimeout, "timeout", 5, "Scan timeout in seconds")
	discoverCmd.Flags().BoolVar(&scanSave, "save", false, "Add the found backends to the configuration")
}

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find admin backends on the local network",
	Long: `Find admin backends advertised over mDNS/DNS-SD.

Backends started with 'adminkit serve --advertise' announce themselves as
` + discovery.ServiceType + `. With --save every backend found is added to the
configuration under its instance name; the first one becomes current when
none is selected.`,
	Example: `  # Scan for 5 seconds (default)
  adminkit discover

  # Longer scan, remember what was found
  adminkit discover --timeout 15 --save`,
	RunE: runDiscover,
}

func runDiscover(cmd *cobra.Command, args []string) error {
	fmt.Printf("Scanning for admin backends (timeout: %ds)...\n\n", scanTimeout)

	backends, err := discovery.Scan(cmd.Context(), time.Duration(scanTimeout)*time.Second)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(backends) == 0 {
		fmt.Println("No backends found.")
		fmt.Println("\nTroubleshooting:")
		fmt.Println("  - Ensure the backend runs with --advertise")
		fmt.Println("  - Check that multicast traffic is allowed on this network")
		fmt.Println("  - Try increasing --timeout for slower networks")
		fmt.Println("  - Use --url to connect to a backend directly")
		return nil
	}

	fmt.Printf("Found %d backend(s):\n\n", len(backends))
	for i, b := range backends {
		fmt.Printf("%d. %s\n", i+1, b.Instance)
		fmt.Printf("   URL:     %s\n", b.BaseURL())
		fmt.Printf("   Host:    %s\n", strings.TrimSuffix(b.Hostname, "."))
		if v := b.Version(); v != "" {
			fmt.Printf("   Version: %s\n", v)
		}
		fmt.Println()
	}

	if !scanSave {
		fmt.Println("Use 'adminkit discover --save' to remember these backends")
		fmt.Println("Use 'adminkit login --url <url>' to sign in")
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	for _, b := range backends {
		entry := cfg.EnsureBackend(b.Instance, b.BaseURL())
		entry.Discovered = true
	}
	if cfg.Current == "" {
		if err := cfg.UseBackend(backends[0].Instance); err != nil {
			return err
		}
	}
	if err := saveConfig(cfg); err != nil {
		return err
	}
	fmt.Printf("Saved %d backend(s); current backend: %s\n", len(backends), cfg.Current)
	return nil
}
