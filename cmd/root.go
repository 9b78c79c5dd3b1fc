// Package cmd holds the prtget cobra commands. Each command does nothing
// but parse flags, build a config.Config and service.Service, and call
// into the library layer — no resolver, comparator or transaction logic
// lives here.
//
// Grounded on go-synth's cmd/build.go: a cobra.Command per operation,
// config loaded once at the top of Run, and a signal-handler goroutine
// wired to the in-flight work's cleanup hook.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/winkj/prt-get/config"
	"github.com/winkj/prt-get/service"
)

var configPath string
var rebuildCache bool
var historyPath string

var rootCmd = &cobra.Command{
	Use:   "prtget",
	Short: "A source-package front-end for a port tree",
	Long:  "prtget resolves dependencies, builds and installs ports, and tracks what's installed.",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "/etc/prt-get.conf", "path to the configuration file")
	rootCmd.PersistentFlags().BoolVar(&rebuildCache, "rebuild-cache", false, "rescan the port tree instead of trusting the cache")
	rootCmd.PersistentFlags().StringVar(&historyPath, "history", "", "path to the install-history audit database (disabled by default)")

	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(depinstallCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(lockCmd)
	rootCmd.AddCommand(unlockCmd)
	rootCmd.AddCommand(listLockedCmd)
	rootCmd.AddCommand(diffCmd)
}

// Execute runs the root command; it is the sole entry point main calls.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() *config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "prtget: loading %s: %v\n", configPath, err)
		os.Exit(1)
	}
	return cfg
}

func openService(cfg *config.Config) *service.Service {
	svc, err := service.NewService(cfg, service.Options{
		ConfigPath:   configPath,
		HistoryPath:  historyPath,
		RebuildCache: rebuildCache,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "prtget: %v\n", err)
		os.Exit(1)
	}
	return svc
}
