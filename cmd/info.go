package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info <port>",
	Short: "Show metadata for a single port",
	Args:  cobra.ExactArgs(1),
	Run: func(c *cobra.Command, args []string) {
		cfg := loadConfig()
		svc := openService(cfg)
		defer svc.Close()

		p, ok := svc.Repository().Get(args[0])
		if !ok {
			fmt.Fprintf(os.Stderr, "prtget: %s: port not found\n", args[0])
			os.Exit(1)
		}

		fmt.Printf("Name:          %s\n", p.Name())
		fmt.Printf("Path:          %s\n", p.Path())
		fmt.Printf("Version:       %s\n", p.Version())
		fmt.Printf("Release:       %s\n", p.Release())
		fmt.Printf("Description:   %s\n", p.Description())
		fmt.Printf("Dependencies:  %s\n", p.Dependencies())
		fmt.Printf("URL:           %s\n", p.URL())
		fmt.Printf("Packager:      %s\n", p.Packager())
		fmt.Printf("Maintainer:    %s\n", p.Maintainer())

		installed, isAlias, provider := svc.InstalledDB().IsInstalled(p.Name(), true)
		switch {
		case installed && isAlias:
			fmt.Printf("Installed:     yes (via %s)\n", provider)
		case installed:
			fmt.Printf("Installed:     yes (%s)\n", svc.InstalledDB().GetVersion(p.Name()))
		default:
			fmt.Printf("Installed:     no\n")
		}
	},
}
