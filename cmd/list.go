package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list [filter]",
	Short: "Show available ports, optionally filtered by a glob/regex",
	Args:  cobra.MaximumNArgs(1),
	Run: func(c *cobra.Command, args []string) {
		cfg := loadConfig()
		svc := openService(cfg)
		defer svc.Close()

		names := svc.Repository().Names()
		if len(args) == 1 {
			matched, err := svc.Repository().Search(args[0])
			if err != nil {
				fmt.Fprintf(os.Stderr, "prtget: %v\n", err)
				return
			}
			names = matched
		}

		sort.Strings(names)
		for _, name := range names {
			p, _ := svc.Repository().Get(name)
			fmt.Printf("%s-%s\n", name, p.VersionReleaseString())
		}
	},
}
