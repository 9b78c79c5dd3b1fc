package cmd

import (
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/winkj/prt-get/version"
)

var flagStrictDiff bool

var diffCmd = &cobra.Command{
	Use:   "diff [port1 port2...]",
	Short: "List installed ports that are outdated against the port tree",
	Run: func(c *cobra.Command, args []string) {
		cfg := loadConfig()
		svc := openService(cfg)
		defer svc.Close()

		installed := svc.InstalledDB().InstalledPackages()

		names := args
		if len(names) == 0 {
			for name := range installed {
				names = append(names, name)
			}
		}
		sort.Strings(names)

		for _, name := range names {
			installedVersion, ok := installed[name]
			if !ok {
				continue
			}
			p, ok := svc.Repository().Get(name)
			if !ok {
				continue
			}

			cmp := version.Compare(p.VersionReleaseString(), installedVersion)
			switch cmp {
			case version.Greater:
				fmt.Printf("%s %s -> %s\n", color.YellowString(name), installedVersion, p.VersionReleaseString())
			case version.Undefined:
				if flagStrictDiff || cfg.PreferHigher {
					fmt.Printf("%s %s\n", color.MagentaString(name+" (undecidable)"), installedVersion)
				}
			}
		}
	},
}

func init() {
	diffCmd.Flags().BoolVar(&flagStrictDiff, "strict-diff", false, "surface undecidable version comparisons even when preferhigher is set")
}
