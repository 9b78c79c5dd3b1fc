package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
)

var flagDescription bool

var searchCmd = &cobra.Command{
	Use:   "search <expr>",
	Short: "Show port names matching expr",
	Args:  cobra.ExactArgs(1),
	Run: func(c *cobra.Command, args []string) {
		cfg := loadConfig()
		svc := openService(cfg)
		defer svc.Close()

		var (
			matches []string
			err     error
		)
		if flagDescription {
			matches, err = svc.Repository().SearchDescription(args[0])
		} else {
			matches, err = svc.Repository().Search(args[0])
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "prtget: %v\n", err)
			os.Exit(1)
		}

		sort.Strings(matches)
		for _, name := range matches {
			p, _ := svc.Repository().Get(name)
			fmt.Printf("%s: %s\n", name, p.Description())
		}
	},
}

func init() {
	searchCmd.Flags().BoolVar(&flagDescription, "description", false, "also match against the port description")
}
