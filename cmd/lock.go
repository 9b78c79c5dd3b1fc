package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
)

var lockCmd = &cobra.Command{
	Use:   "lock <port1> [port2...]",
	Short: "Lock ports against update",
	Args:  cobra.MinimumNArgs(1),
	Run: func(c *cobra.Command, args []string) {
		cfg := loadConfig()
		svc := openService(cfg)
		defer svc.Close()

		changed := false
		for _, name := range args {
			if svc.Locker().Lock(name) {
				changed = true
				fmt.Println("locked", name)
			} else {
				fmt.Println("already locked", name)
			}
		}
		if changed {
			if err := svc.Locker().Store(); err != nil {
				fmt.Fprintf(os.Stderr, "prtget: writing lock file: %v\n", err)
				os.Exit(1)
			}
		}
	},
}

var unlockCmd = &cobra.Command{
	Use:   "unlock <port1> [port2...]",
	Short: "Unlock previously locked ports",
	Args:  cobra.MinimumNArgs(1),
	Run: func(c *cobra.Command, args []string) {
		cfg := loadConfig()
		svc := openService(cfg)
		defer svc.Close()

		changed := false
		for _, name := range args {
			if svc.Locker().Unlock(name) {
				changed = true
				fmt.Println("unlocked", name)
			} else {
				fmt.Println("not locked", name)
			}
		}
		if changed {
			if err := svc.Locker().Store(); err != nil {
				fmt.Fprintf(os.Stderr, "prtget: writing lock file: %v\n", err)
				os.Exit(1)
			}
		}
	},
}

var listLockedCmd = &cobra.Command{
	Use:   "listlocked",
	Short: "List locked ports",
	Args:  cobra.NoArgs,
	Run: func(c *cobra.Command, args []string) {
		cfg := loadConfig()
		svc := openService(cfg)
		defer svc.Close()

		names := svc.Locker().LockedPackages()
		sort.Strings(names)
		for _, name := range names {
			fmt.Println(name)
		}
	},
}
