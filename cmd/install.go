package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/winkj/prt-get/config"
	"github.com/winkj/prt-get/service"
	"github.com/winkj/prt-get/transaction"
)

var (
	flagIgnore        string
	flagGroup         bool
	flagInstallRoot   string
	flagMakeArgs      string
	flagAddArgs       string
	flagWriteLog      bool
	flagLogAppend     bool
	flagLockLog       bool
	flagPreInstall    bool
	flagPostInstall   bool
	flagInstallScript bool
)

func addInstallFlags(c *cobra.Command) {
	c.Flags().StringVar(&flagIgnore, "ignore", "", "comma-separated package names to skip")
	c.Flags().StringVar(&flagInstallRoot, "install-root", "", "alternate install root passed to the installer")
	c.Flags().StringVar(&flagMakeArgs, "margs", "", "extra arguments passed to the builder")
	c.Flags().StringVar(&flagAddArgs, "aargs", "", "extra arguments passed to the installer")
	c.Flags().BoolVar(&flagWriteLog, "log", false, "write a per-package build/install log")
	c.Flags().BoolVar(&flagLogAppend, "log-append", false, "append to the log instead of truncating it")
	c.Flags().BoolVar(&flagLockLog, "lock-log", false, "create an advisory lock sidecar next to the log")
	c.Flags().BoolVar(&flagPreInstall, "pre-install", false, "run the port's pre-install script")
	c.Flags().BoolVar(&flagPostInstall, "post-install", false, "run the port's post-install script")
	c.Flags().BoolVar(&flagInstallScript, "install-scripts", false, "run both pre-install and post-install scripts")
}

var installCmd = &cobra.Command{
	Use:   "install <port1> [port2...]",
	Short: "Install ports and their dependencies",
	Args:  cobra.MinimumNArgs(1),
	Run: func(c *cobra.Command, args []string) {
		runInstall(args, false)
	},
}

var depinstallCmd = &cobra.Command{
	Use:   "depinstall <port1> [port2...]",
	Short: "Install ports and their dependencies, same as install",
	Args:  cobra.MinimumNArgs(1),
	Run: func(c *cobra.Command, args []string) {
		runInstall(args, false)
	},
}

var updateCmd = &cobra.Command{
	Use:   "update <port1> [port2...]",
	Short: "Update ports already installed",
	Args:  cobra.MinimumNArgs(1),
	Run: func(c *cobra.Command, args []string) {
		runInstall(args, true)
	},
}

func init() {
	for _, c := range []*cobra.Command{installCmd, depinstallCmd, updateCmd} {
		addInstallFlags(c)
	}
	installCmd.Flags().BoolVar(&flagGroup, "group", false, "stop the whole transaction on the first failure")
}

func runInstall(names []string, update bool) {
	cfg := loadConfig()
	svc := openService(cfg)
	defer svc.Close()

	ignore := map[string]bool{}
	for _, name := range strings.Split(flagIgnore, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			ignore[name] = true
		}
	}

	opts := transaction.Options{
		Names:          names,
		Ignore:         ignore,
		Update:         update,
		Group:          flagGroup,
		InstallRoot:    flagInstallRoot,
		BuilderArgs:    splitArgs(flagMakeArgs),
		InstallerArgs:  splitArgs(flagAddArgs),
		RunPreInstall:  flagPreInstall || flagInstallScript,
		RunPostInstall: flagPostInstall || flagInstallScript,
		WriteLog:       flagWriteLog || cfg.WriteLog,
		LogFilePattern: cfg.LogFile,
		LogAppend:      flagLogAppend || cfg.LogMode == config.LogAppend,
		LockLog:        flagLockLog,
	}

	tx := svc.NewTransaction()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	svc.SetActiveCleanup(func() { svc.Close() })
	go func() {
		sig := <-sigChan
		fmt.Fprintf(os.Stderr, "\nprtget: received %v, stopping\n", sig)
		if cleanup := svc.GetActiveCleanup(); cleanup != nil {
			cleanup()
		}
		os.Exit(1)
	}()

	result, err := tx.Run(opts)
	svc.ClearActiveCleanup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "prtget: %v\n", err)
		if result == nil {
			os.Exit(1)
		}
	}

	printResult(result)
	if result != nil && len(result.Failed) > 0 {
		os.Exit(1)
	}
}

func splitArgs(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.Fields(s)
}

func printResult(result *transaction.Result) {
	if result == nil {
		return
	}
	for name := range result.Installed {
		fmt.Println(color.GreenString("installed"), name)
	}
	for _, name := range result.AlreadyInstalled {
		fmt.Println(color.YellowString("already installed"), name)
	}
	for _, name := range result.Ignored {
		fmt.Println(color.YellowString("ignored"), name)
	}
	for name := range result.Failed {
		fmt.Println(color.RedString("failed"), name)
	}
	for _, miss := range result.Missing {
		fmt.Println(color.RedString("missing dependency"), miss.Name, "(requested by", miss.RequestedBy+")")
	}
	for _, name := range result.Undecidable {
		fmt.Println(color.MagentaString("undecidable version"), name)
	}
}
