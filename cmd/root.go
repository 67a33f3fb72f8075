package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rusiaaaaaaa/ai-news-bot/internal/update"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	flagConfig  string
	flagEnvFile string
	flagDryRun  bool
	flagForce   bool
)

var rootCmd = &cobra.Command{
	Use:   "ai-news-bot",
	Short: "AI news briefings delivered to Telegram",
	Long: `ai-news-bot collects recent AI news from RSS feeds, has a generative model write
a short briefing, and posts it to a Telegram chat.

Runs are gated by an operating window and a minimum interval between briefings, so
it is safe to trigger from a scheduler every few minutes. Without a subcommand it
behaves like "run".`,
	SilenceUsage: true,
	RunE:         runOnce,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", ".env", "dotenv file with secrets, ignored if missing")
	for _, c := range []*cobra.Command{rootCmd, runCmd} {
		c.Flags().BoolVar(&flagDryRun, "dry-run", false, "print the prompt instead of summarizing and sending")
		c.Flags().BoolVar(&flagForce, "force", false, "ignore the operating window and the minimum interval")
	}

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ai-news-bot %s (commit: %s, built: %s)\n", version, commit, date)
		if res := update.Check(cmd.Context(), version); res != nil {
			fmt.Printf("A newer version is available: %s %s\n", res.LatestVersion, res.URL)
		}
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}
