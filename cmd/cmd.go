package cmd

import (
	"github.com/spf13/cobra"

	"github.com/wenzapen/scraper/cmd/crawl"
	"github.com/wenzapen/scraper/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print version",
	Long:  "print version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		version.Printer(cmd.OutOrStdout())
	},
}

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "scraper",
		Short:         "declarative web scraper",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.AddCommand(crawl.CrawlCmd, versionCmd)
	return rootCmd
}

func Execute() error {
	return NewRootCmd().Execute()
}
