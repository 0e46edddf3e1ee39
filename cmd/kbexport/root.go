package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for kbexport.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kbexport",
		Short: "Export a single-page-app knowledge base to Markdown or PDF",
		Long: `kbexport mirrors a knowledge base rendered by a JavaScript single-page
application into a local folder tree.

It drives a headless Chrome, walks the folder tree depth-first from a root
folder URL and exports every post it finds as Markdown (default) or PDF.
Each post is placed in the folder named by its own breadcrumb.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
