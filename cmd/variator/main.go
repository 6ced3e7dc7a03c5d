package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "variator",
	Short: "Generate framed and decorated variations of a photo",
	Long: `Variator turns one photo into a batch of visually distinct variations:
coloured frames, gradient or striped backgrounds, line patterns, noise and
emoji stickers. Every variation in a batch has a unique style.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
