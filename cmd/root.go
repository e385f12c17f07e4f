// Package cmd wires the command-line interface. Each command builds the
// application it needs via newApp and tears it down when done.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "mobot",
	Short: "Mo_Bot - Gemini chat in your terminal",
	Long: `Mo_Bot is a multi-session Gemini chat client.

Conversations persist locally between runs. Attach images for analysis,
toggle web search for grounded up-to-date answers, and export any
session as JSON, Markdown or YAML.

Running mobot with no arguments starts the interactive chat.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd, args)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
