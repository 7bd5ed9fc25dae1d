// Package main provides the scribe CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/richinex/scribe/cli"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	provider string
	repo     string
	ref      string
	path     string
	verbose  bool
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	rootCmd := &cobra.Command{
		Use:   "scribe",
		Short: "Document-assistant query engine",
		Long: `Query a repository's documents through an LLM provider, with response
caching, context-aware system prompts and tool execution.`,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&provider, "provider", "p", "", "LLM provider (openai, anthropic, deepseek, gemini)")
	rootCmd.PersistentFlags().StringVar(&repo, "repo", "", "Repository context as owner/name")
	rootCmd.PersistentFlags().StringVar(&ref, "ref", "", "Repository ref (branch or tag)")
	rootCmd.PersistentFlags().StringVar(&path, "path", "", "Current file path within the repository")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show verbose output")

	// Add commands
	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(streamCmd())
	rootCmd.AddCommand(toolsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func askCmd() *cobra.Command {
	var withTools bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question and print the answer",
		Long: `Ask a question about the configured repository context.

With --tools the provider may invoke the builtin tools; their results are
folded into the final answer by a followup call.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Ask(context.Background(), args[0], withTools, options())
		},
	}

	cmd.Flags().BoolVar(&withTools, "tools", false, "Offer builtin tools to the provider")

	return cmd
}

func streamCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stream [question]",
		Short: "Ask a question and stream the answer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Stream(context.Background(), args[0], options())
		},
	}
}

func toolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List available tools",
		Run: func(cmd *cobra.Command, args []string) {
			cli.ListTools(verbose)
		},
	}
}

func options() cli.Options {
	return cli.Options{
		Provider: provider,
		Repo:     repo,
		Ref:      ref,
		Path:     path,
		Verbose:  verbose,
	}
}
