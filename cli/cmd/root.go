// Package cmd implements the githook CLI.
package cmd

import (
	"os"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/scholzdev/githook/cli/app"
)

var (
	version     = "dev" // githook version, set at compile time by ldflags
	commit      = ""    // githook version's commit hash, set at compile time by ldflags
	buildDate   = ""    // build timestamp, set at compile time by ldflags
	builtBy     = ""    // builder identity, set at compile time by ldflags
	headerStyle = color.New(color.FgWhite, color.Bold)
)

// BuildRootCmd builds and returns the root githook CLI command.
func BuildRootCmd() *cobra.Command {
	githook := app.New(os.Stdout, os.Stderr)
	options := githook.Options

	rootCmd := &cobra.Command{
		Use:           "githook",
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		Short:         "A small scripting engine for git hooks",
		Long: heredoc.Doc(`

		A small scripting engine for git hooks.

		githook reads a hook script written in a tiny, purpose-built DSL,
		evaluates it against the state of the current repository (branch,
		staged files, diff, last commit, merge context) and either lets the
		git operation continue or blocks it with a message.

		The script is found by searching .githookrc's search_paths (by
		default .githook, .git/hooks, then the repository root) unless
		--script points directly at one.
		`),
		Example: heredoc.Doc(`

		# Run the default pre-commit.ghook against the current repository
		$ githook

		# Run a specific script
		$ githook --script .githook/commit-msg.ghook

		# Only run groups named "lint" and "security"
		$ githook --group-only lint,security

		# Parse without evaluating, useful as a lint check
		$ githook --check

		# List the macros available to the script
		$ githook --show-macros
		`),
		RunE: func(cmd *cobra.Command, args []string) error {
			return githook.Run()
		},
	}

	// Attach the flags
	flags := rootCmd.Flags()
	flags.StringVar(&options.Script, "script", "", "Path to the hook script (defaults to searching .githookrc's search_paths).")
	flags.StringVar(&options.GroupOnly, "group-only", "", "Comma separated list of group names to run, all others are skipped.")
	flags.StringVar(&options.GroupSkip, "group-skip", "", "Comma separated list of group names to skip.")
	flags.BoolVar(&options.Check, "check", false, "Parse the script without evaluating it.")
	flags.BoolVar(&options.ShowMacros, "show-macros", false, "List the macros available to the script and exit.")
	flags.BoolVar(&options.NoCache, "no-cache", false, "Disable the parse cache regardless of .githookrc.")
	flags.BoolVar(&options.CollectAll, "collect-all", false, "Report every blocked message instead of stopping at the first.")
	flags.BoolVarP(&options.Verbose, "verbose", "v", false, "Enable verbose (debug) logging.")

	// Set our custom version and usage templates
	rootCmd.SetUsageTemplate(usageTemplate)
	rootCmd.SetVersionTemplate(versionTemplate)

	return rootCmd
}
