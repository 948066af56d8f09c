package main

import (
	"github.com/spf13/cobra"

	"remod/internal/version"
)

var (
	// rootFlag is the CLI --root flag value (project root)
	rootFlag string
	// logLevelFlag is the CLI --log-level flag value
	logLevelFlag string
	// logFormatFlag is the CLI --log-format flag value
	logFormatFlag string
)

var rootCmd = &cobra.Command{
	Use:   "remod",
	Short: "remod - module graph transformer",
	Long: `remod rewrites the import/export specifiers of a module and all of its
transitive local dependencies according to a resolution table, strips type
annotations, and persists each transformed module to a content-addressed
cache that a plain module loader can execute directly.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("remod version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&rootFlag, "root", ".",
		"Project root (holds .remod/)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "",
		"Log level: debug, info, warn, error (default from config)")
	rootCmd.PersistentFlags().StringVar(&logFormatFlag, "log-format", "",
		"Log format: human, json (default from config)")
}
