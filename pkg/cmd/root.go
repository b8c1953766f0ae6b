// Package cmd implements the wizc command-line driver: a thin cobra
// shell around pkg/compiler and pkg/bank. Grounded on the teacher's
// pkg/cmd/root.go (a package-level rootCmd, persistent flags for
// compilation configuration, one subcommand per external operation).
//
// Source loading is out of this core's scope (spec.md §1 excludes a
// parser), so "compile" takes an already-built program: a gob-encoded
// []ast.Statement file, the same encoding pkg/bank's debug-dump format
// uses for its payload.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is filled in when building via `make`; left empty for a
// plain `go install`.
var Version string

var rootCmd = &cobra.Command{
	Use:   "wizc",
	Short: "A cross-compiler core for retro 8/16-bit CPU targets.",
	Long:  "wizc resolves, reduces, lowers, and assembles a wiz program tree into flat per-bank byte images.",
	Run: func(cmd *cobra.Command, args []string) {
		if GetFlag(cmd, "version") {
			fmt.Println("wizc", versionString())
		}
	},
}

func versionString() string {
	if Version != "" {
		return Version
	}
	//
	return "(unknown version)"
}

// Execute adds all child commands to the root command and runs it.
// Called once by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().Bool("version", false, "report the version of this executable")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug-level phase logging")
	rootCmd.PersistentFlags().String("platform", "mos6502", "target platform (mos6502)")
}
