package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wiz-lang/wiz/pkg/platform"
	"github.com/wiz-lang/wiz/pkg/platform/mos6502"
)

// GetFlag gets an expected bool flag, exiting on error.
func GetFlag(cmd *cobra.Command, flag string) bool {
	r, err := cmd.Flags().GetBool(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	//
	return r
}

// GetString gets an expected string flag, exiting on error.
func GetString(cmd *cobra.Command, flag string) string {
	r, err := cmd.Flags().GetString(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	//
	return r
}

// GetStringArray gets an expected string-array flag, exiting on error.
func GetStringArray(cmd *cobra.Command, flag string) []string {
	r, err := cmd.Flags().GetStringArray(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	//
	return r
}

// resolvePlatform maps the `--platform` flag to a concrete
// platform.Platform. Only mos6502 is wired up (pkg/platform/mos6502,
// the sample platform SPEC_FULL.md's module map calls for); a real
// deployment would register 65816/Z80/SPC700 backends here the same
// way.
func resolvePlatform(name string) (platform.Platform, bool) {
	switch name {
	case "mos6502":
		return mos6502.New(), true
	default:
		return nil, false
	}
}
