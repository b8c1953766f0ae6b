package cmd

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/wiz-lang/wiz/pkg/ast"
	"github.com/wiz-lang/wiz/pkg/compiler"
	"github.com/wiz-lang/wiz/pkg/source"
)

var compileCmd = &cobra.Command{
	Use:   "compile [flags] program.gob",
	Short: "compile a program tree into per-bank byte images.",
	Long: `Compile a gob-encoded []ast.Statement program tree (spec.md §1 excludes a
parser, so the core always starts from an already-built tree) into one
flat byte image per bank, written to the output directory.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		debug := GetFlag(cmd, "verbose") || GetFlag(cmd, "debug")
		if debug {
			log.SetLevel(log.DebugLevel)
		}
		//
		platformName := GetString(cmd, "platform")
		outDir := GetString(cmd, "output")
		defines := GetStringArray(cmd, "set")
		//
		plat, ok := resolvePlatform(platformName)
		if !ok {
			fmt.Printf("unknown platform %q\n", platformName)
			os.Exit(2)
		}
		//
		stmts := readProgram(args[0])
		//
		c := compiler.New(plat, stmts).SetDebug(debug)
		for _, d := range defines {
			c.SetDefine(d, ast.NewBooleanLiteral(source.Location{}, true))
		}
		//
		result, ok := c.Compile()
		if !ok {
			fmt.Print(c.Report().Format())
			os.Exit(1)
		}
		//
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		//
		for name, img := range result.Images {
			path := filepath.Join(outDir, name+".bin")
			if err := os.WriteFile(path, img.Bytes(), 0o644); err != nil {
				fmt.Println(err)
				os.Exit(1)
			}
			//
			log.Debugf("wrote bank %q (%d bytes) to %s", name, len(img.Bytes()), path)
		}
	},
}

func readProgram(path string) []ast.Statement {
	f, err := os.Open(path)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer f.Close()
	//
	var stmts []ast.Statement
	if err := gob.NewDecoder(f).Decode(&stmts); err != nil {
		fmt.Printf("malformed program file: %s\n", err)
		os.Exit(1)
	}
	//
	return stmts
}

func init() {
	rootCmd.AddCommand(compileCmd)
	compileCmd.Flags().Bool("debug", false, "enable debug logging of compiler phases and recorded diagnostics")
	compileCmd.Flags().StringP("output", "o", "out", "directory to write per-bank byte images into")
	compileCmd.Flags().StringArrayP("set", "S", []string{}, "set a boolean builtin define, e.g. -S feature.sound")
}
