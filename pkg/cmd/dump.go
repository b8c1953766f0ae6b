package cmd

import (
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/wiz-lang/wiz/pkg/bank"
	"github.com/wiz-lang/wiz/pkg/compiler"
)

var dumpCmd = &cobra.Command{
	Use:   "dump [flags] program.gob",
	Short: "compile a program tree and write a debug bank dump.",
	Long: `Like "compile", but writes every bank's assembled bytes plus caller-supplied
metadata into a single pkg/bank.Dump file instead of one .bin per bank.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		debug := GetFlag(cmd, "verbose") || GetFlag(cmd, "debug")
		if debug {
			log.SetLevel(log.DebugLevel)
		}
		//
		platformName := GetString(cmd, "platform")
		output := GetString(cmd, "output")
		meta := GetStringArray(cmd, "meta")
		//
		plat, ok := resolvePlatform(platformName)
		if !ok {
			fmt.Printf("unknown platform %q\n", platformName)
			os.Exit(2)
		}
		//
		stmts := readProgram(args[0])
		c := compiler.New(plat, stmts).SetDebug(debug)
		//
		result, ok := c.Compile()
		if !ok {
			fmt.Print(c.Report().Format())
			os.Exit(1)
		}
		//
		metadata := buildMetadata(meta)
		metadata["platform"] = platformName
		//
		d, err := bank.NewDump(result.Images, metadata)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		//
		encoded, err := d.MarshalBinary()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		//
		if err := os.WriteFile(output, encoded, 0o644); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		//
		log.Debugf("wrote bank dump with %d image(s) to %s", len(result.Images), output)
	},
}

func buildMetadata(items []string) map[string]string {
	metadata := make(map[string]string, len(items))
	//
	for _, item := range items {
		split := strings.SplitN(item, "=", 2)
		if len(split) != 2 {
			fmt.Printf("malformed metadata entry %q, expected key=value\n", item)
			os.Exit(2)
		}
		//
		metadata[split[0]] = split[1]
	}
	//
	return metadata
}

func init() {
	rootCmd.AddCommand(dumpCmd)
	dumpCmd.Flags().Bool("debug", false, "enable debug logging of compiler phases and recorded diagnostics")
	dumpCmd.Flags().StringP("output", "o", "out.wizbank", "dump file to write")
	dumpCmd.Flags().StringArrayP("meta", "m", []string{}, "attach metadata key=value to the dump")
}
