// Command wizc is the command-line driver for the wiz cross-compiler
// core: a thin cobra shell (pkg/cmd) around pkg/compiler and pkg/bank.
package main

import "github.com/wiz-lang/wiz/pkg/cmd"

func main() {
	cmd.Execute()
}
